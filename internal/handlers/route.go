package handlers

import (
	"fmt"
	"net/http"

	"cabinex-be/internal/gemini"
	"cabinex-be/internal/models"
	"cabinex-be/internal/services"

	"github.com/gin-gonic/gin"
)

type RouteHandler struct {
	leads *services.LeadService
	ai    *gemini.Client
}

func NewRouteHandler(leads *services.LeadService, ai *gemini.Client) *RouteHandler {
	return &RouteHandler{leads: leads, ai: ai}
}

// PlanRoutes asks the model for a visit schedule over the leads that are
// waiting for a site visit (paid, or invoiced and chased).
func (h *RouteHandler) PlanRoutes(c *gin.Context) {
	candidates := h.leads.LeadsByStatus(models.LeadStatusPaid, models.LeadStatusInvoiceSent)
	if len(candidates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"plan": models.RoutePlan{
				IsFeasible: true,
				Summary:    "No leads are waiting for a visit.",
			},
			"lead_count": 0,
		})
		return
	}

	plan, err := h.ai.AnalyzeRoutes(c.Request.Context(), candidates)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Route analysis failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan, "lead_count": len(candidates)})
}
