package handlers

import (
	"fmt"
	"net/http"

	"cabinex-be/internal/models"
	"cabinex-be/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	agent *services.AgentService
}

func NewChatHandler(agent *services.AgentService) *ChatHandler {
	return &ChatHandler{agent: agent}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	createdBy := ""
	if userEmail, exists := c.Get("user_email"); exists {
		createdBy = fmt.Sprintf("%v", userEmail)
	}

	session := h.agent.CreateSession(createdBy)
	items, _ := h.agent.History(session.ID)

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"items":      items,
	})
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	items, err := h.agent.History(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "items": items})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req models.ChatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.agent.Send(c.Request.Context(), c.Param("id"), req.Text, req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmTool executes a pending proposal. The operator may send edited
// arguments; an empty body confirms the proposal as-is.
func (h *ChatHandler) ConfirmTool(c *gin.Context) {
	var req models.ToolConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	outcome, err := h.agent.Confirm(c.Request.Context(), c.Param("id"), c.Param("callId"), req.Args)
	if err == services.ErrAlreadyResolved {
		c.JSON(http.StatusConflict, gin.H{"error": "Tool call already resolved"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ToolActionResponse{Resolved: true, Outcome: outcome})
}

func (h *ChatHandler) CancelTool(c *gin.Context) {
	outcome, err := h.agent.Cancel(c.Param("id"), c.Param("callId"))
	if err == services.ErrAlreadyResolved {
		c.JSON(http.StatusConflict, gin.H{"error": "Tool call already resolved"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ToolActionResponse{Resolved: true, Outcome: outcome})
}
