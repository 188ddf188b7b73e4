package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"cabinex-be/internal/gemini"
	"cabinex-be/internal/models"
	"cabinex-be/internal/services"
	"cabinex-be/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LeadHandler struct {
	leads *services.LeadService
	ai    *gemini.Client
	store *storage.Storage
}

func NewLeadHandler(leads *services.LeadService, ai *gemini.Client, store *storage.Storage) *LeadHandler {
	return &LeadHandler{leads: leads, ai: ai, store: store}
}

// CreateLead creates a lead from the manual entry form. The location must
// already be resolved; the form geocodes through POST /geocode first.
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req models.LeadCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead := models.Lead{
		ID:                 uuid.New().String(),
		CustomerName:       req.CustomerName,
		WhatsappNumber:     req.WhatsappNumber,
		AddressLabel:       req.AddressLabel,
		Location:           *req.Location,
		Status:             models.LeadStatusNew,
		PreferredVisitDate: req.PreferredVisitDate,
		Notes:              []models.Note{},
		Visits:             []models.Visit{},
	}
	if userEmail, exists := c.Get("user_email"); exists {
		lead.CreatedBy = fmt.Sprintf("%v", userEmail)
	}
	if req.InitialNote != "" {
		lead.Notes = append(lead.Notes, models.Note{
			ID:        uuid.New().String(),
			Text:      req.InitialNote,
			Author:    lead.CreatedBy,
			CreatedAt: time.Now(),
		})
	}

	if err := h.leads.AddLead(c.Request.Context(), lead); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lead"})
		return
	}

	created, _ := h.leads.GetLeadByID(lead.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Lead created successfully",
		"lead":    created,
	})
}

// ListLeads returns the in-memory snapshot, optionally filtered by one or
// more ?status= values.
func (h *LeadHandler) ListLeads(c *gin.Context) {
	statuses := c.QueryArray("status")

	var leads []models.Lead
	if len(statuses) > 0 {
		for _, s := range statuses {
			if !models.IsValidLeadStatus(s) {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid status: %s", s)})
				return
			}
		}
		leads = h.leads.LeadsByStatus(statuses...)
	} else {
		leads = h.leads.Leads()
	}

	c.JSON(http.StatusOK, gin.H{"leads": leads, "count": len(leads)})
}

func (h *LeadHandler) GetLead(c *gin.Context) {
	lead, ok := h.leads.GetLeadByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

func (h *LeadHandler) UpdateLead(c *gin.Context) {
	var patch models.LeadPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if err := h.leads.UpdateLead(c.Request.Context(), c.Param("id"), patch); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrLeadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	lead, _ := h.leads.GetLeadByID(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Lead updated successfully", "lead": lead})
}

func (h *LeadHandler) AddNote(c *gin.Context) {
	var req models.NoteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	author := "staff"
	if userEmail, exists := c.Get("user_email"); exists {
		author = fmt.Sprintf("%v", userEmail)
	}

	if err := h.leads.AddNote(c.Request.Context(), c.Param("id"), req.Text, author); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrLeadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	lead, _ := h.leads.GetLeadByID(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Note added", "lead": lead})
}

// UpdateStatus moves a lead to any valid status. There is no transition
// graph; the operator can jump straight from new to won.
func (h *LeadHandler) UpdateStatus(c *gin.Context) {
	var req models.LeadStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsValidLeadStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid status: %s", req.Status)})
		return
	}

	patch := models.LeadPatch{Status: &req.Status}
	if err := h.leads.UpdateLead(c.Request.Context(), c.Param("id"), patch); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrLeadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if req.Reason != "" {
		author := "staff"
		if userEmail, exists := c.Get("user_email"); exists {
			author = fmt.Sprintf("%v", userEmail)
		}
		if err := h.leads.AddNote(c.Request.Context(), c.Param("id"), req.Reason, author); err != nil {
			log.Printf("Failed to record status reason for lead %s: %v", c.Param("id"), err)
		}
	}

	lead, _ := h.leads.GetLeadByID(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "lead": lead})
}

// AttachInvoice sets the visit-charge invoice and moves the lead to
// invoice_sent in one step.
func (h *LeadHandler) AttachInvoice(c *gin.Context) {
	var req models.InvoiceAttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}

	status := models.LeadStatusInvoiceSent
	patch := models.LeadPatch{
		Status:             &status,
		VisitChargeInvoice: &models.VisitChargeInvoice{Amount: req.Amount, Paid: false},
	}
	if err := h.leads.UpdateLead(c.Request.Context(), c.Param("id"), patch); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrLeadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	lead, _ := h.leads.GetLeadByID(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Invoice attached", "lead": lead})
}

// MarkInvoicePaid records payment and moves the lead to paid.
func (h *LeadHandler) MarkInvoicePaid(c *gin.Context) {
	lead, ok := h.leads.GetLeadByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}
	if lead.VisitChargeInvoice == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Lead has no invoice attached"})
		return
	}

	if err := h.leads.MarkInvoicePaid(c.Request.Context(), lead.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	updated, _ := h.leads.GetLeadByID(lead.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Invoice marked as paid", "lead": updated})
}

func (h *LeadHandler) SetVisitDate(c *gin.Context) {
	var req models.VisitDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := models.LeadPatch{PreferredVisitDate: &req.PreferredVisitDate}
	if err := h.leads.UpdateLead(c.Request.Context(), c.Param("id"), patch); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrLeadNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	lead, _ := h.leads.GetLeadByID(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Visit date updated", "lead": lead})
}

// UploadImage stores a site photo against the lead, writes a thumbnail
// and returns the model's read of the image.
func (h *LeadHandler) UploadImage(c *gin.Context) {
	lead, ok := h.leads.GetLeadByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}

	var req models.ImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := fmt.Sprintf("leads/%s/%s.jpg", lead.ID, uuid.New().String())
	url, err := h.store.SaveDataURL(req.Image, path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to store image: %v", err)})
		return
	}
	if _, err := h.store.Thumbnail(path); err != nil {
		log.Printf("Thumbnail generation failed for %s: %v", path, err)
	}

	if err := h.leads.AppendImage(c.Request.Context(), lead.ID, url); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Analysis is best effort; the upload stands even when the model is down.
	analysis := ""
	_, payload := storage.SplitDataURL(req.Image)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		if text, err := h.ai.IdentifyImage(c.Request.Context(), data); err == nil {
			analysis = text
		} else {
			log.Printf("Image analysis failed for lead %s: %v", lead.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Image uploaded",
		"url":      url,
		"analysis": analysis,
	})
}

// GenerateDesign renders a concept image from a prompt, optionally
// constrained by an uploaded sketch, and attaches it to the lead.
func (h *LeadHandler) GenerateDesign(c *gin.Context) {
	lead, ok := h.leads.GetLeadByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}

	var req models.DesignGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sketch []byte
	sketchURL := ""
	if req.Sketch != "" {
		_, payload := storage.SplitDataURL(req.Sketch)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Sketch is not valid base64"})
			return
		}
		sketch = data

		url, err := h.store.SaveDataURL(req.Sketch, fmt.Sprintf("leads/%s/sketch-%s.jpg", lead.ID, uuid.New().String()))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store sketch"})
			return
		}
		sketchURL = url
	}

	rendered, err := h.ai.GenerateDesignRender(c.Request.Context(), sketch, req.Prompt)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Render generation failed: %v", err)})
		return
	}

	renderURL, err := h.store.SaveBytes(fmt.Sprintf("leads/%s/render-%s.png", lead.ID, uuid.New().String()), rendered)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store render"})
		return
	}

	design := models.GeneratedDesign{
		ID:          uuid.New().String(),
		SketchURL:   sketchURL,
		RenderedURL: renderURL,
		Prompt:      req.Prompt,
		CreatedAt:   time.Now(),
	}
	if err := h.leads.AppendDesign(c.Request.Context(), lead.ID, design); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Design generated", "design": design})
}

// DraftWhatsApp drafts an outbound customer message for review. Nothing
// is sent from the server.
func (h *LeadHandler) DraftWhatsApp(c *gin.Context) {
	lead, ok := h.leads.GetLeadByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}

	var req models.WhatsAppDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.ai.DraftWhatsAppMessage(c.Request.Context(), *lead, req.Kind)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Draft failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"draft": draft, "whatsapp_number": lead.WhatsappNumber})
}

// Geocode resolves a free-text Colombo address to coordinates for the
// manual lead form.
func (h *LeadHandler) Geocode(c *gin.Context) {
	var req models.GeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ai.Geocode(c.Request.Context(), req.Address)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Could not resolve address: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// WatchLeads streams snapshot updates over SSE. Every change to the lead
// set pushes the full list, mirroring a live collection query.
func (h *LeadHandler) WatchLeads(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	updates := make(chan []models.Lead, 4)
	unsubscribe := h.leads.Subscribe(func(leads []models.Lead) {
		select {
		case updates <- leads:
		default:
			// Drop when the client is slow; the next update carries the
			// full snapshot anyway.
		}
	})
	defer unsubscribe()

	c.Stream(func(w io.Writer) bool {
		select {
		case leads := <-updates:
			payload, err := json.Marshal(leads)
			if err != nil {
				return false
			}
			c.SSEvent("leads", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
