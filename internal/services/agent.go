package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"cabinex-be/internal/gemini"
	"cabinex-be/internal/models"
	"cabinex-be/internal/storage"

	"github.com/google/uuid"
)

const welcomeMessage = "Ayubowan! I'm the Shop Manager. Upload site photos or tell me about new leads in Colombo."

const connectionErrorMessage = "Connection error. Please try again."

// AgentLLM is the slice of the model client the orchestrator needs.
type AgentLLM interface {
	Chat(ctx context.Context, history []models.ChatItem, message models.ChatItem, leadContext string) (*gemini.AgentReply, error)
	Geocode(ctx context.Context, address string) (*models.GeocodeResult, error)
	GenerateDesignRender(ctx context.Context, sketch []byte, prompt string) ([]byte, error)
}

// LeadDirectory is the mutation surface a confirmed tool call may touch.
type LeadDirectory interface {
	Leads() []models.Lead
	GetLeadByID(id string) (*models.Lead, bool)
	AddLead(ctx context.Context, lead models.Lead) error
	UpdateLead(ctx context.Context, id string, patch models.LeadPatch) error
	AddNote(ctx context.Context, id, text, author string) error
	AppendDesign(ctx context.Context, id string, design models.GeneratedDesign) error
}

// Uploader stores generated design images.
type Uploader interface {
	SaveBytes(path string, data []byte) (string, error)
}

// ChatSession holds one transient conversation. Sessions live in memory only
// and are lost on restart.
type ChatSession struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`

	mu    sync.Mutex
	items []models.ChatItem
}

// AgentService runs the chat loop: it forwards history to the model, holds
// tool-call proposals until the operator confirms or cancels, and feeds the
// outcome back into history so the next model turn sees the result.
type AgentService struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession

	llm     AgentLLM
	leads   LeadDirectory
	uploads Uploader
}

func NewAgentService(llm AgentLLM, leads LeadDirectory, uploads Uploader) *AgentService {
	return &AgentService{
		sessions: make(map[string]*ChatSession),
		llm:      llm,
		leads:    leads,
		uploads:  uploads,
	}
}

// CreateSession opens a conversation seeded with the shop-manager greeting.
func (s *AgentService) CreateSession(createdBy string) *ChatSession {
	session := &ChatSession{
		ID:        uuid.New().String(),
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		items: []models.ChatItem{{
			ID:        "welcome",
			Role:      models.ChatRoleModel,
			Text:      welcomeMessage,
			CreatedAt: time.Now(),
		}},
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

func (s *AgentService) GetSession(id string) (*ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// History returns a copy of the session transcript.
func (s *AgentService) History(sessionID string) ([]models.ChatItem, error) {
	session, ok := s.GetSession(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	out := make([]models.ChatItem, len(session.items))
	copy(out, session.items)
	return out, nil
}

// Send appends the user turn, forwards the full history to the model and
// appends its reply. A model failure becomes a generic error bubble rather
// than a failed request; there is no retry.
func (s *AgentService) Send(ctx context.Context, sessionID, text, image string) (*models.ChatSendResponse, error) {
	session, ok := s.GetSession(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if strings.TrimSpace(text) == "" && image == "" {
		return nil, fmt.Errorf("message is empty")
	}

	if image != "" {
		// Accept either a bare base64 payload or a full data URL.
		_, payload := storage.SplitDataURL(image)
		if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
			return nil, fmt.Errorf("image is not valid base64: %v", err)
		}
		image = payload
	}

	userItem := models.ChatItem{
		ID:        uuid.New().String(),
		Role:      models.ChatRoleUser,
		Text:      text,
		Image:     image,
		CreatedAt: time.Now(),
	}
	if userItem.Text == "" {
		userItem.Text = "Analyze this image"
	}

	session.mu.Lock()
	history := make([]models.ChatItem, len(session.items))
	copy(history, session.items)
	session.items = append(session.items, userItem)
	session.mu.Unlock()

	leadContext := s.leadContext()

	reply, err := s.llm.Chat(ctx, history, userItem, leadContext)

	modelItem := models.ChatItem{
		ID:        uuid.New().String(),
		Role:      models.ChatRoleModel,
		CreatedAt: time.Now(),
	}
	if err != nil {
		log.Printf("Agent chat failed for session %s: %v", sessionID, err)
		modelItem.Text = connectionErrorMessage
	} else {
		modelItem.Text = reply.Text
		modelItem.ToolCall = reply.ToolCall
		if modelItem.Text == "" && modelItem.ToolCall == nil {
			modelItem.Text = "I didn't understand that."
		}
	}

	session.mu.Lock()
	session.items = append(session.items, modelItem)
	session.mu.Unlock()

	return &models.ChatSendResponse{
		Items:   []models.ChatItem{userItem, modelItem},
		Pending: modelItem.ToolCall,
	}, nil
}

func (s *AgentService) leadContext() string {
	leads := s.leads.Leads()
	lines := make([]string, 0, len(leads))
	for _, l := range leads {
		preferred := l.PreferredVisitDate
		if preferred == "" {
			preferred = "None"
		}
		lines = append(lines, fmt.Sprintf("ID: %s | Name: %s | Status: %s | Addr: %s | PrefDate: %s",
			l.ID, l.CustomerName, l.Status, l.AddressLabel, preferred))
	}
	return strings.Join(lines, "\n")
}

// IsResolved reports whether a tool call has been answered: true iff a later
// user-role item carries the same call reference with an outcome string.
// This is a linear scan of the transcript, mirroring how the widget decides
// to render as completed.
func (s *AgentService) IsResolved(sessionID, callID string) (bool, error) {
	items, err := s.History(sessionID)
	if err != nil {
		return false, err
	}
	return resolved(items, callID), nil
}

func resolved(items []models.ChatItem, callID string) bool {
	for _, item := range items {
		if item.Role == models.ChatRoleUser && item.ToolCall != nil &&
			item.ToolCall.ID == callID && item.ToolResponse != "" {
			return true
		}
	}
	return false
}

func findToolCall(items []models.ChatItem, callID string) *models.ToolCall {
	for _, item := range items {
		if item.Role == models.ChatRoleModel && item.ToolCall != nil && item.ToolCall.ID == callID {
			return item.ToolCall
		}
	}
	return nil
}

// Confirm executes the proposed action and closes the loop with a synthetic
// user turn carrying the outcome. overrideArgs, when non-nil, replaces the
// proposed arguments with the operator's edits.
func (s *AgentService) Confirm(ctx context.Context, sessionID, callID string, overrideArgs map[string]interface{}) (string, error) {
	session, ok := s.GetSession(sessionID)
	if !ok {
		return "", fmt.Errorf("session not found: %s", sessionID)
	}

	session.mu.Lock()
	items := make([]models.ChatItem, len(session.items))
	copy(items, session.items)
	session.mu.Unlock()

	toolCall := findToolCall(items, callID)
	if toolCall == nil {
		return "", fmt.Errorf("tool call not found: %s", callID)
	}
	if resolved(items, callID) {
		return "", ErrAlreadyResolved
	}

	args := toolCall.Args
	if overrideArgs != nil {
		args = overrideArgs
	}

	outcome, err := s.executeToolCall(ctx, toolCall.Name, args)
	if err != nil {
		// The widget stays pending so the operator can retry.
		return "", err
	}

	s.appendResolution(session, toolCall, "Action confirmed.", outcome)
	return outcome, nil
}

// Cancel records the rejection without performing any mutation.
func (s *AgentService) Cancel(sessionID, callID string) (string, error) {
	session, ok := s.GetSession(sessionID)
	if !ok {
		return "", fmt.Errorf("session not found: %s", sessionID)
	}

	session.mu.Lock()
	items := make([]models.ChatItem, len(session.items))
	copy(items, session.items)
	session.mu.Unlock()

	toolCall := findToolCall(items, callID)
	if toolCall == nil {
		return "", fmt.Errorf("tool call not found: %s", callID)
	}
	if resolved(items, callID) {
		return "", ErrAlreadyResolved
	}

	outcome := "User cancelled the action."
	s.appendResolution(session, toolCall, "Action cancelled.", outcome)
	return outcome, nil
}

// ErrAlreadyResolved marks a confirm/cancel attempt on an answered tool
// call; the widget renders as an inert completed notice.
var ErrAlreadyResolved = fmt.Errorf("tool call already resolved")

func (s *AgentService) appendResolution(session *ChatSession, toolCall *models.ToolCall, text, outcome string) {
	item := models.ChatItem{
		ID:           uuid.New().String(),
		Role:         models.ChatRoleUser,
		Text:         text,
		ToolCall:     toolCall,
		ToolResponse: outcome,
		CreatedAt:    time.Now(),
	}
	session.mu.Lock()
	session.items = append(session.items, item)
	session.mu.Unlock()
}

func (s *AgentService) executeToolCall(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	switch name {
	case models.ToolProposeLead:
		return s.executeProposeLead(ctx, args)
	case models.ToolProposeLeadUpdate:
		return s.executeProposeLeadUpdate(ctx, args)
	case models.ToolProposeInvoice:
		return s.executeProposeInvoice(ctx, args)
	case models.ToolProposeStatusUpdate:
		return s.executeProposeStatusUpdate(ctx, args)
	case models.ToolGenerateDesign:
		return s.executeGenerateDesign(ctx, args)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *AgentService) executeProposeLead(ctx context.Context, args map[string]interface{}) (string, error) {
	customerName := argString(args, "customerName")
	addressLabel := argString(args, "addressLabel")
	if customerName == "" || addressLabel == "" {
		return "", fmt.Errorf("propose_lead requires customerName and addressLabel")
	}

	// The widget may have geocoded already; otherwise resolve now, falling
	// back to the city-center point so a confirmed proposal never stalls.
	location := argLocation(args)
	if location == nil {
		if geo, err := s.llm.Geocode(ctx, addressLabel); err == nil {
			location = &models.GeoPoint{Lat: geo.Lat, Lng: geo.Lng}
		} else {
			log.Printf("Geocode failed for %q, using fallback: %v", addressLabel, err)
			fallback := gemini.ColomboFallback()
			location = &fallback
		}
	}

	lead := models.Lead{
		CustomerName:   customerName,
		WhatsappNumber: argString(args, "whatsappNumber"),
		AddressLabel:   addressLabel,
		Location:       *location,
		Status:         models.LeadStatusNew,
		Notes:          []models.Note{},
		Visits:         []models.Visit{},
	}
	if note := argString(args, "initialNote"); note != "" {
		lead.Notes = append(lead.Notes, models.Note{
			ID:        uuid.New().String(),
			Text:      note,
			Author:    "chat",
			CreatedAt: time.Now(),
		})
	}

	if err := s.leads.AddLead(ctx, lead); err != nil {
		return "", err
	}
	return fmt.Sprintf("Lead %s created successfully.", customerName), nil
}

func (s *AgentService) executeProposeLeadUpdate(ctx context.Context, args map[string]interface{}) (string, error) {
	leadID := argString(args, "leadId")
	if leadID == "" {
		return "", fmt.Errorf("propose_lead_update requires leadId")
	}

	var patch models.LeadPatch
	if v := argString(args, "customerName"); v != "" {
		patch.CustomerName = &v
	}
	if v := argString(args, "whatsappNumber"); v != "" {
		patch.WhatsappNumber = &v
	}
	if v := argString(args, "addressLabel"); v != "" {
		patch.AddressLabel = &v
		if location := argLocation(args); location != nil {
			patch.Location = location
		} else if geo, err := s.llm.Geocode(ctx, v); err == nil {
			patch.Location = &models.GeoPoint{Lat: geo.Lat, Lng: geo.Lng}
		}
	}

	if !patch.IsEmpty() {
		if err := s.leads.UpdateLead(ctx, leadID, patch); err != nil {
			return "", err
		}
	}
	if note := argString(args, "noteToAdd"); note != "" {
		if err := s.leads.AddNote(ctx, leadID, note, "chat"); err != nil {
			return "", err
		}
	}
	return "Updated lead details successfully.", nil
}

func (s *AgentService) executeProposeInvoice(ctx context.Context, args map[string]interface{}) (string, error) {
	leadID := argString(args, "leadId")
	amount := argFloat(args, "amount")
	if leadID == "" || amount <= 0 {
		return "", fmt.Errorf("propose_invoice requires leadId and a positive amount")
	}

	lead, ok := s.leads.GetLeadByID(leadID)
	if !ok {
		return "", fmt.Errorf("lead not found: %s", leadID)
	}

	status := models.LeadStatusInvoiceSent
	patch := models.LeadPatch{
		Status:             &status,
		VisitChargeInvoice: &models.VisitChargeInvoice{Amount: amount, Paid: false},
	}
	if err := s.leads.UpdateLead(ctx, leadID, patch); err != nil {
		return "", err
	}
	return fmt.Sprintf("Invoice for LKR %.0f attached to %s.", amount, lead.CustomerName), nil
}

func (s *AgentService) executeProposeStatusUpdate(ctx context.Context, args map[string]interface{}) (string, error) {
	leadID := argString(args, "leadId")
	newStatus := argString(args, "newStatus")
	if leadID == "" || newStatus == "" {
		return "", fmt.Errorf("propose_status_update requires leadId and newStatus")
	}

	patch := models.LeadPatch{Status: &newStatus}
	if err := s.leads.UpdateLead(ctx, leadID, patch); err != nil {
		return "", err
	}
	return fmt.Sprintf("Status updated to %s.", newStatus), nil
}

func (s *AgentService) executeGenerateDesign(ctx context.Context, args map[string]interface{}) (string, error) {
	prompt := argString(args, "prompt")
	if prompt == "" {
		return "", fmt.Errorf("generate_design_concept requires a prompt")
	}

	data, err := s.llm.GenerateDesignRender(ctx, nil, prompt)
	if err != nil {
		return "", err
	}

	url, err := s.uploads.SaveBytes(fmt.Sprintf("designs/%s.png", uuid.New().String()), data)
	if err != nil {
		return "", err
	}

	if leadID := argString(args, "leadId"); leadID != "" {
		design := models.GeneratedDesign{
			ID:          uuid.New().String(),
			RenderedURL: url,
			Prompt:      prompt,
			CreatedAt:   time.Now(),
		}
		if err := s.leads.AppendDesign(ctx, leadID, design); err != nil {
			return "", err
		}
		return fmt.Sprintf("Design concept generated and attached to lead. %s", url), nil
	}
	return fmt.Sprintf("Design concept generated. %s", url), nil
}

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(args map[string]interface{}, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func argLocation(args map[string]interface{}) *models.GeoPoint {
	raw, ok := args["location"].(map[string]interface{})
	if !ok {
		return nil
	}
	lat, latOK := raw["lat"].(float64)
	lng, lngOK := raw["lng"].(float64)
	if !latOK || !lngOK {
		return nil
	}
	return &models.GeoPoint{Lat: lat, Lng: lng}
}
