package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"cabinex-be/internal/gemini"
	"cabinex-be/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply       *gemini.AgentReply
	chatErr     error
	geocode     *models.GeocodeResult
	geocodeErr  error
	render      []byte
	renderErr   error
	lastHistory []models.ChatItem
	lastContext string
}

func (f *fakeLLM) Chat(ctx context.Context, history []models.ChatItem, message models.ChatItem, leadContext string) (*gemini.AgentReply, error) {
	f.lastHistory = history
	f.lastContext = leadContext
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return f.reply, nil
}

func (f *fakeLLM) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	if f.geocodeErr != nil {
		return nil, f.geocodeErr
	}
	return f.geocode, nil
}

func (f *fakeLLM) GenerateDesignRender(ctx context.Context, sketch []byte, prompt string) ([]byte, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return f.render, nil
}

type fakeDirectory struct {
	leads   []models.Lead
	added   []models.Lead
	patches map[string]models.LeadPatch
	notes   map[string][]string
	designs map[string][]models.GeneratedDesign
}

func newFakeDirectory(leads ...models.Lead) *fakeDirectory {
	return &fakeDirectory{
		leads:   leads,
		patches: make(map[string]models.LeadPatch),
		notes:   make(map[string][]string),
		designs: make(map[string][]models.GeneratedDesign),
	}
}

func (f *fakeDirectory) Leads() []models.Lead { return f.leads }

func (f *fakeDirectory) GetLeadByID(id string) (*models.Lead, bool) {
	for i := range f.leads {
		if f.leads[i].ID == id {
			return &f.leads[i], true
		}
	}
	return nil, false
}

func (f *fakeDirectory) AddLead(ctx context.Context, lead models.Lead) error {
	f.added = append(f.added, lead)
	return nil
}

func (f *fakeDirectory) UpdateLead(ctx context.Context, id string, patch models.LeadPatch) error {
	if _, ok := f.GetLeadByID(id); !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}
	f.patches[id] = patch
	return nil
}

func (f *fakeDirectory) AddNote(ctx context.Context, id, text, author string) error {
	f.notes[id] = append(f.notes[id], text)
	return nil
}

func (f *fakeDirectory) AppendDesign(ctx context.Context, id string, design models.GeneratedDesign) error {
	f.designs[id] = append(f.designs[id], design)
	return nil
}

func (f *fakeDirectory) mutationCount() int {
	return len(f.added) + len(f.patches) + len(f.notes) + len(f.designs)
}

type fakeUploader struct {
	saved map[string][]byte
}

func (f *fakeUploader) SaveBytes(path string, data []byte) (string, error) {
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[path] = data
	return "http://localhost:8080/uploads/" + path, nil
}

func newTestAgent(llm *fakeLLM, dir *fakeDirectory) *AgentService {
	return NewAgentService(llm, dir, &fakeUploader{})
}

func TestCreateSessionSeedsWelcome(t *testing.T) {
	agent := newTestAgent(&fakeLLM{}, newFakeDirectory())
	session := agent.CreateSession("boss@cabinex.lk")

	items, err := agent.History(session.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ChatRoleModel, items[0].Role)
	assert.Contains(t, items[0].Text, "Shop Manager")
}

func TestSendAppendsUserAndModelTurns(t *testing.T) {
	llm := &fakeLLM{reply: &gemini.AgentReply{Text: "Got it."}}
	agent := newTestAgent(llm, newFakeDirectory())
	session := agent.CreateSession("")

	resp, err := agent.Send(context.Background(), session.ID, "Hello", "")
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, models.ChatRoleUser, resp.Items[0].Role)
	assert.Equal(t, "Hello", resp.Items[0].Text)
	assert.Equal(t, models.ChatRoleModel, resp.Items[1].Role)
	assert.Equal(t, "Got it.", resp.Items[1].Text)
	assert.Nil(t, resp.Pending)

	items, err := agent.History(session.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSendIncludesLeadSnapshotInContext(t *testing.T) {
	llm := &fakeLLM{reply: &gemini.AgentReply{Text: "ok"}}
	dir := newFakeDirectory(models.Lead{ID: "l1", CustomerName: "Nimal", Status: "new", AddressLabel: "Galle Road"})
	agent := newTestAgent(llm, dir)
	session := agent.CreateSession("")

	_, err := agent.Send(context.Background(), session.ID, "list leads", "")
	require.NoError(t, err)
	assert.Contains(t, llm.lastContext, "Nimal")
	assert.Contains(t, llm.lastContext, "Galle Road")
	assert.Contains(t, llm.lastContext, "PrefDate: None")
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	agent := newTestAgent(&fakeLLM{}, newFakeDirectory())
	session := agent.CreateSession("")

	_, err := agent.Send(context.Background(), session.ID, "   ", "")
	assert.Error(t, err)
}

func TestSendAcceptsDataURLImage(t *testing.T) {
	llm := &fakeLLM{reply: &gemini.AgentReply{Text: "a kitchen"}}
	agent := newTestAgent(llm, newFakeDirectory())
	session := agent.CreateSession("")

	payload := base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	resp, err := agent.Send(context.Background(), session.ID, "", "data:image/jpeg;base64,"+payload)
	require.NoError(t, err)
	assert.Equal(t, payload, resp.Items[0].Image)
	assert.Equal(t, "Analyze this image", resp.Items[0].Text)
}

func TestSendModelFailureBecomesErrorBubble(t *testing.T) {
	llm := &fakeLLM{chatErr: fmt.Errorf("rpc unavailable")}
	agent := newTestAgent(llm, newFakeDirectory())
	session := agent.CreateSession("")

	resp, err := agent.Send(context.Background(), session.ID, "Hello", "")
	require.NoError(t, err)
	assert.Equal(t, connectionErrorMessage, resp.Items[1].Text)

	// The failed turn still sits in history; a later Send carries it.
	items, _ := agent.History(session.ID)
	assert.Len(t, items, 3)
}

func sendProposal(t *testing.T, agent *AgentService, llm *fakeLLM, name string, args map[string]interface{}) (string, string) {
	t.Helper()
	session := agent.CreateSession("")
	llm.reply = &gemini.AgentReply{
		Text:     "Please confirm.",
		ToolCall: &models.ToolCall{ID: "call-1", Name: name, Args: args},
	}
	resp, err := agent.Send(context.Background(), session.ID, "do it", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Pending)
	return session.ID, resp.Pending.ID
}

func TestConfirmProposeLeadCreatesLead(t *testing.T) {
	llm := &fakeLLM{geocode: &models.GeocodeResult{Lat: 6.9, Lng: 79.86}}
	dir := newFakeDirectory()
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeLead, map[string]interface{}{
		"customerName":   "John",
		"whatsappNumber": "+94770000000",
		"addressLabel":   "12 Ward Place, Colombo 07",
		"initialNote":    "Wants a pantry",
	})

	outcome, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.NoError(t, err)
	assert.Contains(t, outcome, "John")

	require.Len(t, dir.added, 1)
	lead := dir.added[0]
	assert.Equal(t, "John", lead.CustomerName)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, 6.9, lead.Location.Lat)
	require.Len(t, lead.Notes, 1)
	assert.Equal(t, "Wants a pantry", lead.Notes[0].Text)

	// The resolution turn closes the loop as a user item.
	items, _ := agent.History(sessionID)
	last := items[len(items)-1]
	assert.Equal(t, models.ChatRoleUser, last.Role)
	require.NotNil(t, last.ToolCall)
	assert.Equal(t, callID, last.ToolCall.ID)
	assert.Equal(t, outcome, last.ToolResponse)
}

func TestConfirmProposeLeadGeocodeFallback(t *testing.T) {
	llm := &fakeLLM{geocodeErr: fmt.Errorf("no result")}
	dir := newFakeDirectory()
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeLead, map[string]interface{}{
		"customerName": "John",
		"addressLabel": "somewhere unmappable",
	})

	_, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.NoError(t, err)

	require.Len(t, dir.added, 1)
	fallback := gemini.ColomboFallback()
	assert.Equal(t, fallback.Lat, dir.added[0].Location.Lat)
	assert.Equal(t, fallback.Lng, dir.added[0].Location.Lng)
}

func TestConfirmUsesOverrideArgs(t *testing.T) {
	llm := &fakeLLM{geocode: &models.GeocodeResult{Lat: 6.9, Lng: 79.86}}
	dir := newFakeDirectory()
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeLead, map[string]interface{}{
		"customerName": "Jhon",
		"addressLabel": "Ward Place",
	})

	_, err := agent.Confirm(context.Background(), sessionID, callID, map[string]interface{}{
		"customerName": "John",
		"addressLabel": "Ward Place",
	})
	require.NoError(t, err)
	require.Len(t, dir.added, 1)
	assert.Equal(t, "John", dir.added[0].CustomerName)
}

func TestConfirmProposeInvoice(t *testing.T) {
	llm := &fakeLLM{}
	dir := newFakeDirectory(models.Lead{ID: "l1", CustomerName: "Shanika", Status: "new"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeInvoice, map[string]interface{}{
		"leadId": "l1",
		"amount": float64(5000),
	})

	outcome, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.NoError(t, err)
	assert.Contains(t, outcome, "Shanika")

	patch := dir.patches["l1"]
	require.NotNil(t, patch.Status)
	assert.Equal(t, models.LeadStatusInvoiceSent, *patch.Status)
	require.NotNil(t, patch.VisitChargeInvoice)
	assert.Equal(t, float64(5000), patch.VisitChargeInvoice.Amount)
	assert.False(t, patch.VisitChargeInvoice.Paid)
}

func TestConfirmProposeStatusUpdate(t *testing.T) {
	llm := &fakeLLM{}
	dir := newFakeDirectory(models.Lead{ID: "l1", Status: "quoted"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeStatusUpdate, map[string]interface{}{
		"leadId":    "l1",
		"newStatus": "won",
	})

	_, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.NoError(t, err)
	require.NotNil(t, dir.patches["l1"].Status)
	assert.Equal(t, "won", *dir.patches["l1"].Status)
}

func TestConfirmProposeLeadUpdateWithNote(t *testing.T) {
	llm := &fakeLLM{geocode: &models.GeocodeResult{Lat: 6.85, Lng: 79.87}}
	dir := newFakeDirectory(models.Lead{ID: "l1", CustomerName: "Ruwan"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeLeadUpdate, map[string]interface{}{
		"leadId":       "l1",
		"addressLabel": "88 Marine Drive, Dehiwala",
		"noteToAdd":    "Moved house",
	})

	_, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.NoError(t, err)

	patch := dir.patches["l1"]
	require.NotNil(t, patch.AddressLabel)
	require.NotNil(t, patch.Location)
	assert.Equal(t, 6.85, patch.Location.Lat)
	assert.Equal(t, []string{"Moved house"}, dir.notes["l1"])
}

func TestConfirmGenerateDesignAttachesToLead(t *testing.T) {
	llm := &fakeLLM{render: []byte("png-bytes")}
	dir := newFakeDirectory(models.Lead{ID: "l1", CustomerName: "Dilani"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolGenerateDesign, map[string]interface{}{
		"leadId": "l1",
		"prompt": "teak pantry with island",
	})

	outcome, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.NoError(t, err)
	assert.Contains(t, outcome, "Design concept generated")

	require.Len(t, dir.designs["l1"], 1)
	design := dir.designs["l1"][0]
	assert.Equal(t, "teak pantry with island", design.Prompt)
	assert.Contains(t, design.RenderedURL, "/uploads/designs/")
}

func TestCancelPerformsNoMutation(t *testing.T) {
	llm := &fakeLLM{}
	dir := newFakeDirectory(models.Lead{ID: "l1"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeStatusUpdate, map[string]interface{}{
		"leadId":    "l1",
		"newStatus": "lost",
	})

	outcome, err := agent.Cancel(sessionID, callID)
	require.NoError(t, err)
	assert.Equal(t, "User cancelled the action.", outcome)
	assert.Zero(t, dir.mutationCount())

	items, _ := agent.History(sessionID)
	last := items[len(items)-1]
	assert.Equal(t, models.ChatRoleUser, last.Role)
	assert.Equal(t, "User cancelled the action.", last.ToolResponse)
}

func TestConfirmTwiceConflicts(t *testing.T) {
	llm := &fakeLLM{}
	dir := newFakeDirectory(models.Lead{ID: "l1"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeStatusUpdate, map[string]interface{}{
		"leadId":    "l1",
		"newStatus": "won",
	})

	_, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.NoError(t, err)

	_, err = agent.Confirm(context.Background(), sessionID, callID, nil)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = agent.Cancel(sessionID, callID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestCancelThenConfirmConflicts(t *testing.T) {
	llm := &fakeLLM{}
	dir := newFakeDirectory(models.Lead{ID: "l1"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolProposeStatusUpdate, map[string]interface{}{
		"leadId":    "l1",
		"newStatus": "won",
	})

	_, err := agent.Cancel(sessionID, callID)
	require.NoError(t, err)

	_, err = agent.Confirm(context.Background(), sessionID, callID, nil)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Zero(t, dir.mutationCount())
}

func TestConfirmExecutionFailureLeavesCallPending(t *testing.T) {
	llm := &fakeLLM{renderErr: fmt.Errorf("model overloaded")}
	dir := newFakeDirectory(models.Lead{ID: "l1"})
	agent := newTestAgent(llm, dir)

	sessionID, callID := sendProposal(t, agent, llm, models.ToolGenerateDesign, map[string]interface{}{
		"leadId": "l1",
		"prompt": "teak pantry",
	})

	_, err := agent.Confirm(context.Background(), sessionID, callID, nil)
	require.Error(t, err)

	// No resolution turn was written, so a retry is possible.
	resolved, err := agent.IsResolved(sessionID, callID)
	require.NoError(t, err)
	assert.False(t, resolved)

	llm.renderErr = nil
	llm.render = []byte("png-bytes")
	_, err = agent.Confirm(context.Background(), sessionID, callID, nil)
	assert.NoError(t, err)
}

func TestConfirmUnknownCall(t *testing.T) {
	agent := newTestAgent(&fakeLLM{}, newFakeDirectory())
	session := agent.CreateSession("")

	_, err := agent.Confirm(context.Background(), session.ID, "nope", nil)
	assert.Error(t, err)
}
