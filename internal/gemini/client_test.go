package gemini

import (
	"encoding/base64"
	"testing"

	"cabinex-be/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoutePlanFencedJSON(t *testing.T) {
	text := "Here is the plan:\n```json\n{\"route\":[{\"leadId\":\"l1\",\"travelTimeMins\":15,\"serviceTimeMins\":20,\"arrivalTime\":\"09:00\",\"date\":\"2026-09-01\"}],\"totalTimeMins\":35,\"isFeasible\":true,\"summary\":\"One stop.\"}\n```\nDone."

	plan := ParseRoutePlan(text)
	require.Len(t, plan.Route, 1)
	assert.Equal(t, "l1", plan.Route[0].LeadID)
	assert.Equal(t, 15, plan.Route[0].TravelTimeMins)
	assert.Equal(t, 35, plan.TotalTimeMins)
	assert.True(t, plan.IsFeasible)
	assert.Empty(t, plan.EfficiencyTips)
}

func TestParseRoutePlanBareJSON(t *testing.T) {
	plan := ParseRoutePlan(`{"isFeasible":false,"summary":"Too many stops for one day."}`)
	assert.False(t, plan.IsFeasible)
	assert.Equal(t, "Too many stops for one day.", plan.Summary)
}

func TestParseRoutePlanGarbageFallsBackToTips(t *testing.T) {
	raw := "I could not produce a schedule, but visit Dehiwala first to beat traffic."
	plan := ParseRoutePlan(raw)
	assert.Empty(t, plan.Route)
	assert.False(t, plan.IsFeasible)
	assert.Equal(t, raw, plan.EfficiencyTips)
}

func TestParseRoutePlanUnterminatedFence(t *testing.T) {
	plan := ParseRoutePlan("```json\n{\"summary\":\"ok\"}")
	assert.Equal(t, "ok", plan.Summary)
}

func TestColomboFallback(t *testing.T) {
	p := ColomboFallback()
	assert.Equal(t, 6.9271, p.Lat)
	assert.Equal(t, 79.8612, p.Lng)
}

func TestFlattenHistoryRolesAndParts(t *testing.T) {
	image := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	items := []models.ChatItem{
		{Role: models.ChatRoleModel, Text: "Ayubowan!"},
		{Role: models.ChatRoleUser, Text: "Add John", Image: image},
		{Role: models.ChatRoleModel, Text: "Please confirm.", ToolCall: &models.ToolCall{
			ID: "call-1", Name: models.ToolProposeLead, Args: map[string]interface{}{"customerName": "John"},
		}},
		{Role: models.ChatRoleUser, Text: "Action confirmed.", ToolCall: &models.ToolCall{
			ID: "call-1", Name: models.ToolProposeLead,
		}, ToolResponse: "Lead John created successfully."},
	}

	contents := FlattenHistory(items)
	require.Len(t, contents, 4)

	assert.Equal(t, "model", contents[0].Role)
	assert.Equal(t, genai.Text("Ayubowan!"), contents[0].Parts[0])

	require.Len(t, contents[1].Parts, 2)
	blob, ok := contents[1].Parts[1].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
	assert.Equal(t, []byte("jpeg-bytes"), blob.Data)

	require.Len(t, contents[2].Parts, 2)
	call, ok := contents[2].Parts[1].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, models.ToolProposeLead, call.Name)

	require.Len(t, contents[3].Parts, 2)
	response, ok := contents[3].Parts[1].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, models.ToolProposeLead, response.Name)
	assert.Equal(t, "Lead John created successfully.", response.Response["result"])
}

func TestFlattenHistorySkipsEmptyItems(t *testing.T) {
	items := []models.ChatItem{
		{Role: models.ChatRoleUser},
		{Role: models.ChatRoleUser, Text: "hello"},
	}
	contents := FlattenHistory(items)
	require.Len(t, contents, 1)
	assert.Equal(t, genai.Text("hello"), contents[0].Parts[0])
}

// A pending proposal (no tool response yet) must not emit a function
// response part, or the wire history would claim resolution.
func TestFlattenHistoryPendingCallHasNoResponse(t *testing.T) {
	items := []models.ChatItem{
		{Role: models.ChatRoleUser, Text: "thinking about it", ToolCall: &models.ToolCall{
			ID: "call-1", Name: models.ToolProposeLead,
		}},
	}
	contents := FlattenHistory(items)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, genai.Text("thinking about it"), contents[0].Parts[0])
}

func TestReplyFromResponseSurfacesFirstCallOnly(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []genai.Part{
					genai.Text("Please confirm."),
					genai.FunctionCall{Name: models.ToolProposeLead, Args: map[string]interface{}{"customerName": "John"}},
					genai.FunctionCall{Name: models.ToolProposeInvoice},
				},
			},
		}},
	}

	reply := replyFromResponse(resp)
	assert.Equal(t, "Please confirm.", reply.Text)
	require.NotNil(t, reply.ToolCall)
	assert.Equal(t, models.ToolProposeLead, reply.ToolCall.Name)
	assert.NotEmpty(t, reply.ToolCall.ID)
}

func TestReplyFromResponseEmpty(t *testing.T) {
	reply := replyFromResponse(nil)
	assert.Empty(t, reply.Text)
	assert.Nil(t, reply.ToolCall)
}
