package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"cabinex-be/internal/config"
	"cabinex-be/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const shopManagerInstruction = `
You are the Shop Manager of "Cabinex" in Colombo, Sri Lanka.
Your job is to manage leads, schedule measurements, and optimize costs.

RULES:
1. **Orchestration**: Do NOT perform database actions directly. Instead, call the appropriate 'proposal' tool.
2. **Widgets**: The UI renders widgets for confirmation.
3. **Lead Management**:
   - If the user wants to ADD a new person, use 'propose_lead'.
   - If the user wants to EDIT/CHANGE an existing person, use 'propose_lead_update'. You MUST identify the 'leadId' from the context.
4. **Design Generation**:
   - If the user asks to create/generate/imagine a design, cabinet, or kitchen image, use 'generate_design_concept'.
   - If you don't know which lead it is for, call the tool WITHOUT the leadId, and the UI will ask the user.
5. **Route Logic**:
   - Travel speed in Colombo is approx 20km/h.
   - Each measurement takes 20 minutes.
   - Total daily work limit is 8 hours.
   - If a lead has a 'preferredVisitDate', prioritize that date.
6. **Tone**: Professional, efficiency-focused, slightly strict but helpful.
7. **Context**: You know the geography of Colombo (Colombo 1-15, Suburbs).

When the user provides an image:
- Analyze it for cabinet requirements.
- If it's a site photo, suggest logging it to the specific lead.
`

// Route planning constants. The model does the sequencing; these only frame
// the prompt.
const (
	routeStartLat      = 6.9319
	routeStartLng      = 79.8478
	routeSpeedKmh      = 20
	routeServiceMins   = 20
	routeMaxDayMins    = 480
	colomboFallbackLat = 6.9271
	colomboFallbackLng = 79.8612
)

// ColomboFallback is the city-center point used when geocoding fails during
// a confirmed lead proposal.
func ColomboFallback() models.GeoPoint {
	return models.GeoPoint{Lat: colomboFallbackLat, Lng: colomboFallbackLng}
}

// AgentReply is the distilled model turn: free text, a tool call, or both.
type AgentReply struct {
	Text     string
	ToolCall *models.ToolCall
}

type Client struct {
	client *genai.Client
	cfg    config.GeminiConfig
}

func NewClient(ctx context.Context) (*Client, error) {
	cfg := config.GetConfig().Gemini
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{client: client, cfg: cfg}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

// Chat sends one user turn on top of history to the tool-enabled chat model.
// leadContext is the serialized current pipeline state.
func (c *Client) Chat(ctx context.Context, history []models.ChatItem, message models.ChatItem, leadContext string) (*AgentReply, error) {
	model := c.client.GenerativeModel(c.cfg.ChatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(shopManagerInstruction + "\n\nCURRENT DB STATE:\n" + leadContext)},
	}
	model.Tools = agentTools()

	chatSession := model.StartChat()
	chatSession.History = FlattenHistory(history)

	parts := itemParts(message)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	resp, err := chatSession.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	return replyFromResponse(resp), nil
}

func replyFromResponse(resp *genai.GenerateContentResponse) *AgentReply {
	reply := &AgentReply{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return reply
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			if reply.ToolCall == nil {
				// Only the first call is surfaced; the UI renders one widget
				// per model turn.
				reply.ToolCall = &models.ToolCall{
					ID:   uuid.New().String(),
					Name: p.Name,
					Args: p.Args,
				}
			}
		}
	}
	reply.Text = text.String()
	return reply
}

// FlattenHistory converts session items to the wire history format: user
// items contribute text, inline image data and function responses; model
// items contribute text and function calls.
func FlattenHistory(items []models.ChatItem) []*genai.Content {
	var contents []*genai.Content
	for _, item := range items {
		parts := itemParts(item)
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: item.Role, Parts: parts})
	}
	return contents
}

func itemParts(item models.ChatItem) []genai.Part {
	var parts []genai.Part
	if item.Text != "" {
		parts = append(parts, genai.Text(item.Text))
	}
	if item.Role == models.ChatRoleUser {
		if item.Image != "" {
			if data, err := base64.StdEncoding.DecodeString(item.Image); err == nil {
				parts = append(parts, genai.Blob{MIMEType: "image/jpeg", Data: data})
			}
		}
		if item.ToolCall != nil && item.ToolResponse != "" {
			parts = append(parts, genai.FunctionResponse{
				Name:     item.ToolCall.Name,
				Response: map[string]any{"result": item.ToolResponse},
			})
		}
	} else if item.ToolCall != nil {
		parts = append(parts, genai.FunctionCall{Name: item.ToolCall.Name, Args: item.ToolCall.Args})
	}
	return parts
}

// Geocode resolves a Colombo-area address through a JSON-mode completion.
func (c *Client) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	model := c.client.GenerativeModel(c.cfg.UtilityModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf(`Geocode this Colombo/Sri Lanka address: %q.
Return JSON: { "lat": number, "lng": number, "formatted": string }.`, address)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini geocode request failed: %w", err)
	}

	var result models.GeocodeResult
	if err := json.Unmarshal([]byte(responseText(resp)), &result); err != nil {
		return nil, fmt.Errorf("geocode response was not valid JSON: %w", err)
	}
	if result.Lat == 0 && result.Lng == 0 {
		return nil, fmt.Errorf("geocode returned no coordinates for %q", address)
	}
	return &result, nil
}

// AnalyzeRoutes asks the model for a day plan covering the given leads. The
// application performs no optimization itself.
func (c *Client) AnalyzeRoutes(ctx context.Context, leads []models.Lead) (*models.RoutePlan, error) {
	if len(leads) == 0 {
		return &models.RoutePlan{EfficiencyTips: "No leads to analyze."}, nil
	}

	type routeLead struct {
		Name          string  `json:"name"`
		ID            string  `json:"id"`
		Address       string  `json:"address"`
		Lat           float64 `json:"lat"`
		Lng           float64 `json:"lng"`
		PreferredDate string  `json:"preferredDate"`
	}
	leadsData := make([]routeLead, 0, len(leads))
	for _, l := range leads {
		preferred := l.PreferredVisitDate
		if preferred == "" {
			preferred = "Any"
		}
		leadsData = append(leadsData, routeLead{
			Name:          l.CustomerName,
			ID:            l.ID,
			Address:       l.AddressLabel,
			Lat:           l.Location.Lat,
			Lng:           l.Location.Lng,
			PreferredDate: preferred,
		})
	}
	encoded, err := json.Marshal(leadsData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode leads: %w", err)
	}

	prompt := fmt.Sprintf(`
Plan a day route for Colombo.
Assumptions:
- Start point: Colombo Fort (%g, %g).
- Speed: %d km/h.
- Service time per stop: %d mins.
- Max day: 8 hours (%d mins).

Leads: %s

Task:
1. Group leads by their Preferred Date if set. If 'Any', fit them into the most efficient route.
2. Calculate available free slots (time windows) in the route for new ad-hoc visits.

Output JSON:
{
  "route": [
     { "leadId": "...", "travelTimeMins": 15, "serviceTimeMins": 20, "arrivalTime": "09:00", "date": "YYYY-MM-DD" }
  ],
  "availableSlots": [
     { "startTime": "11:00", "endTime": "13:00", "location": "Near Kollupitiya" }
  ],
  "totalTimeMins": 120,
  "isFeasible": true,
  "summary": "Short text summary"
}`, routeStartLat, routeStartLng, routeSpeedKmh, routeServiceMins, routeMaxDayMins, string(encoded))

	model := c.client.GenerativeModel(c.cfg.ChatModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("route analysis request failed: %w", err)
	}

	return ParseRoutePlan(responseText(resp)), nil
}

// ParseRoutePlan decodes the route analysis output, stripping markdown fences
// when present. Unparseable output degrades to a tips-only plan.
func ParseRoutePlan(text string) *models.RoutePlan {
	candidate := text
	if idx := strings.Index(candidate, "```json"); idx >= 0 {
		candidate = candidate[idx+len("```json"):]
		if end := strings.Index(candidate, "```"); end >= 0 {
			candidate = candidate[:end]
		}
	}
	candidate = strings.TrimSpace(candidate)

	var plan models.RoutePlan
	if err := json.Unmarshal([]byte(candidate), &plan); err != nil {
		return &models.RoutePlan{EfficiencyTips: text}
	}
	return &plan
}

// DraftWhatsAppMessage drafts an outbound customer message. kind is one of
// invoice, schedule, followup.
func (c *Client) DraftWhatsAppMessage(ctx context.Context, lead models.Lead, kind string) (string, error) {
	model := c.client.GenerativeModel(c.cfg.UtilityModel)

	prompt := fmt.Sprintf("Draft a whatsapp message for %s for customer %s.", kind, lead.CustomerName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("draft request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("model returned no draft text")
	}
	return text, nil
}

// IdentifyImage analyzes a site photo or sketch for cabinet requirements.
func (c *Client) IdentifyImage(ctx context.Context, imageData []byte) (string, error) {
	model := c.client.GenerativeModel(c.cfg.UtilityModel)

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: "image/jpeg", Data: imageData},
		genai.Text("Analyze this image for a kitchen cabinet or interior design project. Identify key elements, colors, materials, and any potential measurements or constraints visible."),
	)
	if err != nil {
		return "", fmt.Errorf("image analysis request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "No analysis available.", nil
	}
	return text, nil
}

// GenerateDesignRender produces a photorealistic render from a prompt,
// optionally constrained by a sketch image. Returns raw image bytes.
func (c *Client) GenerateDesignRender(ctx context.Context, sketch []byte, prompt string) ([]byte, error) {
	model := c.client.GenerativeModel(c.cfg.ImageModel)

	text := fmt.Sprintf("Generate a photorealistic interior design render. Prompt: %s.", prompt)
	var parts []genai.Part
	if len(sketch) > 0 {
		parts = append(parts, genai.Blob{MIMEType: "image/jpeg", Data: sketch})
		text += " Maintain the layout of the provided sketch strictly."
	}
	parts = append(parts, genai.Text(text))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("render generation failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("render generation returned no candidates")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return blob.Data, nil
		}
	}
	return nil, fmt.Errorf("render generation returned no image data")
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
