package models

import "time"

// Chat roles as required by the Gemini history format.
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// Agent tool names. Each one maps to a confirmation widget in the SPA.
const (
	ToolProposeLead         = "propose_lead"
	ToolProposeLeadUpdate   = "propose_lead_update"
	ToolProposeInvoice      = "propose_invoice"
	ToolProposeStatusUpdate = "propose_status_update"
	ToolGenerateDesign      = "generate_design_concept"
)

// ToolCall is a structured action request emitted by the model. It stays
// pending until the operator confirms or cancels it.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ChatItem is one entry of a per-session conversation. Not persisted.
type ChatItem struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Text         string    `json:"text,omitempty"`
	Image        string    `json:"image,omitempty"` // base64 JPEG, no data-URL prefix
	ToolCall     *ToolCall `json:"tool_call,omitempty"`
	ToolResponse string    `json:"tool_response,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChatSendRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"` // base64 JPEG or data URL, optional
}

type ChatSendResponse struct {
	Items   []ChatItem `json:"items"`
	Pending *ToolCall  `json:"pending_tool_call,omitempty"`
}

// ToolConfirmRequest carries operator edits applied to the proposed arguments
// before confirmation.
type ToolConfirmRequest struct {
	Args map[string]interface{} `json:"args"`
}

type ToolActionResponse struct {
	Resolved bool   `json:"resolved"`
	Outcome  string `json:"outcome"`
}
