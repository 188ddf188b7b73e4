package gemini

import (
	"github.com/google/generative-ai-go/genai"
)

// Tool declarations offered to the chat model. Every tool is a proposal: the
// model never mutates data itself, the operator confirms a widget first.

var proposeLeadTool = &genai.FunctionDeclaration{
	Name:        "propose_lead",
	Description: "Propose creating a new customer lead. Returns a widget for user confirmation.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"customerName":   {Type: genai.TypeString},
			"whatsappNumber": {Type: genai.TypeString},
			"addressLabel":   {Type: genai.TypeString},
			"initialNote":    {Type: genai.TypeString, Description: "Any details from chat to save as a note"},
		},
		Required: []string{"customerName", "addressLabel"},
	},
}

var proposeLeadUpdateTool = &genai.FunctionDeclaration{
	Name:        "propose_lead_update",
	Description: "Propose updating an existing lead details (name, phone, address, notes).",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"leadId":         {Type: genai.TypeString},
			"customerName":   {Type: genai.TypeString},
			"whatsappNumber": {Type: genai.TypeString},
			"addressLabel":   {Type: genai.TypeString},
			"noteToAdd":      {Type: genai.TypeString},
		},
		Required: []string{"leadId"},
	},
}

var proposeInvoiceTool = &genai.FunctionDeclaration{
	Name:        "propose_invoice",
	Description: "Propose generating a Visit Charge Invoice. Returns a widget for user confirmation.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"leadId":      {Type: genai.TypeString},
			"amount":      {Type: genai.TypeNumber, Description: "Default is 2500 LKR"},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"leadId", "amount"},
	},
}

var proposeStatusUpdateTool = &genai.FunctionDeclaration{
	Name:        "propose_status_update",
	Description: "Propose changing the status of a lead (e.g., mark as paid, lost, etc).",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"leadId": {Type: genai.TypeString},
			"newStatus": {
				Type: genai.TypeString,
				Enum: []string{"invoice_sent", "paid", "visit_scheduled", "measured", "won", "lost"},
			},
			"reason": {Type: genai.TypeString},
		},
		Required: []string{"leadId", "newStatus"},
	},
}

var generateDesignConceptTool = &genai.FunctionDeclaration{
	Name:        "generate_design_concept",
	Description: "Generate a visual design concept or image based on a text prompt.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"prompt": {Type: genai.TypeString, Description: "Detailed description of the kitchen/cabinet design"},
			"leadId": {Type: genai.TypeString, Description: "The ID of the lead this design is for. If unknown, omit this."},
			"style":  {Type: genai.TypeString, Description: "Modern, Rustic, Minimalist, etc."},
		},
		Required: []string{"prompt"},
	},
}

func agentTools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				proposeLeadTool,
				proposeLeadUpdateTool,
				proposeInvoiceTool,
				proposeStatusUpdateTool,
				generateDesignConceptTool,
			},
		},
	}
}
