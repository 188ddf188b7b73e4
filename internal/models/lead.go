package models

import (
	"fmt"
	"time"
)

// Lead statuses. There is no enforced transition graph: any status can be
// set from any other, matching how the shop actually works a pipeline.
const (
	LeadStatusNew            = "new"
	LeadStatusInvoiceSent    = "invoice_sent"
	LeadStatusPaid           = "paid"
	LeadStatusVisitScheduled = "visit_scheduled"
	LeadStatusMeasured       = "measured"
	LeadStatusQuoted         = "quoted"
	LeadStatusWon            = "won"
	LeadStatusLost           = "lost"
)

var LeadStatuses = []string{
	LeadStatusNew,
	LeadStatusInvoiceSent,
	LeadStatusPaid,
	LeadStatusVisitScheduled,
	LeadStatusMeasured,
	LeadStatusQuoted,
	LeadStatusWon,
	LeadStatusLost,
}

// IsValidLeadStatus reports whether s is a known pipeline status.
func IsValidLeadStatus(s string) bool {
	for _, v := range LeadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type Visit struct {
	ID            string   `json:"id"`
	ScheduledDate string   `json:"scheduled_date"`
	Completed     bool     `json:"completed"`
	Measurements  string   `json:"measurements,omitempty"`
	SitePhotos    []string `json:"site_photos,omitempty"`
}

type GeneratedDesign struct {
	ID          string    `json:"id"`
	SketchURL   string    `json:"sketch_url,omitempty"`
	RenderedURL string    `json:"rendered_url"`
	Prompt      string    `json:"prompt"`
	CreatedAt   time.Time `json:"created_at"`
}

type VisitChargeInvoice struct {
	Amount float64    `json:"amount"`
	Paid   bool       `json:"paid"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

type QuoteItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Quote struct {
	Items       []QuoteItem `json:"items"`
	Total       float64     `json:"total"`
	Accessories []string    `json:"accessories"`
	GeneratedAt time.Time   `json:"generated_at"`
}

type Lead struct {
	ID                 string              `json:"id" db:"id"`
	CustomerName       string              `json:"customer_name" db:"customer_name"`
	WhatsappNumber     string              `json:"whatsapp_number" db:"whatsapp_number"`
	Location           GeoPoint            `json:"location"`
	AddressLabel       string              `json:"address_label" db:"address_label"`
	Status             string              `json:"status" db:"status"`
	PreferredVisitDate string              `json:"preferred_visit_date,omitempty" db:"preferred_visit_date"`
	Notes              []Note              `json:"notes"`
	Visits             []Visit             `json:"visits"`
	InitialImages      []string            `json:"initial_images,omitempty"`
	GeneratedDesigns   []GeneratedDesign   `json:"generated_designs,omitempty"`
	VisitChargeInvoice *VisitChargeInvoice `json:"visit_charge_invoice,omitempty"`
	Quote              *Quote              `json:"quote,omitempty"`
	CreatedBy          string              `json:"created_by,omitempty" db:"created_by"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
}

type LeadCreateRequest struct {
	CustomerName       string    `json:"customer_name" binding:"required"`
	WhatsappNumber     string    `json:"whatsapp_number"`
	AddressLabel       string    `json:"address_label" binding:"required"`
	Location           *GeoPoint `json:"location"`
	PreferredVisitDate string    `json:"preferred_visit_date"`
	InitialNote        string    `json:"initial_note"`
}

// Validate enforces the one real creation invariant: a lead must carry a
// resolved location. The UI searches/geocodes the address first; an
// unresolved address is rejected here rather than defaulted.
func (r *LeadCreateRequest) Validate() error {
	if r.CustomerName == "" {
		return fmt.Errorf("customer_name is required")
	}
	if r.AddressLabel == "" {
		return fmt.Errorf("address_label is required")
	}
	if r.Location == nil {
		return fmt.Errorf("location is required: search the address to set coordinates first")
	}
	return nil
}

// LeadPatch is a partial-field update. Nil fields are left untouched.
type LeadPatch struct {
	CustomerName       *string             `json:"customer_name,omitempty"`
	WhatsappNumber     *string             `json:"whatsapp_number,omitempty"`
	AddressLabel       *string             `json:"address_label,omitempty"`
	Location           *GeoPoint           `json:"location,omitempty"`
	Status             *string             `json:"status,omitempty"`
	PreferredVisitDate *string             `json:"preferred_visit_date,omitempty"`
	VisitChargeInvoice *VisitChargeInvoice `json:"visit_charge_invoice,omitempty"`
	Quote              *Quote              `json:"quote,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p *LeadPatch) IsEmpty() bool {
	return p.CustomerName == nil && p.WhatsappNumber == nil && p.AddressLabel == nil &&
		p.Location == nil && p.Status == nil && p.PreferredVisitDate == nil &&
		p.VisitChargeInvoice == nil && p.Quote == nil
}

type LeadStatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type InvoiceAttachRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	Description string  `json:"description"`
}

type NoteCreateRequest struct {
	Text string `json:"text" binding:"required"`
}

type VisitDateRequest struct {
	PreferredVisitDate string `json:"preferred_visit_date" binding:"required"`
}

// ImageUploadRequest carries a webcam or gallery capture as a data URL
// (or bare base64 JPEG).
type ImageUploadRequest struct {
	Image string `json:"image" binding:"required"`
}

type DesignGenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Sketch string `json:"sketch"` // optional data URL constraining the layout
}

type WhatsAppDraftRequest struct {
	Kind string `json:"kind" binding:"required,oneof=invoice schedule followup"`
}
