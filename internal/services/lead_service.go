package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cabinex-be/internal/models"

	"github.com/google/uuid"
)

// ErrLeadNotFound marks lookups and patches against an unknown lead id.
var ErrLeadNotFound = errors.New("lead not found")

// LeadService keeps a denormalized in-memory snapshot of the leads
// collection, ordered by creation time descending, and fans out every change
// to registered listeners. Writes hit Postgres first and then reload the
// whole snapshot; there is no optimistic apply and no rollback path.
// Concurrent edits are last-write-wins.
type LeadService struct {
	db *sql.DB

	mu        sync.RWMutex
	leads     []models.Lead
	listeners map[int]func([]models.Lead)
	nextID    int
}

func NewLeadService(db *sql.DB) *LeadService {
	return &LeadService{
		db:        db,
		listeners: make(map[int]func([]models.Lead)),
	}
}

// Refresh reloads the entire collection and notifies all listeners.
func (s *LeadService) Refresh() error {
	rows, err := s.db.Query(`
		SELECT id, customer_name, whatsapp_number, address_label, lat, lng, status,
		       preferred_visit_date, notes, visits, initial_images, generated_designs,
		       visit_charge_invoice, quote, created_by, created_at
		FROM leads
		ORDER BY created_at DESC
	`)
	if err != nil {
		return fmt.Errorf("failed to load leads: %v", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return err
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate leads: %v", err)
	}

	s.mu.Lock()
	s.leads = leads
	s.mu.Unlock()

	s.notify()
	return nil
}

func scanLead(rows *sql.Rows) (*models.Lead, error) {
	var lead models.Lead
	var notes, visits, images, designs []byte
	var invoice, quote sql.NullString

	err := rows.Scan(&lead.ID, &lead.CustomerName, &lead.WhatsappNumber, &lead.AddressLabel,
		&lead.Location.Lat, &lead.Location.Lng, &lead.Status, &lead.PreferredVisitDate,
		&notes, &visits, &images, &designs, &invoice, &quote, &lead.CreatedBy, &lead.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %v", err)
	}

	if err := json.Unmarshal(notes, &lead.Notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes for lead %s: %v", lead.ID, err)
	}
	if err := json.Unmarshal(visits, &lead.Visits); err != nil {
		return nil, fmt.Errorf("failed to decode visits for lead %s: %v", lead.ID, err)
	}
	if err := json.Unmarshal(images, &lead.InitialImages); err != nil {
		return nil, fmt.Errorf("failed to decode images for lead %s: %v", lead.ID, err)
	}
	if err := json.Unmarshal(designs, &lead.GeneratedDesigns); err != nil {
		return nil, fmt.Errorf("failed to decode designs for lead %s: %v", lead.ID, err)
	}
	if invoice.Valid {
		lead.VisitChargeInvoice = &models.VisitChargeInvoice{}
		if err := json.Unmarshal([]byte(invoice.String), lead.VisitChargeInvoice); err != nil {
			return nil, fmt.Errorf("failed to decode invoice for lead %s: %v", lead.ID, err)
		}
	}
	if quote.Valid {
		lead.Quote = &models.Quote{}
		if err := json.Unmarshal([]byte(quote.String), lead.Quote); err != nil {
			return nil, fmt.Errorf("failed to decode quote for lead %s: %v", lead.ID, err)
		}
	}
	if lead.Notes == nil {
		lead.Notes = []models.Note{}
	}
	if lead.Visits == nil {
		lead.Visits = []models.Visit{}
	}
	return &lead, nil
}

// StartPolling refreshes the snapshot at an interval so writes from other
// instances are eventually observed.
func (s *LeadService) StartPolling(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(); err != nil {
					log.Printf("Lead snapshot refresh failed: %v", err)
				}
			}
		}
	}()
}

// Subscribe registers a listener. It is called immediately with the current
// snapshot and then on every change. The returned function removes it.
func (s *LeadService) Subscribe(listener func([]models.Lead)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	snapshot := copyLeads(s.leads)
	s.mu.Unlock()

	listener(snapshot)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *LeadService) notify() {
	s.mu.RLock()
	snapshot := copyLeads(s.leads)
	listeners := make([]func([]models.Lead), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func copyLeads(leads []models.Lead) []models.Lead {
	out := make([]models.Lead, len(leads))
	copy(out, leads)
	return out
}

// Leads returns the current snapshot.
func (s *LeadService) Leads() []models.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLeads(s.leads)
}

// LeadsByStatus filters the snapshot on any of the given statuses.
func (s *LeadService) LeadsByStatus(statuses ...string) []models.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Lead
	for _, l := range s.leads {
		for _, status := range statuses {
			if l.Status == status {
				out = append(out, l)
				break
			}
		}
	}
	return out
}

// GetLeadByID looks the lead up in the snapshot.
func (s *LeadService) GetLeadByID(id string) (*models.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.leads {
		if s.leads[i].ID == id {
			lead := s.leads[i]
			return &lead, true
		}
	}
	return nil, false
}

// AddLead inserts a new lead and refreshes the snapshot. Leads always enter
// the pipeline with status new unless the caller set one.
func (s *LeadService) AddLead(ctx context.Context, lead models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	if lead.Notes == nil {
		lead.Notes = []models.Note{}
	}
	if lead.Visits == nil {
		lead.Visits = []models.Visit{}
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}

	notes, err := json.Marshal(lead.Notes)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %v", err)
	}
	visits, err := json.Marshal(lead.Visits)
	if err != nil {
		return fmt.Errorf("failed to encode visits: %v", err)
	}
	images, err := json.Marshal(nonNil(lead.InitialImages))
	if err != nil {
		return fmt.Errorf("failed to encode images: %v", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leads (id, customer_name, whatsapp_number, address_label, lat, lng, status,
		                   preferred_visit_date, notes, visits, initial_images, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, lead.ID, lead.CustomerName, lead.WhatsappNumber, lead.AddressLabel,
		lead.Location.Lat, lead.Location.Lng, lead.Status, lead.PreferredVisitDate,
		notes, visits, images, lead.CreatedBy, lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %v", err)
	}

	return s.Refresh()
}

// UpdateLead applies a partial-field patch and refreshes the snapshot.
func (s *LeadService) UpdateLead(ctx context.Context, id string, patch models.LeadPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if patch.Status != nil && !models.IsValidLeadStatus(*patch.Status) {
		return fmt.Errorf("unknown lead status: %s", *patch.Status)
	}

	set := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.CustomerName != nil {
		add("customer_name", *patch.CustomerName)
	}
	if patch.WhatsappNumber != nil {
		add("whatsapp_number", *patch.WhatsappNumber)
	}
	if patch.AddressLabel != nil {
		add("address_label", *patch.AddressLabel)
	}
	if patch.Location != nil {
		add("lat", patch.Location.Lat)
		add("lng", patch.Location.Lng)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.PreferredVisitDate != nil {
		add("preferred_visit_date", *patch.PreferredVisitDate)
	}
	if patch.VisitChargeInvoice != nil {
		encoded, err := json.Marshal(patch.VisitChargeInvoice)
		if err != nil {
			return fmt.Errorf("failed to encode invoice: %v", err)
		}
		add("visit_charge_invoice", encoded)
	}
	if patch.Quote != nil {
		encoded, err := json.Marshal(patch.Quote)
		if err != nil {
			return fmt.Errorf("failed to encode quote: %v", err)
		}
		add("quote", encoded)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d", joinSet(set), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update lead: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}

	return s.Refresh()
}

func joinSet(set []string) string {
	out := ""
	for i, s := range set {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// AddNote appends to the lead's note list. Notes are append-only.
func (s *LeadService) AddNote(ctx context.Context, id, text, author string) error {
	lead, ok := s.GetLeadByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}

	note := models.Note{
		ID:        uuid.New().String(),
		Text:      text,
		Author:    author,
		CreatedAt: time.Now(),
	}
	notes := append(lead.Notes, note)
	encoded, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE leads SET notes = $1 WHERE id = $2", encoded, id); err != nil {
		return fmt.Errorf("failed to add note: %v", err)
	}

	return s.Refresh()
}

// AppendImage attaches an uploaded image URL to the lead.
func (s *LeadService) AppendImage(ctx context.Context, id, url string) error {
	lead, ok := s.GetLeadByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}

	images := append(nonNil(lead.InitialImages), url)
	encoded, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE leads SET initial_images = $1 WHERE id = $2", encoded, id); err != nil {
		return fmt.Errorf("failed to append image: %v", err)
	}

	return s.Refresh()
}

// AppendDesign attaches a generated design to the lead.
func (s *LeadService) AppendDesign(ctx context.Context, id string, design models.GeneratedDesign) error {
	lead, ok := s.GetLeadByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}

	designs := append(lead.GeneratedDesigns, design)
	encoded, err := json.Marshal(designs)
	if err != nil {
		return fmt.Errorf("failed to encode designs: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE leads SET generated_designs = $1 WHERE id = $2", encoded, id); err != nil {
		return fmt.Errorf("failed to append design: %v", err)
	}

	return s.Refresh()
}

// MarkInvoicePaid sets the paid flag and timestamp on the visit-charge
// invoice and moves the lead to paid.
func (s *LeadService) MarkInvoicePaid(ctx context.Context, id string) error {
	lead, ok := s.GetLeadByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}
	if lead.VisitChargeInvoice == nil {
		return fmt.Errorf("lead %s has no visit charge invoice", id)
	}

	now := time.Now()
	invoice := *lead.VisitChargeInvoice
	invoice.Paid = true
	invoice.PaidAt = &now
	status := models.LeadStatusPaid

	return s.UpdateLead(ctx, id, models.LeadPatch{
		Status:             &status,
		VisitChargeInvoice: &invoice,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
