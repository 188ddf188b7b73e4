package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidLeadStatus(t *testing.T) {
	valid := []string{"new", "invoice_sent", "paid", "visit_scheduled", "measured", "quoted", "won", "lost"}
	for _, s := range valid {
		assert.True(t, IsValidLeadStatus(s), s)
	}
	assert.False(t, IsValidLeadStatus(""))
	assert.False(t, IsValidLeadStatus("archived"))
	assert.False(t, IsValidLeadStatus("NEW"))
}

func TestLeadCreateRequestValidate(t *testing.T) {
	base := LeadCreateRequest{
		CustomerName: "Nimal Perera",
		AddressLabel: "45 Galle Road, Colombo 03",
		Location:     &GeoPoint{Lat: 6.9147, Lng: 79.8515},
	}
	assert.NoError(t, base.Validate())

	noName := base
	noName.CustomerName = ""
	assert.Error(t, noName.Validate())

	noAddress := base
	noAddress.AddressLabel = ""
	assert.Error(t, noAddress.Validate())

	// Manual creation requires a resolved location; there is no silent
	// fallback on this path.
	noLocation := base
	noLocation.Location = nil
	err := noLocation.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "location is required")
}

func TestLeadPatchIsEmpty(t *testing.T) {
	assert.True(t, (&LeadPatch{}).IsEmpty())

	name := "John"
	assert.False(t, (&LeadPatch{CustomerName: &name}).IsEmpty())

	status := LeadStatusWon
	assert.False(t, (&LeadPatch{Status: &status}).IsEmpty())

	assert.False(t, (&LeadPatch{VisitChargeInvoice: &VisitChargeInvoice{Amount: 5000}}).IsEmpty())
}
