package services

import (
	"testing"

	"cabinex-be/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotService(leads ...models.Lead) *LeadService {
	s := NewLeadService(nil)
	s.leads = leads
	return s
}

func TestSubscribeDeliversImmediately(t *testing.T) {
	s := snapshotService(models.Lead{ID: "l1"}, models.Lead{ID: "l2"})

	var got [][]models.Lead
	unsubscribe := s.Subscribe(func(leads []models.Lead) {
		got = append(got, leads)
	})
	defer unsubscribe()

	require.Len(t, got, 1)
	assert.Len(t, got[0], 2)
}

func TestNotifyFansOutToAllListeners(t *testing.T) {
	s := snapshotService(models.Lead{ID: "l1"})

	calls := 0
	defer s.Subscribe(func([]models.Lead) { calls++ })()
	defer s.Subscribe(func([]models.Lead) { calls++ })()

	s.notify()
	assert.Equal(t, 4, calls) // 2 immediate + 2 notified
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := snapshotService()

	calls := 0
	unsubscribe := s.Subscribe(func([]models.Lead) { calls++ })
	unsubscribe()

	s.notify()
	assert.Equal(t, 1, calls) // only the immediate delivery
}

func TestLeadsReturnsCopy(t *testing.T) {
	s := snapshotService(models.Lead{ID: "l1", CustomerName: "Nimal"})

	leads := s.Leads()
	leads[0].CustomerName = "changed"

	assert.Equal(t, "Nimal", s.Leads()[0].CustomerName)
}

func TestLeadsByStatus(t *testing.T) {
	s := snapshotService(
		models.Lead{ID: "l1", Status: models.LeadStatusNew},
		models.Lead{ID: "l2", Status: models.LeadStatusPaid},
		models.Lead{ID: "l3", Status: models.LeadStatusInvoiceSent},
		models.Lead{ID: "l4", Status: models.LeadStatusWon},
	)

	visitReady := s.LeadsByStatus(models.LeadStatusPaid, models.LeadStatusInvoiceSent)
	require.Len(t, visitReady, 2)
	assert.Equal(t, "l2", visitReady[0].ID)
	assert.Equal(t, "l3", visitReady[1].ID)

	assert.Empty(t, s.LeadsByStatus(models.LeadStatusLost))
}

func TestGetLeadByID(t *testing.T) {
	s := snapshotService(models.Lead{ID: "l1", CustomerName: "Nimal"})

	lead, ok := s.GetLeadByID("l1")
	require.True(t, ok)
	assert.Equal(t, "Nimal", lead.CustomerName)

	// The returned lead is a copy of the snapshot entry.
	lead.CustomerName = "changed"
	again, _ := s.GetLeadByID("l1")
	assert.Equal(t, "Nimal", again.CustomerName)

	_, ok = s.GetLeadByID("missing")
	assert.False(t, ok)
}
