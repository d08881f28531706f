package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func accessCatalog(value int) *model.Catalog {
	return &model.Catalog{Categories: []model.ServiceCategory{{
		Name: "Access",
		RequestTypes: []model.RequestType{
			{Name: "Password Reset", SLA: model.SLA{Unit: "hours", Value: value}},
		},
	}}}
}

func TestBackfillSLA_FillsBothFields(t *testing.T) {
	tickets := []model.Ticket{{ID: "1", Category: "Access", RequestType: "Password Reset"}}

	filled := BackfillSLA(tickets, accessCatalog(4), quietLogger)

	assert.Equal(t, 1, filled)
	assert.Equal(t, "hours", tickets[0].SLAUnit)
	if assert.NotNil(t, tickets[0].SLAValue) {
		assert.Equal(t, 4, *tickets[0].SLAValue)
	}
}

func TestBackfillSLA_ReplacesPartialSLAAtomically(t *testing.T) {
	tickets := []model.Ticket{
		{ID: "unit-only", Category: "Access", RequestType: "Password Reset", SLAUnit: "days"},
		{ID: "value-only", Category: "Access", RequestType: "Password Reset", SLAValue: model.IntPtr(9)},
		{ID: "zero-value", Category: "Access", RequestType: "Password Reset", SLAUnit: "days", SLAValue: model.IntPtr(0)},
	}

	filled := BackfillSLA(tickets, accessCatalog(4), quietLogger)

	assert.Equal(t, 3, filled)
	for _, ticket := range tickets {
		assert.Equal(t, "hours", ticket.SLAUnit, ticket.ID)
		if assert.NotNil(t, ticket.SLAValue, ticket.ID) {
			assert.Equal(t, 4, *ticket.SLAValue, ticket.ID)
		}
	}
}

func TestBackfillSLA_NeverOverwritesCompleteSLA(t *testing.T) {
	tickets := []model.Ticket{{
		ID:          "1",
		Category:    "Access",
		RequestType: "Password Reset",
		SLAUnit:     "days",
		SLAValue:    model.IntPtr(1),
	}}

	filled := BackfillSLA(tickets, accessCatalog(4), quietLogger)

	assert.Equal(t, 0, filled)
	assert.Equal(t, "days", tickets[0].SLAUnit)
	assert.Equal(t, 1, *tickets[0].SLAValue)
}

func TestBackfillSLA_CatalogZeroIsValid(t *testing.T) {
	tickets := []model.Ticket{{ID: "1", Category: "Access", RequestType: "Password Reset"}}

	filled := BackfillSLA(tickets, accessCatalog(0), quietLogger)

	assert.Equal(t, 1, filled)
	assert.Equal(t, "hours", tickets[0].SLAUnit)
	if assert.NotNil(t, tickets[0].SLAValue) {
		assert.Equal(t, 0, *tickets[0].SLAValue)
	}
}

func TestBackfillSLA_SkipsUnmatched(t *testing.T) {
	tickets := []model.Ticket{
		{ID: "no-category", RequestType: "Password Reset"},
		{ID: "no-type", Category: "Access", RequestType: "  "},
		{ID: "case-mismatch", Category: "access", RequestType: "password reset"},
		{ID: "unknown-pair", Category: "Access", RequestType: "New Badge"},
		{ID: "padded-category", Category: "Access ", RequestType: "Password Reset"},
		{ID: "padded-type", Category: "Access", RequestType: " Password Reset"},
	}
	before := make([]model.Ticket, len(tickets))
	copy(before, tickets)

	filled := BackfillSLA(tickets, accessCatalog(4), quietLogger)

	assert.Equal(t, 0, filled)
	assert.Equal(t, before, tickets)
}

func TestBackfillSLA_NilCatalog(t *testing.T) {
	tickets := []model.Ticket{{ID: "1", Category: "Access", RequestType: "Password Reset"}}
	assert.Equal(t, 0, BackfillSLA(tickets, nil, quietLogger))
}

func TestCatalogIndex_LastDefinitionWins(t *testing.T) {
	catalog := &model.Catalog{Categories: []model.ServiceCategory{
		{Name: "Access", RequestTypes: []model.RequestType{
			{Name: "Password Reset", SLA: model.SLA{Unit: "hours", Value: 4}},
		}},
		{Name: "Access", RequestTypes: []model.RequestType{
			{Name: "Password Reset", SLA: model.SLA{Unit: "hours", Value: 8}},
		}},
	}}

	index := NewCatalogIndex(catalog)
	sla, ok := index.Lookup("Access", "Password Reset")

	assert.True(t, ok)
	assert.Equal(t, 8, sla.Value)
	assert.Equal(t, 1, index.Len())
}

func TestEnrichmentScenarios(t *testing.T) {
	catalog := accessCatalog(4)

	t.Run("classifier fills missing type, existing category kept", func(t *testing.T) {
		ticket := model.Ticket{ID: "1", Category: "Access"}
		merged := MergeClassification(ticket, &model.ClassificationResult{
			Category:    "Hardware",
			RequestType: "Password Reset",
		})
		tickets := []model.Ticket{merged}
		BackfillSLA(tickets, catalog, quietLogger)

		assert.Equal(t, "Access", tickets[0].Category)
		assert.Equal(t, "Password Reset", tickets[0].RequestType)
		assert.Equal(t, "hours", tickets[0].SLAUnit)
		assert.Equal(t, 4, *tickets[0].SLAValue)
	})

	t.Run("zero ticket SLA replaced from catalog", func(t *testing.T) {
		tickets := []model.Ticket{{
			ID:          "2",
			Category:    "Access",
			RequestType: "Password Reset",
			SLAUnit:     "hours",
			SLAValue:    model.IntPtr(0),
		}}
		BackfillSLA(tickets, catalog, quietLogger)

		assert.Equal(t, "hours", tickets[0].SLAUnit)
		assert.Equal(t, 4, *tickets[0].SLAValue)
	})
}
