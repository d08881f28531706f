package engine

import (
	"log/slog"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// BackfillSLA fills missing SLA fields from the catalog, in place, and returns
// how many tickets were updated. Tickets without a category and request type
// are skipped. When either SLA field is missing both are taken from the
// catalog, including a catalog value of zero. Category and request type must
// match the catalog exactly.
func BackfillSLA(tickets []model.Ticket, catalog *model.Catalog, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	index := NewCatalogIndex(catalog)
	filled := 0

	for i := range tickets {
		ticket := &tickets[i]

		if !model.HasText(ticket.Category) || !model.HasText(ticket.RequestType) {
			continue
		}
		if ticket.HasSLA() {
			continue
		}

		sla, ok := index.Lookup(ticket.Category, ticket.RequestType)
		if !ok {
			logger.Debug("no catalog SLA for ticket",
				"ticket_id", ticket.ID,
				"category", ticket.Category,
				"request_type", ticket.RequestType)
			continue
		}

		ticket.SLAUnit = sla.Unit
		ticket.SLAValue = model.IntPtr(sla.Value)
		filled++

		logger.Debug("SLA backfilled from catalog",
			"ticket_id", ticket.ID,
			"sla_value", sla.Value,
			"sla_unit", sla.Unit)
	}

	logger.Info("SLA backfill complete", "filled", filled, "catalog_pairs", index.Len())

	return filled
}
