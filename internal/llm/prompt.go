package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// Fallback labels for requests that match nothing in the catalog.
const (
	FallbackCategory    = "Other/Uncategorized"
	FallbackRequestType = "General Inquiry/Undefined"
)

const systemPrompt = "You are an IT service desk analyst. You classify helpdesk requests against a service catalog " +
	"and answer with JSON only."

// buildBatchPrompt renders the catalog and the tickets into a single prompt.
func buildBatchPrompt(tickets []model.Ticket, catalog *model.Catalog) string {
	var b strings.Builder

	b.WriteString("Classify each helpdesk request below using the service catalog.\n\n")
	b.WriteString("Service catalog:\n")
	b.WriteString(formatCatalog(catalog))

	b.WriteString("\nRules:\n")
	b.WriteString("- Pick the single best matching category and request type from the catalog and copy their names exactly.\n")
	b.WriteString("- Copy the SLA unit and value of the chosen request type.\n")
	fmt.Fprintf(&b, "- If nothing fits, use category %q and request type %q and leave the SLA empty.\n",
		FallbackCategory, FallbackRequestType)
	b.WriteString("- Return one item per request, using its raw_id unchanged.\n")

	b.WriteString("\nRespond with a JSON object in exactly this shape:\n")
	b.WriteString(`{"items": [{"raw_id": "...", "request_category": "...", "request_type": "...", "sla_unit": "...", "sla_value": 0}]}`)
	b.WriteString("\n\nRequests:\n")

	for _, ticket := range tickets {
		fmt.Fprintf(&b, "- raw_id: %s\n", ticket.ID)
		fmt.Fprintf(&b, "  short_description: %s\n", oneLine(ticket.ShortDescription))
		if len(ticket.RawPayload) > 0 {
			if raw, err := json.Marshal(ticket.RawPayload); err == nil {
				fmt.Fprintf(&b, "  raw_payload: %s\n", raw)
			}
		}
	}

	return b.String()
}

func formatCatalog(catalog *model.Catalog) string {
	if catalog == nil || len(catalog.Categories) == 0 {
		return "(empty catalog)\n"
	}

	var b strings.Builder
	for _, category := range catalog.Categories {
		for _, requestType := range category.RequestTypes {
			fmt.Fprintf(&b, "- Category: %s | Request Type: %s | SLA: %d %s\n",
				category.Name, requestType.Name, requestType.SLA.Value, requestType.SLA.Unit)
		}
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
