// Package report renders enriched tickets into spreadsheet artifacts.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// Headers are the report columns, in order.
var Headers = []string{
	"raw_id",
	"request_category",
	"request_type",
	"short_description",
	"sla_value",
	"sla_unit",
}

// fileTimeLayout is an ISO timestamp with colons replaced for filesystem safety.
const fileTimeLayout = "2006-01-02T15-04-05"

// sortTickets orders tickets case-insensitively by category, request type and description.
func sortTickets(tickets []model.Ticket) []model.Ticket {
	sorted := make([]model.Ticket, len(tickets))
	copy(sorted, tickets)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ka, kb := strings.ToLower(a.Category), strings.ToLower(b.Category); ka != kb {
			return ka < kb
		}
		if ka, kb := strings.ToLower(a.RequestType), strings.ToLower(b.RequestType); ka != kb {
			return ka < kb
		}
		return strings.ToLower(a.ShortDescription) < strings.ToLower(b.ShortDescription)
	})
	return sorted
}

// row returns the cell values for a ticket. A missing SLA value is an empty cell.
func row(ticket model.Ticket) []any {
	var slaValue any = ""
	if ticket.SLAValue != nil {
		slaValue = *ticket.SLAValue
	}
	return []any{
		ticket.ID,
		ticket.Category,
		ticket.RequestType,
		ticket.ShortDescription,
		slaValue,
		ticket.SLAUnit,
	}
}

// stringRow is row rendered as text.
func stringRow(ticket model.Ticket) []string {
	slaValue := ""
	if ticket.SLAValue != nil {
		slaValue = strconv.Itoa(*ticket.SLAValue)
	}
	return []string{
		ticket.ID,
		ticket.Category,
		ticket.RequestType,
		ticket.ShortDescription,
		slaValue,
		ticket.SLAUnit,
	}
}

// artifactPath picks a new file in dir named after the timestamp, adding a
// numeric suffix when a report from the same second already exists.
func artifactPath(dir, prefix, ext string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	base := prefix + "classified_requests_" + now.Format(fileTimeLayout)
	for i := 1; i < 1000; i++ {
		name := base + ext
		if i > 1 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no free report filename for %s", base)
}
