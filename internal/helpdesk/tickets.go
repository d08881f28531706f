package helpdesk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
)

var (
	// ErrUnexpectedShape is returned when the response holds no ticket list.
	ErrUnexpectedShape = errors.New("unexpected response shape")
	// ErrMissingID marks a ticket record without id or ticket_id.
	ErrMissingID = errors.New("missing ticket identifier")
)

// decodeTickets accepts a bare list, {"data": [...]} or {"data": {"requests": [...]}}.
func decodeTickets(payload []byte, logger *slog.Logger) ([]model.Ticket, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var root any
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	items, err := extractItems(root)
	if err != nil {
		return nil, err
	}

	tickets := make([]model.Ticket, 0, len(items))
	for i, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			logger.Warn("skipping non-object ticket entry", "index", i)
			continue
		}
		tickets = append(tickets, ticketFromRecord(record, logger))
	}
	return tickets, nil
}

func extractItems(root any) ([]any, error) {
	switch v := root.(type) {
	case []any:
		return v, nil
	case map[string]any:
		switch data := v["data"].(type) {
		case []any:
			return data, nil
		case map[string]any:
			if requests, ok := data["requests"].([]any); ok {
				return requests, nil
			}
		}
	}
	return nil, ErrUnexpectedShape
}

func ticketFromRecord(record map[string]any, logger *slog.Logger) model.Ticket {
	ticket := model.Ticket{
		ID:               firstString(record, "id", "ticket_id"),
		ShortDescription: firstString(record, "short_description", "subject"),
		Category:         model.NormalizeText(firstString(record, "request_category", "category")),
		RequestType:      model.NormalizeText(firstString(record, "request_type", "type")),
		SLAUnit:          model.NormalizeText(firstString(record, "sla_unit")),
		RawPayload:       record,
	}

	if ticket.ID == "" {
		logger.Warn("ticket has no identifier",
			"error", common.NewPipelineError(common.KindValidation, "read ticket id", ErrMissingID),
			"short_description", ticket.ShortDescription)
	}

	value, err := parseSLAValue(record["sla_value"])
	if err != nil {
		logger.Warn("ignoring malformed SLA value",
			"ticket_id", ticket.ID,
			"error", common.NewPipelineError(common.KindValidation, "parse sla_value", err))
	}
	ticket.SLAValue = model.NormalizeSLAValue(value)

	return ticket
}

// firstString returns the first non-empty value among keys, stringified.
func firstString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringify(record[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// parseSLAValue accepts integers, integral floats and numeric strings.
func parseSLAValue(v any) (*int, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return intValue(n)
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return floatValue(f)
	case float64:
		return floatValue(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", s, err)
		}
		return intValue(int64(n))
	default:
		return nil, fmt.Errorf("unsupported SLA value type %T", v)
	}
}

func floatValue(f float64) (*int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("SLA value %v is not an integer", f)
	}
	return intValue(int64(f))
}

func intValue(n int64) (*int, error) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("SLA value %d out of range", n)
	}
	v := int(n)
	return &v, nil
}
