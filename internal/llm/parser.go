package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// ErrMalformedResponse is returned when the model reply is not the expected JSON.
var ErrMalformedResponse = errors.New("malformed classification response")

// parseBatchResponse extracts one result per raw_id from the model reply.
// Items without a raw_id are dropped.
func parseBatchResponse(content string) (map[string]model.ClassificationResult, error) {
	content = cleanMarkdownWrapper(content)

	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.UseNumber()

	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := decoder.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if envelope.Items == nil {
		return nil, fmt.Errorf("%w: missing items list", ErrMalformedResponse)
	}

	results := make(map[string]model.ClassificationResult, len(envelope.Items))
	for _, raw := range envelope.Items {
		itemDecoder := json.NewDecoder(bytes.NewReader(raw))
		itemDecoder.UseNumber()

		var item map[string]any
		if err := itemDecoder.Decode(&item); err != nil {
			continue
		}

		id := textField(item["raw_id"])
		if id == "" {
			continue
		}

		results[id] = model.ClassificationResult{
			Category:    textField(item["request_category"]),
			RequestType: textField(item["request_type"]),
			SLAUnit:     textField(item["sla_unit"]),
			SLAValue:    intField(item["sla_value"]),
		}
	}

	return results, nil
}

// cleanMarkdownWrapper strips code fences and any prose around the JSON object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start > 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

func textField(v any) string {
	switch val := v.(type) {
	case string:
		return model.NormalizeText(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// intField returns a positive integer or nil.
func intField(v any) *int {
	var n int64
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			n = i
		} else if f, err := val.Float64(); err == nil && f == math.Trunc(f) {
			n = int64(f)
		} else {
			return nil
		}
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil
		}
		n = int64(i)
	default:
		return nil
	}

	if n <= 0 || n > math.MaxInt32 {
		return nil
	}
	return model.IntPtr(int(n))
}
