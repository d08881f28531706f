package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// MockClassifier is a test implementation of service.Classifier.
// Explicit results take precedence; otherwise it suggests a classification
// from keywords in the ticket description.
type MockClassifier struct {
	results  map[string]model.ClassificationResult
	failures map[int]error
	calls    [][]model.Ticket
	mu       sync.Mutex
}

// NewMockClassifier creates a new mock classifier.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		results:  make(map[string]model.ClassificationResult),
		failures: make(map[int]error),
	}
}

// WithResult fixes the suggestion returned for a ticket ID.
func (m *MockClassifier) WithResult(ticketID string, result model.ClassificationResult) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[ticketID] = result
	return m
}

// FailOnCall makes the n-th call (1-based) return err.
func (m *MockClassifier) FailOnCall(n int, err error) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = err
	return m
}

// ClassifyBatch records the call and returns deterministic suggestions.
func (m *MockClassifier) ClassifyBatch(_ context.Context, tickets []model.Ticket, _ *model.Catalog) (map[string]model.ClassificationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make([]model.Ticket, len(tickets))
	copy(batch, tickets)
	m.calls = append(m.calls, batch)

	if err, ok := m.failures[len(m.calls)]; ok {
		return nil, err
	}

	out := make(map[string]model.ClassificationResult, len(tickets))
	for _, ticket := range tickets {
		if result, ok := m.results[ticket.ID]; ok {
			out[ticket.ID] = result
			continue
		}
		if result, ok := suggestFromDescription(ticket.ShortDescription); ok {
			out[ticket.ID] = result
		}
	}
	return out, nil
}

// Calls returns the batches passed to ClassifyBatch, in call order.
func (m *MockClassifier) Calls() [][]model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]model.Ticket, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times ClassifyBatch was called.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func suggestFromDescription(description string) (model.ClassificationResult, bool) {
	lower := strings.ToLower(description)

	switch {
	case strings.Contains(lower, "password"):
		return model.ClassificationResult{
			Category:    "Access",
			RequestType: "Password Reset",
			SLAUnit:     "hours",
			SLAValue:    model.IntPtr(4),
		}, true
	case strings.Contains(lower, "laptop") || strings.Contains(lower, "monitor"):
		return model.ClassificationResult{
			Category:    "Hardware",
			RequestType: "Device Repair",
			SLAUnit:     "days",
			SLAValue:    model.IntPtr(2),
		}, true
	case strings.Contains(lower, "vpn"):
		// No SLA, left for the catalog backfill
		return model.ClassificationResult{
			Category:    "Network",
			RequestType: "VPN Access",
		}, true
	default:
		return model.ClassificationResult{}, false
	}
}
