package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

func newTestEngine(classifier *MockClassifier) (*ClassificationEngine, *[]time.Duration) {
	e := New(classifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	pauses := &[]time.Duration{}
	e.pause = func(_ context.Context, d time.Duration) {
		*pauses = append(*pauses, d)
	}
	return e, pauses
}

func unclassifiedTickets(n int) []model.Ticket {
	tickets := make([]model.Ticket, n)
	for i := range tickets {
		tickets[i] = model.Ticket{
			ID:               fmt.Sprintf("T-%d", i+1),
			ShortDescription: "Forgot my password",
		}
	}
	return tickets
}

func ticketIDs(tickets []model.Ticket) []string {
	ids := make([]string, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	return ids
}

func TestClassifyTickets_Empty(t *testing.T) {
	classifier := NewMockClassifier()
	e, _ := newTestEngine(classifier)

	result, summary := e.ClassifyTickets(context.Background(), nil, &model.Catalog{}, BatchOptions{BatchSize: 2})

	assert.Empty(t, result)
	assert.NotNil(t, result)
	assert.Equal(t, 0, classifier.CallCount())
	assert.Equal(t, 0, summary.Batches)
}

func TestClassifyTickets_IsolatesFailedBatch(t *testing.T) {
	classifier := NewMockClassifier().FailOnCall(2, errors.New("model overloaded"))
	e, _ := newTestEngine(classifier)
	tickets := unclassifiedTickets(5)

	result, summary := e.ClassifyTickets(context.Background(), tickets, &model.Catalog{}, BatchOptions{BatchSize: 2})

	require.Len(t, result, 5)
	assert.Equal(t, []string{"T-1", "T-2", "T-3", "T-4", "T-5"}, ticketIDs(result))
	assert.Equal(t, 3, classifier.CallCount())
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, 1, summary.FailedBatches)
	assert.Equal(t, []string{"2-3"}, summary.FailedRanges)

	for _, i := range []int{0, 1, 4} {
		assert.Equal(t, "Access", result[i].Category, "ticket %s", result[i].ID)
		assert.Equal(t, "Password Reset", result[i].RequestType)
	}
	for _, i := range []int{2, 3} {
		assert.Equal(t, tickets[i], result[i], "failed batch ticket %s must be unchanged", result[i].ID)
	}
}

func TestClassifyTickets_PreservesOrderForAnySize(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for size := 1; size <= 5; size++ {
			t.Run(fmt.Sprintf("n=%d/size=%d", n, size), func(t *testing.T) {
				classifier := NewMockClassifier()
				e, pauses := newTestEngine(classifier)
				tickets := unclassifiedTickets(n)

				result, summary := e.ClassifyTickets(context.Background(), tickets, &model.Catalog{}, BatchOptions{BatchSize: size})

				expectedBatches := (n + size - 1) / size
				assert.Equal(t, ticketIDs(tickets), ticketIDs(result))
				assert.Equal(t, expectedBatches, classifier.CallCount())
				assert.Equal(t, expectedBatches, summary.Batches)
				assert.Len(t, *pauses, expectedBatches-1)

				seen := 0
				for _, call := range classifier.Calls() {
					assert.LessOrEqual(t, len(call), size)
					seen += len(call)
				}
				assert.Equal(t, n, seen)
			})
		}
	}
}

func TestClassifyTickets_OnlySendsTicketsMissingFields(t *testing.T) {
	complete := model.Ticket{
		ID:          "done",
		Category:    "Access",
		RequestType: "Password Reset",
		SLAUnit:     "hours",
		SLAValue:    model.IntPtr(4),
	}
	partial := model.Ticket{ID: "partial", Category: "Hardware", ShortDescription: "laptop broken"}

	classifier := NewMockClassifier()
	e, _ := newTestEngine(classifier)

	result, summary := e.ClassifyTickets(context.Background(), []model.Ticket{complete, partial}, &model.Catalog{}, BatchOptions{BatchSize: 5})

	require.Equal(t, 1, classifier.CallCount())
	assert.Equal(t, []string{"partial"}, ticketIDs(classifier.Calls()[0]))

	assert.Equal(t, complete, result[0])
	assert.Equal(t, "Hardware", result[1].Category)
	assert.Equal(t, "Device Repair", result[1].RequestType)
	assert.Equal(t, 1, summary.Merged)
	assert.Equal(t, 1, summary.Skipped)
}

func TestClassifyTickets_SkipsClassifierForCompleteBatch(t *testing.T) {
	tickets := []model.Ticket{{
		ID:          "1",
		Category:    "Access",
		RequestType: "Password Reset",
		SLAUnit:     "hours",
		SLAValue:    model.IntPtr(4),
	}}

	classifier := NewMockClassifier()
	e, pauses := newTestEngine(classifier)

	result, _ := e.ClassifyTickets(context.Background(), tickets, &model.Catalog{}, BatchOptions{BatchSize: 1})

	assert.Equal(t, tickets, result)
	assert.Equal(t, 0, classifier.CallCount())
	assert.Empty(t, *pauses)
}

func TestClassifyTickets_TicketMissingFromResultsIsUnchanged(t *testing.T) {
	tickets := []model.Ticket{
		{ID: "known", ShortDescription: "reset password"},
		{ID: "unknown", ShortDescription: "something odd", Category: " Misc "},
	}

	classifier := NewMockClassifier()
	e, _ := newTestEngine(classifier)

	result, summary := e.ClassifyTickets(context.Background(), tickets, &model.Catalog{}, BatchOptions{BatchSize: 10})

	assert.Equal(t, "Access", result[0].Category)
	assert.Equal(t, tickets[1], result[1])
	assert.Equal(t, 1, summary.Merged)
}

func TestClassifyTickets_PacesBetweenClassifierCalls(t *testing.T) {
	classifier := NewMockClassifier()
	e, pauses := newTestEngine(classifier)

	_, _ = e.ClassifyTickets(context.Background(), unclassifiedTickets(3), &model.Catalog{}, BatchOptions{
		BatchSize: 1,
		Pace:      3 * time.Second,
	})

	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, *pauses)
}

func TestClassifyTickets_DefaultBatchSize(t *testing.T) {
	classifier := NewMockClassifier()
	e, _ := newTestEngine(classifier)

	_, summary := e.ClassifyTickets(context.Background(), unclassifiedTickets(31), &model.Catalog{}, BatchOptions{})

	assert.Equal(t, 2, summary.Batches)
	assert.Len(t, classifier.Calls()[0], 30)
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
