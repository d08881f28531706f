package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// BatchOptions configures batch classification behavior.
type BatchOptions struct {
	BatchSize     int           // Number of tickets per classifier call
	Pace          time.Duration // Pause between classifier calls
	ExamplesToLog int           // Merged tickets logged as samples
}

// DefaultBatchOptions returns sensible defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchSize:     30,
		Pace:          3 * time.Second,
		ExamplesToLog: 3,
	}
}

// BatchSummary contains statistics about a classification run.
type BatchSummary struct {
	FailedRanges    []string
	TotalTickets    int
	Batches         int
	FailedBatches   int
	ClassifierCalls int
	Merged          int
	Skipped         int
	ProcessingTime  time.Duration
}

// ClassifyTickets runs the classifier over tickets in consecutive batches and
// merges the suggestions. The result has the same tickets in the same order.
// A failed batch is logged and its tickets are returned unchanged.
func (e *ClassificationEngine) ClassifyTickets(
	ctx context.Context,
	tickets []model.Ticket,
	catalog *model.Catalog,
	opts BatchOptions,
) ([]model.Ticket, *BatchSummary) {
	startTime := time.Now()
	summary := &BatchSummary{TotalTickets: len(tickets)}

	if len(tickets) == 0 {
		e.logger.Info("No tickets to classify")
		return []model.Ticket{}, summary
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchOptions().BatchSize
	}

	e.logger.Info("Starting batch classification",
		"total_tickets", len(tickets),
		"batch_size", batchSize)

	classified := make([]model.Ticket, 0, len(tickets))
	examplesLogged := 0
	calledPrevious := false

	for start := 0; start < len(tickets); start += batchSize {
		end := start + batchSize
		if end > len(tickets) {
			end = len(tickets)
		}
		batch := tickets[start:end]
		summary.Batches++

		if calledPrevious {
			e.pause(ctx, opts.Pace)
		}

		results, called, err := e.processTicketBatch(ctx, batch, catalog)
		calledPrevious = called
		if called {
			summary.ClassifierCalls++
		}

		if err != nil {
			batchRange := fmt.Sprintf("%d-%d", start, end-1)
			summary.FailedBatches++
			summary.FailedRanges = append(summary.FailedRanges, batchRange)
			e.logger.Error("classification batch failed, keeping tickets unchanged",
				"batch_range", batchRange,
				"batch_size", len(batch),
				"error", common.NewPipelineError(common.KindBatch, "classify batch "+batchRange, err))
			classified = append(classified, batch...)
			continue
		}

		for i, ticket := range results {
			if ticket.merged {
				summary.Merged++
				if examplesLogged < opts.ExamplesToLog {
					e.logExample(ticket.Ticket)
					examplesLogged++
				}
			} else if !batch[i].NeedsClassification() {
				summary.Skipped++
			}
			classified = append(classified, ticket.Ticket)
		}

		e.logger.Debug("classification batch complete",
			"batch_range", fmt.Sprintf("%d-%d", start, end-1),
			"processed", len(classified),
			"total", len(tickets))
	}

	summary.ProcessingTime = time.Since(startTime)

	e.logger.Info("Batch classification complete",
		"batches", summary.Batches,
		"failed_batches", summary.FailedBatches,
		"merged", summary.Merged,
		"skipped", summary.Skipped,
		"duration", summary.ProcessingTime)

	return classified, summary
}

type batchTicket struct {
	model.Ticket
	merged bool
}

// processTicketBatch classifies the tickets of one batch that still miss a field.
// It reports whether the classifier was called.
func (e *ClassificationEngine) processTicketBatch(
	ctx context.Context,
	batch []model.Ticket,
	catalog *model.Catalog,
) ([]batchTicket, bool, error) {
	results := make([]batchTicket, len(batch))
	needsLLM := make([]model.Ticket, 0, len(batch))

	for i, ticket := range batch {
		results[i] = batchTicket{Ticket: ticket}
		if ticket.NeedsClassification() {
			needsLLM = append(needsLLM, ticket)
		}
	}

	// Nothing missing in this batch
	if len(needsLLM) == 0 {
		return results, false, nil
	}

	suggestions, err := e.classifier.ClassifyBatch(ctx, needsLLM, catalog)
	if err != nil {
		return nil, true, err
	}

	for i, ticket := range batch {
		if !ticket.NeedsClassification() {
			continue
		}
		suggestion, ok := suggestions[ticket.ID]
		if !ok {
			e.logger.Debug("classifier returned nothing for ticket", "ticket_id", ticket.ID)
			continue
		}
		results[i] = batchTicket{
			Ticket: MergeClassification(ticket, &suggestion),
			merged: true,
		}
	}

	return results, true, nil
}

func (e *ClassificationEngine) logExample(ticket model.Ticket) {
	slaValue := "-"
	if ticket.SLAValue != nil {
		slaValue = fmt.Sprintf("%d", *ticket.SLAValue)
	}
	e.logger.Info("ticket classified",
		"ticket_id", ticket.ID,
		"short_description", ticket.ShortDescription,
		"category", ticket.Category,
		"request_type", ticket.RequestType,
		"sla", slaValue+" "+ticket.SLAUnit)
}
