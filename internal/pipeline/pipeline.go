// Package pipeline drives a triage run: backlog delivery, ticket
// enrichment, report export and delivery.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/delivery"
	"github.com/Veraticus/helpdesk-triage/internal/engine"
	"github.com/Veraticus/helpdesk-triage/internal/model"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// Outcome describes how a run ended.
type Outcome int

// Run outcomes.
const (
	// OutcomeNone is reported when the run ended before any decision.
	OutcomeNone Outcome = iota
	// OutcomeBacklog means previously generated reports were delivered
	// and no new report was built.
	OutcomeBacklog
	// OutcomeAlreadySent means the requested report had been delivered before.
	OutcomeAlreadySent
	// OutcomeGenerated means a new report was built and delivered.
	OutcomeGenerated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBacklog:
		return "backlog"
	case OutcomeAlreadySent:
		return "already_sent"
	case OutcomeGenerated:
		return "generated"
	default:
		return "none"
	}
}

// Mail holds the fixed parts of the delivery email.
type Mail struct {
	Title         string
	CandidateName string
	CodebaseURL   string
}

// Enrichment holds the collaborators a run needs only when it processes
// new tickets.
type Enrichment struct {
	Tickets service.TicketSource
	Catalog service.CatalogSource
	Engine  *engine.ClassificationEngine
}

// EnrichmentFunc builds the enrichment collaborators. It is called only
// after backlog delivery has been ruled out.
type EnrichmentFunc func(ctx context.Context) (*Enrichment, error)

// Static returns an EnrichmentFunc for prebuilt collaborators.
func Static(e Enrichment) EnrichmentFunc {
	return func(context.Context) (*Enrichment, error) {
		return &e, nil
	}
}

// Deps wires the collaborators of a run. Progress and Now are optional.
type Deps struct {
	Enrichment EnrichmentFunc
	Exporter   service.ReportExporter
	Sender     service.EmailSender
	Tracker    *delivery.Tracker
	Progress   service.ProgressIndicator
	Logger     *slog.Logger
	Now        func() time.Time
	Mail       Mail
	Batch      engine.BatchOptions
}

// Result summarizes a run.
type Result struct {
	Classification *engine.BatchSummary
	RunID          string
	Report         string
	Sent           []string
	Skipped        []string
	Tickets        int
	Backfilled     int
	Outcome        Outcome
}

// Pipeline runs the enrichment-and-delivery sequence.
type Pipeline struct {
	deps Deps
}

// New validates deps and returns a pipeline.
func New(deps Deps) (*Pipeline, error) {
	missing := map[string]bool{
		"enrichment": deps.Enrichment == nil,
		"exporter":   deps.Exporter == nil,
		"sender":     deps.Sender == nil,
		"tracker":    deps.Tracker == nil,
	}
	for name, isMissing := range missing {
		if isMissing {
			return nil, fmt.Errorf("%w: pipeline %s", common.ErrMissingConfig, name)
		}
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Batch.BatchSize <= 0 {
		deps.Batch = engine.DefaultBatchOptions()
	}
	return &Pipeline{deps: deps}, nil
}

// Run executes one pipeline run. With a non-empty explicitReport only that
// artifact is considered for delivery.
//
// Undelivered reports are sent first and end the run. Enrichment
// collaborators are built only past that point. Failures building them or
// fetching tickets or the catalog are fatal. Export and send failures end the run
// with a stage error and nothing recorded as sent.
func (p *Pipeline) Run(ctx context.Context, explicitReport string) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := p.deps.Logger.With("run_id", result.RunID)

	backlog, err := p.deps.Tracker.Pending(ctx, explicitReport)
	if err != nil {
		return result, common.Fatal("check delivery ledger", err)
	}
	result.Skipped = backlog.Sent

	if len(backlog.Unsent) > 0 {
		result.Outcome = OutcomeBacklog
		logger.Info("Delivering reports that were never sent", "count", len(backlog.Unsent))
		if err := p.deliver(ctx, logger, backlog.Unsent); err != nil {
			return result, err
		}
		result.Sent = backlog.Unsent
		return result, nil
	}

	if backlog.ExplicitSent {
		result.Outcome = OutcomeAlreadySent
		logger.Info("Requested report was already delivered", "report", explicitReport)
		return result, nil
	}

	enrichment, err := p.deps.Enrichment(ctx)
	if err != nil {
		return result, common.Fatal("prepare ticket enrichment", err)
	}

	tickets, err := enrichment.Tickets.FetchTickets(ctx)
	if err != nil {
		return result, common.Fatal("fetch tickets", err)
	}
	result.Tickets = len(tickets)
	logger.Info("Fetched tickets", "count", len(tickets))

	catalog, err := enrichment.Catalog.FetchCatalog(ctx)
	if err != nil {
		return result, common.Fatal("fetch service catalog", err)
	}

	classified, summary := p.classify(ctx, enrichment.Engine, tickets, catalog)
	result.Classification = summary

	if err := ctx.Err(); err != nil {
		return result, common.Stage("classify tickets", err)
	}

	result.Backfilled = engine.BackfillSLA(classified, catalog, logger)

	report, err := p.deps.Exporter.Export(ctx, classified)
	if err != nil {
		logger.Error("Report export failed", "error", err)
		return result, common.Stage("export report", err)
	}
	result.Report = report
	result.Outcome = OutcomeGenerated

	if err := p.deliver(ctx, logger, []string{report}); err != nil {
		return result, err
	}
	result.Sent = []string{report}

	return result, nil
}

// classify runs the batch orchestrator behind the progress indicator. The
// indicator has stopped before the result is returned.
func (p *Pipeline) classify(
	ctx context.Context,
	eng *engine.ClassificationEngine,
	tickets []model.Ticket,
	catalog *model.Catalog,
) ([]model.Ticket, *engine.BatchSummary) {
	if p.deps.Progress != nil {
		p.deps.Progress.Start(fmt.Sprintf("Classifying %d tickets", len(tickets)))
		defer p.deps.Progress.Stop()
	}
	return eng.ClassifyTickets(ctx, tickets, catalog, p.deps.Batch)
}
