package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/delivery"
	"github.com/Veraticus/helpdesk-triage/internal/engine"
	"github.com/Veraticus/helpdesk-triage/internal/model"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

var sentAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTickets struct {
	err     error
	tickets []model.Ticket
	calls   int
}

func (f *fakeTickets) FetchTickets(context.Context) ([]model.Ticket, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tickets, nil
}

type fakeCatalog struct {
	err     error
	catalog *model.Catalog
	calls   int
}

func (f *fakeCatalog) FetchCatalog(context.Context) (*model.Catalog, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

type fakeExporter struct {
	err      error
	dir      string
	exported []model.Ticket
	calls    int
}

func (f *fakeExporter) Export(_ context.Context, tickets []model.Ticket) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.exported = tickets
	path := filepath.Join(f.dir, "classified_requests_new.xlsx")
	return path, os.WriteFile(path, []byte("report"), 0o600)
}

func (f *fakeExporter) Extension() string { return ".xlsx" }

type fakeSender struct {
	err    error
	emails []service.Email
}

func (f *fakeSender) Send(_ context.Context, email service.Email) error {
	f.emails = append(f.emails, email)
	return f.err
}

type memoryLedger struct {
	records map[string]time.Time
	readErr error
	markErr error
	mu      sync.Mutex
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]time.Time)}
}

func (l *memoryLedger) GetDeliveryRecord(_ context.Context, filename string) (*model.DeliveryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	at, ok := l.records[filename]
	if !ok {
		return nil, common.ErrDeliveryNotFound
	}
	return &model.DeliveryRecord{Filename: filename, SentAt: at}, nil
}

func (l *memoryLedger) MarkSent(_ context.Context, filename string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.markErr != nil {
		return l.markErr
	}
	l.records[filename] = at
	return nil
}

func (l *memoryLedger) has(filename string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[filename]
	return ok
}

type recordingProgress struct {
	events []string
}

func (p *recordingProgress) Start(string) { p.events = append(p.events, "start") }
func (p *recordingProgress) Stop() { p.events = append(p.events, "stop") }

type harness struct {
	tickets    *fakeTickets
	catalog    *fakeCatalog
	classifier *engine.MockClassifier
	exporter   *fakeExporter
	sender     *fakeSender
	ledger     *memoryLedger
	progress   *recordingProgress
	dir        string

	enrichmentBuilds int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		tickets: &fakeTickets{tickets: []model.Ticket{
			{ID: "1", ShortDescription: "Forgot my password"},
			{ID: "2", ShortDescription: "VPN will not connect"},
			{ID: "3", ShortDescription: "Printer jam", Category: "Hardware", RequestType: "Printer",
				SLAUnit: "days", SLAValue: model.IntPtr(1)},
		}},
		catalog: &fakeCatalog{catalog: &model.Catalog{Categories: []model.ServiceCategory{
			{Name: "Network", RequestTypes: []model.RequestType{
				{Name: "VPN Access", SLA: model.SLA{Unit: "hours", Value: 8}},
			}},
		}}},
		classifier: engine.NewMockClassifier(),
		exporter:   &fakeExporter{dir: dir},
		sender:     &fakeSender{},
		ledger:     newMemoryLedger(),
		progress:   &recordingProgress{},
		dir:        dir,
	}
}

func (h *harness) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return h.pipelineWith(t, logger, h.enrichment(logger))
}

func (h *harness) enrichment(logger *slog.Logger) EnrichmentFunc {
	build := Static(Enrichment{
		Tickets: h.tickets,
		Catalog: h.catalog,
		Engine:  engine.New(h.classifier, logger),
	})
	return func(ctx context.Context) (*Enrichment, error) {
		h.enrichmentBuilds++
		return build(ctx)
	}
}

func (h *harness) pipelineWith(t *testing.T, logger *slog.Logger, enrichment EnrichmentFunc) *Pipeline {
	t.Helper()
	p, err := New(Deps{
		Enrichment: enrichment,
		Exporter:   h.exporter,
		Sender:     h.sender,
		Tracker:    delivery.NewTracker(h.ledger, h.dir, ".xlsx", logger),
		Progress:   h.progress,
		Logger:     logger,
		Now:        func() time.Time { return sentAt },
		Mail:       Mail{Title: "Helpdesk report", CandidateName: "Jane Doe", CodebaseURL: "https://example.com/repo"},
		Batch:      engine.BatchOptions{BatchSize: 2, ExamplesToLog: 3},
	})
	require.NoError(t, err)
	return p
}

func (h *harness) writeReport(t *testing.T, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestRunGeneratesAndDeliversReport(t *testing.T) {
	h := newHarness(t)

	result, err := h.pipeline(t).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeGenerated, result.Outcome)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Tickets)
	assert.Equal(t, 1, result.Backfilled)
	assert.Equal(t, []string{"start", "stop"}, h.progress.events)
	assert.Equal(t, 1, h.classifier.CallCount(), "second batch holds only a fully classified ticket")

	require.Len(t, h.exporter.exported, 3)
	exported := h.exporter.exported
	assert.Equal(t, "Access", exported[0].Category)
	assert.Equal(t, "Password Reset", exported[0].RequestType)
	assert.Equal(t, "Network", exported[1].Category)
	assert.Equal(t, "hours", exported[1].SLAUnit)
	require.NotNil(t, exported[1].SLAValue)
	assert.Equal(t, 8, *exported[1].SLAValue)
	assert.Equal(t, "Printer", exported[2].RequestType)

	require.Len(t, h.sender.emails, 1)
	msg := h.sender.emails[0]
	assert.Equal(t, "Helpdesk report - Jane Doe", msg.Subject)
	assert.Equal(t, []string{result.Report}, msg.Attachments)
	assert.Contains(t, msg.Body, "classified_requests_new.xlsx")
	assert.Contains(t, msg.HTMLBody, "https://example.com/repo")

	assert.Equal(t, []string{result.Report}, result.Sent)
	assert.True(t, h.ledger.has("classified_requests_new.xlsx"))
}

func TestRunDeliversBacklogWithoutClassifying(t *testing.T) {
	h := newHarness(t)
	h.writeReport(t, "a.xlsx", sentAt.Add(-2*time.Hour))
	b := h.writeReport(t, "b.xlsx", sentAt.Add(-time.Hour))
	h.ledger.records["a.xlsx"] = sentAt.Add(-90 * time.Minute)

	result, err := h.pipeline(t).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeBacklog, result.Outcome)
	assert.Equal(t, 0, h.enrichmentBuilds)
	assert.Equal(t, 0, h.tickets.calls)
	assert.Equal(t, 0, h.catalog.calls)
	assert.Equal(t, 0, h.classifier.CallCount())
	assert.Equal(t, 0, h.exporter.calls)
	assert.Empty(t, h.progress.events)

	require.Len(t, h.sender.emails, 1)
	assert.Equal(t, []string{b}, h.sender.emails[0].Attachments)
	assert.True(t, h.ledger.has("b.xlsx"))
	assert.Equal(t, []string{b}, result.Sent)
	assert.Len(t, result.Skipped, 1)
}

func TestRunBacklogOldestFirstInOneEmail(t *testing.T) {
	h := newHarness(t)
	newer := h.writeReport(t, "newer.xlsx", sentAt.Add(-time.Hour))
	older := h.writeReport(t, "older.xlsx", sentAt.Add(-3*time.Hour))

	_, err := h.pipeline(t).Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, h.sender.emails, 1)
	assert.Equal(t, []string{older, newer}, h.sender.emails[0].Attachments)
	assert.True(t, h.ledger.has("older.xlsx"))
	assert.True(t, h.ledger.has("newer.xlsx"))
}

func TestRunExplicitReportAlreadySent(t *testing.T) {
	h := newHarness(t)
	report := h.writeReport(t, "done.xlsx", sentAt)
	h.ledger.records["done.xlsx"] = sentAt

	result, err := h.pipeline(t).Run(context.Background(), report)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadySent, result.Outcome)
	assert.Empty(t, h.sender.emails)
	assert.Equal(t, 0, h.tickets.calls)
	assert.Equal(t, 0, h.exporter.calls)
}

func TestRunExplicitReportUnsent(t *testing.T) {
	h := newHarness(t)
	report := h.writeReport(t, "pending.xlsx", sentAt)
	h.writeReport(t, "other.xlsx", sentAt)

	result, err := h.pipeline(t).Run(context.Background(), report)
	require.NoError(t, err)

	assert.Equal(t, OutcomeBacklog, result.Outcome)
	require.Len(t, h.sender.emails, 1)
	assert.Equal(t, []string{report}, h.sender.emails[0].Attachments)
	assert.True(t, h.ledger.has("pending.xlsx"))
	assert.False(t, h.ledger.has("other.xlsx"))
}

func TestRunFatalErrors(t *testing.T) {
	t.Run("ticket source", func(t *testing.T) {
		h := newHarness(t)
		h.tickets.err = common.ErrTicketSource

		_, err := h.pipeline(t).Run(context.Background(), "")
		require.Error(t, err)
		assert.True(t, common.IsFatal(err))
		assert.ErrorIs(t, err, common.ErrTicketSource)
		assert.Equal(t, 0, h.catalog.calls)
		assert.Empty(t, h.sender.emails)
	})

	t.Run("catalog", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.err = common.ErrCatalogLoad

		_, err := h.pipeline(t).Run(context.Background(), "")
		require.Error(t, err)
		assert.True(t, common.IsFatal(err))
		assert.ErrorIs(t, err, common.ErrCatalogLoad)
		assert.Equal(t, 0, h.classifier.CallCount())
	})

	t.Run("ledger read", func(t *testing.T) {
		h := newHarness(t)
		h.writeReport(t, "a.xlsx", sentAt)
		h.ledger.readErr = errors.New("database is locked")

		_, err := h.pipeline(t).Run(context.Background(), "")
		require.Error(t, err)
		assert.True(t, common.IsFatal(err))
		assert.Empty(t, h.sender.emails)
	})
}

func TestRunBacklogDoesNotNeedEnrichment(t *testing.T) {
	h := newHarness(t)
	report := h.writeReport(t, "pending.xlsx", sentAt)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	unconfigured := func(context.Context) (*Enrichment, error) {
		return nil, fmt.Errorf("%w: llm.api_key", common.ErrMissingConfig)
	}

	result, err := h.pipelineWith(t, logger, unconfigured).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBacklog, result.Outcome)
	assert.Equal(t, []string{report}, result.Sent)
	assert.True(t, h.ledger.has("pending.xlsx"))

	_, err = h.pipelineWith(t, logger, unconfigured).Run(context.Background(), "")
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
	assert.Len(t, h.sender.emails, 1)
}

func TestRunLogsBackfillOnce(t *testing.T) {
	h := newHarness(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	_, err := h.pipelineWith(t, logger, h.enrichment(logger)).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "SLA backfill complete"))
}

func TestRunExportFailure(t *testing.T) {
	h := newHarness(t)
	h.exporter.err = common.ErrReportGeneration

	result, err := h.pipeline(t).Run(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, common.KindStage, common.KindOf(err))
	assert.False(t, common.IsFatal(err))
	assert.ErrorIs(t, err, common.ErrReportGeneration)
	assert.Empty(t, h.sender.emails)
	assert.Empty(t, result.Report)
}

func TestRunSendFailureRecordsNothing(t *testing.T) {
	h := newHarness(t)
	h.sender.err = common.ErrEmailSend

	result, err := h.pipeline(t).Run(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, common.KindStage, common.KindOf(err))
	assert.ErrorIs(t, err, common.ErrEmailSend)
	assert.Empty(t, result.Sent)
	assert.False(t, h.ledger.has("classified_requests_new.xlsx"))

	// The unsent report is picked up as backlog by the next run.
	h.sender.err = nil
	result, err = h.pipeline(t).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBacklog, result.Outcome)
	assert.Equal(t, 1, h.tickets.calls)
	assert.True(t, h.ledger.has("classified_requests_new.xlsx"))
}

func TestRunMarkFailureIsStageError(t *testing.T) {
	h := newHarness(t)
	h.ledger.markErr = errors.New("disk full")

	_, err := h.pipeline(t).Run(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, common.KindStage, common.KindOf(err))
	assert.Len(t, h.sender.emails, 1)
}

func TestRunFailedBatchStillDelivers(t *testing.T) {
	h := newHarness(t)
	h.classifier.FailOnCall(1, common.ErrClassification)

	result, err := h.pipeline(t).Run(context.Background(), "")
	require.NoError(t, err)

	require.NotNil(t, result.Classification)
	assert.Equal(t, 1, result.Classification.FailedBatches)
	assert.Equal(t, []string{"0-1"}, result.Classification.FailedRanges)
	require.Len(t, h.exporter.exported, 3)
	assert.Empty(t, h.exporter.exported[0].Category)
	assert.Len(t, h.sender.emails, 1)
}

func TestRunNoTickets(t *testing.T) {
	h := newHarness(t)
	h.tickets.tickets = nil

	result, err := h.pipeline(t).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Tickets)
	assert.Equal(t, 0, h.classifier.CallCount())
	assert.Equal(t, 1, h.exporter.calls)
	assert.Empty(t, h.exporter.exported)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "backlog", OutcomeBacklog.String())
	assert.Equal(t, "already_sent", OutcomeAlreadySent.String())
	assert.Equal(t, "generated", OutcomeGenerated.String())
	assert.Equal(t, "none", OutcomeNone.String())
}
