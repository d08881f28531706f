package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// CSVExporter writes tickets to a CSV file with the same columns as the workbook.
type CSVExporter struct {
	logger    *slog.Logger
	now       func() time.Time
	outputDir string
	prefix    string
}

// NewCSVExporter creates an exporter writing into outputDir.
func NewCSVExporter(outputDir, prefix string, logger *slog.Logger) *CSVExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVExporter{
		logger:    logger,
		now:       time.Now,
		outputDir: outputDir,
		prefix:    prefix,
	}
}

// Extension returns the artifact file extension.
func (e *CSVExporter) Extension() string {
	return ".csv"
}

// Export writes the sorted tickets and returns the file path.
func (e *CSVExporter) Export(ctx context.Context, tickets []model.Ticket) (path string, err error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}

	path, err = artifactPath(e.outputDir, e.prefix, e.Extension(), e.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %w", common.ErrReportGeneration, closeErr)
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write(Headers); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}
	for _, ticket := range sortTickets(tickets) {
		if err := w.Write(stringRow(ticket)); err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}

	e.logger.Info("Report written", "path", path, "rows", len(tickets))
	return path, nil
}
