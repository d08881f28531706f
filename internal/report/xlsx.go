package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
)

const (
	sheetName      = "Helpdesk Requests"
	maxColumnWidth = 80
)

// XLSXExporter writes tickets to an Excel workbook.
type XLSXExporter struct {
	logger    *slog.Logger
	now       func() time.Time
	outputDir string
	prefix    string
}

// NewXLSXExporter creates an exporter writing into outputDir.
func NewXLSXExporter(outputDir, prefix string, logger *slog.Logger) *XLSXExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExporter{
		logger:    logger,
		now:       time.Now,
		outputDir: outputDir,
		prefix:    prefix,
	}
}

// Extension returns the artifact file extension.
func (e *XLSXExporter) Extension() string {
	return ".xlsx"
}

// Export writes a sorted workbook with a bold header row and returns its path.
func (e *XLSXExporter) Export(ctx context.Context, tickets []model.Ticket) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}

	path, err := artifactPath(e.outputDir, e.prefix, e.Extension(), e.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}

	if err := e.write(path, sortTickets(tickets)); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrReportGeneration, err)
	}

	e.logger.Info("Report written", "path", path, "rows", len(tickets))
	return path, nil
}

func (e *XLSXExporter) write(path string, tickets []model.Ticket) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	widths := make([]int, len(Headers))
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, ticket := range tickets {
		cells := row(ticket)
		for col, text := range stringRow(ticket) {
			if n := utf8.RuneCountInString(text); n > widths[col] {
				widths[col] = n
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		w := width + 2
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		if err := f.SetColWidth(sheetName, col, col, float64(w)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
