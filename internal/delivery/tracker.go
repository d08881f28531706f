// Package delivery tracks which report artifacts have already been emailed.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// Tracker answers "was this artifact sent?" against a durable ledger.
// Artifacts are identified by base filename, so moving the output directory
// does not cause resends.
type Tracker struct {
	ledger    service.DeliveryLedger
	logger    *slog.Logger
	outputDir string
	extension string
}

// NewTracker creates a tracker that scans outputDir for files ending in extension.
func NewTracker(ledger service.DeliveryLedger, outputDir, extension string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return &Tracker{
		ledger:    ledger,
		logger:    logger,
		outputDir: outputDir,
		extension: extension,
	}
}

// Backlog partitions candidate artifacts by delivery state.
type Backlog struct {
	Sent         []string
	Unsent       []string
	ExplicitSent bool
}

// RecordFor returns the delivery record for an artifact, or nil if it was never sent.
func (t *Tracker) RecordFor(ctx context.Context, artifact string) (*model.DeliveryRecord, error) {
	record, err := t.ledger.GetDeliveryRecord(ctx, filepath.Base(artifact))
	if errors.Is(err, common.ErrDeliveryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery record for %s: %w", artifact, err)
	}
	return record, nil
}

// MarkSent records every artifact as delivered at the given time.
func (t *Tracker) MarkSent(ctx context.Context, artifacts []string, at time.Time) error {
	for _, artifact := range artifacts {
		name := filepath.Base(artifact)
		if err := t.ledger.MarkSent(ctx, name, at); err != nil {
			return fmt.Errorf("failed to record delivery of %s: %w", name, err)
		}
		t.logger.Info("report delivery recorded", "filename", name, "sent_at", at.Format(time.RFC3339))
	}
	return nil
}

// Discover lists report artifacts in the output directory, oldest first.
// A missing directory yields no artifacts.
func (t *Tracker) Discover() ([]string, error) {
	entries, err := os.ReadDir(t.outputDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory %s: %w", t.outputDir, err)
	}

	type artifact struct {
		modTime time.Time
		path    string
	}
	var found []artifact

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), t.extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		found = append(found, artifact{
			path:    filepath.Join(t.outputDir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].modTime.Equal(found[j].modTime) {
			return found[i].path < found[j].path
		}
		return found[i].modTime.Before(found[j].modTime)
	})

	paths := make([]string, len(found))
	for i, a := range found {
		paths[i] = a.path
	}
	return paths, nil
}

// Pending checks candidates against the ledger. With an explicit artifact only
// that artifact is considered; otherwise the output directory is scanned.
func (t *Tracker) Pending(ctx context.Context, explicit string) (*Backlog, error) {
	var candidates []string
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve report path %s: %w", explicit, err)
		}
		candidates = []string{abs}
	} else {
		discovered, err := t.Discover()
		if err != nil {
			return nil, err
		}
		candidates = discovered
	}

	backlog := &Backlog{}
	for _, candidate := range candidates {
		record, err := t.RecordFor(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if record != nil {
			t.logger.Info("report already sent, skipping",
				"filename", record.Filename,
				"sent_at", record.SentAt.Format(time.RFC3339))
			backlog.Sent = append(backlog.Sent, candidate)
			continue
		}
		backlog.Unsent = append(backlog.Unsent, candidate)
	}

	backlog.ExplicitSent = explicit != "" && len(backlog.Sent) > 0

	return backlog, nil
}
