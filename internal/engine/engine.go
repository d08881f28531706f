// Package engine implements ticket enrichment: batch classification, field merging and SLA backfill.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// ClassificationEngine drives the classifier over tickets in batches.
type ClassificationEngine struct {
	classifier service.Classifier
	logger     *slog.Logger
	pause      func(ctx context.Context, d time.Duration)
}

// New creates a new classification engine with the given classifier.
func New(classifier service.Classifier, logger *slog.Logger) *ClassificationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassificationEngine{
		classifier: classifier,
		logger:     logger,
		pause:      sleepContext,
	}
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
