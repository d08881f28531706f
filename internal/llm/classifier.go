package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// Classifier implements service.Classifier on top of an LLM Client.
type Classifier struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewClassifier creates a new LLM-based classifier for the configured provider.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewClassifierWithClient(client, cfg, logger), nil
}

// NewClassifierWithClient wraps an existing client.
func NewClassifierWithClient(client Client, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}
}

// ClassifyBatch asks the model to classify all tickets in one call.
// Any failure fails the whole batch.
func (c *Classifier) ClassifyBatch(ctx context.Context, tickets []model.Ticket, catalog *model.Catalog) (map[string]model.ClassificationResult, error) {
	if len(tickets) == 0 {
		return map[string]model.ClassificationResult{}, nil
	}

	prompt := buildBatchPrompt(tickets, catalog)

	var content string
	err := common.WithRetry(ctx, func() error {
		if err := c.rateLimiter.wait(ctx); err != nil {
			return common.Permanent(err)
		}

		var callErr error
		content, callErr = c.client.Complete(ctx, systemPrompt, prompt)
		return callErr
	}, c.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrClassification, err)
	}

	results, err := parseBatchResponse(content)
	if err != nil {
		c.logger.Debug("unparseable model reply", "content", truncate(content, 500))
		return nil, fmt.Errorf("%w: %w", common.ErrClassification, err)
	}

	c.logger.Debug("batch classified",
		"requested", len(tickets),
		"returned", len(results))

	return results, nil
}
