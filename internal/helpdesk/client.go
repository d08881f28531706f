// Package helpdesk fetches tickets from the helpdesk HTTP API.
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// Config holds the helpdesk API settings.
type Config struct {
	URL       string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	Retry     service.RetryOptions
}

// Client implements service.TicketSource against the helpdesk API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
}

// NewClient creates a new helpdesk client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: helpdesk API URL", common.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelay <= 0 {
		cfg.Retry.InitialDelay = 500 * time.Millisecond
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

type credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// FetchTickets posts the API credentials and returns every ticket in the response.
func (c *Client) FetchTickets(ctx context.Context) ([]model.Ticket, error) {
	body, err := json.Marshal(credentials{APIKey: c.cfg.APIKey, APISecret: c.cfg.APISecret})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal credentials: %w", common.ErrTicketSource, err)
	}

	var payload []byte
	err = common.WithRetry(ctx, func() error {
		var reqErr error
		payload, reqErr = c.post(ctx, body)
		return reqErr
	}, c.cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTicketSource, err)
	}

	tickets, err := decodeTickets(payload, c.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTicketSource, err)
	}

	c.logger.Info("Fetched helpdesk tickets", "count", len(tickets))
	for i, ticket := range tickets {
		if i == 5 {
			break
		}
		c.logger.Info("sample ticket", "ticket_id", ticket.ID, "short_description", ticket.ShortDescription)
	}

	return tickets, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("helpdesk API error (status %d): %s", resp.StatusCode, truncate(string(data), 200))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &common.RetryableError{Err: statusErr, Retryable: true}
		}
		return nil, common.Permanent(statusErr)
	}

	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
