// Package catalog loads the service catalog from a URL or a local YAML file.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// Config holds the catalog location and HTTP behavior.
type Config struct {
	Location string // http(s) URL, file:// URL or filesystem path
	Timeout  time.Duration
	Retry    service.RetryOptions
}

// Client implements service.CatalogSource.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
}

// NewClient creates a catalog client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Location) == "" {
		return nil, fmt.Errorf("%w: service catalog location", common.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.InitialDelay <= 0 {
		cfg.Retry.InitialDelay = 500 * time.Millisecond
	}

	return &Client{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// FetchCatalog downloads and parses the catalog.
func (c *Client) FetchCatalog(ctx context.Context) (*model.Catalog, error) {
	data, err := c.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCatalogLoad, err)
	}

	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCatalogLoad, err)
	}

	c.logger.Info("Loaded service catalog",
		"categories", len(catalog.Categories),
		"request_types", catalog.RequestTypeCount())

	return catalog, nil
}

func (c *Client) read(ctx context.Context) ([]byte, error) {
	location := c.cfg.Location

	parsed, err := url.Parse(location)
	if err == nil {
		switch parsed.Scheme {
		case "http", "https":
			return c.download(ctx, location)
		case "file":
			location = parsed.Path
		}
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return data, nil
}

func (c *Client) download(ctx context.Context, location string) ([]byte, error) {
	var data []byte
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return common.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("catalog request failed with status %d", resp.StatusCode)
			return &common.RetryableError{Err: statusErr, Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests}
		}

		data = body
		return nil
	}, c.cfg.Retry)

	return data, err
}
