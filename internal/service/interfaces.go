// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// TicketSource fetches the tickets to enrich.
type TicketSource interface {
	FetchTickets(ctx context.Context) ([]model.Ticket, error)
}

// CatalogSource fetches the service catalog.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) (*model.Catalog, error)
}

// Classifier suggests classification fields for a batch of tickets.
// The returned map is keyed by ticket ID and may omit tickets. A non-nil
// error means the whole batch failed.
type Classifier interface {
	ClassifyBatch(ctx context.Context, tickets []model.Ticket, catalog *model.Catalog) (map[string]model.ClassificationResult, error)
}

// ReportExporter renders tickets into a report artifact and returns its path.
type ReportExporter interface {
	Export(ctx context.Context, tickets []model.Ticket) (string, error)
	Extension() string
}

// Email is an outgoing message with file attachments.
type Email struct {
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []string
}

// EmailSender transmits an email.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// DeliveryLedger persists which report artifacts have been sent.
type DeliveryLedger interface {
	GetDeliveryRecord(ctx context.Context, filename string) (*model.DeliveryRecord, error)
	MarkSent(ctx context.Context, filename string, sentAt time.Time) error
}

// ProgressIndicator shows activity while a long stage runs.
// Stop must not return until the indicator has stopped drawing.
type ProgressIndicator interface {
	Start(message string)
	Stop()
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
