package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/helpdesk-triage/internal/catalog"
	"github.com/Veraticus/helpdesk-triage/internal/cli"
	"github.com/Veraticus/helpdesk-triage/internal/config"
	"github.com/Veraticus/helpdesk-triage/internal/delivery"
	"github.com/Veraticus/helpdesk-triage/internal/email"
	"github.com/Veraticus/helpdesk-triage/internal/engine"
	"github.com/Veraticus/helpdesk-triage/internal/helpdesk"
	"github.com/Veraticus/helpdesk-triage/internal/llm"
	"github.com/Veraticus/helpdesk-triage/internal/pipeline"
	"github.com/Veraticus/helpdesk-triage/internal/report"
	"github.com/Veraticus/helpdesk-triage/internal/service"
	"github.com/Veraticus/helpdesk-triage/internal/storage"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// openLedger opens and migrates the delivery ledger. The caller closes it.
func openLedger(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	db, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open delivery ledger: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func closeLedger(db *storage.SQLiteStorage) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close delivery ledger", "error", err)
	}
}

func newExporter(cfg *config.Config, outputDir string, logger *slog.Logger) service.ReportExporter {
	if cfg.Report.Format == "csv" {
		return report.NewCSVExporter(outputDir, cfg.Report.Prefix, logger)
	}
	return report.NewXLSXExporter(outputDir, cfg.Report.Prefix, logger)
}

func newSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.EmailSender, error) {
	envelope := email.Envelope{From: cfg.Email.Sender, To: cfg.Email.Recipients}

	if cfg.Email.Transport == "ses" {
		return email.NewSESSender(ctx, email.SESConfig{
			Region:    cfg.Email.AWSRegion,
			AccessKey: cfg.Email.AWSAccessKey,
			SecretKey: cfg.Email.AWSSecretKey,
			Envelope:  envelope,
		}, logger)
	}

	return email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		UseTLS:   cfg.Email.UseTLS,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		Timeout:  cfg.Email.Timeout,
		Envelope: envelope,
	}, logger)
}

func newClassifier(cfg *config.Config, logger *slog.Logger) (*llm.Classifier, error) {
	return llm.NewClassifier(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		MaxRetries:  cfg.LLM.MaxRetries,
		RetryDelay:  cfg.LLM.RetryDelay,
		Timeout:     cfg.LLM.Timeout,
		RateLimit:   cfg.LLM.RateLimit,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger)
}

// newEnrichment returns the constructor for the fetch and classify
// collaborators. It only runs once the backlog and explicit-report checks
// have passed, so delivery-only runs need no helpdesk, catalog or LLM config.
func newEnrichment(cfg *config.Config, logger *slog.Logger) pipeline.EnrichmentFunc {
	return func(context.Context) (*pipeline.Enrichment, error) {
		if err := cfg.ValidateEnrichment(); err != nil {
			return nil, err
		}

		tickets, err := helpdesk.NewClient(helpdesk.Config{
			URL:       cfg.Helpdesk.URL,
			APIKey:    cfg.Helpdesk.APIKey,
			APISecret: cfg.Helpdesk.APISecret,
			Timeout:   cfg.Helpdesk.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}

		catalogSource, err := catalog.NewClient(catalog.Config{
			Location: cfg.Catalog.URL,
			Timeout:  cfg.Catalog.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}

		classifier, err := newClassifier(cfg, logger)
		if err != nil {
			return nil, err
		}

		return &pipeline.Enrichment{
			Tickets: tickets,
			Catalog: catalogSource,
			Engine:  engine.New(classifier, logger),
		}, nil
	}
}

// buildPipeline wires a run against the open ledger and the given sender.
func buildPipeline(cfg *config.Config, ledger service.DeliveryLedger, sender service.EmailSender, logger *slog.Logger) (*pipeline.Pipeline, error) {
	exporter := newExporter(cfg, cfg.Report.OutputDir, logger)

	return pipeline.New(pipeline.Deps{
		Enrichment: newEnrichment(cfg, logger),
		Exporter:   exporter,
		Sender:     sender,
		Tracker:    delivery.NewTracker(ledger, cfg.Report.OutputDir, exporter.Extension(), logger),
		Progress:   cli.NewSpinner(nil),
		Logger:     logger,
		Mail: pipeline.Mail{
			Title:         cfg.Email.Title,
			CandidateName: cfg.Email.CandidateName,
			CodebaseURL:   cfg.Email.CodebaseURL,
		},
		Batch: engine.BatchOptions{
			BatchSize:     cfg.Batch.Size,
			Pace:          cfg.Batch.Pace,
			ExamplesToLog: cfg.Batch.ExamplesToLog,
		},
	})
}
