package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/config"
	"github.com/Veraticus/helpdesk-triage/internal/pipeline"
	"github.com/Veraticus/helpdesk-triage/internal/service"
	"github.com/Veraticus/helpdesk-triage/internal/testutil"
)

type capturingSender struct {
	emails []service.Email
}

func (c *capturingSender) Send(_ context.Context, email service.Email) error {
	c.emails = append(c.emails, email)
	return nil
}

func deliveryOnlyConfig(t *testing.T) *config.Config {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("report.output_dir", t.TempDir())
	v.Set("email.sender", "triage@example.com")
	v.Set("email.recipients", "ops@example.com")
	v.Set("email.host", "smtp.example.com")

	cfg, err := config.Load(v)
	require.NoError(t, err)
	require.Empty(t, cfg.LLM.APIKey)
	return cfg
}

func TestBuildPipelineSendsBacklogWithoutEnrichmentConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := deliveryOnlyConfig(t)
	require.NoError(t, cfg.ValidateDelivery())

	pending := filepath.Join(cfg.Report.OutputDir, "classified_requests_2024-03-01T09-00-00.xlsx")
	require.NoError(t, os.WriteFile(pending, []byte("report"), 0o600))

	ledger := testutil.SetupTestLedger(t)
	sender := &capturingSender{}

	p, err := buildPipeline(cfg, ledger.Storage, sender, logger)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeBacklog, result.Outcome)
	require.Len(t, sender.emails, 1)
	assert.Equal(t, []string{pending}, sender.emails[0].Attachments)
	assert.True(t, ledger.Delivered(filepath.Base(pending)))
}

func TestBuildPipelineNeedsEnrichmentConfigToFetch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := deliveryOnlyConfig(t)
	ledger := testutil.SetupTestLedger(t)
	sender := &capturingSender{}

	p, err := buildPipeline(cfg, ledger.Storage, sender, logger)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "")
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
	assert.Empty(t, sender.emails)
}
