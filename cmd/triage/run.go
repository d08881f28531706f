package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/helpdesk-triage/internal/cli"
	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/pipeline"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify tickets and deliver the report",
		Long: `Fetch helpdesk tickets, fill in missing classification fields, export a report
and email it.

Reports in the output directory that were never delivered are sent first and
the run stops there. With --report only that file is considered: it is sent if
it was never delivered, otherwise nothing happens.

Examples:
  triage run
  triage run --report output/classified_requests_2024-03-01T09-00-00.xlsx`,
		RunE: runPipeline,
	}

	cmd.Flags().String("report", "", "deliver this report file instead of scanning the output directory")
	_ = viper.BindPFlag("run.report", cmd.Flags().Lookup("report"))

	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateDelivery(); err != nil {
		return err
	}

	sender, err := newSender(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ledger, err := openLedger(ctx, cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer closeLedger(ledger)

	p, err := buildPipeline(cfg, ledger, sender, logger)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, viper.GetString("run.report"))
	if err != nil {
		if common.IsFatal(err) {
			return err
		}
		// Stage failures end the run without a failing exit status.
		slog.Warn("Run ended early", "kind", common.KindOf(err), "error", err)
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(err.Error()))
	}

	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), renderResult(result))
	}
	return nil
}

func renderResult(result *pipeline.Result) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Run:      %s", result.RunID))
	lines = append(lines, fmt.Sprintf("Outcome:  %s", result.Outcome))

	if result.Outcome == pipeline.OutcomeGenerated {
		lines = append(lines, fmt.Sprintf("Tickets:  %d", result.Tickets))
		if s := result.Classification; s != nil {
			lines = append(lines, fmt.Sprintf("Batches:  %d (%d failed)", s.Batches, s.FailedBatches))
			lines = append(lines, fmt.Sprintf("Merged:   %d", s.Merged))
		}
		lines = append(lines, fmt.Sprintf("Backfill: %d", result.Backfilled))
		lines = append(lines, fmt.Sprintf("Report:   %s", filepath.Base(result.Report)))
	}

	for _, sent := range result.Sent {
		lines = append(lines, cli.FormatSuccess("sent "+filepath.Base(sent)))
	}
	for _, skipped := range result.Skipped {
		lines = append(lines, cli.SubtleStyle.Render("already sent "+filepath.Base(skipped)))
	}

	return cli.RenderBox(cli.TicketIcon+" Triage run", strings.Join(lines, "\n"))
}
