package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/helpdesk-triage/internal/cli"
	"github.com/Veraticus/helpdesk-triage/internal/engine"
	"github.com/Veraticus/helpdesk-triage/internal/model"
)

func exampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Write an example report without calling any external service",
		Long: `Classify two built-in sample tickets with the offline keyword classifier and
write the resulting report. The report goes to its own directory so it is
never picked up for delivery.`,
		Args: cobra.NoArgs,
		RunE: runExample,
	}

	cmd.Flags().String("output", "example", "directory for the example report")

	return cmd
}

func exampleTickets() []model.Ticket {
	return []model.Ticket{
		{
			ID:               "1001",
			ShortDescription: "Cannot log in, password expired",
			RawPayload:       map[string]any{"id": "1001", "short_description": "Cannot log in, password expired"},
		},
		{
			ID:               "1002",
			ShortDescription: "VPN drops every few minutes",
			RawPayload:       map[string]any{"id": "1002", "short_description": "VPN drops every few minutes"},
		},
	}
}

func exampleCatalog() *model.Catalog {
	return &model.Catalog{Categories: []model.ServiceCategory{
		{Name: "Access", RequestTypes: []model.RequestType{
			{Name: "Password Reset", SLA: model.SLA{Unit: "hours", Value: 4}},
		}},
		{Name: "Network", RequestTypes: []model.RequestType{
			{Name: "VPN Access", SLA: model.SLA{Unit: "hours", Value: 8}},
		}},
	}}
}

func runExample(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outputDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	catalog := exampleCatalog()
	opts := engine.DefaultBatchOptions()
	opts.Pace = 0

	tickets, _ := engine.New(engine.NewMockClassifier(), logger).ClassifyTickets(ctx, exampleTickets(), catalog, opts)
	engine.BackfillSLA(tickets, catalog, logger)

	path, err := newExporter(cfg, outputDir, logger).Export(ctx, tickets)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Example report written to "+path))
	return nil
}
