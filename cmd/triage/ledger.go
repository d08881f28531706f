package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/helpdesk-triage/internal/cli"
	"github.com/Veraticus/helpdesk-triage/internal/common"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the report delivery ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List delivered reports, newest first",
		Args:  cobra.NoArgs,
		RunE:  runLedgerList,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "forget FILE",
		Short: "Remove a report from the ledger so the next run sends it again",
		Args:  cobra.ExactArgs(1),
		RunE:  runLedgerForget,
	})

	return cmd
}

func runLedgerList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ledger, err := openLedger(ctx, cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer closeLedger(ledger)

	records, err := ledger.ListDeliveries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list deliveries: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDeliveries(records))
	return nil
}

func runLedgerForget(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := filepath.Base(args[0])

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ledger, err := openLedger(ctx, cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer closeLedger(ledger)

	if err := ledger.DeleteDelivery(ctx, name); err != nil {
		if errors.Is(err, common.ErrDeliveryNotFound) {
			return common.NewUserError(fmt.Sprintf("%s is not in the delivery ledger", name), err)
		}
		return fmt.Errorf("failed to forget %s: %w", name, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Forgot %s, the next run will deliver it again", name)))
	return nil
}
