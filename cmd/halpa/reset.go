package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/storage"
	"github.com/spf13/cobra"
)

type resetOptions struct {
	force         bool
	includeStores bool
	noCheckpoint  bool
}

func resetCmd() *cobra.Command {
	var opts resetOptions

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all products and prices",
		Long: `Reset removes every product and every recorded price, and with
--include-stores the stores too, so the catalog can be seeded again.

An automatic checkpoint is taken first; restore it with 'halpa checkpoint restore'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return runReset(ctx, db, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&opts.includeStores, "include-stores", false, "delete stores as well")
	cmd.Flags().BoolVar(&opts.noCheckpoint, "no-checkpoint", false, "do not take a checkpoint first")

	return cmd
}

func runReset(ctx context.Context, db *storage.SQLiteStorage, opts resetOptions, in io.Reader, out io.Writer) error {
	status, err := db.Status(ctx)
	if err != nil {
		return err
	}

	if status.Products == 0 && status.Prices == 0 && (!opts.includeStores || status.Stores == 0) {
		fmt.Fprintln(out, cli.FormatInfo("The catalog is already empty. Nothing to reset."))
		return nil
	}

	question := fmt.Sprintf("This will delete %d products and %d prices", status.Products, status.Prices)
	if opts.includeStores {
		question += fmt.Sprintf(" and %d stores", status.Stores)
	}
	ok, err := confirm(ctx, in, out, question+". Continue?", opts.force)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, cli.SubtitleStyle.Render("Reset cancelled."))
		return nil
	}

	if !opts.noCheckpoint {
		manager, err := db.NewCheckpointManager()
		if err != nil {
			return fmt.Errorf("failed to create checkpoint manager: %w", err)
		}
		info, err := manager.AutoCheckpoint(ctx, "reset")
		if err != nil {
			return err
		}
		slog.Info("Created checkpoint before reset", "checkpoint", info.ID)
		fmt.Fprintln(out, cli.FormatInfo("Saved checkpoint "+info.ID))
	}

	before, err := db.Reset(ctx, opts.includeStores)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	msg := fmt.Sprintf("Deleted %d products and %d prices", before.Products, before.Prices)
	if opts.includeStores {
		msg += fmt.Sprintf(" and %d stores", before.Stores)
	}
	fmt.Fprintln(out, cli.FormatSuccess(msg))
	fmt.Fprintln(out, "Run 'halpa seed' to create the catalog again.")
	return nil
}
