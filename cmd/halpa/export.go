package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/config"
	"github.com/Veraticus/halpa/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reportWriter exports a comparison report and returns the spreadsheet id.
type reportWriter interface {
	Write(ctx context.Context, report sheets.Report) (string, error)
}

func exportCmd() *cobra.Command {
	var differences int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the comparison to Google Sheets",
		Long: `Write the store ranking, the biggest price differences and the full price
comparison to a Google Sheets spreadsheet.

Authenticate first with 'halpa auth sheets', or configure a service account
under sheets.service_account_path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sheetsCfg, err := config.LoadSheetsConfig()
			if err != nil {
				return fmt.Errorf("google sheets is not configured: %w", err)
			}

			ctx := cmd.Context()
			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := aggregate.Load(ctx, db)
			if err != nil {
				return err
			}

			writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
			if err != nil {
				return err
			}

			return exportReport(ctx, writer, buildReport(snap, time.Now(), differences), cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("spreadsheet-id", "", "write to this spreadsheet instead of the configured one")
	cmd.Flags().IntVar(&differences, "differences", 10, "number of biggest price differences to include")
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet-id"))

	return cmd
}

func buildReport(snap *aggregate.Snapshot, now time.Time, differences int) sheets.Report {
	return sheets.Report{
		GeneratedAt: now,
		Stores:      snap.Stores,
		Products:    snap.Products,
		Summaries:   snap.Summaries,
		Differences: aggregate.BiggestDifferences(snap.Products, differences),
	}
}

func exportReport(ctx context.Context, w reportWriter, report sheets.Report, out io.Writer) error {
	if len(report.Products) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("The catalog is empty; nothing to export."))
		return nil
	}

	id, err := w.Write(ctx, report)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %d products across %d stores", len(report.Products), len(report.Stores))))
	fmt.Fprintln(out, cli.FormatInfo("https://docs.google.com/spreadsheets/d/"+id))
	return nil
}
