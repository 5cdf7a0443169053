package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/ingest"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import prices from delimited files",
		Long: `Import price lines for one store from pipe- or comma-delimited files:

  PRODUCT NAME | PRICE (€/unit) | PRICE (€/kg)
  Pirkka banaani | 0.30 | 1.69

Lines are matched against the product catalog. Unknown products are reported
and skipped; the catalog is never extended by an import.`,
		Example: `  # Import a price list scraped from K-Citymarket
  halpa import --store K-Citymarket prices.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(store) == "" {
				return common.NewUserError("--store is required", common.ErrMissingConfig)
			}

			batch, err := readDelimitedFiles(args, store)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("No price lines found."))
				return nil
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), "Import")

			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			_, err = ingestBatch(ctx, db, batch, cmd.OutOrStdout())
			if err != nil && handler.WasInterrupted() {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&store, "store", "s", "", "store the prices belong to")

	return cmd
}

// readDelimitedFiles parses every file into one batch. Line numbers of later
// files continue after the last line of the previous ones.
func readDelimitedFiles(paths []string, store string) ([]model.RawObservation, error) {
	var (
		batch  []model.RawObservation
		offset int
	)
	for _, path := range paths {
		f, err := os.Open(path) // #nosec G304 - path comes from the user's command line
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}

		observations, err := ingest.ParseDelimited(f, store)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		last := offset
		for i := range observations {
			observations[i].Line += offset
			last = max(last, observations[i].Line)
		}
		offset = last
		batch = append(batch, observations...)
	}
	return batch, nil
}
