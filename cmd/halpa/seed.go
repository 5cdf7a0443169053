package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/halpa/internal/catalog"
	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/source"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var fromSources bool

	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Create catalog products and stores",
		Long: `Create the product catalog from a curated YAML seed file, or from the
products the configured sources currently list.

Seed file format:

  stores: [Prisma, Lidl]
  products:
    - name: Maito 1l
      category: Dairy
      unit: 1l
      prices:
        - {store: Prisma, price: 1.29}

Missing categories and units are inferred from the name. Seeding is
idempotent: products that already exist are left as they are.`,
		Example: `  halpa seed catalog.yaml
  halpa seed --from-sources`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromSources == (len(args) == 1) {
				return common.NewUserError("give either a seed file or --from-sources", common.ErrMissingConfig)
			}

			ctx := cmd.Context()
			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var file *catalog.SeedFile
			if fromSources {
				file, err = seedFromSources(ctx, db, cmd.OutOrStdout())
			} else {
				file, err = catalog.LoadSeedFile(args[0])
			}
			if err != nil {
				return err
			}

			return runSeed(ctx, db, file, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&fromSources, "from-sources", false, "build the catalog from what the configured sources list")

	return cmd
}

func runSeed(ctx context.Context, w catalog.Writer, file *catalog.SeedFile, out io.Writer) error {
	rules, err := loadRules()
	if err != nil {
		return err
	}
	inf, err := rules.Inferencer()
	if err != nil {
		return err
	}

	report, err := catalog.NewSeeder(w, rules.Normalizer(), inf).Seed(ctx, file)
	if report != nil {
		writeSeedReport(out, report)
	}
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	return nil
}

func writeSeedReport(out io.Writer, r *catalog.Report) {
	content := fmt.Sprintf("Stores:            %d\nProducts created:  %d\nAlready existing:  %d\nMerged duplicates: %d\nPrices recorded:   %d",
		r.Stores, r.ProductsCreated, r.ProductsExisting, r.Merged, r.Prices)
	if len(r.Skipped) > 0 {
		content += fmt.Sprintf("\nSkipped:           %s", strings.Join(r.Skipped, ", "))
	}
	fmt.Fprintln(out, cli.RenderBox(cli.BasketIcon+" Catalog Seeded", content))
}

// seedFromSources fetches every configured store, including stores the
// catalog does not have yet.
func seedFromSources(ctx context.Context, db storeLister, out io.Writer) (*catalog.SeedFile, error) {
	reg, configs, err := buildRegistry()
	if err != nil {
		return nil, err
	}

	existing, err := db.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	batch := fetchObservations(ctx, reg, seedTargets(existing, configs), out)
	if len(batch) == 0 {
		return nil, common.NewUserError("the sources returned no products", common.ErrSourceUnavailable)
	}
	return catalog.FromObservations(batch), nil
}

type storeLister interface {
	ListStores(ctx context.Context) ([]model.Store, error)
}

// seedTargets merges the catalog stores with the store names configured for
// sources, dropping case-insensitive duplicates.
func seedTargets(existing []model.Store, configs []source.Config) []model.Store {
	seen := make(map[string]bool)
	var out []model.Store

	add := func(s model.Store) {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}

	for _, s := range existing {
		add(s)
	}
	for _, cfg := range configs {
		for _, name := range cfg.Stores {
			add(model.Store{Name: strings.TrimSpace(name)})
		}
	}
	return out
}
