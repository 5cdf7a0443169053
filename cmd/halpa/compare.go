package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/spf13/cobra"
)

type compareOptions struct {
	search      string
	category    string
	sortBy      string
	differences int
	ranking     bool
}

func compareCmd() *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Show current prices side by side",
		Long: `Show the latest price of every product at every store, the cheapest store
per product and the price spread between stores.`,
		Example: `  # Dairy products, cheapest first
  halpa compare --category Dairy --sort price-low

  # Store ranking and the five biggest price differences
  halpa compare --ranking --differences 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sortBy, ok := aggregate.ParseSortBy(opts.sortBy)
			if !ok {
				modes := make([]string, 0, len(aggregate.SortModes))
				for _, m := range aggregate.SortModes {
					modes = append(modes, string(m))
				}
				return common.NewUserError(
					fmt.Sprintf("unknown sort %q (use one of: %s)", opts.sortBy, strings.Join(modes, ", ")),
					common.ErrInvalidConfig)
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

			return writeComparison(cmd.OutOrStdout(), snap, aggregate.Query{
				Search:   opts.search,
				Category: opts.category,
				SortBy:   sortBy,
			}, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.search, "search", "q", "", "only products whose name contains this text")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "only products in this category")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "sort by name, category, price-low, price-high or variance")
	cmd.Flags().IntVar(&opts.differences, "differences", 0, "also list the N products with the biggest price spread")
	cmd.Flags().BoolVar(&opts.ranking, "ranking", false, "also rank stores by cheapest products")

	return cmd
}

func writeComparison(w io.Writer, snap *aggregate.Snapshot, q aggregate.Query, opts compareOptions) error {
	if len(snap.Products) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatWarning("The catalog is empty. Run 'halpa seed' first."))
		return err
	}

	aggs := aggregate.Filter(snap.Products, q)
	fmt.Fprintln(w, cli.FormatTitle(fmt.Sprintf("Price Comparison (%d of %d products)", len(aggs), len(snap.Products))))
	if err := cli.WriteComparison(w, aggs, snap.Stores); err != nil {
		return err
	}

	if opts.ranking {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cli.TitleStyle.Render(cli.TrophyIcon+" Store Ranking"))
		if err := cli.WriteStoreRanking(w, snap.Summaries); err != nil {
			return err
		}
		if best, ok := aggregate.CheapestOverall(snap.Summaries); ok {
			fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%s is cheapest for %d products", best.Store.Name, best.CheapestCount)))
		}
	}

	if opts.differences > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cli.TitleStyle.Render(cli.ChartIcon+" Biggest Differences"))
		if err := cli.WriteDifferences(w, aggregate.BiggestDifferences(snap.Products, opts.differences)); err != nil {
			return err
		}
	}
	return nil
}
