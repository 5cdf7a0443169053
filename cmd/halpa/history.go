package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <product-id>",
		Short: "Show every recorded price of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return common.NewUserError(fmt.Sprintf("invalid product id %q", args[0]), err)
			}

			ctx := cmd.Context()
			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			product, err := db.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			points, err := db.PriceHistory(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s (%s, %s)", product.Name, product.Category, product.Unit)))
			if len(points) == 0 {
				fmt.Fprintln(out, cli.SubtitleStyle.Render("No prices recorded yet."))
				return nil
			}
			return cli.WriteHistory(out, points)
		},
	}
}
