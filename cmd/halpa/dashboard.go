package main

import (
	"github.com/Veraticus/halpa/internal/dashboard"
	"github.com/spf13/cobra"
)

func dashboardCmd() *cobra.Command {
	var inline bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Browse the comparison interactively",
		Long: `Open a terminal dashboard listing every product with its price per store.

Keys: / search, c/C category, s sort, tab store ranking, r reload, ? help, q quit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return dashboard.Run(ctx,
				dashboard.WithReader(db),
				dashboard.WithAltScreen(!inline),
			)
		},
	}

	cmd.Flags().BoolVar(&inline, "inline", false, "render inline instead of using the alternate screen")

	return cmd
}
