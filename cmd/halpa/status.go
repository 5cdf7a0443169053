package main

import (
	"github.com/Veraticus/halpa/internal/cli"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts and schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			status, err := db.Status(ctx)
			if err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), *status, db.Path())
		},
	}
}
