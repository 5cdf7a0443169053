package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/config"
	"github.com/Veraticus/halpa/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Other commands migrate automatically; this command is useful to check the
schema state or to prepare a database ahead of time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusOnly, _ := cmd.Flags().GetBool("status")

			dbPath, err := config.DatabasePath()
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			current, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if statusOnly {
				state := "up to date"
				if current < storage.ExpectedSchemaVersion {
					state = fmt.Sprintf("%d migration(s) pending", storage.ExpectedSchemaVersion-current)
				}
				fmt.Fprintln(out, cli.RenderBox(cli.FolderIcon+" Migration Status",
					fmt.Sprintf("Database: %s\nCurrent:  v%d\nLatest:   v%d\nState:    %s",
						dbPath, current, storage.ExpectedSchemaVersion, state)))
				return nil
			}

			slog.Info("Running database migrations", "database", dbPath, "from", current)
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database schema is at v%d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().Bool("status", false, "show the schema version without applying changes")

	return cmd
}
