package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/config"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func fetchCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch current prices from the configured sources",
		Long: `Fetch prices for every catalog store from the sources listed under the
"sources" key of the config file, then match and record them.

Stores without a source, and stores whose source fails, are reported and
skipped; the other stores are still imported.`,
		Example: `  # Fetch every store
  halpa fetch

  # Fetch only Lidl and Prisma
  halpa fetch --store Lidl --store Prisma`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, configs, err := buildRegistry()
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), "Fetch")

			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			stores, err := db.ListStores(ctx)
			if err != nil {
				return fmt.Errorf("failed to list stores: %w", err)
			}
			stores = selectStores(stores, only)
			if len(stores) == 0 {
				return common.NewUserError("no stores to fetch; run 'halpa seed' first", common.ErrNotFound)
			}

			slog.Info("Fetching prices", "stores", len(stores), "sources", len(configs))
			batch := fetchObservations(ctx, reg, stores, cmd.OutOrStdout())
			if len(batch) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("No prices fetched."))
				return nil
			}

			_, err = ingestBatch(ctx, db, batch, cmd.OutOrStdout())
			if err != nil && handler.WasInterrupted() {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&only, "store", nil, "only fetch these stores (repeatable)")

	return cmd
}

// buildRegistry creates the sources listed in the config file.
func buildRegistry() (*source.Registry, []source.Config, error) {
	configs, err := config.LoadSources()
	if err != nil {
		return nil, nil, err
	}
	if len(configs) == 0 {
		return nil, nil, common.NewUserError(`no sources configured; add a "sources" list to the config file`, common.ErrMissingConfig)
	}

	timeout := viper.GetDuration("fetch.timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	reg, err := source.BuildRegistry(configs, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, nil, err
	}
	return reg, configs, nil
}

// selectStores keeps the stores named in only, compared case-insensitively.
// An empty filter keeps every store.
func selectStores(stores []model.Store, only []string) []model.Store {
	if len(only) == 0 {
		return stores
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var out []model.Store
	for _, s := range stores {
		if wanted[strings.ToLower(s.Name)] {
			out = append(out, s)
		}
	}
	return out
}

// fetchObservations fetches every store and reports each outcome to w. Failed
// stores are skipped.
func fetchObservations(ctx context.Context, reg *source.Registry, stores []model.Store, w io.Writer) []model.RawObservation {
	var batch []model.RawObservation
	for _, res := range reg.FetchAll(ctx, stores) {
		if res.Err != nil {
			slog.Warn("Fetch failed", "store", res.Store.Name, "source", res.Source, "error", res.Err)
			fmt.Fprintln(w, cli.FormatWarning(fmt.Sprintf("%s: %v", res.Store.Name, res.Err)))
			continue
		}
		fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%s: %d prices from %s", res.Store.Name, len(res.Observations), res.Source)))
		batch = append(batch, res.Observations...)
	}
	return batch
}
