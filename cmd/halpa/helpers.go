package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/config"
	"github.com/Veraticus/halpa/internal/ingest"
	"github.com/Veraticus/halpa/internal/matcher"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
	"github.com/Veraticus/halpa/internal/storage"
	"github.com/spf13/viper"
)

// maxReportErrors caps the per-line errors printed after an import.
const maxReportErrors = 10

// openStorage opens the configured database and brings its schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, func(), error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}
	return store, cleanup, nil
}

// loadRules reads the normalization and category rules file, if one is configured.
func loadRules() (config.Rules, error) {
	return config.LoadRules(config.ExpandPath(viper.GetString("rules.path")))
}

// newIngestService wires the pipeline from the configured rules. onLine may be nil.
func newIngestService(store service.CatalogStore, rules config.Rules, onLine func()) (*ingest.Service, error) {
	inf, err := rules.Inferencer()
	if err != nil {
		return nil, err
	}

	pipeline := ingest.NewPipeline(matcher.New(rules.Normalizer()), inf, ingest.Options{
		Workers:    viper.GetInt("ingest.workers"),
		SampleSize: viper.GetInt("ingest.sample_size"),
		OnLine:     onLine,
	})
	return ingest.NewService(store, pipeline, viper.GetInt("ingest.persist_workers")), nil
}

// ingestBatch runs one batch with a progress bar on stderr and prints the
// report to out. The report is printed even when the batch fails.
func ingestBatch(ctx context.Context, store service.CatalogStore, batch []model.RawObservation, out io.Writer) (*model.IngestionReport, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, err
	}

	progress := cli.NewProgress(os.Stderr, len(batch), "Matching prices")
	svc, err := newIngestService(store, rules, progress.Tick)
	if err != nil {
		return nil, err
	}

	report, err := svc.Run(ctx, batch)
	progress.Finish()

	if report != nil {
		if writeErr := cli.WriteReport(out, report, maxReportErrors); writeErr != nil {
			slog.Error("failed to write output", "error", writeErr)
		}
	}
	return report, err
}

// confirm asks a yes/no question on stdin unless force is set.
func confirm(ctx context.Context, in io.Reader, out io.Writer, question string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return cli.Confirm(ctx, cli.NewNonBlockingReader(in), out, question)
}
