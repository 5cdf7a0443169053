package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
)

// Service loads the catalog snapshot, runs the pipeline and persists the
// resulting records.
//
// Writes are independent per record. A failed write does not roll back the
// records already written in the same batch.
type Service struct {
	store          service.CatalogStore
	pipeline       *Pipeline
	persistWorkers int
}

// NewService creates an ingestion service.
func NewService(store service.CatalogStore, pipeline *Pipeline, persistWorkers int) *Service {
	if persistWorkers <= 0 {
		persistWorkers = 4
	}
	return &Service{store: store, pipeline: pipeline, persistWorkers: persistWorkers}
}

// Run ingests one batch. The report is returned even when persistence fails
// or the context is cancelled; in those cases the error is non-nil as well.
func (s *Service) Run(ctx context.Context, batch []model.RawObservation) (*model.IngestionReport, error) {
	catalog, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load products: %w", common.ErrPersistence, err)
	}

	stores, err := s.store.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load stores: %w", common.ErrPersistence, err)
	}

	res, err := s.pipeline.Ingest(ctx, batch, catalog, stores)
	if err != nil {
		return &res.Report, err
	}

	persisted, err := s.persist(ctx, res.Records)
	res.Report.Persisted = persisted
	if err != nil {
		return &res.Report, err
	}

	return &res.Report, nil
}

func (s *Service) persist(ctx context.Context, records []model.CanonicalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	workChan := make(chan model.CanonicalRecord, len(records))
	for _, r := range records {
		workChan <- r
	}
	close(workChan)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      []error
		persisted atomic.Int64
	)

	workers := s.persistWorkers
	if workers > len(records) {
		workers = len(records)
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for rec := range workChan {
				err := s.store.UpsertProductPrice(ctx, rec.ProductID, rec.StoreID, rec.Price, rec.RecordedAt)
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("line %d: %w", rec.Line, err))
					mu.Unlock()
					continue
				}
				persisted.Add(1)
			}
		}()
	}
	wg.Wait()

	n := int(persisted.Load())
	if len(errs) > 0 {
		slog.Error("Failed to persist price records",
			"failed", len(errs),
			"persisted", n,
			"error", errs[0])
		return n, fmt.Errorf("%w: %d of %d records not written: %w",
			common.ErrPersistence, len(errs), len(records), errors.Join(errs...))
	}

	return n, nil
}
