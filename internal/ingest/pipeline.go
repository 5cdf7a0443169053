// Package ingest reconciles batches of raw price observations against the catalog.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/halpa/internal/classification"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/matcher"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/google/uuid"
)

// Options configures pipeline behavior.
type Options struct {
	Now        func() time.Time // Clock for batch timestamps
	OnLine     func()           // Called once per processed line, from worker goroutines
	Workers    int              // Number of parallel workers
	SampleSize int              // Cap on matched samples kept for audit
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Workers:    4,
		SampleSize: 10,
		Now:        time.Now,
	}
}

// Result holds the canonical records produced by a batch and its report.
type Result struct {
	Records []model.CanonicalRecord
	Report  model.IngestionReport
}

// Pipeline matches observations to products and converts prices to cents.
// It never creates products and never mutates the catalog it is given.
type Pipeline struct {
	matcher    *matcher.ProductMatcher
	inferencer *classification.Inferencer
	opts       Options
}

// NewPipeline creates a pipeline. Zero option values fall back to defaults.
func NewPipeline(m *matcher.ProductMatcher, inf *classification.Inferencer, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = def.SampleSize
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if m == nil {
		m = matcher.New(nil)
	}
	if inf == nil {
		inf = classification.MustDefault()
	}
	return &Pipeline{matcher: m, inferencer: inf, opts: opts}
}

type lineResult struct {
	record    *model.CanonicalRecord
	sample    *model.MatchSample
	lineErr   *model.LineError
	unmatched *model.UnmatchedLine
	outcome   model.LineOutcome
	processed bool
}

// batchContext is the read-only state shared by workers for one batch.
type batchContext struct {
	started time.Time
	index   *matcher.Index
	stores  *storeIndex
}

// Ingest processes every observation independently. A bad line never aborts
// the batch. When ctx is cancelled the partial result is returned together
// with the context error and Report.Cancelled set.
func (p *Pipeline) Ingest(ctx context.Context, batch []model.RawObservation, catalog []model.Product, stores []model.Store) (*Result, error) {
	started := p.opts.Now().UTC()
	bc := &batchContext{
		started: started,
		index:   p.matcher.Index(catalog),
		stores:  newStoreIndex(stores),
	}

	slog.Debug("Starting ingestion batch",
		"lines", len(batch),
		"catalog_size", len(catalog),
		"stores", len(stores),
		"workers", p.opts.Workers)

	results := p.processParallel(ctx, bc, batch)

	res := p.assemble(batch, results)
	res.Report.BatchID = uuid.NewString()
	res.Report.Started = started
	res.Report.Completed = p.opts.Now().UTC()

	slog.Info("Ingestion batch complete",
		"batch_id", res.Report.BatchID,
		"total", res.Report.Total,
		"imported", res.Report.Imported,
		"skipped", res.Report.Skipped,
		"failed", res.Report.Failed,
		"cancelled", res.Report.Cancelled)

	if res.Report.Cancelled {
		return res, fmt.Errorf("ingestion cancelled after %d of %d lines: %w",
			res.Report.Processed, res.Report.Total, ctx.Err())
	}
	return res, nil
}

// processParallel fans line indices out to workers. Each worker writes only
// its own slots of the result slice.
func (p *Pipeline) processParallel(ctx context.Context, bc *batchContext, batch []model.RawObservation) []lineResult {
	results := make([]lineResult, len(batch))
	if len(batch) == 0 {
		return results
	}

	workChan := make(chan int, len(batch))
	for i := range batch {
		workChan <- i
	}
	close(workChan)

	workers := p.opts.Workers
	if workers > len(batch) {
		workers = len(batch)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range workChan {
				if ctx.Err() != nil {
					return
				}
				results[i] = p.processLine(bc, i, batch[i])
				if p.opts.OnLine != nil {
					p.opts.OnLine()
				}
			}
		}()
	}
	wg.Wait()

	return results
}

func (p *Pipeline) processLine(bc *batchContext, i int, obs model.RawObservation) lineResult {
	line := obs.Line
	if line <= 0 {
		line = i + 1
	}

	price, err := validate(obs)
	if err != nil {
		return failure(line, model.OutcomeMalformed, err)
	}

	store, ok := bc.stores.resolve(obs.Store)
	if !ok {
		return failure(line, model.OutcomeUnknownStore,
			fmt.Errorf("%w: %q", common.ErrUnknownStore, strings.TrimSpace(obs.Store)))
	}

	match := bc.index.Lookup(obs.Product)
	if match.Product == nil {
		category, unit := p.inferencer.Infer(obs.Product, obs.CategoryHint, obs.UnitHint)
		return lineResult{
			processed: true,
			outcome:   model.OutcomeSkipped,
			lineErr: &model.LineError{
				Line:    line,
				Outcome: model.OutcomeSkipped,
				Message: fmt.Sprintf("No match for %q", obs.Product),
			},
			unmatched: &model.UnmatchedLine{
				Line:              line,
				Product:           obs.Product,
				Store:             store.Name,
				SuggestedCategory: category,
				SuggestedUnit:     unit,
			},
		}
	}

	if match.Ambiguous() {
		slog.Debug("Ambiguous product match, using first in catalog order",
			"line", line,
			"product", obs.Product,
			"matched", match.Product.Name,
			"candidates", match.Candidates)
	}

	recordedAt := bc.started
	if !obs.ObservedAt.IsZero() {
		recordedAt = obs.ObservedAt.UTC()
	}

	return lineResult{
		processed: true,
		outcome:   model.OutcomeImported,
		record: &model.CanonicalRecord{
			Line:        line,
			ProductID:   match.Product.ID,
			ProductName: match.Product.Name,
			StoreID:     store.ID,
			StoreName:   store.Name,
			Price:       price,
			RecordedAt:  recordedAt,
		},
		sample: &model.MatchSample{
			Line:       line,
			Scraped:    obs.Product,
			Matched:    match.Product.Name,
			Category:   match.Product.Category,
			ProductID:  match.Product.ID,
			PriceCents: int64(price),
			PriceMajor: price.Major(),
			Ambiguous:  match.Ambiguous(),
		},
	}
}

func failure(line int, outcome model.LineOutcome, err error) lineResult {
	return lineResult{
		processed: true,
		outcome:   outcome,
		lineErr:   &model.LineError{Line: line, Outcome: outcome, Message: err.Error()},
	}
}

// validate checks the shape of an observation and returns its price in cents.
func validate(obs model.RawObservation) (money.Cents, error) {
	if strings.TrimSpace(obs.Store) == "" {
		return 0, fmt.Errorf("%w: missing store", common.ErrMalformedObservation)
	}
	if strings.TrimSpace(obs.Product) == "" {
		return 0, fmt.Errorf("%w: missing product", common.ErrMalformedObservation)
	}
	if strings.TrimSpace(obs.Price) == "" {
		return 0, fmt.Errorf("%w: missing price", common.ErrMalformedObservation)
	}

	price, err := money.ParseMajor(obs.Price)
	if err != nil {
		if errors.Is(err, money.ErrAmountOutOfRange) {
			return 0, fmt.Errorf("%w: price %q out of range", common.ErrMalformedObservation, obs.Price)
		}
		if errors.Is(err, money.ErrInvalidAmount) {
			return 0, fmt.Errorf("%w: non-numeric price %q", common.ErrMalformedObservation, obs.Price)
		}
		return 0, fmt.Errorf("%w: %w", common.ErrMalformedObservation, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive, got %s", common.ErrMalformedObservation, obs.Price)
	}

	return price, nil
}

// assemble folds per-line results into a report in input order.
func (p *Pipeline) assemble(batch []model.RawObservation, results []lineResult) *Result {
	res := &Result{
		Records: make([]model.CanonicalRecord, 0, len(batch)),
		Report: model.IngestionReport{
			Total:     len(batch),
			Errors:    []model.LineError{},
			Matches:   []model.MatchSample{},
			Unmatched: []model.UnmatchedLine{},
		},
	}
	report := &res.Report

	for _, r := range results {
		if !r.processed {
			report.Cancelled = true
			continue
		}
		report.Processed++

		switch r.outcome {
		case model.OutcomeImported:
			report.Imported++
			res.Records = append(res.Records, *r.record)
			if len(report.Matches) < p.opts.SampleSize {
				report.Matches = append(report.Matches, *r.sample)
			}
		case model.OutcomeSkipped:
			report.Skipped++
			report.Unmatched = append(report.Unmatched, *r.unmatched)
		case model.OutcomeMalformed, model.OutcomeUnknownStore:
			report.Failed++
		}

		if r.lineErr != nil {
			report.Errors = append(report.Errors, *r.lineErr)
		}
	}

	return res
}

// storeIndex resolves store names exactly first, then case-insensitively.
type storeIndex struct {
	exact  map[string]model.Store
	stores []model.Store
}

func newStoreIndex(stores []model.Store) *storeIndex {
	idx := &storeIndex{exact: make(map[string]model.Store, len(stores)), stores: stores}
	for _, s := range stores {
		if _, ok := idx.exact[s.Name]; !ok {
			idx.exact[s.Name] = s
		}
	}
	return idx
}

func (idx *storeIndex) resolve(name string) (model.Store, bool) {
	if s, ok := idx.exact[name]; ok {
		return s, true
	}
	trimmed := strings.TrimSpace(name)
	for _, s := range idx.stores {
		if strings.EqualFold(strings.TrimSpace(s.Name), trimmed) {
			return s, true
		}
	}
	return model.Store{}, false
}
