// Package source provides the observation sources that feed raw prices into
// ingestion: delimited files and retailer search APIs.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
)

type binding struct {
	source  service.Source
	pattern string
}

// Registry maps store names to sources. A store is served by the first
// registration whose pattern it equals, or failing that contains, compared
// case-insensitively.
type Registry struct {
	bindings []binding
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds every store whose name matches pattern to src.
func (r *Registry) Register(pattern string, src service.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = append(r.bindings, binding{pattern: strings.ToLower(strings.TrimSpace(pattern)), source: src})
}

// For returns the source serving storeName.
func (r *Registry) For(storeName string) (service.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(storeName))
	for _, b := range r.bindings {
		if b.pattern == name {
			return b.source, nil
		}
	}
	for _, b := range r.bindings {
		if b.pattern != "" && strings.Contains(name, b.pattern) {
			return b.source, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", common.ErrNoSource, storeName)
}

// Patterns lists the registered store patterns, sorted.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b.pattern)
	}
	sort.Strings(out)
	return out
}

// StoreFetch is the outcome of fetching one store.
type StoreFetch struct {
	Err          error
	Source       string
	Store        model.Store
	Observations []model.RawObservation
}

// FetchAll fetches every store concurrently. Stores without a source and
// stores whose fetch failed carry the error in their StoreFetch; results keep
// the order of stores.
func (r *Registry) FetchAll(ctx context.Context, stores []model.Store) []StoreFetch {
	results := make([]StoreFetch, len(stores))

	var wg sync.WaitGroup
	for i, st := range stores {
		results[i].Store = st

		src, err := r.For(st.Name)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Source = src.Name()

		wg.Add(1)
		go func(i int, st model.Store, src service.Source) {
			defer wg.Done()
			obs, err := src.Fetch(ctx, st)
			if err != nil {
				slog.Warn("Fetch failed", "store", st.Name, "source", src.Name(), "error", err)
				results[i].Err = err
				return
			}
			slog.Debug("Fetched observations", "store", st.Name, "source", src.Name(), "count", len(obs))
			results[i].Observations = obs
		}(i, st, src)
	}
	wg.Wait()

	return results
}
