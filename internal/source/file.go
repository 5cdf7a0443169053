package source

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/halpa/internal/ingest"
	"github.com/Veraticus/halpa/internal/model"
)

// StorePlaceholder in a FileSource path is replaced by the store's slug.
const StorePlaceholder = "{store}"

// FileSource reads observations from a delimited text file per store.
type FileSource struct {
	now  func() time.Time
	path string
}

// NewFileSource creates a file source. The path may contain {store}, which
// is replaced by the lowercased store name with spaces turned into dashes.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, now: time.Now}
}

// Name implements service.Source.
func (f *FileSource) Name() string {
	return "file:" + f.path
}

// Path returns the file read for store.
func (f *FileSource) Path(store model.Store) string {
	return strings.ReplaceAll(f.path, StorePlaceholder, Slug(store.Name))
}

// Fetch implements service.Source.
func (f *FileSource) Fetch(ctx context.Context, store model.Store) ([]model.RawObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := f.Path(store)
	file, err := os.Open(path) // #nosec G304 - path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	observations, err := ingest.ParseDelimited(file, store.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	observedAt := f.now()
	for i := range observations {
		observations[i].ObservedAt = observedAt
	}
	return observations, nil
}

// Slug lowercases a store name and joins its words with dashes.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
