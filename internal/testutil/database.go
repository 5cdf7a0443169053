// Package testutil provides test utilities for seeding catalog databases.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
	"github.com/Veraticus/halpa/internal/storage"
)

// TestDB represents a test database with the catalog seeded into it.
type TestDB struct {
	Storage service.Storage
	Catalog *Catalog
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded by the builder.
// It automatically handles migrations and cleanup. A nil builder leaves the
// catalog empty.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.NewCatalogBuilder().WithBasicCatalog())
func SetupTestDB(t *testing.T, builder *CatalogBuilder) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if builder == nil {
		builder = NewCatalogBuilder()
	}
	catalog, err := builder.Build(ctx, store)
	if err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		Catalog: catalog,
		t:       t,
	}
}

// MustProduct returns the seeded product with the given name or fails the test.
func (db *TestDB) MustProduct(name string) model.Product {
	db.t.Helper()
	p, ok := db.Catalog.Products[name]
	if !ok {
		db.t.Fatalf("product %q not found in test data", name)
	}
	return p
}

// MustStore returns the seeded store with the given name or fails the test.
func (db *TestDB) MustStore(name string) model.Store {
	db.t.Helper()
	s, ok := db.Catalog.Stores[name]
	if !ok {
		db.t.Fatalf("store %q not found in test data", name)
	}
	return s
}
