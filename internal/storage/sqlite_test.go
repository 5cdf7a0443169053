package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func seedProduct(t *testing.T, s *SQLiteStorage, name, category, unit string) model.Product {
	t.Helper()
	p := model.Product{Name: name, Category: category, Unit: unit}
	_, err := s.CreateProduct(context.Background(), &p)
	require.NoError(t, err)
	return p
}

func seedStore(t *testing.T, s *SQLiteStorage, name string) model.Store {
	t.Helper()
	st, err := s.CreateStore(context.Background(), name)
	require.NoError(t, err)
	return *st
}

func TestSQLiteStorage_CreateProduct(t *testing.T) {
	s, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first := model.Product{Name: "Maito 1l", Category: "Dairy", Unit: "1l"}
	created, err := s.CreateProduct(ctx, &first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Positive(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	again := model.Product{Name: " Maito 1l ", Category: "Dairy", Unit: "1l"}
	created, err = s.CreateProduct(ctx, &again)
	require.NoError(t, err)
	assert.False(t, created, "same triple must not create a second row")
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Maito 1l", again.Name)

	otherUnit := model.Product{Name: "Maito 1l", Category: "Dairy", Unit: "kpl"}
	created, err = s.CreateProduct(ctx, &otherUnit)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, otherUnit.ID)

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, first.ID, products[0].ID)
	assert.Equal(t, otherUnit.ID, products[1].ID)
}

func TestSQLiteStorage_CreateProductValidation(t *testing.T) {
	s, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		product *model.Product
		wantErr error
		name    string
	}{
		{name: "nil product", product: nil, wantErr: ErrNilParameter},
		{name: "missing name", product: &model.Product{Category: "Dairy", Unit: "1l"}, wantErr: ErrInvalidProduct},
		{name: "missing category", product: &model.Product{Name: "Maito", Unit: "1l"}, wantErr: ErrInvalidProduct},
		{name: "missing unit", product: &model.Product{Name: "Maito", Category: "Dairy"}, wantErr: ErrInvalidProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateProduct(ctx, tt.product)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	//nolint:staticcheck // exercising nil context handling
	_, err := s.CreateProduct(nil, &model.Product{Name: "a", Category: "b", Unit: "c"})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestSQLiteStorage_GetProduct(t *testing.T) {
	s, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	p := seedProduct(t, s, "Ruisleipä", "Bakery", "kpl")

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ruisleipä", got.Name)
	assert.Equal(t, "Bakery", got.Category)

	_, err = s.GetProduct(ctx, p.ID+100)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.GetProduct(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestSQLiteStorage_Stores(t *testing.T) {
	s, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	prisma := seedStore(t, s, "Prisma")
	kMarket := seedStore(t, s, "K-Market")
	lidl := seedStore(t, s, "Lidl")

	again, err := s.CreateStore(ctx, "Prisma")
	require.NoError(t, err)
	assert.Equal(t, prisma.ID, again.ID)

	stores, err := s.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 3)
	assert.Equal(t, []string{"Prisma", "K-Market", "Lidl"},
		[]string{stores[0].Name, stores[1].Name, stores[2].Name})
	assert.Equal(t, kMarket.ID, stores[1].ID)
	assert.Equal(t, lidl.ID, stores[2].ID)

	got, err := s.GetStoreByName(ctx, "Lidl")
	require.NoError(t, err)
	assert.Equal(t, lidl.ID, got.ID)

	_, err = s.GetStoreByName(ctx, "Alepa")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.CreateStore(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_Prices(t *testing.T) {
	s, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	milk := seedProduct(t, s, "Maito 1l", "Dairy", "1l")
	bread := seedProduct(t, s, "Ruisleipä", "Bakery", "kpl")
	prisma := seedStore(t, s, "Prisma")
	lidl := seedStore(t, s, "Lidl")

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertProductPrice(ctx, milk.ID, prisma.ID, 129, base))
	require.NoError(t, s.UpsertProductPrice(ctx, milk.ID, prisma.ID, 119, base.Add(time.Hour)))
	require.NoError(t, s.UpsertProductPrice(ctx, milk.ID, lidl.ID, 109, base))
	require.NoError(t, s.UpsertProductPrice(ctx, bread.ID, lidl.ID, 249, base))
	// Same timestamp as an earlier observation: the later insert wins.
	require.NoError(t, s.UpsertProductPrice(ctx, bread.ID, lidl.ID, 259, base))

	latest, err := s.LatestPrices(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 3)

	milkPrisma := latest[model.PriceKey{ProductID: milk.ID, StoreID: prisma.ID}]
	assert.Equal(t, money.Cents(119), milkPrisma.Price)
	assert.True(t, milkPrisma.RecordedAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, money.Cents(109), latest[model.PriceKey{ProductID: milk.ID, StoreID: lidl.ID}].Price)
	assert.Equal(t, money.Cents(259), latest[model.PriceKey{ProductID: bread.ID, StoreID: lidl.ID}].Price)

	observations, err := s.ListObservations(ctx, milk.ID)
	require.NoError(t, err)
	require.Len(t, observations, 3)
	assert.Equal(t, money.Cents(129), observations[0].Price)
	assert.Equal(t, money.Cents(119), observations[2].Price)

	history, err := s.PriceHistory(ctx, milk.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Prisma", history[0].StoreName)
	assert.Equal(t, money.Cents(119), history[0].Price)
	assert.True(t, history[0].RecordedAt.Equal(base.Add(time.Hour)))

	empty, err := s.PriceHistory(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStorage_UpsertProductPriceValidation(t *testing.T) {
	s, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	milk := seedProduct(t, s, "Maito 1l", "Dairy", "1l")
	prisma := seedStore(t, s, "Prisma")

	tests := []struct {
		wantErr   error
		name      string
		productID int64
		storeID   int64
		price     money.Cents
	}{
		{name: "zero price", productID: milk.ID, storeID: prisma.ID, price: 0, wantErr: ErrInvalidPrice},
		{name: "negative price", productID: milk.ID, storeID: prisma.ID, price: -5, wantErr: ErrInvalidPrice},
		{name: "bad product id", productID: 0, storeID: prisma.ID, price: 100, wantErr: ErrInvalidID},
		{name: "bad store id", productID: milk.ID, storeID: -1, price: 100, wantErr: ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpsertProductPrice(ctx, tt.productID, tt.storeID, tt.price, time.Now())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	err := s.UpsertProductPrice(ctx, milk.ID+10, prisma.ID, 100, time.Now())
	assert.Error(t, err, "foreign key must reject unknown product")
}

func TestSQLiteStorage_StatusAndReset(t *testing.T) {
	tests := []struct {
		name          string
		includeStores bool
		wantStores    int
	}{
		{name: "keep stores", includeStores: false, wantStores: 2},
		{name: "drop stores", includeStores: true, wantStores: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			milk := seedProduct(t, s, "Maito 1l", "Dairy", "1l")
			prisma := seedStore(t, s, "Prisma")
			seedStore(t, s, "Lidl")
			require.NoError(t, s.UpsertProductPrice(ctx, milk.ID, prisma.ID, 129, time.Now()))

			status, err := s.Status(ctx)
			require.NoError(t, err)
			assert.Equal(t, model.CatalogStatus{
				SchemaVersion: ExpectedSchemaVersion,
				Products:      1,
				Stores:        2,
				Prices:        1,
			}, *status)

			before, err := s.Reset(ctx, tt.includeStores)
			require.NoError(t, err)
			assert.Equal(t, *status, *before)

			after, err := s.Status(ctx)
			require.NoError(t, err)
			assert.Zero(t, after.Products)
			assert.Zero(t, after.Prices)
			assert.Equal(t, tt.wantStores, after.Stores)
		})
	}
}

func TestNewSQLiteStorage_InMemory(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Migrate(context.Background()))
	assert.Equal(t, ":memory:", s.Path())

	_, err = NewSQLiteStorage("")
	assert.ErrorIs(t, err, ErrEmptyString)
}
