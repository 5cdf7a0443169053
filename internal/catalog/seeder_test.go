package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/Veraticus/halpa/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name       string
		normalized string
		unit       string
		want       string
	}{
		{name: "quantity in name", normalized: "maito 1l", unit: "1L", want: "Maito 1l"},
		{name: "unit appended", normalized: "kahvi tumma", unit: "500g", want: "Kahvi Tumma 500g"},
		{name: "piece unit not appended", normalized: "ruisleipä", unit: "kpl", want: "Ruisleipä"},
		{name: "kg unit not appended", normalized: "banaani", unit: "kg", want: "Banaani"},
		{name: "finnish initial", normalized: "äidinmaito", unit: "", want: "Äidinmaito"},
		{name: "digit initial", normalized: "3 pack munat", unit: "kpl", want: "3 Pack Munat"},
		{name: "empty", normalized: "", unit: "500g", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.normalized, tt.unit))
		})
	}
}

func TestSeeder_Seed(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)
	ctx := context.Background()

	file := &SeedFile{
		Stores: []string{"Prisma", "Lidl"},
		Products: []SeedEntry{
			{Name: "Valio Maito 1L", Prices: []SeedPrice{{Store: "Prisma", Price: 1.29}}},
			{Name: "Pirkka maito 1l", Prices: []SeedPrice{{Store: "K-Citymarket", Price: 1.35}}},
			{Name: "Banaani", Prices: []SeedPrice{{Store: "Lidl", Price: 1.89}}},
			{Name: "Kahvi", Category: "Beverages", Unit: "500g"},
			{Name: "Pirkka Luomu"},
			{Name: "Omena", Prices: []SeedPrice{{Store: "Lidl", Price: 0}}},
		},
	}

	seeder := NewSeeder(db.Storage, nil, nil)
	seeder.now = func() time.Time { return testutil.BaseTime }

	report, err := seeder.Seed(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Stores)
	assert.Equal(t, 4, report.ProductsCreated)
	assert.Zero(t, report.ProductsExisting)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, 3, report.Prices)
	assert.Len(t, report.Skipped, 2)

	products, err := db.Storage.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 4)

	assert.Equal(t, model.Product{ID: products[0].ID, CreatedAt: products[0].CreatedAt,
		Name: "Maito 1l", Category: "Dairy", Unit: "1L"}, products[0])
	assert.Equal(t, "Banaani", products[1].Name)
	assert.Equal(t, "Fruits", products[1].Category)
	assert.Equal(t, "kg", products[1].Unit)
	assert.Equal(t, "Kahvi 500g", products[2].Name)
	assert.Equal(t, "Omena", products[3].Name)

	stores, err := db.Storage.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 3)
	assert.Equal(t, "K-Citymarket", stores[2].Name)

	latest, err := db.Storage.LatestPrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(135),
		latest[model.PriceKey{ProductID: products[0].ID, StoreID: stores[2].ID}].Price)

	again, err := seeder.Seed(ctx, file)
	require.NoError(t, err)
	assert.Zero(t, again.ProductsCreated)
	assert.Equal(t, 4, again.ProductsExisting)

	products, err = db.Storage.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 4, "seeding twice must not duplicate products")
}

func TestSeeder_SkipsUnrepresentablePrices(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)

	file, err := ParseSeed([]byte(`
stores: [Prisma]
products:
  - name: Maito 1l
    prices:
      - {store: Prisma, price: .inf}
      - {store: Prisma, price: .nan}
      - {store: Prisma, price: 1e20}
      - {store: Prisma, price: 1.29}
`))
	require.NoError(t, err)

	report, err := NewSeeder(db.Storage, nil, nil).Seed(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Prices)
	assert.Len(t, report.Skipped, 3)
}

func TestSeeder_PunctuatedBrandMerges(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)

	file := &SeedFile{Products: []SeedEntry{
		{Name: "Pirkka-banaani"},
		{Name: "Pirkka banaani"},
		{Name: "Pirkka/Banaani"},
	}}

	report, err := NewSeeder(db.Storage, nil, nil).Seed(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ProductsCreated)
	assert.Equal(t, 2, report.Merged)

	products, err := db.Storage.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Banaani", products[0].Name)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) CreateStore(ctx context.Context, name string) (*model.Store, error) {
	args := m.Called(ctx, name)
	if s, ok := args.Get(0).(*model.Store); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWriter) CreateProduct(ctx context.Context, product *model.Product) (bool, error) {
	args := m.Called(ctx, product)
	return args.Bool(0), args.Error(1)
}

func (m *mockWriter) UpsertProductPrice(ctx context.Context, productID, storeID int64, price money.Cents, recordedAt time.Time) error {
	args := m.Called(ctx, productID, storeID, price, recordedAt)
	return args.Error(0)
}

func TestSeeder_StoreFailure(t *testing.T) {
	w := &mockWriter{}
	boom := errors.New("disk full")
	w.On("CreateStore", mock.Anything, "Prisma").Return(nil, boom)

	_, err := NewSeeder(w, nil, nil).Seed(context.Background(), &SeedFile{Stores: []string{"Prisma"}})
	require.ErrorIs(t, err, boom)
	w.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestSeeder_Cancelled(t *testing.T) {
	w := &mockWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSeeder(w, nil, nil).Seed(ctx, &SeedFile{Products: []SeedEntry{{Name: "Maito 1l"}}})
	assert.ErrorIs(t, err, context.Canceled)
	w.AssertExpectations(t)
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		wantErr  error
		name     string
		data     string
		products int
	}{
		{
			name: "valid",
			data: `
stores: [Prisma, Lidl]
products:
  - name: Maito 1l
    category: Dairy
    prices:
      - {store: Prisma, price: 1.29}
  - name: Banaani
`,
			products: 2,
		},
		{name: "empty file", data: "", products: 0},
		{name: "unknown key", data: "shops: [Prisma]\n", wantErr: common.ErrInvalidConfig},
		{name: "missing name", data: "products:\n  - category: Dairy\n", wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := ParseSeed([]byte(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, file.Products, tt.products)
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stores: [Prisma]\nproducts:\n  - name: Maito\n"), 0600))

	file, err := LoadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Prisma"}, file.Stores)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromObservations(t *testing.T) {
	observations := []model.RawObservation{
		{Store: "S-Market", Product: "Banaani", Price: "1,89", Line: 1},
		{Store: "S-Market", Product: "Maito 1l", Price: "abc", Line: 2},
		{Store: "K-Citymarket", Product: "Kurkku", Price: "2.49", UnitHint: "kg", Line: 1},
		{Store: "S-Market", Product: "  ", Price: "1.00", Line: 3},
	}

	file := FromObservations(observations)
	assert.Equal(t, []string{"S-Market", "K-Citymarket"}, file.Stores)
	require.Len(t, file.Products, 2)
	assert.Equal(t, []SeedPrice{{Store: "S-Market", Price: 1.89}}, file.Products[0].Prices)
	assert.Equal(t, "kg", file.Products[1].Unit)
}
