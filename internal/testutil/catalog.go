package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/Veraticus/halpa/internal/service"
)

// Store names used across tests.
const (
	StorePrisma   = "Prisma"
	StoreKMarket  = "K-Market"
	StoreLidl     = "Lidl"
	StoreCitymark = "K-Citymarket"
)

// Product names used across tests.
const (
	ProductMilk   = "Maito 1l"
	ProductBread  = "Ruisleipä 500g"
	ProductBanana = "Banaani"
	ProductCoffee = "Kahvi 500g"
)

// BaseTime is the timestamp fixture prices are recorded at unless a test
// gives one explicitly.
var BaseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type productSpec struct {
	name     string
	category string
	unit     string
}

type priceSpec struct {
	recordedAt time.Time
	product    string
	store      string
	price      money.Cents
}

// CatalogBuilder provides a fluent interface for seeding stores, products and
// prices into a test database. Stores and products are created in the order
// they were added.
type CatalogBuilder struct {
	stores   []string
	products []productSpec
	prices   []priceSpec
}

// NewCatalogBuilder creates an empty builder.
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// WithStores adds stores.
func (b *CatalogBuilder) WithStores(names ...string) *CatalogBuilder {
	b.stores = append(b.stores, names...)
	return b
}

// WithProduct adds a product.
func (b *CatalogBuilder) WithProduct(name, category, unit string) *CatalogBuilder {
	b.products = append(b.products, productSpec{name: name, category: category, unit: unit})
	return b
}

// WithPrice records a price at BaseTime.
func (b *CatalogBuilder) WithPrice(product, store string, price money.Cents) *CatalogBuilder {
	return b.WithPriceAt(product, store, price, BaseTime)
}

// WithPriceAt records a price at the given time.
func (b *CatalogBuilder) WithPriceAt(product, store string, price money.Cents, at time.Time) *CatalogBuilder {
	b.prices = append(b.prices, priceSpec{product: product, store: store, price: price, recordedAt: at})
	return b
}

// WithBasicCatalog adds three stores and four products with a handful of
// prices: milk is cheapest at Lidl, bread at Prisma, and coffee has no price.
func (b *CatalogBuilder) WithBasicCatalog() *CatalogBuilder {
	return b.
		WithStores(StorePrisma, StoreKMarket, StoreLidl).
		WithProduct(ProductMilk, "Dairy", "1l").
		WithProduct(ProductBread, "Bakery", "500g").
		WithProduct(ProductBanana, "Fruits", "kg").
		WithProduct(ProductCoffee, "Beverages", "500g").
		WithPrice(ProductMilk, StorePrisma, 129).
		WithPrice(ProductMilk, StoreKMarket, 135).
		WithPrice(ProductMilk, StoreLidl, 109).
		WithPrice(ProductBread, StorePrisma, 199).
		WithPrice(ProductBread, StoreLidl, 219).
		WithPrice(ProductBanana, StoreKMarket, 189)
}

// Catalog holds the rows a builder created, keyed by name.
type Catalog struct {
	Stores   map[string]model.Store
	Products map[string]model.Product
}

// Build creates the stores, products and prices in storage.
func (b *CatalogBuilder) Build(ctx context.Context, storage service.Storage) (*Catalog, error) {
	catalog := &Catalog{
		Stores:   make(map[string]model.Store, len(b.stores)),
		Products: make(map[string]model.Product, len(b.products)),
	}

	for _, name := range b.stores {
		store, err := storage.CreateStore(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to seed store %q: %w", name, err)
		}
		catalog.Stores[name] = *store
	}

	for _, entry := range b.products {
		product := model.Product{Name: entry.name, Category: entry.category, Unit: entry.unit}
		if _, err := storage.CreateProduct(ctx, &product); err != nil {
			return nil, fmt.Errorf("failed to seed product %q: %w", entry.name, err)
		}
		catalog.Products[entry.name] = product
	}

	for _, entry := range b.prices {
		product, ok := catalog.Products[entry.product]
		if !ok {
			return nil, fmt.Errorf("price for unknown product %q", entry.product)
		}
		store, ok := catalog.Stores[entry.store]
		if !ok {
			return nil, fmt.Errorf("price for unknown store %q", entry.store)
		}
		if err := storage.UpsertProductPrice(ctx, product.ID, store.ID, entry.price, entry.recordedAt); err != nil {
			return nil, fmt.Errorf("failed to seed price %s@%s: %w", entry.product, entry.store, err)
		}
	}

	return catalog, nil
}
