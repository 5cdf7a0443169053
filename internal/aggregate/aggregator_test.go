package aggregate

import (
	"testing"
	"time"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func stores() []model.Store {
	return []model.Store{
		{ID: 1, Name: "Lidl"},
		{ID: 2, Name: "S-Market"},
		{ID: 3, Name: "Prisma"},
	}
}

func key(p, s int64) model.PriceKey {
	return model.PriceKey{ProductID: p, StoreID: s}
}

func lp(c money.Cents) model.LatestPrice {
	return model.LatestPrice{Price: c, RecordedAt: t0}
}

func TestAggregate_EndToEnd(t *testing.T) {
	products := []model.Product{{ID: 1, Name: "Maito 1L", Category: "Dairy", Unit: "1L"}}
	latest := map[model.PriceKey]model.LatestPrice{
		key(1, 1): lp(129),
		key(1, 2): lp(115),
	}

	aggs := Aggregate(products, stores()[:2], latest)
	require.Len(t, aggs, 1)

	a := aggs[0]
	require.NotNil(t, a.MinPrice)
	require.NotNil(t, a.MaxPrice)
	assert.InDelta(t, 1.15, a.MinPrice.Major(), 1e-9)
	assert.InDelta(t, 1.29, a.MaxPrice.Major(), 1e-9)
	assert.Equal(t, "S-Market", a.CheapestStore)
	assert.InDelta(t, 12.2, a.PriceSpreadPercent, 0.05)
	assert.Equal(t, money.Cents(129), a.Prices["Lidl"].Price)
	assert.Equal(t, t0, a.Prices["S-Market"].RecordedAt)
}

func TestAggregate_TieBreakFollowsStoreOrder(t *testing.T) {
	products := []model.Product{{ID: 1, Name: "Banaani"}}
	latest := map[model.PriceKey]model.LatestPrice{
		key(1, 1): lp(199),
		key(1, 2): lp(169),
		key(1, 3): lp(169),
	}

	for i := 0; i < 50; i++ {
		aggs := Aggregate(products, stores(), latest)
		assert.Equal(t, "S-Market", aggs[0].CheapestStore)
	}

	reordered := []model.Store{{ID: 3, Name: "Prisma"}, {ID: 2, Name: "S-Market"}, {ID: 1, Name: "Lidl"}}
	assert.Equal(t, "Prisma", Aggregate(products, reordered, latest)[0].CheapestStore)
}

func TestAggregate_NoPrices(t *testing.T) {
	aggs := Aggregate([]model.Product{{ID: 1, Name: "Kurkku"}}, stores(), nil)
	require.Len(t, aggs, 1)

	assert.Nil(t, aggs[0].MinPrice)
	assert.Nil(t, aggs[0].MaxPrice)
	assert.Empty(t, aggs[0].CheapestStore)
	assert.Zero(t, aggs[0].PriceSpreadPercent)
	assert.NotNil(t, aggs[0].Prices)
}

func TestAggregate_EmptyCatalog(t *testing.T) {
	aggs := Aggregate(nil, stores(), map[model.PriceKey]model.LatestPrice{key(1, 1): lp(100)})
	assert.NotNil(t, aggs)
	assert.Empty(t, aggs)
}

func TestAggregate_ExcludesInconsistentEntries(t *testing.T) {
	products := []model.Product{{ID: 1, Name: "Maito 1L"}}
	latest := map[model.PriceKey]model.LatestPrice{
		key(1, 1):  lp(129),
		key(1, 99): lp(1),
		key(42, 1): lp(1),
	}

	aggs := Aggregate(products, stores(), latest)
	require.Len(t, aggs, 1)
	assert.Len(t, aggs[0].Prices, 1)
	assert.Equal(t, money.Cents(129), *aggs[0].MinPrice)
	assert.Equal(t, "Lidl", aggs[0].CheapestStore)
}

func TestAggregate_ZeroMinimumHasNoSpread(t *testing.T) {
	products := []model.Product{{ID: 1, Name: "Ilmainen näyte"}}
	latest := map[model.PriceKey]model.LatestPrice{key(1, 1): lp(0), key(1, 2): lp(100)}

	a := Aggregate(products, stores(), latest)[0]
	assert.Zero(t, a.PriceSpreadPercent)
	assert.Equal(t, money.Cents(100), a.Variance())
}

func TestLatestPrices(t *testing.T) {
	history := []model.PriceObservation{
		{ID: 1, ProductID: 1, StoreID: 1, Price: 129, RecordedAt: t0},
		{ID: 2, ProductID: 1, StoreID: 1, Price: 119, RecordedAt: t1},
		{ID: 3, ProductID: 1, StoreID: 2, Price: 150, RecordedAt: t1},
		{ID: 4, ProductID: 1, StoreID: 2, Price: 140, RecordedAt: t1},
		{ID: 5, ProductID: 2, StoreID: 1, Price: 300, RecordedAt: t1},
		{ID: 6, ProductID: 2, StoreID: 1, Price: 999, RecordedAt: t0},
	}

	latest := LatestPrices(history)

	assert.Len(t, latest, 3)
	assert.Equal(t, money.Cents(119), latest[key(1, 1)].Price)
	assert.Equal(t, money.Cents(140), latest[key(1, 2)].Price)
	assert.Equal(t, money.Cents(300), latest[key(2, 1)].Price)
	assert.Equal(t, t1, latest[key(2, 1)].RecordedAt)

	// Input order must not matter.
	reversed := make([]model.PriceObservation, len(history))
	for i, o := range history {
		reversed[len(history)-1-i] = o
	}
	assert.Equal(t, latest, LatestPrices(reversed))
}

func TestHistoryFeedsAggregate(t *testing.T) {
	products := []model.Product{{ID: 1, Name: "Maito 1L"}}
	history := []model.PriceObservation{
		{ID: 1, ProductID: 1, StoreID: 1, Price: 129, RecordedAt: t0},
		{ID: 2, ProductID: 1, StoreID: 1, Price: 109, RecordedAt: t1},
	}

	a := Aggregate(products, stores(), LatestPrices(history))[0]
	assert.Equal(t, money.Cents(109), a.Prices["Lidl"].Price)
}
