package aggregate

import (
	"testing"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAggregates() []model.AggregatedProduct {
	products := []model.Product{
		{ID: 1, Name: "Maito 1L", Category: "Dairy"},
		{ID: 2, Name: "Banaani", Category: "Fruits"},
		{ID: 3, Name: "Kahvi 500g", Category: "Beverages"},
		{ID: 4, Name: "Kurkku", Category: "Vegetables"},
		{ID: 5, Name: "Ruisleipä 500g", Category: "Bakery"},
	}
	latest := map[model.PriceKey]model.LatestPrice{
		key(1, 1): lp(129), key(1, 2): lp(115),
		key(2, 1): lp(169), key(2, 2): lp(199), key(2, 3): lp(169),
		key(3, 1): lp(499), key(3, 3): lp(599),
		key(5, 3): lp(249),
	}
	return Aggregate(products, stores(), latest)
}

func TestStoreSummaries(t *testing.T) {
	summaries := StoreSummaries(sampleAggregates(), stores())
	require.Len(t, summaries, 3)

	// Lidl wins banaani (tie with Prisma, earlier in order) and kahvi.
	assert.Equal(t, "Lidl", summaries[0].Store.Name)
	assert.Equal(t, 2, summaries[0].CheapestCount)
	assert.Equal(t, 3, summaries[0].PriceCount)
	assert.InDelta(t, 2.66, summaries[0].AveragePrice, 1e-9)

	// S-Market and Prisma have one win each; canonical order is kept.
	assert.Equal(t, "S-Market", summaries[1].Store.Name)
	assert.Equal(t, 1, summaries[1].CheapestCount)
	assert.Equal(t, "Prisma", summaries[2].Store.Name)
	assert.Equal(t, 1, summaries[2].CheapestCount)
	assert.Equal(t, 3, summaries[2].PriceCount)

	best, ok := CheapestOverall(summaries)
	require.True(t, ok)
	assert.Equal(t, "Lidl", best.Store.Name)
}

func TestStoreSummaries_NoPrices(t *testing.T) {
	summaries := StoreSummaries(nil, stores())
	require.Len(t, summaries, 3)
	assert.Zero(t, summaries[0].AveragePrice)

	_, ok := CheapestOverall(summaries)
	assert.False(t, ok)
}

func TestBiggestDifferences(t *testing.T) {
	top := BiggestDifferences(sampleAggregates(), 2)
	require.Len(t, top, 2)

	assert.Equal(t, "Kahvi 500g", top[0].Product.Name)
	assert.InDelta(t, 20.04, top[0].PriceSpreadPercent, 1e-9)
	assert.Equal(t, "Banaani", top[1].Product.Name)

	all := BiggestDifferences(sampleAggregates(), 10)
	assert.Len(t, all, 3, "single-store and unpriced products are not differences")
	assert.Nil(t, BiggestDifferences(sampleAggregates(), 0))
}

func TestVarianceHelper(t *testing.T) {
	aggs := sampleAggregates()
	assert.Equal(t, money.Cents(100), aggs[2].Variance())
}
