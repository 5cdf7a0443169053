package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2,
}

func newTestRetailer(t *testing.T, handler http.HandlerFunc, cfg RetailerConfig) *RetailerAPI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL + "/search"
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fastRetry
	}
	api, err := NewRetailerAPI(cfg, server.Client())
	require.NoError(t, err)
	return api
}

func TestRetailerAPI_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		shape Shape
		want  []model.RawObservation
	}{
		{
			name:  "k-ruoka results",
			shape: ShapeResults,
			body:  `{"results":[{"name":"Pirkka maito 1l","price":1.05,"unitPriceUnit":"l","ean":"123"},{"name":"","price":2}]}`,
			want: []model.RawObservation{
				{Store: "K-Citymarket", Product: "Pirkka maito 1l", Price: "1.05", UnitHint: "l", Line: 1},
			},
		},
		{
			name:  "s-kaupat products with string price",
			shape: ShapeProducts,
			body:  `{"products":[{"name":"Valio maito 1l","price":"1,29","unit":"kpl"},{"name":"Kurkku","price":null}]}`,
			want: []model.RawObservation{
				{Store: "K-Citymarket", Product: "Valio maito 1l", Price: "1,29", UnitHint: "kpl", Line: 1},
			},
		},
		{
			name:  "wrong shape yields nothing",
			shape: ShapeProducts,
			body:  `{"results":[{"name":"Maito","price":1}]}`,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestRetailer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "maito", r.URL.Query().Get("query"))
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}, RetailerConfig{Shape: tt.shape, Terms: []string{"maito"}})

			observedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
			api.now = func() time.Time { return observedAt }
			for i := range tt.want {
				tt.want[i].ObservedAt = observedAt
			}

			got, err := api.Fetch(context.Background(), model.Store{ID: 1, Name: "K-Citymarket"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetailerAPI_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	api := newTestRetailer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"products":[{"name":"Banaani","price":1.89}]}`))
	}, RetailerConfig{Terms: []string{"banaani"}})

	got, err := api.Fetch(context.Background(), model.Store{ID: 1, Name: "Prisma"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetailerAPI_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	api := newTestRetailer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, RetailerConfig{Terms: []string{"maito"}})

	_, err := api.Fetch(context.Background(), model.Store{ID: 1, Name: "Prisma"})
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetailerAPI_PartialFailure(t *testing.T) {
	api := newTestRetailer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "kahvi" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"products":[{"name":"Maito","price":1.29}]}`))
	}, RetailerConfig{Terms: []string{"maito", "kahvi"}})

	got, err := api.Fetch(context.Background(), model.Store{ID: 1, Name: "Prisma"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRetailerAPI_CachesTerms(t *testing.T) {
	var calls atomic.Int32
	api := newTestRetailer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"name":"Maito","price":1.29}]}`))
	}, RetailerConfig{Shape: ShapeResults, Terms: []string{"maito"}, CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		got, err := api.Fetch(context.Background(), model.Store{ID: 1, Name: "K-Market"})
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetailerAPI_Cancelled(t *testing.T) {
	api := newTestRetailer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, RetailerConfig{Terms: []string{"maito", "kahvi"}, RequestsPerSecond: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := api.Fetch(ctx, model.Store{ID: 1, Name: "Prisma"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRetailerAPI_Validation(t *testing.T) {
	_, err := NewRetailerAPI(RetailerConfig{}, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewRetailerAPI(RetailerConfig{BaseURL: "http://x", Shape: "items"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	api, err := NewRetailerAPI(RetailerConfig{BaseURL: "http://x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "products", api.Name())
	assert.Equal(t, DefaultSearchTerms, api.cfg.Terms)
}
