package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cents(c money.Cents) *money.Cents { return &c }

func testReport() Report {
	stores := []model.Store{{ID: 1, Name: "Prisma"}, {ID: 2, Name: "Lidl"}}
	milk := model.AggregatedProduct{
		Product: model.Product{ID: 1, Name: "Maito 1l", Category: "Dairy", Unit: "1l"},
		Prices: map[string]model.StorePrice{
			"Prisma": {Price: 129},
			"Lidl":   {Price: 109},
		},
		MinPrice:           cents(109),
		MaxPrice:           cents(129),
		CheapestStore:      "Lidl",
		PriceSpreadPercent: 18.35,
	}
	coffee := model.AggregatedProduct{
		Product: model.Product{ID: 2, Name: "Kahvi 500g", Category: "Beverages", Unit: "500g"},
		Prices:  map[string]model.StorePrice{},
	}

	return Report{
		GeneratedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Stores:      stores,
		Products:    []model.AggregatedProduct{milk, coffee},
		Summaries: []model.StoreSummary{
			{Store: stores[1], CheapestCount: 1, PriceCount: 1, AveragePrice: 1.09},
			{Store: stores[0], CheapestCount: 0, PriceCount: 1, AveragePrice: 1.29},
		},
		Differences: []model.AggregatedProduct{milk},
	}
}

func findRow(t *testing.T, values [][]any, title string) int {
	t.Helper()
	for i, row := range values {
		if len(row) > 0 && row[0] == title {
			return i
		}
	}
	require.Failf(t, "section not found", "title %q", title)
	return -1
}

func TestPrepareReportData(t *testing.T) {
	values := prepareReportData(testReport())

	assert.Equal(t, "Grocery Price Comparison", values[0][0])
	assert.Equal(t, "2024-03-01 10:00", values[0][1])

	ranking := findRow(t, values, "Store Ranking")
	assert.Equal(t, []any{"Lidl", 1, 1, 1.09}, values[ranking+2])
	assert.Equal(t, []any{"Prisma", 0, 1, 1.29}, values[ranking+3])

	diffs := findRow(t, values, "Biggest Differences")
	assert.Equal(t, []any{"Maito 1l", "Lidl", 1.09, 1.29, 18.35}, values[diffs+2])

	comparison := findRow(t, values, "Price Comparison")
	assert.Equal(t,
		[]any{"Product", "Category", "Unit", "Prisma", "Lidl", "Cheapest", "Min", "Max", "Spread %"},
		values[comparison+1])
	assert.Equal(t,
		[]any{"Maito 1l", "Dairy", "1l", 1.29, 1.09, "Lidl", 1.09, 1.29, 18.35},
		values[comparison+2])
	assert.Equal(t,
		[]any{"Kahvi 500g", "Beverages", "500g", "", "", "", "", "", ""},
		values[comparison+3])
	assert.Len(t, values, comparison+4)
}

func TestFormattingRequests(t *testing.T) {
	requests := formattingRequests(20, 3, "#,##0.00 €")
	require.Len(t, requests, 5)

	currency := requests[2].RepeatCell
	require.NotNil(t, currency)
	assert.Equal(t, int64(3), currency.Range.StartColumnIndex)
	assert.Equal(t, int64(9), currency.Range.EndColumnIndex)
	assert.Equal(t, "#,##0.00 €", currency.Cell.UserEnteredFormat.NumberFormat.Pattern)
	assert.Equal(t, int64(1), requests[4].UpdateSheetProperties.Properties.GridProperties.FrozenRowCount)
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		err       error
		name      string
		retryable bool
		rateLimit bool
	}{
		{name: "rate limited", err: &googleapi.Error{Code: 429}, retryable: true, rateLimit: true},
		{name: "forbidden", err: &googleapi.Error{Code: 403}, retryable: false},
		{name: "server error", err: &googleapi.Error{Code: 503}, retryable: true},
		{name: "transport error", err: errors.New("connection reset"), retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyAPIError(tt.err)
			var re *common.RetryableError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.retryable, re.Retryable)
			assert.Equal(t, tt.rateLimit, errors.Is(err, common.ErrRateLimit))
		})
	}
	assert.NoError(t, classifyAPIError(nil))
}

// fakeSheetsAPI is a minimal Sheets REST endpoint recording the calls it receives.
type fakeSheetsAPI struct {
	calls       []string
	written     [][]any
	clearFails  int
	formatFails bool
	mu          sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/v4/spreadsheets"):
		f.calls = append(f.calls, "create")
		_, _ = io.WriteString(w, `{"spreadsheetId":"new-sheet","spreadsheetUrl":"https://example.test/new-sheet"}`)
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		_, _ = io.WriteString(w, `{"spreadsheetId":"existing"}`)
	case strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		if f.clearFails > 0 {
			f.clearFails--
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"code":503,"message":"unavailable"}}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var body sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, row := range body.Values {
			f.written = append(f.written, row)
		}
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "format")
		if f.formatFails {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"bad request"}}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, config Config) *Writer {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return &Writer{service: svc, logger: testLogger(), config: config}
}

func TestWriter_Write(t *testing.T) {
	t.Run("creates spreadsheet and writes in batches", func(t *testing.T) {
		api := &fakeSheetsAPI{}
		config := DefaultConfig()
		config.BatchSize = 5
		config.RetryDelay = time.Millisecond
		w := newTestWriter(t, api, config)

		report := testReport()
		id, err := w.Write(context.Background(), report)
		require.NoError(t, err)

		assert.Equal(t, "new-sheet", id)
		rows := len(prepareReportData(report))
		assert.Len(t, api.written, rows)
		assert.Equal(t, "create", api.calls[0])
		assert.Equal(t, "clear", api.calls[1])
		assert.Equal(t, "format", api.calls[len(api.calls)-1])
	})

	t.Run("uses existing spreadsheet and retries transient failures", func(t *testing.T) {
		api := &fakeSheetsAPI{clearFails: 2}
		config := DefaultConfig()
		config.SpreadsheetID = "existing"
		config.RetryDelay = time.Millisecond
		config.EnableFormatting = false
		w := newTestWriter(t, api, config)

		id, err := w.Write(context.Background(), testReport())
		require.NoError(t, err)

		assert.Equal(t, "existing", id)
		assert.Equal(t, []string{"get", "clear", "clear", "clear", "update"}, api.calls)
	})

	t.Run("formatting failure does not fail the export", func(t *testing.T) {
		api := &fakeSheetsAPI{formatFails: true}
		config := DefaultConfig()
		config.RetryDelay = time.Millisecond
		w := newTestWriter(t, api, config)

		_, err := w.Write(context.Background(), testReport())
		require.NoError(t, err)
		assert.Equal(t, "format", api.calls[len(api.calls)-1])
	})
}

func TestMockWriter(t *testing.T) {
	m := NewMockWriter("sheet-1")
	_, ok := m.LastReport()
	assert.False(t, ok)

	id, err := m.Write(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", id)

	last, ok := m.LastReport()
	require.True(t, ok)
	assert.Len(t, last.Products, 2)

	boom := errors.New("boom")
	m.SetWriteError(boom)
	_, err = m.Write(context.Background(), testReport())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, m.WriteCallCount)
}
