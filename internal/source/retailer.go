package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/halpa/internal/cache"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
)

// Shape names the top-level array a retailer search response carries.
type Shape string

// Known response shapes.
const (
	// ShapeResults is the K-Ruoka style {"results": [...]} payload.
	ShapeResults Shape = "results"
	// ShapeProducts is the S-Kaupat style {"products": [...]} payload.
	ShapeProducts Shape = "products"
)

// DefaultSearchTerms are the staple products searched when none are configured.
var DefaultSearchTerms = []string{
	"maito", "leipä", "juusto", "kananmunat", "tomaatti",
	"kurkku", "banaani", "omena", "peruna", "kahvi",
}

const userAgent = "halpa/1.0 (+price comparison)"

// RetailerConfig configures a retailer search API.
type RetailerConfig struct {
	Name              string
	BaseURL           string
	QueryParam        string
	Shape             Shape
	Terms             []string
	Retry             service.RetryOptions
	CacheTTL          time.Duration
	RequestsPerSecond float64
}

// RetailerAPI fetches observations from a retailer's JSON product search.
// Requests are throttled, retried on transient failures and cached per term.
type RetailerAPI struct {
	client  *http.Client
	limiter *rate.Limiter
	cache   cache.Cache[string, []searchItem]
	now     func() time.Time
	cfg     RetailerConfig
}

// NewRetailerAPI creates a retailer source. A nil client gets a 30 second
// timeout.
func NewRetailerAPI(cfg RetailerConfig, client *http.Client) (*RetailerAPI, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: retailer %q has no base_url", common.ErrMissingConfig, cfg.Name)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: retailer base_url: %w", common.ErrInvalidConfig, err)
	}
	switch cfg.Shape {
	case ShapeResults, ShapeProducts:
	case "":
		cfg.Shape = ShapeProducts
	default:
		return nil, fmt.Errorf("%w: unknown response shape %q", common.ErrInvalidConfig, cfg.Shape)
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = "query"
	}
	if len(cfg.Terms) == 0 {
		cfg.Terms = DefaultSearchTerms
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = service.DefaultRetryOptions()
	}
	if cfg.Name == "" {
		cfg.Name = string(cfg.Shape)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	var c cache.Cache[string, []searchItem] = cache.Noop[string, []searchItem]{}
	if cfg.CacheTTL > 0 {
		c = cache.New[string, []searchItem](cfg.CacheTTL)
	}

	return &RetailerAPI{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		cache:   c,
		now:     time.Now,
	}, nil
}

// Name implements service.Source.
func (r *RetailerAPI) Name() string {
	return r.cfg.Name
}

// Fetch searches every configured term and returns one observation per
// priced result. A term that keeps failing is skipped; Fetch fails only when
// every term failed.
func (r *RetailerAPI) Fetch(ctx context.Context, store model.Store) ([]model.RawObservation, error) {
	var (
		observations []model.RawObservation
		failures     []error
	)

	observedAt := r.now()
	for _, term := range r.cfg.Terms {
		items, err := r.search(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return observations, ctx.Err()
			}
			slog.Warn("Retailer search failed", "source", r.cfg.Name, "term", term, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", term, err))
			continue
		}

		for _, item := range items {
			name := strings.TrimSpace(item.Name)
			if name == "" || item.Price == "" {
				continue
			}
			observations = append(observations, model.RawObservation{
				ObservedAt: observedAt,
				Store:      store.Name,
				Product:    name,
				Price:      item.Price.String(),
				UnitHint:   item.unit(),
				Line:       len(observations) + 1,
			})
		}
	}

	if len(failures) > 0 && len(failures) == len(r.cfg.Terms) {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrSourceUnavailable, r.cfg.Name, errors.Join(failures...))
	}

	return observations, nil
}

func (r *RetailerAPI) search(ctx context.Context, term string) ([]searchItem, error) {
	if items, ok := r.cache.Get(term); ok {
		return items, nil
	}

	var items []searchItem
	err := common.WithRetry(ctx, func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		var reqErr error
		items, reqErr = r.request(ctx, term)
		return reqErr
	}, r.cfg.Retry)
	if err != nil {
		return nil, err
	}

	r.cache.Set(term, items)
	return items, nil
}

func (r *RetailerAPI) request(ctx context.Context, term string) ([]searchItem, error) {
	u, err := url.Parse(r.cfg.BaseURL)
	if err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}
	q := u.Query()
	q.Set(r.cfg.QueryParam, term)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &common.RetryableError{Err: common.ErrRateLimit, Retryable: true}
	case resp.StatusCode >= 500:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: status %d", common.ErrSourceUnavailable, resp.StatusCode),
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)),
			Retryable: false,
		}
	}

	items, err := decodeSearch(body, r.cfg.Shape)
	if err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}
	return items, nil
}

type searchItem struct {
	Name          string    `json:"name"`
	Price         flexPrice `json:"price"`
	Unit          string    `json:"unit"`
	UnitPriceUnit string    `json:"unitPriceUnit"`
	EAN           string    `json:"ean"`
}

func (i searchItem) unit() string {
	if i.UnitPriceUnit != "" {
		return i.UnitPriceUnit
	}
	return i.Unit
}

func decodeSearch(body []byte, shape Shape) ([]searchItem, error) {
	var payload struct {
		Results  []searchItem `json:"results"`
		Products []searchItem `json:"products"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", shape, err)
	}

	if shape == ShapeResults {
		return payload.Results, nil
	}
	return payload.Products, nil
}

// flexPrice accepts prices sent either as JSON numbers or as strings.
type flexPrice string

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = flexPrice(strings.TrimSpace(s))
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("invalid price %s", data)
	}
	*p = flexPrice(data)
	return nil
}

func (p flexPrice) String() string {
	return string(p)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
