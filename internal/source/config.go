package source

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/service"
)

// Source kinds accepted in configuration.
const (
	KindFile    = "file"
	KindKRuoka  = "k-ruoka"
	KindSKaupat = "s-kaupat"
)

// Config describes one configured source, as read from the "sources" key.
type Config struct {
	Kind              string        `mapstructure:"kind" yaml:"kind"`
	Path              string        `mapstructure:"path" yaml:"path,omitempty"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	QueryParam        string        `mapstructure:"query_param" yaml:"query_param,omitempty"`
	Stores            []string      `mapstructure:"stores" yaml:"stores"`
	Terms             []string      `mapstructure:"terms" yaml:"terms,omitempty"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl,omitempty"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second,omitempty"`
	MaxAttempts       int           `mapstructure:"max_attempts" yaml:"max_attempts,omitempty"`
}

// BuildRegistry creates a source per config entry and binds it to the
// entry's store patterns.
func BuildRegistry(configs []Config, client *http.Client) (*Registry, error) {
	reg := NewRegistry()

	for i, cfg := range configs {
		src, err := build(cfg, client)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		if len(cfg.Stores) == 0 {
			return nil, fmt.Errorf("%w: source %d (%s) lists no stores", common.ErrInvalidConfig, i+1, cfg.Kind)
		}
		for _, pattern := range cfg.Stores {
			reg.Register(pattern, src)
		}
	}

	return reg, nil
}

func build(cfg Config, client *http.Client) (service.Source, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))

	switch kind {
	case KindFile:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("%w: file source needs a path", common.ErrMissingConfig)
		}
		return NewFileSource(cfg.Path), nil

	case KindKRuoka, KindSKaupat:
		shape, param := ShapeProducts, "query"
		if kind == KindKRuoka {
			shape = ShapeResults
		}
		if cfg.QueryParam != "" {
			param = cfg.QueryParam
		}

		retry := service.DefaultRetryOptions()
		if cfg.MaxAttempts > 0 {
			retry.MaxAttempts = cfg.MaxAttempts
		}

		rps := cfg.RequestsPerSecond
		if rps == 0 {
			rps = 2
		}

		return NewRetailerAPI(RetailerConfig{
			Name:              kind,
			BaseURL:           cfg.BaseURL,
			QueryParam:        param,
			Shape:             shape,
			Terms:             cfg.Terms,
			Retry:             retry,
			CacheTTL:          cfg.CacheTTL,
			RequestsPerSecond: rps,
		}, client)

	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", common.ErrInvalidConfig, cfg.Kind)
	}
}
