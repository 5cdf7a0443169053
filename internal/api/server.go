// Package api exposes the catalog, the price comparison and ingestion over
// HTTP using gin.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/halpa/internal/cache"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
)

// Reader is the read side of the catalog the API serves from.
type Reader interface {
	service.PriceReader
	Status(ctx context.Context) (*model.CatalogStatus, error)
}

// Ingester runs one ingestion batch.
type Ingester interface {
	Run(ctx context.Context, batch []model.RawObservation) (*model.IngestionReport, error)
}

// Config holds server settings.
type Config struct {
	ProductsCacheTTL time.Duration
	MaxBodyBytes     int64
	ShutdownTimeout  time.Duration
	DifferenceLimit  int
	TLS              *tls.Config // Serve HTTPS when set
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		ProductsCacheTTL: 30 * time.Second,
		MaxBodyBytes:     5 << 20,
		ShutdownTimeout:  10 * time.Second,
		DifferenceLimit:  5,
	}
}

const productsCacheKey = "products"

// Server serves the JSON API.
type Server struct {
	reader   Reader
	ingester Ingester
	products cache.Cache[string, []ProductResponse]
	router   *gin.Engine
	now      func() time.Time
	cfg      Config
}

// New creates a server and registers its routes.
func New(reader Reader, ingester Ingester, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.DifferenceLimit <= 0 {
		cfg.DifferenceLimit = def.DifferenceLimit
	}

	var products cache.Cache[string, []ProductResponse] = cache.Noop[string, []ProductResponse]{}
	if cfg.ProductsCacheTTL > 0 {
		products = cache.New[string, []ProductResponse](cfg.ProductsCacheTTL)
	}

	s := &Server{
		reader:   reader,
		ingester: ingester,
		products: products,
		now:      time.Now,
		cfg:      cfg,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), bodyLimit(s.cfg.MaxBodyBytes))

	api := r.Group("/api")
	api.GET("/health", s.Health)
	api.GET("/status", s.Status)
	api.GET("/stores", s.ListStores)
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id/history", s.ProductHistory)
	api.GET("/comparison", s.Comparison)
	api.POST("/import-prices", s.ImportPrices)
	api.POST("/import-csv", s.ImportCSV)

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.cfg.TLS,
	}

	errCh := make(chan error, 1)
	go func() {
		if srv.TLSConfig != nil {
			slog.Info("API server listening", "addr", addr, "tls", true)
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		slog.Info("API server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// InvalidateProducts drops the cached product listing.
func (s *Server) InvalidateProducts() {
	s.products.Purge()
}
