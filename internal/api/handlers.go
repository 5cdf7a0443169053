package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/common"
)

func abortWithError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// Health reports whether the database is reachable and seeded.
func (s *Server) Health(c *gin.Context) {
	st, err := s.reader.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "error",
			"error":     err.Error(),
			"timestamp": s.now().UTC(),
		})
		return
	}

	state := "initialized_empty"
	if st.Products > 0 {
		state = "initialized_with_data"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"state":          state,
			"schema_version": st.SchemaVersion,
		},
		"timestamp": s.now().UTC(),
	})
}

// Status reports table counts. Database trouble degrades the response
// rather than failing it.
func (s *Server) Status(c *gin.Context) {
	body := gin.H{
		"api":       "ok",
		"database":  "ok",
		"timestamp": s.now().UTC(),
	}

	st, err := s.reader.Status(c.Request.Context())
	if err != nil {
		slog.Warn("Status check failed", "error", err)
		body["api"] = "degraded"
		body["database"] = "error"
		c.JSON(http.StatusOK, body)
		return
	}

	if st.Products == 0 && st.Stores == 0 {
		body["database"] = "empty - needs seeding"
	}
	body["products"] = st.Products
	body["stores"] = st.Stores
	body["prices"] = st.Prices
	body["schema_version"] = st.SchemaVersion
	c.JSON(http.StatusOK, body)
}

// ListStores returns the stores in canonical order.
func (s *Server) ListStores(c *gin.Context) {
	stores, err := s.reader.ListStores(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

// ListProducts returns every product with its current price per store.
func (s *Server) ListProducts(c *gin.Context) {
	if cached, ok := s.products.Get(productsCacheKey); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	snap, err := aggregate.Load(c.Request.Context(), s.reader)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	out := make([]ProductResponse, 0, len(snap.Products))
	for _, a := range snap.Products {
		out = append(out, productResponse(a))
	}
	s.products.Set(productsCacheKey, out)

	c.JSON(http.StatusOK, out)
}

// ProductHistory returns every recorded price of one product, newest first.
func (s *Server) ProductHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, errors.New("product id must be a positive integer"))
		return
	}

	ctx := c.Request.Context()
	product, err := s.reader.GetProduct(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	points, err := s.reader.PriceHistory(ctx, id)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	history := make([]HistoryPoint, 0, len(points))
	for _, p := range points {
		history = append(history, HistoryPoint{Store: p.StoreName, Price: p.Price.Major(), RecordedAt: p.RecordedAt})
	}

	c.JSON(http.StatusOK, HistoryResponse{Product: *product, History: history})
}

// Comparison returns filtered aggregates, store rankings and the biggest
// price differences.
//
// Query parameters: search, category, sort (name, category, price-low,
// price-high, variance) and limit for the differences list.
func (s *Server) Comparison(c *gin.Context) {
	var query struct {
		Search   string `form:"search"`
		Category string `form:"category"`
		Sort     string `form:"sort"`
		Limit    int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	sortBy, ok := aggregate.ParseSortBy(strings.TrimSpace(query.Sort))
	if !ok {
		abortWithError(c, http.StatusBadRequest, errors.New("unknown sort mode "+strconv.Quote(query.Sort)))
		return
	}
	limit := query.Limit
	if limit <= 0 {
		limit = s.cfg.DifferenceLimit
	}

	snap, err := aggregate.Load(c.Request.Context(), s.reader)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	filtered := aggregate.Filter(snap.Products, aggregate.Query{
		Search:   query.Search,
		Category: strings.TrimSpace(query.Category),
		SortBy:   sortBy,
	})

	stores := make([]StoreSummaryResponse, 0, len(snap.Summaries))
	for _, sum := range snap.Summaries {
		stores = append(stores, StoreSummaryResponse{
			ID:            sum.Store.ID,
			Name:          sum.Store.Name,
			CheapestCount: sum.CheapestCount,
			PriceCount:    sum.PriceCount,
			AveragePrice:  sum.AveragePrice,
		})
	}

	modes := make([]string, 0, len(aggregate.SortModes))
	for _, m := range aggregate.SortModes {
		modes = append(modes, string(m))
	}

	c.JSON(http.StatusOK, ComparisonResponse{
		Products:           comparisonProducts(filtered),
		Stores:             stores,
		BiggestDifferences: comparisonProducts(aggregate.BiggestDifferences(snap.Products, limit)),
		Categories:         aggregate.Categories(snap.Products),
		SortModes:          modes,
	})
}
