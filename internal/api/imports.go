package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/ingest"
	"github.com/Veraticus/halpa/internal/model"
)

type importPricesRequest struct {
	Prices *[]importEntry `json:"prices"`
}

type importEntry struct {
	Store   string          `json:"store"`
	Product string          `json:"product"`
	Price   json.RawMessage `json:"price"`
}

type importCSVRequest struct {
	Store   string `json:"store"`
	CSVData string `json:"csvData"`
}

// ImportPrices ingests {"prices": [{"store", "product", "price"}]}.
func (s *Server) ImportPrices(c *gin.Context) {
	var req importPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Prices == nil {
		abortWithError(c, http.StatusBadRequest, errors.New(`body must contain a "prices" array`))
		return
	}

	batch := make([]model.RawObservation, 0, len(*req.Prices))
	for i, e := range *req.Prices {
		batch = append(batch, model.RawObservation{
			Store:   e.Store,
			Product: e.Product,
			Price:   priceText(e.Price),
			Line:    i + 1,
		})
	}

	s.runIngestion(c, batch)
}

// ImportCSV ingests delimited text for one store:
// {"store": "K-Citymarket", "csvData": "PRODUCT NAME | PRICE\n..."}.
func (s *Server) ImportCSV(c *gin.Context) {
	var req importCSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Store) == "" || strings.TrimSpace(req.CSVData) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": `body must contain "store" and "csvData"`,
			"example": importCSVRequest{
				Store:   "K-Citymarket",
				CSVData: "PRODUCT NAME | PRICE (€/unit) | PRICE (€/kg)\nPirkka banaani | 0.30 | 1.69",
			},
		})
		return
	}

	batch, err := ingest.ParseCSVData(strings.TrimSpace(req.Store), req.CSVData)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	s.runIngestion(c, batch)
}

func (s *Server) runIngestion(c *gin.Context, batch []model.RawObservation) {
	report, err := s.ingester.Run(c.Request.Context(), batch)

	// Some records may have been written even when err is non-nil.
	if report != nil && report.Persisted > 0 {
		s.InvalidateProducts()
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, common.ErrPersistence):
		abortWithReport(c, http.StatusInternalServerError, err, report)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		abortWithReport(c, http.StatusServiceUnavailable, err, report)
	default:
		abortWithReport(c, http.StatusInternalServerError, err, report)
	}
}

func abortWithReport(c *gin.Context, status int, err error, report *model.IngestionReport) {
	if status >= http.StatusInternalServerError {
		common.LogError(err, "Ingestion failed", common.Fields{"path": c.Request.URL.Path})
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "results": report})
}

// priceText keeps numbers as written and unwraps strings, so the pipeline
// sees exactly what the client sent.
func priceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
