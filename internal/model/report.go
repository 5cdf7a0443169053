package model

import (
	"fmt"
	"time"
)

// LineOutcome classifies how a single ingestion line ended.
type LineOutcome string

const (
	// OutcomeImported means the line matched a product and produced a record.
	OutcomeImported LineOutcome = "imported"
	// OutcomeSkipped means no catalog product matched. Not an error.
	OutcomeSkipped LineOutcome = "skipped"
	// OutcomeMalformed means the line was missing fields or had a non-numeric price.
	OutcomeMalformed LineOutcome = "malformed"
	// OutcomeUnknownStore means the store name has no catalog entry.
	OutcomeUnknownStore LineOutcome = "unknown_store"
)

// LineError is a per-line diagnostic in an ingestion report.
type LineError struct {
	Outcome LineOutcome `json:"outcome"`
	Message string      `json:"message"`
	Line    int         `json:"line"`
}

func (e LineError) String() string {
	return fmt.Sprintf("Line %d: %s", e.Line, e.Message)
}

// MatchSample records one matched pair for audit.
type MatchSample struct {
	Scraped    string  `json:"scraped"`
	Matched    string  `json:"matched"`
	Category   string  `json:"category"`
	Line       int     `json:"line"`
	ProductID  int64   `json:"product_id"`
	PriceCents int64   `json:"price_cents"`
	PriceMajor float64 `json:"price_euros"`
	Ambiguous  bool    `json:"ambiguous,omitempty"`
}

// UnmatchedLine is an observation no product matched, with inferred hints an
// operator can use when curating the catalog.
type UnmatchedLine struct {
	Product           string `json:"product"`
	Store             string `json:"store"`
	SuggestedCategory string `json:"suggested_category"`
	SuggestedUnit     string `json:"suggested_unit"`
	Line              int    `json:"line"`
}

// IngestionReport is the per-batch result of an ingestion run.
type IngestionReport struct {
	Started   time.Time       `json:"started"`
	Completed time.Time       `json:"completed"`
	BatchID   string          `json:"batch_id"`
	Errors    []LineError     `json:"errors"`
	Matches   []MatchSample   `json:"matches"`
	Unmatched []UnmatchedLine `json:"unmatched"`
	Total     int             `json:"total"`
	Processed int             `json:"processed"`
	Imported  int             `json:"imported"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Persisted int             `json:"persisted"`
	Cancelled bool            `json:"cancelled,omitempty"`
}
