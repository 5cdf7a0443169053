// Package money converts between major currency units and integer minor units.
//
// Amounts are carried as integer cents everywhere inside the application.
// Conversion to a floating point major-unit value happens only when a value
// leaves for display (JSON, tables, spreadsheets).
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates a price string that is not a number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountOutOfRange indicates an amount larger than MaxMajor in magnitude.
	ErrAmountOutOfRange = fmt.Errorf("%w: out of range", ErrInvalidAmount)
)

// MaxMajor is the largest accepted amount in major units.
const MaxMajor = 1_000_000_000

var maxMajor = decimal.NewFromInt(MaxMajor)

// Cents is an amount in minor currency units.
type Cents int64

// FromMajor converts a major-unit amount to cents, rounding half away from zero.
// The float is read through its shortest decimal representation, so 0.1+0.2
// converts to exactly 30. NaN, infinities and amounts beyond MaxMajor are
// rejected.
func FromMajor(major float64) (Cents, error) {
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, major)
	}
	return fromDecimal(decimal.NewFromFloat(major))
}

// ParseMajor parses a major-unit amount such as "1.29", "1,29" or "€ 2.49".
func ParseMajor(s string) (Cents, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "€")
	cleaned = strings.TrimSuffix(cleaned, "€")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Cents, error) {
	if d.Abs().GreaterThan(maxMajor) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d.String())
	}
	return Cents(d.Shift(2).Round(0).IntPart()), nil
}

// Decimal returns the amount as a major-unit decimal.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Major returns the amount in major units for display.
func (c Cents) Major() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

// String formats the amount with two decimals, e.g. "1.15".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Percent returns (a-b)/b*100 rounded to two decimals, or 0 when b is not positive.
func Percent(a, b Cents) float64 {
	if b <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(a - b)).
		Div(decimal.NewFromInt(int64(b))).
		Shift(2).
		Round(2)
	f, _ := pct.Float64()
	return f
}

// Average returns the mean of the given amounts in major units, rounded to
// two decimals. It returns 0 for an empty slice.
func Average(amounts []Cents) float64 {
	if len(amounts) == 0 {
		return 0
	}
	var sum int64
	for _, a := range amounts {
		sum += int64(a)
	}
	avg := decimal.New(sum, -2).Div(decimal.NewFromInt(int64(len(amounts)))).Round(2)
	f, _ := avg.Float64()
	return f
}
