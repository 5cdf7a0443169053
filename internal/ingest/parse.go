package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/Veraticus/halpa/internal/model"
)

const headerMarker = "product name"

// ParseDelimited reads pipe-, semicolon- or comma-delimited price lines for
// one store:
//
//	PRODUCT NAME | PRICE (€/unit) | PRICE (€/kg)
//	Pirkka banaani | 0.30 | 1.69
//
// A leading header line is skipped, as are all-caps section titles without a
// delimiter. On unquoted comma-delimited lines a comma between two digits is
// read as a decimal separator. Lines that cannot be split into a name and a price still become
// observations so the pipeline reports them as malformed.
func ParseDelimited(r io.Reader, store string) ([]model.RawObservation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		observations []model.RawObservation
		lineNo       int
		seenContent  bool
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !seenContent {
			seenContent = true
			if strings.Contains(strings.ToLower(line), headerMarker) {
				continue
			}
		}

		if isSectionTitle(line) {
			continue
		}

		observations = append(observations, parseLine(line, lineNo, store))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read delimited data: %w", err)
	}

	return observations, nil
}

// ParseCSVData parses delimited text held in memory.
func ParseCSVData(store, data string) ([]model.RawObservation, error) {
	return ParseDelimited(strings.NewReader(data), store)
}

func parseLine(line string, lineNo int, store string) model.RawObservation {
	obs := model.RawObservation{Line: lineNo, Store: store}

	comma := delimiterFor(line)
	var fields []string
	if comma == ',' && !strings.ContainsRune(line, '"') && hasDecimalComma(line) {
		fields = splitKeepingDecimals(line)
	} else {
		reader := csv.NewReader(strings.NewReader(line))
		reader.Comma = comma
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		reader.TrimLeadingSpace = true

		var err error
		if fields, err = reader.Read(); err != nil {
			fields = nil
		}
	}
	if len(fields) == 0 {
		obs.Product = line
		return obs
	}

	obs.Product = strings.TrimSpace(fields[0])
	if len(fields) > 1 {
		obs.Price = strings.TrimSpace(fields[1])
	}
	return obs
}

func delimiterFor(line string) rune {
	if strings.ContainsRune(line, '|') {
		return '|'
	}
	if strings.ContainsRune(line, ';') {
		return ';'
	}
	return ','
}

// hasDecimalComma reports whether line has a comma between two digits, as in
// "1,5L" or "1,29".
func hasDecimalComma(line string) bool {
	for i := range line {
		if line[i] == ',' && decimalCommaAt(line, i) {
			return true
		}
	}
	return false
}

func decimalCommaAt(line string, i int) bool {
	return i > 0 && i+1 < len(line) && isASCIIDigit(line[i-1]) && isASCIIDigit(line[i+1])
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// splitKeepingDecimals splits an unquoted comma-delimited line at the commas
// that are not decimal separators, so "Maito 1,5L, 1,29" yields
// "Maito 1,5L" and "1,29".
func splitKeepingDecimals(line string) []string {
	var fields []string
	start := 0
	for i := range line {
		if line[i] != ',' || decimalCommaAt(line, i) {
			continue
		}
		fields = append(fields, strings.TrimSpace(line[start:i]))
		start = i + 1
	}
	return append(fields, strings.TrimSpace(line[start:]))
}

func isSectionTitle(line string) bool {
	if strings.ContainsAny(line, "|,;") {
		return false
	}
	for _, r := range line {
		if unicode.IsDigit(r) || unicode.IsLower(r) {
			return false
		}
	}
	return true
}
