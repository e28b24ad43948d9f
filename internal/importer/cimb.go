package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tally-dev/tally/internal/model"
)

// CIMBParser parses CIMB Clicks statement CSV exports.
type CIMBParser struct{}

// Column headers of a CIMB statement export.
const (
	ColDate        = "Date"
	ColDescription = "Transaction Details"
	ColMoneyIn     = "Money In"
	ColMoneyOut    = "Money Out"
	ColBalance     = "Balance"
)

// ErrMissingColumn is returned when the header row lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// requiredColumns must appear in the header row; the rest default to blank.
var requiredColumns = []string{ColDate, ColDescription}

// Format returns the parser name.
func (p *CIMBParser) Format() string { return "cimb" }

// Tokenize reads a CIMB CSV into raw rows, mapping columns by header name.
// Blank lines are skipped. Rows too short to hold every mapped column are
// returned as row errors, not tokenizer failures.
func (p *CIMBParser) Tokenize(r io.Reader) ([]RawRow, []*RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var rows []RawRow
	var rowErrs []*RowError
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading statement CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		if len(rec) <= cols.maxIndex() {
			rowErrs = append(rowErrs, &RowError{
				Line: line,
				Err:  fmt.Errorf("expected at least %d fields, got %d", cols.maxIndex()+1, len(rec)),
			})
			continue
		}
		rows = append(rows, RawRow{
			Line:        line,
			Date:        cols.get(rec, ColDate),
			Description: cols.get(rec, ColDescription),
			MoneyIn:     cols.get(rec, ColMoneyIn),
			MoneyOut:    cols.get(rec, ColMoneyOut),
			Balance:     cols.get(rec, ColBalance),
		})
	}
	return rows, rowErrs, nil
}

// Normalize converts one raw row into a Transaction.
func (p *CIMBParser) Normalize(row RawRow) (model.Transaction, error) {
	return Normalize(row)
}

// columnMap maps header names to record indexes.
type columnMap map[string]int

func mapColumns(header []string) (columnMap, error) {
	cols := make(columnMap, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, known := range []string{ColDate, ColDescription, ColMoneyIn, ColMoneyOut, ColBalance} {
			if strings.EqualFold(name, known) {
				if _, dup := cols[known]; !dup {
					cols[known] = i
				}
			}
		}
	}
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, req)
		}
	}
	return cols, nil
}

func (c columnMap) get(rec []string, col string) string {
	i, ok := c[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columnMap) maxIndex() int {
	maxIdx := 0
	for _, i := range c {
		if i > maxIdx {
			maxIdx = i
		}
	}
	return maxIdx
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
