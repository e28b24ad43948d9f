// Package editlog records user category reassignments in logs/category-edits.csv.
package editlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tally-dev/tally/internal/model"
)

// Entry is one category reassignment.
type Entry struct {
	Timestamp     time.Time
	TransactionID string
	Date          model.Date
	Description   string
	From          model.Category
	To            model.Category
}

// Header is the CSV header for category-edits.csv.
const Header = "timestamp,transaction_id,date,description,from,to"

const (
	numFields        = 6
	logDir           = "logs"
	logFile          = "logs/category-edits.csv"
	colTimestamp     = 0
	colTransactionID = 1
	colDate          = 2
	colDescription   = 3
	colFrom          = 4
	colTo            = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colTransactionID] = e.TransactionID
	row[colDate] = e.Date.String()
	row[colDescription] = e.Description
	row[colFrom] = string(e.From)
	row[colTo] = string(e.To)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	date, err := model.ParseDate(record[colDate])
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Timestamp:     ts,
		TransactionID: record[colTransactionID],
		Date:          date,
		Description:   record[colDescription],
		From:          model.Category(record[colFrom]),
		To:            model.Category(record[colTo]),
	}, nil
}

// Log appends entries under a project root.
type Log struct {
	Root string
}

// Record appends one entry. It satisfies the pipeline's edit hook.
func (l Log) Record(e Entry) error {
	return Append(l.Root, []Entry{e})
}

// Append writes entries to <root>/logs/category-edits.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening edit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/category-edits.csv.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening edit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading edit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Latest returns the most recent edit per transaction ID.
func Latest(entries []Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if prev, ok := out[e.TransactionID]; !ok || !e.Timestamp.Before(prev.Timestamp) {
			out[e.TransactionID] = e
		}
	}
	return out
}
