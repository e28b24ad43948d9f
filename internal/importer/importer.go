package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tally-dev/tally/internal/model"
)

// Parser converts a bank statement CSV into raw rows and normalizes them.
type Parser interface {
	Format() string
	// Tokenize maps the file into raw rows. The error return is reserved for
	// failures that make the whole file unreadable; bad rows go in the slice.
	Tokenize(r io.Reader) ([]RawRow, []*RowError, error)
	Normalize(row RawRow) (model.Transaction, error)
}

// ErrUnknownFormat is returned by Lookup for an unregistered statement format.
var ErrUnknownFormat = errors.New("unknown statement format")

// Registry maps statement format names to parsers. Names are case-insensitive.
type Registry struct {
	byFormat map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byFormat: map[string]Parser{}}
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CIMBParser{})
	return r
}

// Register adds p under its Format. Registering a format twice is a programming error and panics.
func (r *Registry) Register(p Parser) {
	name := strings.ToLower(p.Format())
	if _, dup := r.byFormat[name]; dup {
		panic(fmt.Sprintf("importer: format %q registered twice", name))
	}
	r.byFormat[name] = p
}

// Lookup returns the parser for format.
func (r *Registry) Lookup(format string) (Parser, error) {
	if p, ok := r.byFormat[strings.ToLower(format)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownFormat, format, strings.Join(r.Formats(), ", "))
}

// Formats lists registered format names in sorted order.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.byFormat))
	for name := range r.byFormat {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCSV reports whether name has a .csv extension, ignoring case.
func IsCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// ImportDir is the project subdirectory scanned for statements.
const ImportDir = "import"

// ProcessedDir holds statements that have been imported.
var ProcessedDir = filepath.Join(ImportDir, "processed")

// Statement is a CSV file waiting in the import directory.
type Statement struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Scan lists the statements waiting in <root>/import/ in name order.
// Subdirectories, including processed/, are not descended into.
func Scan(root string) ([]Statement, error) {
	dir := filepath.Join(root, ImportDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var out []Statement
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsCSV(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		out = append(out, Statement{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// MarkProcessed moves <root>/import/<name> into import/processed/ and returns
// its new path. An earlier statement with the same name is kept; the moved
// file gets a numeric suffix instead (bank-1.csv, bank-2.csv, ...).
func MarkProcessed(root, name string) (string, error) {
	dstDir := filepath.Join(root, ProcessedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed dir: %w", err)
	}

	dst, err := freePath(dstDir, name)
	if err != nil {
		return "", err
	}
	if err := os.Rename(filepath.Join(root, ImportDir, name), dst); err != nil {
		return "", fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return dst, nil
}

func freePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(dir, name)
	for i := 1; ; i++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
}
