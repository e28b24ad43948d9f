// Package pipeline coordinates reading, parsing, categorizing and
// summarizing a statement upload.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tally-dev/tally/internal/categorize"
	"github.com/tally-dev/tally/internal/editlog"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/store"
	"github.com/tally-dev/tally/internal/summary"
)

// State is the session's position in the upload lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateReading      State = "reading"
	StateParsing      State = "parsing"
	StateCategorizing State = "categorizing"
	StateReady        State = "ready"
	StateError        State = "error"
)

// EditRecorder receives every category reassignment.
type EditRecorder interface {
	Record(e editlog.Entry) error
}

// Options wires a Session's collaborators. Parser, Categorizer and Store are required.
type Options struct {
	Parser      importer.Parser
	Categorizer *categorize.Categorizer
	Store       store.Store
	Edits       EditRecorder
	Logger      zerolog.Logger
	Now         func() time.Time
}

// UploadResult reports what an Upload did.
type UploadResult struct {
	File      string
	Rows      int // rows read from the file
	Imported  int
	Skipped   int
	RowErrors []*importer.RowError
}

// Analysis is the read model handed to presentation.
type Analysis struct {
	Filter       summary.Filter
	Months       []string              // newest first
	Transactions []model.Transaction   // visible under Filter, newest first
	Summaries    summary.Summaries     // over Transactions
	Totals       summary.Totals        // over Transactions
	Monthly      []summary.MonthBucket // over the whole collection
	Period       summary.Period        // over Transactions
}

// Session holds one user's transaction collection and derived views.
// Every exported method applies its state change whole before returning.
type Session struct {
	parser importer.Parser
	cat    *categorize.Categorizer
	store  store.Store
	edits  EditRecorder
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	err      error
	gen      uint64
	txns     []model.Transaction
	filter   summary.Filter
	analysis Analysis
}

// New returns an idle Session showing the default month.
func New(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		parser: opts.Parser,
		cat:    opts.Categorizer,
		store:  opts.Store,
		edits:  opts.Edits,
		log:    opts.Logger,
		now:    now,
		state:  StateIdle,
		filter: summary.Filter{Mode: summary.ModeMonthly},
	}
}

// State returns the current state and, in StateError, the error that caused it.
func (s *Session) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.err
}

// Upload ingests a statement, replacing the current collection on success.
// Files without a .csv extension are rejected with *FileError; unreadable or
// untokenizable files fail with *BatchError. Rows that fail to normalize are
// skipped and reported in the result.
func (s *Session) Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	res := UploadResult{File: name}

	log := s.logger(ctx)

	s.mu.Lock()
	if !importer.IsCSV(name) {
		// A rejected file never starts, so it does not displace an upload in flight.
		err := &FileError{Name: name, Reason: "only .csv files are supported"}
		s.fail(err)
		s.mu.Unlock()
		return res, err
	}
	s.gen++
	gen := s.gen
	s.setState(StateReading)
	s.mu.Unlock()

	data, readErr := io.ReadAll(r)
	if readErr == nil {
		readErr = ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		log.Debug().Str("file", name).Msg("discarding superseded upload")
		return res, ErrSuperseded
	}
	if readErr != nil {
		err := &BatchError{Name: name, Err: fmt.Errorf("reading file: %w", readErr)}
		s.fail(err)
		return res, err
	}

	s.setState(StateParsing)
	rows, rowErrs, err := s.parser.Tokenize(bytes.NewReader(data))
	if err != nil {
		berr := &BatchError{Name: name, Err: err}
		s.fail(berr)
		return res, berr
	}
	res.Rows = len(rows) + len(rowErrs)
	res.RowErrors = append(res.RowErrors, rowErrs...)

	s.setState(StateCategorizing)
	txns := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := s.parser.Normalize(row)
		if err != nil {
			rowErr := asRowError(row.Line, err)
			res.RowErrors = append(res.RowErrors, rowErr)
			continue
		}
		txns = append(txns, t)
	}
	for _, re := range res.RowErrors {
		log.Debug().Str("file", name).Int("line", re.Line).Err(re.Err).Msg("skipping row")
	}
	s.cat.Apply(txns)
	sortNewestFirst(txns)

	if err := store.SaveTransactions(ctx, s.store, txns); err != nil {
		s.fail(err)
		return res, err
	}

	res.Imported = len(txns)
	res.Skipped = len(res.RowErrors)
	s.replace(txns)
	s.setState(StateReady)
	log.Info().Str("file", name).Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("statement imported")
	return res, nil
}

// Load restores the persisted collection, categorizing anything that lacks a category.
func (s *Session) Load(ctx context.Context) error {
	txns, err := store.LoadTransactions(ctx, s.store)
	if err != nil {
		s.mu.Lock()
		s.fail(err)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.cat.Apply(txns); n > 0 {
		log := s.logger(ctx)
		log.Debug().Int("count", n).Msg("categorized stored transactions")
	}
	sortNewestFirst(txns)
	s.replace(txns)
	s.setState(StateReady)
	return nil
}

// Recategorize assigns label to the transaction whose ID is id, or a unique
// prefix of it. The collection is persisted and the analysis recomputed before
// returning.
func (s *Session) Recategorize(ctx context.Context, id, label string) (model.Transaction, error) {
	cat, err := model.ParseCategory(label)
	if err != nil {
		return model.Transaction{}, err
	}

	log := s.logger(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.find(id)
	if err != nil {
		return model.Transaction{}, err
	}
	prev := s.txns[i]
	if prev.Category == cat {
		return prev, nil
	}

	updated := make([]model.Transaction, len(s.txns))
	copy(updated, s.txns)
	updated[i].Category = cat
	if err := store.SaveTransactions(ctx, s.store, updated); err != nil {
		return model.Transaction{}, err
	}
	s.txns = updated
	s.recompute()

	if s.edits != nil {
		entry := editlog.Entry{
			Timestamp:     s.now(),
			TransactionID: prev.ID,
			Date:          prev.Date,
			Description:   prev.Description,
			From:          prev.Category,
			To:            cat,
		}
		if err := s.edits.Record(entry); err != nil {
			log.Warn().Err(err).Str("id", prev.ID).Msg("recording category edit")
		}
	}
	log.Info().Str("id", prev.ID).Str("from", string(prev.Category)).Str("to", string(cat)).Msg("recategorized")
	return updated[i], nil
}

// SelectMonth narrows the analysis to month (YYYY-MM).
func (s *Session) SelectMonth(month string) error {
	f, err := summary.Monthly(month)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.recompute()
	return nil
}

// ShowAll removes the month filter.
func (s *Session) ShowAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = summary.Filter{Mode: summary.ModeAll}
	s.recompute()
}

// Analysis returns the current read model.
func (s *Session) Analysis() Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// Transactions returns the whole collection, newest first.
func (s *Session) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Transaction, len(s.txns))
	copy(out, s.txns)
	return out
}

// replace installs a new collection and resets a monthly filter to the default month.
func (s *Session) replace(txns []model.Transaction) {
	s.txns = txns
	if s.filter.Mode == summary.ModeMonthly {
		s.filter.Month = summary.DefaultMonth(summary.AvailableMonths(txns), s.now())
	}
	s.recompute()
}

func (s *Session) recompute() {
	visible := s.filter.Apply(s.txns)
	s.analysis = Analysis{
		Filter:       s.filter,
		Months:       summary.AvailableMonths(s.txns),
		Transactions: visible,
		Summaries:    summary.Summarize(visible),
		Totals:       summary.ComputeTotals(visible),
		Monthly:      summary.MonthlyExpenses(s.txns),
		Period:       summary.PeriodOf(visible),
	}
}

func (s *Session) find(id string) (int, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1, ErrTransactionNotFound
	}
	match := -1
	for i, t := range s.txns {
		if t.ID == id {
			return i, nil
		}
		if strings.HasPrefix(t.ID, id) {
			if match >= 0 {
				return -1, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %q", ErrTransactionNotFound, id)
	}
	return match, nil
}

// Explain names the rule that categorizes t, or "manual" when the
// transaction's category was reassigned away from the rule's choice.
func (s *Session) Explain(t model.Transaction) string {
	in := categorize.InputOf(t)
	if t.Category != "" && t.Category != s.cat.Categorize(in) {
		return ExplainManual
	}
	return s.cat.Explain(in)
}

// ExplainManual is Explain's answer for a user-assigned category.
const ExplainManual = "manual"

// logger prefers a logger carried by ctx over the session's own.
func (s *Session) logger(ctx context.Context) zerolog.Logger {
	if l := logger.FromContext(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.log
}

func (s *Session) setState(st State) {
	s.log.Debug().Str("from", string(s.state)).Str("to", string(st)).Msg("state change")
	s.state = st
	if st != StateError {
		s.err = nil
	}
}

func (s *Session) fail(err error) {
	s.setState(StateError)
	s.err = err
}

func asRowError(line int, err error) *importer.RowError {
	var re *importer.RowError
	if errors.As(err, &re) {
		return re
	}
	return &importer.RowError{Line: line, Err: err}
}

// sortNewestFirst orders by date descending. Same-day rows keep file order.
func sortNewestFirst(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.After(txns[j].Date.Time)
	})
}
