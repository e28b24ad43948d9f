package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/categorize"
	"github.com/tally-dev/tally/internal/editlog"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/store"
	"github.com/tally-dev/tally/internal/summary"
)

var fixedNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

const header = "Date,Transaction Details,Money In,Money Out,Balance\n"

type recorder struct {
	entries []editlog.Entry
	err     error
}

func (r *recorder) Record(e editlog.Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func newSession(t *testing.T) (*Session, *store.Memory, *recorder, *bytes.Buffer) {
	t.Helper()
	st := store.NewMemory()
	rec := &recorder{}
	logs := &bytes.Buffer{}
	s := New(Options{
		Parser:      &importer.CIMBParser{},
		Categorizer: categorize.Default(),
		Store:       st,
		Edits:       rec,
		Logger:      logger.NewWithWriter(logs),
		Now:         func() time.Time { return fixedNow },
	})
	return s, st, rec, logs
}

func uploadFixture(t *testing.T, s *Session) UploadResult {
	t.Helper()
	f, err := os.Open("../../testdata/cimb_statement.csv")
	require.NoError(t, err)
	defer f.Close()

	res, err := s.Upload(context.Background(), "cimb_statement.csv", f)
	require.NoError(t, err)
	return res
}

func findByDescription(t *testing.T, txns []model.Transaction, desc string) model.Transaction {
	t.Helper()
	for _, tx := range txns {
		if tx.Description == desc {
			return tx
		}
	}
	t.Fatalf("no transaction %q", desc)
	return model.Transaction{}
}

func TestUpload_EndToEnd(t *testing.T) {
	s, st, _, _ := newSession(t)

	state, _ := s.State()
	assert.Equal(t, StateIdle, state)

	res := uploadFixture(t, s)
	assert.Equal(t, 9, res.Rows)
	assert.Equal(t, 9, res.Imported)
	assert.Zero(t, res.Skipped)

	state, err := s.State()
	assert.Equal(t, StateReady, state)
	assert.NoError(t, err)

	txns := s.Transactions()
	require.Len(t, txns, 9)
	for i := 1; i < len(txns); i++ {
		assert.False(t, txns[i].Date.After(txns[i-1].Date.Time), "sorted newest first")
	}

	grab := findByDescription(t, txns, "GRAB*FOOD|KL|REF1")
	assert.Equal(t, "2024-01-15", grab.Date.String())
	assert.Equal(t, "-25.50", grab.Amount.StringFixed(2))
	assert.Equal(t, "228.65", grab.Balance.StringFixed(2))
	assert.Equal(t, model.CategoryDining, grab.Category)
	assert.Equal(t, "GRAB*FOOD", grab.TransactionDetails.TransactionType)
	assert.Equal(t, "KL", grab.TransactionDetails.MerchantInfo)
	assert.Equal(t, "REF1", grab.TransactionDetails.ReferenceNumber)

	atm := findByDescription(t, txns, "ATM WITHDRAWAL|CIMB ATM KLCC|889120|FAMILYMART KLCC|KUALA LUMPUR|CARD")
	assert.Equal(t, model.CategoryCash, atm.Category)
	assert.Equal(t, categorize.IconCash, atm.Icon)

	stored, err := store.LoadTransactions(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, stored, 9)
	assert.True(t, stored[0].Equal(txns[0]))
}

func TestUpload_AnalysisDefaultsToCurrentMonth(t *testing.T) {
	s, _, _, _ := newSession(t)
	uploadFixture(t, s)

	a := s.Analysis()
	assert.Equal(t, summary.ModeMonthly, a.Filter.Mode)
	assert.Equal(t, "2024-01", a.Filter.Month)
	assert.Equal(t, []string{"2024-02", "2024-01"}, a.Months)
	assert.Len(t, a.Transactions, 7)
	assert.Equal(t, "0.35", a.Totals.Income.StringFixed(2))
	assert.Equal(t, "353.80", a.Totals.Expense.StringFixed(2))
	require.Len(t, a.Monthly, 2)
	assert.Equal(t, "2024-01", a.Monthly[0].Month)
	assert.Equal(t, "2024-01-05", a.Period.Start.String())
}

func TestUpload_SelectMonthAndShowAll(t *testing.T) {
	s, _, _, _ := newSession(t)
	uploadFixture(t, s)

	require.NoError(t, s.SelectMonth("2024-02"))
	a := s.Analysis()
	assert.Len(t, a.Transactions, 2)
	assert.Equal(t, "3500.00", a.Totals.Income.StringFixed(2))
	assert.Equal(t, "200.00", a.Totals.Expense.StringFixed(2))

	s.ShowAll()
	a = s.Analysis()
	assert.Equal(t, summary.ModeAll, a.Filter.Mode)
	assert.Len(t, a.Transactions, 9)
	assert.Equal(t, "3500.35", summary.Total(a.Summaries.Income).StringFixed(2))

	assert.Error(t, s.SelectMonth("February"))
	assert.Equal(t, summary.ModeAll, s.Analysis().Filter.Mode, "bad month leaves the filter alone")
}

func TestUpload_RejectsNonCSV(t *testing.T) {
	s, _, _, _ := newSession(t)
	uploadFixture(t, s)

	_, err := s.Upload(context.Background(), "statement.pdf", strings.NewReader("%PDF"))
	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "statement.pdf", fileErr.Name)

	state, stateErr := s.State()
	assert.Equal(t, StateError, state)
	assert.Equal(t, err, stateErr)
	assert.Len(t, s.Transactions(), 9, "earlier results untouched")
}

func TestUpload_AcceptsUpperCaseExtension(t *testing.T) {
	s, _, _, _ := newSession(t)
	res, err := s.Upload(context.Background(), "STATEMENT.CSV", strings.NewReader(header+"05-Jan-2024,X,1.00,,1.00\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
}

func TestUpload_BatchFailureKeepsPreviousResults(t *testing.T) {
	s, st, _, _ := newSession(t)
	uploadFixture(t, s)

	_, err := s.Upload(context.Background(), "bad.csv", strings.NewReader("Date,Money In\n01-Jan-2024,1\n"))
	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.ErrorIs(t, err, importer.ErrMissingColumn)

	state, _ := s.State()
	assert.Equal(t, StateError, state)
	assert.Len(t, s.Transactions(), 9)

	stored, err := store.LoadTransactions(context.Background(), st)
	require.NoError(t, err)
	assert.Len(t, stored, 9)
}

func TestUpload_ReadFailure(t *testing.T) {
	s, _, _, _ := newSession(t)
	_, err := s.Upload(context.Background(), "x.csv", io.MultiReader(strings.NewReader(header), errReader{}))
	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Contains(t, err.Error(), "reading file")
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestUpload_CanceledContext(t *testing.T) {
	s, _, _, _ := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Upload(ctx, "x.csv", strings.NewReader(header))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpload_SkipsBadRows(t *testing.T) {
	s, _, _, logs := newSession(t)
	csv := header +
		"05-Jan-2024,GOOD|ONE,10.00,,10.00\n" +
		"not-a-date,BAD DATE,1.00,,1.00\n" +
		"06-Jan-2024,BAD AMOUNT,abc,,1.00\n" +
		"07-Jan-2024,SHORT\n" +
		",,,,\n" +
		"08-Jan-2024,GOOD|TWO,,5.00,5.00\n"

	res, err := s.Upload(context.Background(), "mixed.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.RowErrors, 3)

	lines := []int{res.RowErrors[0].Line, res.RowErrors[1].Line, res.RowErrors[2].Line}
	assert.ElementsMatch(t, []int{3, 4, 5}, lines)
	assert.Contains(t, logs.String(), "skipping row")

	state, _ := s.State()
	assert.Equal(t, StateReady, state, "row failures never fail the batch")
}

func TestUpload_EmptyFile(t *testing.T) {
	s, _, _, _ := newSession(t)
	res, err := s.Upload(context.Background(), "empty.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, res.Imported)

	a := s.Analysis()
	assert.Empty(t, a.Transactions)
	assert.Empty(t, a.Filter.Month)
}

func TestUpload_ReplacesCollection(t *testing.T) {
	s, _, _, _ := newSession(t)
	uploadFixture(t, s)

	_, err := s.Upload(context.Background(), "next.csv", strings.NewReader(header+"01-Mar-2024,ATM WITHDRAWAL|X|R,,50.00,0\n"))
	require.NoError(t, err)
	txns := s.Transactions()
	require.Len(t, txns, 1)
	assert.Equal(t, "2024-03", s.Analysis().Filter.Month, "newest month when the current month has no data")
}

// gatedReader blocks its first Read until release is closed.
type gatedReader struct {
	started chan struct{}
	release chan struct{}
	r       io.Reader
	once    bool
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if !g.once {
		g.once = true
		close(g.started)
		<-g.release
	}
	return g.r.Read(p)
}

func TestUpload_SupersededReadIsDiscarded(t *testing.T) {
	s, _, _, _ := newSession(t)

	slow := &gatedReader{
		started: make(chan struct{}),
		release: make(chan struct{}),
		r:       strings.NewReader(header + "01-Jan-2024,SLOW|A,,1.00,0\n"),
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background(), "slow.csv", slow)
		done <- err
	}()
	<-slow.started

	state, _ := s.State()
	assert.Equal(t, StateReading, state)

	_, err := s.Upload(context.Background(), "fast.csv", strings.NewReader(header+"02-Jan-2024,FAST|B,,2.00,0\n"))
	require.NoError(t, err)

	close(slow.release)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	txns := s.Transactions()
	require.Len(t, txns, 1)
	assert.Equal(t, "FAST|B", txns[0].Description)
	state, _ = s.State()
	assert.Equal(t, StateReady, state)
}

func TestUpload_RejectedFileDoesNotDisplaceUploadInFlight(t *testing.T) {
	s, _, _, _ := newSession(t)

	slow := &gatedReader{
		started: make(chan struct{}),
		release: make(chan struct{}),
		r:       strings.NewReader(header + "01-Jan-2024,SLOW|A,,1.00,0\n"),
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background(), "slow.csv", slow)
		done <- err
	}()
	<-slow.started

	_, err := s.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	var fe *FileError
	require.ErrorAs(t, err, &fe)

	close(slow.release)
	require.NoError(t, <-done)

	txns := s.Transactions()
	require.Len(t, txns, 1)
	assert.Equal(t, "SLOW|A", txns[0].Description)
	state, err := s.State()
	assert.Equal(t, StateReady, state)
	assert.NoError(t, err)
}

func TestUpload_PrefersContextLogger(t *testing.T) {
	s, _, _, own := newSession(t)
	var scoped bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&scoped))

	f, err := os.Open("../../testdata/cimb_statement.csv")
	require.NoError(t, err)
	defer f.Close()
	_, err = s.Upload(ctx, "cimb_statement.csv", f)
	require.NoError(t, err)

	assert.Contains(t, scoped.String(), "statement imported")
	assert.NotContains(t, own.String(), "statement imported")
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newSession(t)
	uploadFixture(t, s)

	fm := findByDescription(t, s.Transactions(), "PURCHASE|FAMILYMART BANGSAR|REF3|FAMILYMART|BANGSAR|VISA")
	assert.Equal(t, "groceries", s.Explain(fm))

	grab := findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")
	_, err := s.Recategorize(ctx, grab.ID, "transport")
	require.NoError(t, err)
	grab = findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")
	assert.Equal(t, ExplainManual, s.Explain(grab))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s, st, _, _ := newSession(t)

	raw := []model.Transaction{
		{ID: "a", Date: model.NewDate(2024, time.January, 2), Description: "GRAB*FOOD|KL|R", TransactionDetails: importer.ParseDetails("GRAB*FOOD|KL|R")},
		{ID: "b", Date: model.NewDate(2024, time.January, 9), Description: "X", Category: model.CategoryPets},
	}
	require.NoError(t, store.SaveTransactions(ctx, st, raw))

	require.NoError(t, s.Load(ctx))
	txns := s.Transactions()
	require.Len(t, txns, 2)
	assert.Equal(t, "b", txns[0].ID)
	assert.Equal(t, model.CategoryPets, txns[0].Category)
	assert.Equal(t, model.CategoryDining, txns[1].Category)

	state, _ := s.State()
	assert.Equal(t, StateReady, state)
	assert.Equal(t, "2024-01", s.Analysis().Filter.Month)
}

func TestLoad_Empty(t *testing.T) {
	s, _, _, _ := newSession(t)
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.Transactions())
}

func TestRecategorize(t *testing.T) {
	ctx := context.Background()
	s, st, rec, _ := newSession(t)
	uploadFixture(t, s)

	grab := findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")
	before := s.Analysis()

	got, err := s.Recategorize(ctx, grab.ID, "Transport")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTransport, got.Category)

	after := s.Analysis()
	assert.Contains(t, categoriesOf(before.Summaries.Overall), model.CategoryDining)
	assert.NotContains(t, categoriesOf(after.Summaries.Overall), model.CategoryDining)
	assert.Contains(t, categoriesOf(after.Summaries.Expense), model.CategoryTransport)
	stored, err := store.LoadTransactions(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTransport, findByDescription(t, stored, grab.Description).Category)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, grab.ID, rec.entries[0].TransactionID)
	assert.Equal(t, model.CategoryDining, rec.entries[0].From)
	assert.Equal(t, model.CategoryTransport, rec.entries[0].To)
	assert.Equal(t, fixedNow, rec.entries[0].Timestamp)
}

func TestRecategorize_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	s, st, _, _ := newSession(t)
	uploadFixture(t, s)
	grab := findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")
	_, err := s.Recategorize(ctx, grab.ID, "misc")
	require.NoError(t, err)

	s2 := New(Options{Parser: &importer.CIMBParser{}, Categorizer: categorize.Default(), Store: st})
	require.NoError(t, s2.Load(ctx))
	assert.Equal(t, model.CategoryMisc, findByDescription(t, s2.Transactions(), grab.Description).Category)
}

func TestRecategorize_Prefix(t *testing.T) {
	s, _, _, _ := newSession(t)
	uploadFixture(t, s)
	grab := findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")

	got, err := s.Recategorize(context.Background(), grab.ID[:13], "entertainment")
	require.NoError(t, err)
	assert.Equal(t, grab.ID, got.ID)
}

func TestRecategorize_Errors(t *testing.T) {
	ctx := context.Background()
	s, _, rec, _ := newSession(t)
	uploadFixture(t, s)
	grab := findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")

	_, err := s.Recategorize(ctx, grab.ID, "dinning")
	var catErr *model.CategoryError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, model.CategoryDining, catErr.Suggestion)

	_, err = s.Recategorize(ctx, "no-such-id", "misc")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = s.Recategorize(ctx, "", "misc")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	assert.Empty(t, rec.entries)
	assert.Equal(t, model.CategoryDining, findByDescription(t, s.Transactions(), grab.Description).Category)
}

func TestRecategorize_Unchanged(t *testing.T) {
	s, _, rec, _ := newSession(t)
	uploadFixture(t, s)
	grab := findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")

	_, err := s.Recategorize(context.Background(), grab.ID, "dining")
	require.NoError(t, err)
	assert.Empty(t, rec.entries)
}

func TestRecategorize_EditLogFailureIsNotFatal(t *testing.T) {
	s, _, rec, logs := newSession(t)
	rec.err = errors.New("read-only")
	uploadFixture(t, s)
	grab := findByDescription(t, s.Transactions(), "GRAB*FOOD|KL|REF1")

	_, err := s.Recategorize(context.Background(), grab.ID, "misc")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "recording category edit")
}

func TestFind_Ambiguous(t *testing.T) {
	s, _, _, _ := newSession(t)
	s.txns = []model.Transaction{{ID: "abc-1"}, {ID: "abc-2"}}

	_, err := s.find("abc")
	assert.ErrorIs(t, err, ErrAmbiguousID)
	i, err := s.find("abc-2")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func categoriesOf(list []summary.CategorySummary) []model.Category {
	var out []model.Category
	for _, c := range list {
		out = append(out, c.Category)
	}
	return out
}
