// Package summary aggregates transactions into per-category and per-month views.
package summary

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/model"
)

// Palette is the cyclic display palette for category summaries.
var Palette = []string{
	"#0052CC", "#00A1DE", "#FFC107", "#28a745", "#dc3545",
	"#6f42c1", "#fd7e14", "#6c757d", "#20c997",
}

// incomeColorOffset shifts the income summary's palette start.
const incomeColorOffset = 2

// CategorySummary totals one category. Amount is a sum of magnitudes.
type CategorySummary struct {
	Category model.Category  `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
	Color    string          `json:"color"`
}

// Average returns Amount / Count. Summaries always have Count >= 1.
func (s CategorySummary) Average() decimal.Decimal {
	if s.Count == 0 {
		return decimal.Zero
	}
	return s.Amount.Div(decimal.NewFromInt(int64(s.Count)))
}

// Summaries holds the three parallel category breakdowns.
type Summaries struct {
	Overall []CategorySummary `json:"overall"`
	Income  []CategorySummary `json:"income"`  // amount >= 0
	Expense []CategorySummary `json:"expense"` // amount < 0
}

// Summarize groups txns by category into overall, income and expense summaries,
// each sorted by amount descending.
func Summarize(txns []model.Transaction) Summaries {
	overall := newGroup()
	income := newGroup()
	expense := newGroup()
	for _, t := range txns {
		overall.add(t)
		if t.IsIncome() {
			income.add(t)
		} else {
			expense.add(t)
		}
	}
	return Summaries{
		Overall: overall.sorted(0),
		Income:  income.sorted(incomeColorOffset),
		Expense: expense.sorted(0),
	}
}

type group map[model.Category]*CategorySummary

func newGroup() group { return group{} }

func (g group) add(t model.Transaction) {
	s, ok := g[t.Category]
	if !ok {
		s = &CategorySummary{Category: t.Category, Amount: decimal.Zero}
		g[t.Category] = s
	}
	s.Amount = s.Amount.Add(t.Amount.Abs())
	s.Count++
}

// sorted orders by amount descending, then category name, and assigns colors
// by position.
func (g group) sorted(colorOffset int) []CategorySummary {
	out := make([]CategorySummary, 0, len(g))
	for _, s := range g {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	for i := range out {
		out[i].Color = Palette[(i+colorOffset)%len(Palette)]
	}
	return out
}

// Total sums the amounts of a summary.
func Total(s []CategorySummary) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range s {
		sum = sum.Add(c.Amount)
	}
	return sum
}

// ExpenseChart returns the overall summary without the income category.
func ExpenseChart(overall []CategorySummary) []CategorySummary {
	var out []CategorySummary
	for _, s := range overall {
		if s.Category != model.CategoryIncome {
			out = append(out, s)
		}
	}
	return out
}

// Totals are the headline figures over a transaction set.
type Totals struct {
	Income  decimal.Decimal `json:"income"`  // sum of amounts > 0
	Expense decimal.Decimal `json:"expense"` // sum of |amount| for amounts < 0
	Net     decimal.Decimal `json:"net"`
}

// ComputeTotals reduces txns to income, expense and net.
func ComputeTotals(txns []model.Transaction) Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txns {
		switch {
		case t.Amount.IsPositive():
			income = income.Add(t.Amount)
		case t.Amount.IsNegative():
			expense = expense.Add(t.Amount.Abs())
		}
	}
	return Totals{Income: income, Expense: expense, Net: income.Sub(expense)}
}

// Period is the date range covered by a transaction set.
type Period struct {
	Start model.Date
	End   model.Date
	Days  int
}

// PeriodOf returns the earliest and latest dates in txns and the number of
// days between them, rounded up. The zero Period is returned for no input.
func PeriodOf(txns []model.Transaction) Period {
	if len(txns) == 0 {
		return Period{}
	}
	start, end := txns[0].Date, txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Before(start.Time) {
			start = t.Date
		}
		if t.Date.After(end.Time) {
			end = t.Date
		}
	}
	days := int(math.Ceil(end.Sub(start.Time).Hours() / 24))
	return Period{Start: start, End: end, Days: days}
}

// MonthBucket is the expense total for one calendar month.
type MonthBucket struct {
	Month  string          `json:"month"` // YYYY-MM
	Amount decimal.Decimal `json:"amount"`
}

// MonthlyExpenses buckets expense magnitudes by month, oldest first.
func MonthlyExpenses(txns []model.Transaction) []MonthBucket {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if !t.Amount.IsNegative() {
			continue
		}
		m := t.Date.YearMonth()
		sums[m] = sums[m].Add(t.Amount.Abs())
	}

	out := make([]MonthBucket, 0, len(sums))
	for m, amt := range sums {
		out = append(out, MonthBucket{Month: m, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// CurrentMonth formats now as YYYY-MM.
func CurrentMonth(now time.Time) string {
	return now.Format("2006-01")
}
