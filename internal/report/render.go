// Package report renders analyses for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/editlog"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/pipeline"
	"github.com/tally-dev/tally/internal/summary"
)

const (
	colorIncome  = lipgloss.Color("#28a745")
	colorExpense = lipgloss.Color("#dc3545")
	colorMuted   = lipgloss.Color("#6c757d")
	colorBrand   = lipgloss.Color("#0052CC")

	barWidth       = 30
	descWidth      = 42
	shortIDLength  = 8
	swatch         = "■"
	barGlyph       = "█"
	noTransactions = "No transactions."
)

// Renderer formats analyses. Color output follows the capabilities of the
// writer it was created for.
type Renderer struct {
	labels   string
	currency string
	lg       *lipgloss.Renderer

	title   lipgloss.Style
	muted   lipgloss.Style
	income  lipgloss.Style
	expense lipgloss.Style
	header  lipgloss.Style
	border  lipgloss.Style
}

// New returns a Renderer for output written to w.
func New(w io.Writer, labels, currency string) *Renderer {
	lg := lipgloss.NewRenderer(w)
	return &Renderer{
		labels:   labels,
		currency: currency,
		lg:       lg,
		title:    lg.NewStyle().Bold(true).Foreground(colorBrand),
		muted:    lg.NewStyle().Foreground(colorMuted),
		income:   lg.NewStyle().Foreground(colorIncome),
		expense:  lg.NewStyle().Foreground(colorExpense),
		header:   lg.NewStyle().Bold(true).Padding(0, 1),
		border:   lg.NewStyle().Foreground(colorMuted),
	}
}

// Summary renders totals, the income and expense breakdowns and the monthly trend.
func (r *Renderer) Summary(a pipeline.Analysis) string {
	var b strings.Builder

	b.WriteString(r.title.Render("Summary: " + a.Filter.String()))
	b.WriteString("\n")
	if a.Period.Days > 0 || len(a.Transactions) > 0 {
		b.WriteString(r.muted.Render(fmt.Sprintf("%s to %s (%d days, %d transactions)",
			a.Period.Start, a.Period.End, a.Period.Days, len(a.Transactions))))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(a.Transactions) == 0 {
		b.WriteString(r.muted.Render(noTransactions))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Income   %s\n", r.income.Render(r.Money(a.Totals.Income))))
	b.WriteString(fmt.Sprintf("Expenses %s\n", r.expense.Render(r.Money(a.Totals.Expense))))
	b.WriteString(fmt.Sprintf("Net      %s\n\n", r.signed(a.Totals.Net)))

	if len(a.Summaries.Expense) > 0 {
		b.WriteString(r.title.Render("Expenses by category"))
		b.WriteString("\n")
		b.WriteString(r.categoryTable(a.Summaries.Expense))
		b.WriteString("\n\n")
	}
	if chart := summary.ExpenseChart(a.Summaries.Overall); len(chart) > 0 {
		b.WriteString(r.title.Render("All categories (excluding income)"))
		b.WriteString("\n")
		b.WriteString(r.categoryTable(chart))
		b.WriteString("\n\n")
	}
	if len(a.Summaries.Income) > 0 {
		b.WriteString(r.title.Render("Income by category"))
		b.WriteString("\n")
		b.WriteString(r.categoryTable(a.Summaries.Income))
		b.WriteString("\n\n")
	}
	if len(a.Monthly) > 0 {
		b.WriteString(r.title.Render("Monthly expenses"))
		b.WriteString("\n")
		b.WriteString(r.trend(a.Monthly))
	}
	return b.String()
}

func (r *Renderer) categoryTable(list []summary.CategorySummary) string {
	total := summary.Total(list)
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		share := decimal.Zero
		if !total.IsZero() {
			share = c.Amount.Div(total).Mul(decimal.NewFromInt(100))
		}
		rows = append(rows, []string{
			r.lg.NewStyle().Foreground(lipgloss.Color(c.Color)).Render(swatch) + " " + Label(c.Category, r.labels),
			r.Money(c.Amount),
			fmt.Sprintf("%d", c.Count),
			r.Money(c.Average()),
			share.StringFixed(1) + "%",
		})
	}
	return r.table([]string{"Category", "Amount", "Count", "Average", "Share"}, rows, 1, 2, 3, 4)
}

func (r *Renderer) trend(buckets []summary.MonthBucket) string {
	maxAmt := decimal.Zero
	for _, m := range buckets {
		if m.Amount.GreaterThan(maxAmt) {
			maxAmt = m.Amount
		}
	}
	var b strings.Builder
	for _, m := range buckets {
		n := 0
		if !maxAmt.IsZero() {
			n = int(m.Amount.Div(maxAmt).Mul(decimal.NewFromInt(barWidth)).Ceil().IntPart())
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", m.Month, r.expense.Render(strings.Repeat(barGlyph, n)), r.Money(m.Amount)))
	}
	return b.String()
}

// Transactions renders a transaction list.
func (r *Renderer) Transactions(txns []model.Transaction) string {
	return r.TransactionsExplained(txns, nil)
}

// TransactionsExplained renders a transaction list with a Rule column filled
// by explain. A nil explain omits the column.
func (r *Renderer) TransactionsExplained(txns []model.Transaction, explain func(model.Transaction) string) string {
	if len(txns) == 0 {
		return r.muted.Render(noTransactions) + "\n"
	}
	headers := []string{"ID", "Date", "Description", "Amount", "Category"}
	if explain != nil {
		headers = append(headers, "Rule")
	}
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		row := []string{
			ShortID(t.ID),
			t.Date.String(),
			truncate(t.Description, descWidth),
			r.signed(t.Amount),
			Label(t.Category, r.labels),
		}
		if explain != nil {
			row = append(row, explain(t))
		}
		rows = append(rows, row)
	}
	return r.table(headers, rows, 3) + "\n"
}

// Months renders the available months, marking the selected one.
func (r *Renderer) Months(months []string, selected string) string {
	if len(months) == 0 {
		return r.muted.Render("No months with data.") + "\n"
	}
	var b strings.Builder
	for _, m := range months {
		if m == selected {
			b.WriteString(r.title.Render("* " + m))
		} else {
			b.WriteString("  " + m)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Edits renders the category edit history.
func (r *Renderer) Edits(entries []editlog.Entry) string {
	if len(entries) == 0 {
		return r.muted.Render("No category edits.") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			ShortID(e.TransactionID),
			truncate(e.Description, descWidth),
			Label(e.From, r.labels),
			Label(e.To, r.labels),
		})
	}
	return r.table([]string{"When", "ID", "Description", "From", "To"}, rows) + "\n"
}

func (r *Renderer) table(headers []string, rows [][]string, rightAligned ...int) string {
	right := make(map[int]bool, len(rightAligned))
	for _, c := range rightAligned {
		right[c] = true
	}
	cell := r.lg.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			if right[col] {
				return cell.Align(lipgloss.Right)
			}
			return cell
		})
	return t.Render()
}

// Money formats a magnitude with the configured currency, e.g. "RM 1,234.50".
func (r *Renderer) Money(d decimal.Decimal) string {
	return FormatMoney(r.currency, d)
}

func (r *Renderer) signed(d decimal.Decimal) string {
	s := r.Money(d)
	switch {
	case d.IsNegative():
		return r.expense.Render(s)
	case d.IsPositive():
		return r.income.Render(s)
	}
	return s
}

// FormatMoney renders d to two places with thousands separators and a
// currency prefix. Negative amounts lead with a minus sign.
func FormatMoney(currency string, d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(ch)
	}

	prefix := ""
	if currency != "" {
		prefix = currency + " "
	}
	return sign + prefix + grouped.String() + "." + frac
}

// ShortID abbreviates a transaction ID for display. Any unique prefix is
// accepted where an ID is expected.
func ShortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
