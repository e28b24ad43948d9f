package summary

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/tally-dev/tally/internal/model"
)

// Mode selects whether a Filter narrows to one month.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeMonthly Mode = "monthly"
)

// Filter is the active view over the transaction collection.
type Filter struct {
	Mode  Mode
	Month string // YYYY-MM, used when Mode is ModeMonthly
}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether s is a YYYY-MM month.
func ValidMonth(s string) bool {
	return monthPattern.MatchString(s)
}

// Monthly returns a filter for month, which must be YYYY-MM.
func Monthly(month string) (Filter, error) {
	if !ValidMonth(month) {
		return Filter{}, fmt.Errorf("invalid month %q: want YYYY-MM", month)
	}
	return Filter{Mode: ModeMonthly, Month: month}, nil
}

// Apply returns the transactions visible under f. A monthly filter with no
// month selected shows everything.
func (f Filter) Apply(txns []model.Transaction) []model.Transaction {
	if f.Mode != ModeMonthly || f.Month == "" {
		return txns
	}
	return FilterByMonth(txns, f.Month)
}

// String describes the filter for display.
func (f Filter) String() string {
	if f.Mode == ModeMonthly && f.Month != "" {
		return f.Month
	}
	return "all time"
}

// FilterByMonth returns the transactions dated in month (YYYY-MM).
func FilterByMonth(txns []model.Transaction, month string) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if t.Date.YearMonth() == month {
			out = append(out, t)
		}
	}
	return out
}

// AvailableMonths lists the distinct months in txns, newest first.
func AvailableMonths(txns []model.Transaction) []string {
	seen := make(map[string]bool)
	var months []string
	for _, t := range txns {
		m := t.Date.YearMonth()
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// DefaultMonth picks the month to show first: the current month when it has
// data, otherwise the newest month, otherwise "".
func DefaultMonth(months []string, now time.Time) string {
	current := CurrentMonth(now)
	for _, m := range months {
		if m == current {
			return m
		}
	}
	if len(months) > 0 {
		return months[0]
	}
	return ""
}
