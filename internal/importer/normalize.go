package importer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/model"
)

// RawRow is one statement row as read from the CSV, before any conversion.
type RawRow struct {
	Line        int // 1-based line in the source file
	Date        string
	Description string
	MoneyIn     string
	MoneyOut    string
	Balance     string
}

// RowError describes a row that could not be normalized.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// monthNumbers maps statement month abbreviations to two-digit months.
var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04",
	"May": "05", "Jun": "06", "Jul": "07", "Aug": "08",
	"Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// defaultMonth is used for any month abbreviation not in monthNumbers.
const defaultMonth = "01"

var (
	// currencyCode matches currency tokens such as "MYR", "RM" or "USD".
	currencyCode = regexp.MustCompile(`\b(?:RM|[A-Z]{3})\b`)
	// nonNumeric matches every character that cannot be part of a signed decimal.
	nonNumeric = regexp.MustCompile(`[^\d.\-]`)
)

// idNamespace scopes the name-based transaction IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("tally/transaction"))

// Normalize converts a raw row into a Transaction with typed date, amount and balance.
// Category and icon are left empty for the categorizer.
func Normalize(row RawRow) (model.Transaction, error) {
	date, err := NormalizeDate(row.Date)
	if err != nil {
		return model.Transaction{}, &RowError{Line: row.Line, Err: err}
	}

	amount, err := NormalizeAmount(row.MoneyIn, row.MoneyOut)
	if err != nil {
		return model.Transaction{}, &RowError{Line: row.Line, Err: err}
	}

	desc := strings.ReplaceAll(row.Description, `"`, "")

	return model.Transaction{
		ID:                 transactionID(row),
		Date:               date,
		Description:        desc,
		Amount:             amount,
		Balance:            NormalizeBalance(row.Balance),
		TransactionDetails: ParseDetails(desc),
	}, nil
}

// NormalizeDate converts "DD-Mon-YYYY" into a Date. An unrecognized month
// abbreviation becomes January; a result that is not a calendar date is an error.
func NormalizeDate(s string) (model.Date, error) {
	iso := isoDate(s)
	d, err := time.Parse(model.DateFormat, iso)
	if err != nil {
		return model.Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return model.Date{Time: d}, nil
}

// isoDate assembles YYYY-MM-DD from a "DD-Mon-YYYY" string without validating it.
func isoDate(s string) string {
	parts := strings.Split(strings.ReplaceAll(s, `"`, ""), "-")
	part := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	day, monthName, year := part(0), part(1), part(2)
	month, ok := monthNumbers[monthName]
	if !ok {
		month = defaultMonth
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return year + "-" + month + "-" + day
}

// NormalizeAmount returns the signed amount for a row: money in is positive,
// money out is negated, and a row with neither is zero. A cell holding only
// "-" is an empty placeholder. The column alone decides the sign: letters
// such as a trailing "CR" or "DR" are dropped with the other formatting, so
// "1,234.56 CR" under Money Out is -1234.56.
func NormalizeAmount(moneyIn, moneyOut string) (decimal.Decimal, error) {
	if !blankMoney(moneyIn) {
		v, err := parseMoney(moneyIn)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing money in %q: %w", moneyIn, err)
		}
		return v.Round(2), nil
	}
	if !blankMoney(moneyOut) {
		v, err := parseMoney(moneyOut)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing money out %q: %w", moneyOut, err)
		}
		return v.Neg().Round(2), nil
	}
	return decimal.Zero, nil
}

// blankMoney reports whether a money cell carries no value.
func blankMoney(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "-"
}

// NormalizeBalance parses a balance cell, defaulting to zero.
func NormalizeBalance(s string) decimal.Decimal {
	v, err := parseMoney(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// parseMoney strips currency codes and formatting from s and parses the remainder.
func parseMoney(s string) (decimal.Decimal, error) {
	cleaned := currencyCode.ReplaceAllString(s, "")
	cleaned = nonNumeric.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("no digits in %q", s)
	}
	return decimal.NewFromString(cleaned)
}

// transactionID derives a stable ID from the row's position and contents, so
// re-importing the same statement yields the same IDs.
func transactionID(row RawRow) string {
	name := fmt.Sprintf("%d|%s|%s|%s|%s|%s", row.Line, row.Date, row.Description, row.MoneyIn, row.MoneyOut, row.Balance)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
