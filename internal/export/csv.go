// Package export writes categorized transactions and summaries as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/summary"
)

// Header is the CSV header for exported transactions.
const Header = "id,date,description,transaction_type,merchant_info,reference_number,merchant_name,location,payment_method,amount,balance,category,icon"

const (
	numFields   = 13
	colID       = 0
	colDate     = 1
	colDesc     = 2
	colType     = 3
	colMerchInf = 4
	colRef      = 5
	colMerchant = 6
	colLocation = 7
	colPayment  = 8
	colAmount   = 9
	colBalance  = 10
	colCategory = 11
	colIcon     = 12
)

// SummaryHeader is the CSV header for exported category summaries.
const SummaryHeader = "category,amount,count,average,color"

// WriteTransactions writes txns (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTransactions reads a file written by WriteTransactions.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading export CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colDate] = t.Date.String()
	row[colDesc] = t.Description
	row[colType] = t.TransactionDetails.TransactionType
	row[colMerchInf] = t.TransactionDetails.MerchantInfo
	row[colRef] = t.TransactionDetails.ReferenceNumber
	row[colMerchant] = t.TransactionDetails.MerchantName
	row[colLocation] = t.TransactionDetails.Location
	row[colPayment] = t.TransactionDetails.PaymentMethod
	row[colAmount] = t.Amount.StringFixed(2)
	row[colBalance] = t.Balance.StringFixed(2)
	row[colCategory] = string(t.Category)
	row[colIcon] = t.Icon
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := model.ParseDate(record[colDate])
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	balance, err := decimal.NewFromString(record[colBalance])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
	}

	return model.Transaction{
		ID:          record[colID],
		Date:        date,
		Description: record[colDesc],
		Amount:      amount,
		Balance:     balance,
		Category:    model.Category(record[colCategory]),
		Icon:        record[colIcon],
		TransactionDetails: model.TransactionDetail{
			TransactionType: record[colType],
			MerchantInfo:    record[colMerchInf],
			ReferenceNumber: record[colRef],
			MerchantName:    record[colMerchant],
			Location:        record[colLocation],
			PaymentMethod:   record[colPayment],
		},
	}, nil
}

// WriteSummary writes a category summary (including header).
func WriteSummary(w io.Writer, list []summary.CategorySummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(SummaryHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, s := range list {
		row := []string{
			string(s.Category),
			s.Amount.StringFixed(2),
			strconv.Itoa(s.Count),
			s.Average().StringFixed(2),
			s.Color,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
