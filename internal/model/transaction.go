package model

import (
	"github.com/shopspring/decimal"
)

// TransactionDetail is the structured form of a pipe-delimited description.
type TransactionDetail struct {
	TransactionType string `json:"transactionType"`
	MerchantInfo    string `json:"merchantInfo"`
	ReferenceNumber string `json:"referenceNumber"`
	MerchantName    string `json:"merchantName"`
	Location        string `json:"location"`
	PaymentMethod   string `json:"paymentMethod"`
}

// Transaction represents one parsed statement row.
type Transaction struct {
	ID                 string            `json:"id"`
	Date               Date              `json:"date"`
	Description        string            `json:"description"`
	Amount             decimal.Decimal   `json:"amount"` // negative = money out, positive = money in
	Balance            decimal.Decimal   `json:"balance"`
	Category           Category          `json:"category,omitempty"`
	Icon               string            `json:"icon,omitempty"`
	TransactionDetails TransactionDetail `json:"transactionDetails"`
}

// IsIncome reports whether the transaction counts toward the income summary.
// Zero amounts count as income there, matching the aggregation split.
func (t Transaction) IsIncome() bool {
	return !t.Amount.IsNegative()
}

// Equal compares transactions field by field, using decimal equality for money.
func (t Transaction) Equal(o Transaction) bool {
	return t.ID == o.ID &&
		t.Date.Equal(o.Date.Time) &&
		t.Description == o.Description &&
		t.Amount.Equal(o.Amount) &&
		t.Balance.Equal(o.Balance) &&
		t.Category == o.Category &&
		t.Icon == o.Icon &&
		t.TransactionDetails == o.TransactionDetails
}
