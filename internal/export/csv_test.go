package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/summary"
)

func testTransaction() model.Transaction {
	return model.Transaction{
		ID:          "7b0c0ad4-6a8b-5d7b-9f39-3a4a3c8e3f10",
		Date:        model.NewDate(2024, time.January, 15),
		Description: "PURCHASE|UNIQLO, MID VALLEY|REF4|UNIQLO|KL|VISA",
		Amount:      decimal.RequireFromString("-99.90"),
		Balance:     decimal.RequireFromString("254.15"),
		Category:    model.CategoryShopping,
		Icon:        "shopping",
		TransactionDetails: model.TransactionDetail{
			TransactionType: "PURCHASE", MerchantInfo: "UNIQLO, MID VALLEY", ReferenceNumber: "REF4",
			MerchantName: "UNIQLO", Location: "KL", PaymentMethod: "VISA",
		},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	want := []model.Transaction{testTransaction()}
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, want))

	got, err := ReadTransactions(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, want[0].Equal(got[0]), "want %+v, got %+v", want[0], got[0])
}

func TestWriteTransactions_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, []model.Transaction{testTransaction()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, Header, lines[0])
	assert.Contains(t, lines[1], "2024-01-15")
	assert.Contains(t, lines[1], `"UNIQLO, MID VALLEY"`)
	assert.Contains(t, lines[1], "-99.90,254.15,shopping,shopping")
}

func TestWriteTransactions_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, nil))
	assert.Equal(t, Header+"\n", buf.String())

	got, err := ReadTransactions(&buf)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnmarshalTransaction_Errors(t *testing.T) {
	_, err := UnmarshalTransaction([]string{"a"})
	assert.Contains(t, err.Error(), "expected 13 fields")

	row := MarshalTransaction(testTransaction())
	row[colAmount] = "lots"
	_, err = UnmarshalTransaction(row)
	assert.Contains(t, err.Error(), "parsing amount")

	row = MarshalTransaction(testTransaction())
	row[colDate] = "15-Jan-2024"
	_, err = UnmarshalTransaction(row)
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	list := summary.Summarize([]model.Transaction{
		{Amount: decimal.RequireFromString("-10"), Category: model.CategoryDining},
		{Amount: decimal.RequireFromString("-5"), Category: model.CategoryDining},
		{Amount: decimal.RequireFromString("-3"), Category: model.CategoryFees},
	}).Expense

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, list))
	assert.Equal(t, SummaryHeader+"\ndining,15.00,2,7.50,#0052CC\nfees,3.00,1,3.00,#00A1DE\n", buf.String())
}
