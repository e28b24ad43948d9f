package importer

import (
	"strings"

	"github.com/tally-dev/tally/internal/model"
)

// DetailSeparator splits the sub-fields of a "Transaction Details" cell.
const DetailSeparator = "|"

// ParseDetails splits a composite description into its six positional fields.
// Segments beyond the sixth are ignored and missing ones are left empty.
func ParseDetails(description string) model.TransactionDetail {
	segments := strings.Split(description, DetailSeparator)
	segment := func(i int) string {
		if i < len(segments) {
			return strings.TrimSpace(segments[i])
		}
		return ""
	}

	return model.TransactionDetail{
		TransactionType: segment(0),
		MerchantInfo:    segment(1),
		ReferenceNumber: segment(2),
		MerchantName:    segment(3),
		Location:        segment(4),
		PaymentMethod:   segment(5),
	}
}
