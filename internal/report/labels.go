package report

import (
	"strings"

	"github.com/tally-dev/tally/internal/model"
)

// Label sets.
const (
	LabelsEnglish  = "en"
	LabelsJapanese = "ja"
)

var englishLabels = map[model.Category]string{
	model.CategoryGroceries:     "Groceries",
	model.CategoryDining:        "Dining",
	model.CategoryCash:          "Cash",
	model.CategoryIncome:        "Income",
	model.CategoryTransfer:      "Transfer",
	model.CategoryFees:          "Fees",
	model.CategoryUtilities:     "Utilities",
	model.CategoryShopping:      "Shopping",
	model.CategoryPets:          "Pets",
	model.CategoryTransport:     "Transport",
	model.CategoryEntertainment: "Entertainment",
	model.CategoryMedical:       "Medical",
	model.CategoryEducation:     "Education",
	model.CategoryMisc:          "Misc",
}

var japaneseLabels = map[model.Category]string{
	model.CategoryGroceries:     "食料品",
	model.CategoryDining:        "食費",
	model.CategoryCash:          "現金",
	model.CategoryIncome:        "収入",
	model.CategoryTransfer:      "振込",
	model.CategoryFees:          "手数料",
	model.CategoryUtilities:     "光熱費",
	model.CategoryShopping:      "ショッピング",
	model.CategoryPets:          "ペット",
	model.CategoryTransport:     "交通費",
	model.CategoryEntertainment: "娯楽",
	model.CategoryMedical:       "医療費",
	model.CategoryEducation:     "教育",
	model.CategoryMisc:          "その他",
}

// Label returns the display label of c in the given label set. Unknown
// categories fall back to their key.
func Label(c model.Category, labels string) string {
	m := englishLabels
	if labels == LabelsJapanese {
		m = japaneseLabels
	}
	if l, ok := m[c]; ok {
		return l
	}
	if c == "" {
		return "-"
	}
	return string(c)
}

// CategoryFromLabel maps a display label in either language back to its
// category. It lets users type labels as they appear in reports.
func CategoryFromLabel(label string) (model.Category, bool) {
	label = strings.TrimSpace(label)
	for _, m := range []map[model.Category]string{englishLabels, japaneseLabels} {
		for c, l := range m {
			if strings.EqualFold(l, label) {
				return c, true
			}
		}
	}
	return "", false
}
