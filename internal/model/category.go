package model

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Category is one label from the closed category set.
type Category string

const (
	CategoryGroceries     Category = "groceries"
	CategoryDining        Category = "dining"
	CategoryCash          Category = "cash"
	CategoryIncome        Category = "income"
	CategoryTransfer      Category = "transfer"
	CategoryFees          Category = "fees"
	CategoryUtilities     Category = "utilities"
	CategoryShopping      Category = "shopping"
	CategoryPets          Category = "pets"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryMedical       Category = "medical"
	CategoryEducation     Category = "education"
	CategoryMisc          Category = "misc"
)

// Categories lists every valid category in display order. Misc is always last.
var Categories = []Category{
	CategoryGroceries,
	CategoryDining,
	CategoryCash,
	CategoryIncome,
	CategoryTransfer,
	CategoryFees,
	CategoryUtilities,
	CategoryShopping,
	CategoryPets,
	CategoryTransport,
	CategoryEntertainment,
	CategoryMedical,
	CategoryEducation,
	CategoryMisc,
}

// CategoryError reports a label outside the category set.
type CategoryError struct {
	Label      string
	Suggestion Category // closest valid category, empty if nothing is close
}

func (e *CategoryError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown category %q (did you mean %q?)", e.Label, e.Suggestion)
	}
	return fmt.Sprintf("unknown category %q", e.Label)
}

// Valid reports whether c is in the category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a user-supplied label into a Category.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseCategory(label string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(label)))
	if c.Valid() {
		return c, nil
	}
	return "", &CategoryError{Label: label, Suggestion: closestCategory(string(c))}
}

// closestCategory returns the category within edit distance 3 of s, if any.
func closestCategory(s string) Category {
	const maxDistance = 3
	if s == "" {
		return ""
	}
	var best Category
	bestDist := maxDistance + 1
	for _, c := range Categories {
		d := levenshtein.ComputeDistance(s, string(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
