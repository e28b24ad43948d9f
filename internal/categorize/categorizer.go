package categorize

import (
	"fmt"

	"github.com/tally-dev/tally/internal/model"
)

// Options configures a Categorizer.
type Options struct {
	// SignFirst classifies every inflow as income before any keyword rule runs.
	SignFirst bool
	// UserRules run ahead of the built-in cascade (after the sign rule, if enabled).
	UserRules []Rule
}

// Categorizer assigns categories and icons using ordered, first-match-wins rule tables.
type Categorizer struct {
	rules []Rule
	icons []Rule
}

// New builds a Categorizer. User rules are validated; the built-in tables are not.
func New(opts Options) (*Categorizer, error) {
	var rules []Rule
	if opts.SignFirst {
		rules = append(rules, SignFirstRule)
	}
	for i, r := range opts.UserRules {
		r = r.normalized()
		if r.Name == "" {
			r.Name = fmt.Sprintf("user rule %d", i+1)
		}
		if err := r.validate(); err != nil {
			return nil, err
		}
		cat, err := model.ParseCategory(r.Label)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.Label = string(cat)
		rules = append(rules, r)
	}
	for _, r := range DefaultCategoryRules {
		rules = append(rules, r.normalized())
	}

	icons := make([]Rule, len(DefaultIconRules))
	for i, r := range DefaultIconRules {
		icons[i] = r.normalized()
	}
	return &Categorizer{rules: rules, icons: icons}, nil
}

// Default returns a Categorizer with only the built-in rules.
func Default() *Categorizer {
	c, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns the category cascade in evaluation order.
func (c *Categorizer) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Categorize returns the category of the first matching rule, or misc.
func (c *Categorizer) Categorize(in Input) model.Category {
	if r, ok := first(c.rules, lowerFields(in)); ok {
		return model.Category(r.Label)
	}
	return model.CategoryMisc
}

// Explain returns the name of the rule that decides in's category.
func (c *Categorizer) Explain(in Input) string {
	if r, ok := first(c.rules, lowerFields(in)); ok {
		return r.Name
	}
	return ""
}

// Icon returns the display icon key for in.
func (c *Categorizer) Icon(in Input) string {
	if r, ok := first(c.icons, lowerFields(in)); ok {
		return r.Label
	}
	return IconMisc
}

// Apply fills in the category and icon of every transaction that lacks one.
// Existing values, including user edits, are kept. Returns the number of
// transactions that received a category.
func (c *Categorizer) Apply(txns []model.Transaction) int {
	n := 0
	for i := range txns {
		t := &txns[i]
		in := InputOf(*t)
		if t.Category == "" {
			t.Category = c.Categorize(in)
			n++
		}
		if t.Icon == "" {
			t.Icon = c.Icon(in)
		}
	}
	return n
}

func first(rules []Rule, f fields) (Rule, bool) {
	for _, r := range rules {
		if r.matches(f) {
			return r, true
		}
	}
	return Rule{}, false
}
