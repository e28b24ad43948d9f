package categorize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/model"
)

// Field names the part of a transaction a Condition inspects.
type Field string

const (
	FieldType        Field = "type"        // TransactionDetail.TransactionType
	FieldMerchant    Field = "merchant"    // TransactionDetail.MerchantName
	FieldDescription Field = "description" // full description
	FieldSign        Field = "sign"        // amount sign, see Condition.Sign
)

// Sign values for FieldSign conditions.
const (
	SignPositive = "positive"
	SignNegative = "negative"
)

// Condition is one test of a rule. Text fields match when the lower-cased
// field contains any keyword. Sign conditions match on the amount's sign;
// zero is neither positive nor negative.
type Condition struct {
	Field    Field    `yaml:"field"`
	Contains []string `yaml:"contains,omitempty"`
	Sign     string   `yaml:"sign,omitempty"`
}

// Rule assigns Label when every condition in When holds. A rule with no
// conditions always matches.
type Rule struct {
	Name  string      `yaml:"name"`
	Label string      `yaml:"category"`
	When  []Condition `yaml:"when,omitempty"`
}

// Input is the view of a transaction the rules run against.
type Input struct {
	Description string
	Detail      model.TransactionDetail
	Amount      decimal.Decimal
}

// InputOf builds the rule input for a transaction.
func InputOf(t model.Transaction) Input {
	return Input{Description: t.Description, Detail: t.TransactionDetails, Amount: t.Amount}
}

// fields holds the lower-cased text fields of an Input.
type fields struct {
	typ, merchant, description string
	amount                     decimal.Decimal
}

func lowerFields(in Input) fields {
	return fields{
		typ:         strings.ToLower(in.Detail.TransactionType),
		merchant:    strings.ToLower(in.Detail.MerchantName),
		description: strings.ToLower(in.Description),
		amount:      in.Amount,
	}
}

func (c Condition) matches(f fields) bool {
	var s string
	switch c.Field {
	case FieldType:
		s = f.typ
	case FieldMerchant:
		s = f.merchant
	case FieldDescription:
		s = f.description
	case FieldSign:
		switch c.Sign {
		case SignPositive:
			return f.amount.IsPositive()
		case SignNegative:
			return f.amount.IsNegative()
		}
		return false
	default:
		return false
	}
	for _, kw := range c.Contains {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func (r Rule) matches(f fields) bool {
	for _, c := range r.When {
		if !c.matches(f) {
			return false
		}
	}
	return true
}

// normalized returns a copy of r with lower-cased, trimmed keywords.
func (r Rule) normalized() Rule {
	out := Rule{Name: r.Name, Label: strings.TrimSpace(r.Label), When: make([]Condition, len(r.When))}
	for i, c := range r.When {
		nc := Condition{Field: Field(strings.ToLower(string(c.Field))), Sign: strings.ToLower(c.Sign)}
		for _, kw := range c.Contains {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				nc.Contains = append(nc.Contains, kw)
			}
		}
		out.When[i] = nc
	}
	return out
}

// validate checks the structure of a rule. Label membership is checked by the caller.
func (r Rule) validate() error {
	if r.Label == "" {
		return fmt.Errorf("rule %q: missing category", r.Name)
	}
	for i, c := range r.When {
		switch c.Field {
		case FieldType, FieldMerchant, FieldDescription:
			if len(c.Contains) == 0 {
				return fmt.Errorf("rule %q: condition %d: no keywords", r.Name, i+1)
			}
		case FieldSign:
			if c.Sign != SignPositive && c.Sign != SignNegative {
				return fmt.Errorf("rule %q: condition %d: sign must be %q or %q, got %q", r.Name, i+1, SignPositive, SignNegative, c.Sign)
			}
		default:
			return fmt.Errorf("rule %q: condition %d: unknown field %q", r.Name, i+1, c.Field)
		}
	}
	return nil
}

func has(field Field, keywords ...string) Condition {
	return Condition{Field: field, Contains: keywords}
}

// SignFirstRule classifies any inflow as income ahead of the keyword rules.
var SignFirstRule = Rule{
	Name:  "inflow",
	Label: string(model.CategoryIncome),
	When:  []Condition{{Field: FieldSign, Sign: SignPositive}},
}

// DefaultCategoryRules is the built-in cascade. Type checks run before
// merchant checks, so a withdrawal at a grocer is still cash.
var DefaultCategoryRules = []Rule{
	{Name: "cash", Label: string(model.CategoryCash), When: []Condition{has(FieldType, "atm", "withdrawal")}},
	{Name: "income", Label: string(model.CategoryIncome), When: []Condition{has(FieldType, "credit interest", "ibg credit")}},
	{Name: "transfer", Label: string(model.CategoryTransfer), When: []Condition{has(FieldType, "duitnow to account", "i-funds")}},
	{Name: "fees", Label: string(model.CategoryFees), When: []Condition{has(FieldType, "debit card fee")}},
	{Name: "groceries", Label: string(model.CategoryGroceries), When: []Condition{has(FieldMerchant, "grocer", "7-eleven", "familymart")}},
	{Name: "dining", Label: string(model.CategoryDining), When: []Condition{
		has(FieldMerchant, "eats", "rasa viet", "maison", "tonkatsu", "tao bin", "pizzalab", "koppiku"),
	}},
	{Name: "pets", Label: string(model.CategoryPets), When: []Condition{has(FieldMerchant, "pnh malaysia", "pet")}},
	{Name: "phone bill", Label: string(model.CategoryUtilities), When: []Condition{
		has(FieldType, "i-payment"),
		has(FieldDescription, "hotlink"),
	}},
	{Name: "clothing", Label: string(model.CategoryShopping), When: []Condition{has(FieldMerchant, "uniqlo", "muji", "urban revivo")}},
	{Name: "food", Label: string(model.CategoryDining), When: []Condition{has(FieldDescription, "grab", "food", "restaurant")}},
	{Name: "transport", Label: string(model.CategoryTransport), When: []Condition{has(FieldDescription, "fuel", "petronas", "transport")}},
	{Name: "online shopping", Label: string(model.CategoryShopping), When: []Condition{has(FieldDescription, "shopee", "lazada", "shopping")}},
	{Name: "entertainment", Label: string(model.CategoryEntertainment), When: []Condition{has(FieldDescription, "starbucks", "coffee", "cinema")}},
	{Name: "fallback", Label: string(model.CategoryMisc)},
}

// Icon keys.
const (
	IconCash     = "cash"
	IconCoffee   = "coffee"
	IconTransfer = "transfer"
	IconIncome   = "income"
	IconFee      = "fee"
	IconPhone    = "phone"
	IconGrocery  = "grocery"
	IconFood     = "food"
	IconPet      = "pet"
	IconShopping = "shopping"
	IconMisc     = "misc"
)

// DefaultIconRules picks a display icon. It overlaps the category cascade but
// differs in places, e.g. DuitNow payments to coffee merchants get a coffee icon.
var DefaultIconRules = []Rule{
	{Name: "cash", Label: IconCash, When: []Condition{has(FieldType, "atm", "withdrawal")}},
	{Name: "coffee", Label: IconCoffee, When: []Condition{has(FieldType, "duitnow"), has(FieldMerchant, "koppiku", "coffee")}},
	{Name: "transfer", Label: IconTransfer, When: []Condition{has(FieldType, "duitnow to account", "i-funds tr")}},
	{Name: "income", Label: IconIncome, When: []Condition{has(FieldType, "credit interest", "ibg credit")}},
	{Name: "fee", Label: IconFee, When: []Condition{has(FieldType, "debit card fee")}},
	{Name: "phone", Label: IconPhone, When: []Condition{has(FieldType, "i-payment"), has(FieldDescription, "hotlink")}},
	{Name: "wise", Label: IconTransfer, When: []Condition{has(FieldType, "i-payment"), has(FieldDescription, "wise")}},
	{Name: "grocery", Label: IconGrocery, When: []Condition{has(FieldMerchant, "grocer", "7-eleven", "familymart")}},
	{Name: "food", Label: IconFood, When: []Condition{has(FieldMerchant, "eats", "rasa viet", "maison", "tonkatsu", "tao bin", "pizzalab")}},
	{Name: "pet", Label: IconPet, When: []Condition{has(FieldMerchant, "pnh malaysia", "pet")}},
	{Name: "shopping", Label: IconShopping, When: []Condition{has(FieldMerchant, "uniqlo", "muji", "urban revivo")}},
	{Name: "fallback", Label: IconMisc},
}
