// Package insights derives advisory messages from expense history via
// rule-based heuristics, optionally prepending one enrichment-backed insight.
package insights

import "strings"

// SpendClass is the tagged classification of a raw category string. Mapping
// free-form text to a closed set keeps keyword matching in one tested place,
// decoupled from tip selection.
type SpendClass int

const (
	ClassOther SpendClass = iota
	ClassShopping
	ClassFood
	ClassTransport
	ClassHealthcare
	ClassUtilities
	ClassEntertainment
)

func (c SpendClass) String() string {
	switch c {
	case ClassShopping:
		return "shopping"
	case ClassFood:
		return "food"
	case ClassTransport:
		return "transport"
	case ClassHealthcare:
		return "healthcare"
	case ClassUtilities:
		return "utilities"
	case ClassEntertainment:
		return "entertainment"
	default:
		return "other"
	}
}

var classKeywords = []struct {
	class    SpendClass
	keywords []string
}{
	{ClassShopping, []string{"shopping", "clothing", "footwear"}},
	{ClassFood, []string{"food", "grocery"}},
	{ClassTransport, []string{"transport", "fuel"}},
	{ClassHealthcare, []string{"health", "medical"}},
	{ClassUtilities, []string{"utilit", "bill"}},
	{ClassEntertainment, []string{"entertainment"}},
}

// Classify maps a raw category string to its spend class. Matching is
// case-insensitive substring search; unmatched text falls through to
// ClassOther.
func Classify(category string) SpendClass {
	lower := strings.ToLower(category)
	for _, entry := range classKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.class
			}
		}
	}
	return ClassOther
}

// ItemKind refines shopping descriptions for amount-tiered commentary.
type ItemKind int

const (
	ItemGeneric ItemKind = iota
	ItemFootwear
	ItemBag
	ItemClothing
)

var itemKeywords = []struct {
	kind     ItemKind
	keywords []string
}{
	{ItemFootwear, []string{"shoe", "sneaker", "footwear"}},
	{ItemBag, []string{"bag", "purse", "backpack"}},
	{ItemClothing, []string{"shirt", "pant", "cloth", "dress"}},
}

// ClassifyItem maps a free-form description to an item kind.
func ClassifyItem(description string) ItemKind {
	lower := strings.ToLower(description)
	for _, entry := range itemKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.kind
			}
		}
	}
	return ItemGeneric
}
