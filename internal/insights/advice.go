package insights

import (
	"context"
	"fmt"

	"kharcha/internal/core"
	"kharcha/internal/enrich"
)

// Insight types, ordered roughly by how actionable they are.
const (
	TypeAI         = "ai"
	TypeWarning    = "warning"
	TypeSaving     = "saving"
	TypeSuggestion = "suggestion"
	TypeInfo       = "info"
)

// Insight is an ephemeral advisory message; recomputed per request, never
// persisted. Lower priority numbers rank higher.
type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
}

// Amount tiers for the local advice tables, in paise. These are policy
// breakpoints, kept named so they stay tunable and independently testable.
const (
	footwearEconomicalPaise = 2_000_00
	footwearReasonablePaise = 5_000_00

	bagReasonablePaise  = 3_000_00
	bagSignificantPaise = 10_000_00

	foodReasonablePaise = 1_000_00
	foodModeratePaise   = 3_000_00
)

// coldStartTip returns the category tip for the focus record when the owner
// has very little history. Unmatched classes produce no tip.
func coldStartTip(class SpendClass, focus core.Expense) (Insight, bool) {
	switch class {
	case ClassShopping:
		return Insight{
			Type:  TypeSuggestion,
			Title: "Shopping Smart",
			Description: fmt.Sprintf("For purchases like %s, consider using the 24-hour rule: wait 24 hours before buying non-essential items to avoid impulse spending.",
				focus.Description),
			Priority: 1,
		}, true
	case ClassFood:
		return Insight{
			Type:        TypeSaving,
			Title:       "Food Budget Tips",
			Description: "Create a weekly meal plan before grocery shopping. This can reduce food waste and prevent impulse purchases.",
			Priority:    1,
		}, true
	case ClassTransport:
		return Insight{
			Type:        TypeSaving,
			Title:       "Transportation Savings",
			Description: "Consider using public transport or carpooling options when possible to reduce your transportation expenses.",
			Priority:    1,
		}, true
	case ClassHealthcare:
		return Insight{
			Type:        TypeSuggestion,
			Title:       "Healthcare Planning",
			Description: "Check whether insurance or preventative care can cover recurring healthcare costs before paying out of pocket.",
			Priority:    1,
		}, true
	case ClassUtilities:
		return Insight{
			Type:        TypeSuggestion,
			Title:       "Utility Savings",
			Description: "Review your utility providers annually and compare rates to ensure you are getting the best deal.",
			Priority:    1,
		}, true
	case ClassEntertainment:
		return Insight{
			Type:        TypeSuggestion,
			Title:       "Entertainment Budget",
			Description: "Look for free or low-cost entertainment options in your area, like community events, parks, or libraries.",
			Priority:    1,
		}, true
	default:
		return Insight{}, false
	}
}

// generalTips is the fixed pool appended to every statistical-branch result.
var generalTips = []Insight{
	{
		Type:        TypeSuggestion,
		Title:       "Budgeting Strategy",
		Description: "Try the 50/30/20 rule: 50% for needs, 30% for wants, and 20% for savings and debt repayment.",
		Priority:    3,
	},
	{
		Type:        TypeSuggestion,
		Title:       "Emergency Fund",
		Description: "Aim to save 3-6 months worth of living expenses in an emergency fund for financial security.",
		Priority:    3,
	},
	{
		Type:        TypeSuggestion,
		Title:       "Review Subscriptions",
		Description: "Regularly review and cancel unused subscriptions to save money.",
		Priority:    3,
	},
}

// LocalAdviser is the category-specific fallback table behind the
// enrich.Enricher port. It is pure, deterministic, and always succeeds, so it
// doubles as the enrichment substitute when no external adapter is
// configured.
type LocalAdviser struct{}

var _ enrich.Enricher = LocalAdviser{}

func (LocalAdviser) Analyze(_ context.Context, description string, amount core.Money, category string) (enrich.Advice, error) {
	return localAdvice(description, amount, Classify(category)), nil
}

func localAdvice(description string, amount core.Money, class SpendClass) enrich.Advice {
	rupees := core.FormatINR(amount.Paise)

	switch class {
	case ClassShopping:
		switch ClassifyItem(description) {
		case ItemFootwear:
			switch {
			case amount.Paise <= footwearEconomicalPaise:
				return enrich.Advice{
					Sentiment: enrich.SentimentPositive,
					Recommendation: fmt.Sprintf("Your %s purchase of %s is quite economical. Quality footwear at this price point can be a good value, but make sure they'll last long enough to justify the cost.",
						description, rupees),
				}
			case amount.Paise <= footwearReasonablePaise:
				return enrich.Advice{
					Sentiment: enrich.SentimentNeutral,
					Recommendation: fmt.Sprintf("Your %s purchase of %s is reasonable for quality footwear. Consider this an investment in your comfort and health, as good shoes can prevent foot problems.",
						description, rupees),
				}
			default:
				return enrich.Advice{
					Sentiment: enrich.SentimentNeutral,
					Recommendation: fmt.Sprintf("Your %s purchase of %s is in the premium range. For high-end footwear, consider the cost-per-wear - how frequently you'll use them and how long they'll last.",
						description, rupees),
				}
			}
		case ItemBag:
			switch {
			case amount.Paise <= bagReasonablePaise:
				return enrich.Advice{
					Sentiment: enrich.SentimentPositive,
					Recommendation: fmt.Sprintf("Your %s purchase of %s is reasonable. Practical bags can last for years, making this a good long-term investment.",
						description, rupees),
				}
			case amount.Paise <= bagSignificantPaise:
				return enrich.Advice{
					Sentiment: enrich.SentimentNeutral,
					Recommendation: fmt.Sprintf("Your %s purchase of %s is significant. For premium bags, consider if this fits within your discretionary spending budget and if the quality justifies the higher price.",
						description, rupees),
				}
			default:
				return enrich.Advice{
					Sentiment: enrich.SentimentNegative,
					Recommendation: fmt.Sprintf("Your %s purchase of %s is in the luxury category. While quality accessories can last for years, consider whether this expense aligns with your overall financial goals.",
						description, rupees),
				}
			}
		case ItemClothing:
			return enrich.Advice{
				Sentiment: enrich.SentimentNeutral,
				Recommendation: fmt.Sprintf("Your clothing purchase of %s for %s can be part of a thoughtful wardrobe strategy. Consider building a versatile collection with fewer, quality items rather than many cheaper ones.",
					rupees, description),
			}
		default:
			return enrich.Advice{
				Sentiment: enrich.SentimentNeutral,
				Recommendation: fmt.Sprintf("For your %s purchase, consider if this was a need or a want. Create a dedicated budget for shopping expenses to avoid impulse purchases.",
					description),
			}
		}

	case ClassFood:
		switch {
		case amount.Paise <= foodReasonablePaise:
			return enrich.Advice{
				Sentiment: enrich.SentimentPositive,
				Recommendation: fmt.Sprintf("Your %s expense of %s is reasonable. For regular food expenses, meal planning can help optimize your budget further while reducing waste.",
					description, rupees),
			}
		case amount.Paise <= foodModeratePaise:
			return enrich.Advice{
				Sentiment: enrich.SentimentNeutral,
				Recommendation: fmt.Sprintf("Your %s expense of %s is moderate. Consider buying staples in bulk and preparing more meals at home to manage your food budget effectively.",
					description, rupees),
			}
		default:
			return enrich.Advice{
				Sentiment: enrich.SentimentNegative,
				Recommendation: fmt.Sprintf("Your %s expense of %s is relatively high. Try buying in bulk, using discounts, or opting for seasonal items to save on food expenses without sacrificing nutrition.",
					description, rupees),
			}
		}

	case ClassHealthcare:
		return enrich.Advice{
			Sentiment: enrich.SentimentNeutral,
			Recommendation: fmt.Sprintf("Your healthcare expense of %s for %s is an important investment in your wellbeing. Consider if you're maximizing insurance benefits and preventative care to minimize long-term costs.",
				rupees, description),
		}

	case ClassUtilities:
		return enrich.Advice{
			Sentiment: enrich.SentimentNeutral,
			Recommendation: fmt.Sprintf("Your %s expense of %s is a necessity. To optimize utility costs, review your usage patterns and consider energy-efficient alternatives where possible.",
				description, rupees),
		}

	case ClassTransport:
		return enrich.Advice{
			Sentiment:      enrich.SentimentNeutral,
			Recommendation: "Consider using public transportation or carpooling to reduce transport expenses when possible.",
		}

	case ClassEntertainment:
		return enrich.Advice{
			Sentiment: enrich.SentimentNeutral,
			Recommendation: fmt.Sprintf("For entertainment expenses like %s, consider setting a monthly budget of 5-10%% of your income. Look for free or low-cost alternatives occasionally to balance enjoyment with savings.",
				description),
		}

	default:
		return enrich.Advice{
			Sentiment: enrich.SentimentNeutral,
			Recommendation: fmt.Sprintf("I've analyzed your %s expense of %s. For better financial insights, categorize your expenses consistently and review them monthly to identify patterns and savings opportunities.",
				description, rupees),
		}
	}
}
