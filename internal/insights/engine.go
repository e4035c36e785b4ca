package insights

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/enrich"
)

// Rule thresholds. Amounts are paise, shares are percentages.
const (
	coldStartMaxRecords     = 3
	coldStartHighValuePaise = 3_000_00
	dominantSharePercent    = 30.0
	frequentTxnCount        = 20
	highMeanPaise           = 5_000_00
	minDistinctCategories   = 3
	maxInsights             = 3
)

// aiInsightTitle is the title used for the enrichment-backed insight and for
// deduplication against rule-based titles.
const aiInsightTitle = "Spending Analysis"

// Engine turns an owner's expense history into an ordered, size-bounded list
// of insights. The rule evaluation is pure; the optional enricher is the only
// external call and every one of its failures degrades silently to the
// rule-based result.
type Engine struct {
	enricher enrich.Enricher // nil disables enrichment
	timeout  time.Duration
	pickTip  func(n int) int
	now      func() time.Time
}

// NewEngine builds an insight engine. enricher may be nil. timeout bounds the
// enrichment call; it never delays the rule-based insights beyond itself.
func NewEngine(enricher enrich.Enricher, timeout time.Duration) *Engine {
	return &Engine{
		enricher: enricher,
		timeout:  timeout,
		pickTip:  rand.Intn,
		now:      time.Now,
	}
}

// WithTipPicker injects the pseudo-random source used to select the general
// tip, so selection is reproducible in tests and seedable deployments.
func (e *Engine) WithTipPicker(pick func(n int) int) *Engine {
	e.pickTip = pick
	return e
}

// SeededTipPicker returns a deterministic, concurrency-safe tip picker.
func SeededTipPicker(seed int64) func(n int) int {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return rng.Intn(n)
	}
}

// Generate produces insights for the record set, which must be scoped to one
// owner and sorted date-descending (the first record is the focus record).
func (e *Engine) Generate(ctx context.Context, expenses []core.Expense) []Insight {
	ruleBased := e.evaluateRules(expenses, e.now().UTC())
	if len(expenses) == 0 || e.enricher == nil {
		return ruleBased
	}

	focus := expenses[0]
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	advice, err := e.enricher.Analyze(cctx, focus.Description, focus.Amount, focus.Category)
	if err != nil || advice.Recommendation == "" {
		// Enrichment is best-effort only; never surface its failure.
		slog.DebugContext(ctx, "enrichment unavailable, using rule-based insights",
			"error", err, "category", focus.Category)
		return ruleBased
	}

	sentiment := advice.Sentiment
	if sentiment == "" {
		sentiment = enrich.SentimentNeutral
	}
	out := []Insight{{
		Type:        TypeAI,
		Title:       aiInsightTitle,
		Description: advice.Recommendation,
		Sentiment:   sentiment,
	}}
	for _, in := range ruleBased {
		if in.Title != aiInsightTitle {
			out = append(out, in)
		}
	}
	return out
}

// evaluateRules is the pure rule pipeline: empty-set, cold-start and
// statistical branches.
func (e *Engine) evaluateRules(expenses []core.Expense, now time.Time) []Insight {
	if len(expenses) == 0 {
		return []Insight{{
			Type:        TypeInfo,
			Title:       "No Expenses Found",
			Description: "Start adding expenses to get personalized financial insights.",
		}}
	}
	if len(expenses) <= coldStartMaxRecords {
		return e.coldStart(expenses[0])
	}
	return e.statistical(expenses, now)
}

// coldStart yields at most two insights derived from the focus record alone.
func (e *Engine) coldStart(focus core.Expense) []Insight {
	var out []Insight
	if tip, ok := coldStartTip(Classify(focus.Category), focus); ok {
		out = append(out, tip)
	}
	if focus.Amount.Paise > coldStartHighValuePaise {
		out = append(out, Insight{
			Type:  TypeWarning,
			Title: "High-Value Purchase",
			Description: fmt.Sprintf("For expenses like your %s %s, consider researching alternatives and comparing prices before making large purchases.",
				core.FormatINR(focus.Amount.Paise), focus.Description),
			Priority: 2,
		})
	}
	if len(out) == 0 {
		out = append(out, Insight{
			Type:        TypeInfo,
			Title:       "Getting Started",
			Description: "Add more expenses to receive personalized spending insights and recommendations.",
			Priority:    1,
		})
	}
	return out
}

func (e *Engine) statistical(expenses []core.Expense, now time.Time) []Insight {
	var out []Insight

	total := core.Total(expenses).Paise
	totals := make(map[string]int64)
	var order []string
	for _, exp := range expenses {
		if _, seen := totals[exp.Category]; !seen {
			order = append(order, exp.Category)
		}
		totals[exp.Category] += exp.Amount.Paise
	}

	// Dominant-category warnings, one per qualifying category.
	for _, category := range order {
		share := float64(totals[category]) / float64(total) * 100
		if share > dominantSharePercent {
			out = append(out, Insight{
				Type:  TypeWarning,
				Title: fmt.Sprintf("High %s Spending", category),
				Description: fmt.Sprintf("Your %s expenses account for %.1f%% of your total spending. Consider setting a budget for this category.",
					category, share),
				Priority: 1,
			})
		}
	}

	// Transaction frequency over the recency window.
	recent, _ := core.PartitionByRecency(expenses, now, core.RecencyWindowDays)
	switch {
	case len(recent) > frequentTxnCount:
		out = append(out, Insight{
			Type:  TypeInfo,
			Title: "Frequent Transactions",
			Description: fmt.Sprintf("You've made %d transactions in the last 30 days. Reviewing recurring expenses might help identify savings opportunities.",
				len(recent)),
			Priority: 2,
		})
	case len(recent) > 0:
		out = append(out, Insight{
			Type:  TypeInfo,
			Title: "Transaction Summary",
			Description: fmt.Sprintf("You've recorded %d expense(s) in the last 30 days. Regular tracking helps build better spending habits.",
				len(recent)),
			Priority: 3,
		})
	}

	// High mean transaction value.
	if mean := core.MeanAmount(expenses); mean > highMeanPaise {
		out = append(out, Insight{
			Type:  TypeSaving,
			Title: "High-Value Transactions",
			Description: fmt.Sprintf("Your average transaction amount is ₹%.2f. Consider if all these expenses are necessary.",
				mean/100),
			Priority: 2,
		})
	}

	// Category diversity.
	if len(order) < minDistinctCategories {
		out = append(out, Insight{
			Type:  TypeSuggestion,
			Title: "Diversify Your Spending",
			Description: fmt.Sprintf("Your expenses are concentrated in only %d categories. Consider tracking more categories for better insights.",
				len(order)),
			Priority: 3,
		})
	}

	// Exactly one general tip: deterministic when it is the only content,
	// picked from the pool otherwise.
	if len(out) == 0 {
		out = append(out, generalTips[0])
	} else {
		out = append(out, generalTips[e.pickTip(len(generalTips))])
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	if len(out) > maxInsights {
		out = out[:maxInsights]
	}
	return out
}
