// Package enrich defines the port for the optional generative-text
// collaborator. Implementations analyze a single expense and return a
// sentiment plus a short recommendation; the insight engine treats every
// failure as "no enrichment" and never surfaces it.
package enrich

import (
	"context"

	"kharcha/internal/core"
)

// Sentiment labels used across adapters.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Advice is an enrichment result for one expense.
type Advice struct {
	Sentiment      string
	Recommendation string
}

// Enricher analyzes a description/amount/category triple.
type Enricher interface {
	Analyze(ctx context.Context, description string, amount core.Money, category string) (Advice, error)
}
