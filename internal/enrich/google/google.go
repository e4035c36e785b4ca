// Package google implements the enrichment port against the Google
// Generative Language API (Gemini). The adapter is optional: callers must
// treat every error as "no enrichment available".
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kharcha/internal/core"
	"kharcha/internal/enrich"

	gl "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

// DefaultModel is the generative model used when none is configured.
const DefaultModel = "models/gemini-pro"

type Client struct {
	svc   *gl.Service
	model string
}

var _ enrich.Enricher = (*Client)(nil)

// New creates a Gemini-backed enricher using an API key.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing API key")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	svc, err := gl.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}

	return &Client{svc: svc, model: model}, nil
}

// Analyze asks the model for a sentiment and recommendation for one expense.
func (c *Client) Analyze(ctx context.Context, description string, amount core.Money, category string) (enrich.Advice, error) {
	prompt := buildPrompt(description, amount, category)

	req := &gl.GenerateContentRequest{
		Contents: []*gl.Content{{
			Parts: []*gl.Part{{Text: prompt}},
		}},
	}

	resp, err := c.svc.Models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		return enrich.Advice{}, fmt.Errorf("generate content: %w", err)
	}

	text := firstCandidateText(resp)
	if text == "" {
		return enrich.Advice{}, errors.New("empty model response")
	}

	advice, err := parseAdvice(text)
	if err != nil {
		slog.DebugContext(ctx, "unparseable enrichment response", "error", err, "model", c.model)
		return enrich.Advice{}, err
	}
	return advice, nil
}

func buildPrompt(description string, amount core.Money, category string) string {
	return fmt.Sprintf(`Analyze this expense:
Description: %s
Amount: %s
Category: %s

Provide:
1. A sentiment analysis (positive/neutral/negative)
2. A specific, actionable financial recommendation related to this expense
3. Make sure the recommendation is personalized to the expense type and amount

Format your response as:
Sentiment: [sentiment]
Recommendation: [recommendation]`, description, core.FormatINR(amount.Paise), category)
}

func firstCandidateText(resp *gl.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

// parseAdvice extracts the "Sentiment:" and "Recommendation:" lines; model
// output is free text so anything off-format is rejected rather than guessed.
func parseAdvice(text string) (enrich.Advice, error) {
	var advice enrich.Advice
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Sentiment:"):
			advice.Sentiment = normalizeSentiment(strings.TrimSpace(strings.TrimPrefix(line, "Sentiment:")))
		case strings.HasPrefix(line, "Recommendation:"):
			advice.Recommendation = strings.TrimSpace(strings.TrimPrefix(line, "Recommendation:"))
		}
	}
	if advice.Recommendation == "" {
		return enrich.Advice{}, errors.New("response missing recommendation")
	}
	if advice.Sentiment == "" {
		advice.Sentiment = enrich.SentimentNeutral
	}
	return advice, nil
}

func normalizeSentiment(s string) string {
	switch strings.ToLower(strings.Trim(s, "[]. ")) {
	case enrich.SentimentPositive:
		return enrich.SentimentPositive
	case enrich.SentimentNegative:
		return enrich.SentimentNegative
	case enrich.SentimentNeutral:
		return enrich.SentimentNeutral
	default:
		return ""
	}
}
