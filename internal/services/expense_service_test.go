package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/enrich"
	"kharcha/internal/insights"
	"kharcha/internal/storage"

	"github.com/stretchr/testify/require"
)

type stubEnricher struct {
	advice enrich.Advice
	err    error
	calls  int
}

func (s *stubEnricher) Analyze(_ context.Context, _ string, _ core.Money, _ string) (enrich.Advice, error) {
	s.calls++
	return s.advice, s.err
}

func newTestService(t *testing.T, enricher enrich.Enricher) *ExpenseService {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kharcha.db"))
	require.NoError(t, err)

	engine := insights.NewEngine(enricher, time.Second)
	svc := NewExpenseService(repo, nil, enricher, engine, time.Second)
	t.Cleanup(func() { svc.Close() })

	return svc
}

func TestCreateExpenseAppliesDefaultsAndEnriches(t *testing.T) {
	enricher := &stubEnricher{advice: enrich.Advice{
		Sentiment:      enrich.SentimentNeutral,
		Recommendation: "Consider a weekly food budget.",
	}}
	svc := newTestService(t, enricher)
	ctx := context.Background()

	e, ai, err := svc.CreateExpense(ctx, "user-1", CreateInput{
		Description: "Lunch thali",
		AmountPaise: 250_00,
		Category:    "Food",
		Date:        time.Date(2026, 6, 2, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.Equal(t, core.DefaultSubcategory, e.Subcategory)
	require.Equal(t, core.DefaultPaymentMethod, e.PaymentMethod)

	require.NotNil(t, ai)
	require.Equal(t, insights.TypeAI, ai.Type)
	require.Equal(t, "Consider a weekly food budget.", ai.Description)
	require.Equal(t, 1, enricher.calls)

	stored, err := svc.GetExpense(ctx, "user-1", e.ID)
	require.NoError(t, err)
	require.Equal(t, e.Description, stored.Description)
}

func TestCreateExpenseEnrichmentFailureIsSilent(t *testing.T) {
	svc := newTestService(t, &stubEnricher{err: errors.New("quota exhausted")})
	ctx := context.Background()

	e, ai, err := svc.CreateExpense(ctx, "user-1", CreateInput{
		Description: "Bus pass",
		AmountPaise: 80_00,
		Category:    "Transport",
		Date:        time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Nil(t, ai)
	require.NotEmpty(t, e.ID)
}

func TestCreateExpenseValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, _, err := svc.CreateExpense(ctx, "user-1", CreateInput{
		Description: "Free sample",
		AmountPaise: 0,
		Category:    "Food",
		Date:        time.Now().UTC(),
	})
	require.ErrorIs(t, err, core.ErrInvalidAmount)

	_, _, err = svc.CreateExpense(ctx, "user-1", CreateInput{
		AmountPaise: 100_00,
		Category:    "Food",
		Date:        time.Now().UTC(),
	})
	require.ErrorIs(t, err, core.ErrEmptyDescription)
}

func TestUpdateAndDeleteRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	e, _, err := svc.CreateExpense(ctx, "user-1", CreateInput{
		Description: "Headphones",
		AmountPaise: 3_500_00,
		Category:    "Shopping",
		Date:        time.Now().UTC(),
	})
	require.NoError(t, err)

	desc := "Wireless headphones"
	updated, _, err := svc.UpdateExpense(ctx, "user-1", e.ID, storage.UpdatePatch{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Wireless headphones", updated.Description)

	deleted, report, err := svc.DeleteExpense(ctx, "user-1", e.ID)
	require.NoError(t, err)
	require.Equal(t, e.ID, deleted.ID)
	require.NotEmpty(t, report.HealthAssessment)
	require.Len(t, report.Recommendations, 3)

	_, err = svc.GetExpense(ctx, "user-1", e.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDashboardAggregates(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	seed := func(paise int64, category string, date time.Time) {
		t.Helper()
		_, _, err := svc.CreateExpense(ctx, "user-1", CreateInput{
			Description: "seed " + category,
			AmountPaise: paise,
			Category:    category,
			Date:        date,
		})
		require.NoError(t, err)
	}

	seed(100_00, "Food", now.AddDate(0, 0, -1))
	seed(200_00, "Food", now.AddDate(0, 0, -2))
	seed(300_00, "Travel", now.AddDate(0, -1, 0))

	d, err := svc.Dashboard(ctx, "user-1")
	require.NoError(t, err)

	require.Equal(t, int64(600_00), d.TotalExpenses.Paise)
	require.Equal(t, int64(300_00), d.MonthlyExpenses.Paise)
	require.Equal(t, 0.0, d.MonthlyChange)
	require.Equal(t, int64(300_00), d.CategoryBreakdown["Food"].Paise)
	require.Equal(t, int64(300_00), d.CategoryBreakdown["Travel"].Paise)
	require.Len(t, d.RecentExpenses, 3)
	require.Equal(t, 3, d.ExpenseCount)
}

func TestMonthlyReportSpansFullHistory(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	_, _, err := svc.CreateExpense(ctx, "user-1", CreateInput{
		Description: "Rent",
		AmountPaise: 20_000_00,
		Category:    "Housing",
		Date:        now.AddDate(0, 0, -5),
	})
	require.NoError(t, err)

	_, _, err = svc.CreateExpense(ctx, "user-1", CreateInput{
		Description: "Old vacation",
		AmountPaise: 90_000_00,
		Category:    "Travel",
		Date:        now.AddDate(0, -2, 0),
	})
	require.NoError(t, err)

	report, err := svc.MonthlyReport(ctx, "user-1", storage.Filter{})
	require.NoError(t, err)
	require.Len(t, report.TopCategories, 2)
	require.Equal(t, "Travel", report.TopCategories[0].Name)
	require.Equal(t, "Housing", report.TopCategories[1].Name)

	narrowed, err := svc.MonthlyReport(ctx, "user-1", storage.Filter{Category: "Housing"})
	require.NoError(t, err)
	require.Len(t, narrowed.TopCategories, 1)
	require.Equal(t, "Housing", narrowed.TopCategories[0].Name)
}

func TestInsightsEndToEnd(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	got, err := svc.Insights(ctx, "user-1", storage.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "No Expenses Found", got[0].Title)

	_, _, err = svc.CreateExpense(ctx, "user-1", CreateInput{
		Description: "Groceries",
		AmountPaise: 500_00,
		Category:    "Food",
		Date:        time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err = svc.Insights(ctx, "user-1", storage.Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.LessOrEqual(t, len(got), 2)
}

func TestDashboardMonthlyChangePreviousMonth(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	seed := func(paise int64, date time.Time) {
		t.Helper()
		_, _, err := svc.CreateExpense(ctx, "user-1", CreateInput{
			Description: "seed",
			AmountPaise: paise,
			Category:    "Food",
			Date:        date,
		})
		require.NoError(t, err)
	}

	seed(100_00, now.AddDate(0, -1, 0)) // previous month
	seed(80_00, now)                    // current month

	d, err := svc.Dashboard(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, -20.0, d.MonthlyChange)
}
