// Package services orchestrates expense operations across storage, AMQP and
// the insight engine.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/enrich"
	"kharcha/internal/insights"
	"kharcha/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RecentExpensesLimit caps the dashboard's recent list.
const RecentExpensesLimit = 5

// listAllLimit bounds unpaginated internal listings.
const listAllLimit = 10_000

// CreateInput carries the fields of a new expense before defaults are
// applied.
type CreateInput struct {
	Description   string
	AmountPaise   int64
	Category      string
	Subcategory   string
	PaymentMethod string
	Tags          []string
	Notes         string
	Date          time.Time
}

// Dashboard is the aggregated spending overview for one owner.
type Dashboard struct {
	TotalExpenses     core.Money
	MonthlyExpenses   core.Money
	MonthlyChange     float64
	CategoryBreakdown map[string]core.Money
	RecentExpenses    []core.Expense
	ExpenseCount      int
}

// ExpenseService orchestrates expense operations. The AMQP client and
// enricher may be nil; events and enrichment are then skipped.
type ExpenseService struct {
	storage       *storage.SQLiteRepository
	amqpClient    *amqp.Client
	enricher      enrich.Enricher
	engine        *insights.Engine
	enrichTimeout time.Duration
	now           func() time.Time
}

func NewExpenseService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, enricher enrich.Enricher, engine *insights.Engine, enrichTimeout time.Duration) *ExpenseService {
	return &ExpenseService{
		storage:       storage,
		amqpClient:    amqpClient,
		enricher:      enricher,
		engine:        engine,
		enrichTimeout: enrichTimeout,
		now:           time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *ExpenseService) WithClock(now func() time.Time) *ExpenseService {
	s.now = now
	return s
}

// CreateExpense validates, defaults and saves a new expense. The returned
// insight is the enrichment verdict for the new record; it is nil whenever
// enrichment is unavailable or fails.
func (s *ExpenseService) CreateExpense(ctx context.Context, ownerID string, in CreateInput) (core.Expense, *insights.Insight, error) {
	now := s.now().UTC()
	e := core.Expense{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Description:   in.Description,
		Amount:        core.Money{Paise: in.AmountPaise},
		Category:      in.Category,
		Subcategory:   in.Subcategory,
		PaymentMethod: in.PaymentMethod,
		Tags:          in.Tags,
		Notes:         in.Notes,
		Date:          in.Date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e.ApplyDefaults(now)

	if err := e.Validate(); err != nil {
		return core.Expense{}, nil, err
	}

	if err := s.storage.Insert(ctx, e); err != nil {
		return core.Expense{}, nil, fmt.Errorf("save expense: %w", err)
	}

	s.publishEvent(ctx, amqp.EventCreated, e)

	return e, s.enrichExpense(ctx, e), nil
}

// GetExpense returns one of the owner's expenses.
func (s *ExpenseService) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	return s.storage.GetByID(ctx, ownerID, id)
}

// ListExpenses returns one page of the owner's expenses plus the total count
// matching the filter.
func (s *ExpenseService) ListExpenses(ctx context.Context, ownerID string, f storage.Filter, page, limit int) ([]core.Expense, int, error) {
	expenses, err := s.storage.List(ctx, ownerID, f, page, limit)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.storage.Count(ctx, ownerID, f)
	if err != nil {
		return nil, 0, err
	}

	return expenses, total, nil
}

// UpdateExpense applies a partial update to the owner's expense and
// re-enriches the updated record best-effort.
func (s *ExpenseService) UpdateExpense(ctx context.Context, ownerID, id string, patch storage.UpdatePatch) (core.Expense, *insights.Insight, error) {
	e, err := s.storage.Update(ctx, ownerID, id, patch)
	if err != nil {
		return core.Expense{}, nil, err
	}

	s.publishEvent(ctx, amqp.EventUpdated, e)

	return e, s.enrichExpense(ctx, e), nil
}

// DeleteExpense removes the expense and returns it together with a spending
// report recomputed from what remains.
func (s *ExpenseService) DeleteExpense(ctx context.Context, ownerID, id string) (core.Expense, core.MonthlyReport, error) {
	deleted, err := s.storage.Delete(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, core.MonthlyReport{}, err
	}

	s.publishEvent(ctx, amqp.EventDeleted, deleted)

	report, err := s.MonthlyReport(ctx, ownerID, storage.Filter{})
	if err != nil {
		return core.Expense{}, core.MonthlyReport{}, fmt.Errorf("recompute monthly report: %w", err)
	}

	return deleted, report, nil
}

// Dashboard aggregates the owner's spending overview. The independent
// queries run in parallel.
func (s *ExpenseService) Dashboard(ctx context.Context, ownerID string) (Dashboard, error) {
	now := s.now().UTC()
	monthStart, monthEnd := core.MonthBounds(now)
	prevStart, prevEnd := core.PreviousMonthBounds(now)

	var d Dashboard
	var previous core.Money

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.TotalExpenses, err = s.storage.SumAll(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		d.MonthlyExpenses, err = s.storage.SumForRange(gctx, ownerID, monthStart, monthEnd)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.storage.SumForRange(gctx, ownerID, prevStart, prevEnd)
		return err
	})
	g.Go(func() error {
		var err error
		d.CategoryBreakdown, err = s.storage.SumByCategory(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		d.RecentExpenses, err = s.storage.Recent(gctx, ownerID, RecentExpensesLimit)
		return err
	})
	g.Go(func() error {
		var err error
		d.ExpenseCount, err = s.storage.CountAll(gctx, ownerID)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("build dashboard: %w", err)
	}

	d.MonthlyChange = core.MonthOverMonthChange(d.MonthlyExpenses, previous)

	return d, nil
}

// Insights runs the rule engine over the owner's history, optionally
// narrowed to a date window.
func (s *ExpenseService) Insights(ctx context.Context, ownerID string, f storage.Filter) ([]insights.Insight, error) {
	expenses, err := s.storage.List(ctx, ownerID, f, 1, listAllLimit)
	if err != nil {
		return nil, fmt.Errorf("load expenses for insights: %w", err)
	}

	return s.engine.Generate(ctx, expenses), nil
}

// MonthlyReport composes the spending report over the owner's full
// filter-matched history.
func (s *ExpenseService) MonthlyReport(ctx context.Context, ownerID string, f storage.Filter) (core.MonthlyReport, error) {
	expenses, err := s.storage.List(ctx, ownerID, f, 1, listAllLimit)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load expenses for report: %w", err)
	}

	return core.ComposeMonthlyReport(expenses), nil
}

func (s *ExpenseService) enrichExpense(ctx context.Context, e core.Expense) *insights.Insight {
	if s.enricher == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	advice, err := s.enricher.Analyze(ctx, e.Description, e.Amount, e.Category)
	if err != nil {
		slog.DebugContext(ctx, "Expense enrichment unavailable",
			"error", err,
			"expense_id", e.ID)
		return nil
	}

	return &insights.Insight{
		Type:        insights.TypeAI,
		Title:       "Spending Analysis",
		Description: advice.Recommendation,
		Sentiment:   advice.Sentiment,
	}
}

func (s *ExpenseService) publishEvent(ctx context.Context, event string, e core.Expense) {
	if s.amqpClient == nil {
		return
	}

	msg := amqp.NewExpenseEventMessage(event, e.ID, e.OwnerID, e.Date.Year(), int(e.Date.Month()))
	if err := s.amqpClient.PublishExpenseEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"event", event,
			"expense_id", e.ID,
			"error", err)
		// Don't fail the request, the expense is already persisted.
	}
}

// Close closes storage and the AMQP connection.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
