// Package worker keeps per-owner monthly reports warm by consuming expense
// change events.
package worker

import (
	"context"
	"fmt"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	applog "kharcha/internal/log"
	"kharcha/internal/storage"
)

// ReportWarmer recomputes an owner's monthly report whenever one of their
// expenses changes and materializes it in the monthly_reports table, where
// any process sharing the database can read it.
type ReportWarmer struct {
	store  *storage.SQLiteRepository
	logger *applog.Logger
}

func NewReportWarmer(store *storage.SQLiteRepository, logger *applog.Logger) *ReportWarmer {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ReportWarmer{
		store:  store,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleExpenseEvent rebuilds the report for the event's owner and month.
func (w *ReportWarmer) HandleExpenseEvent(msg *amqp.ExpenseEventMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if msg.OwnerID == "" || msg.Month < 1 || msg.Month > 12 {
		return fmt.Errorf("malformed expense event: owner %q month %d", msg.OwnerID, msg.Month)
	}

	report, err := w.Rebuild(ctx, msg.OwnerID, msg.Year, msg.Month)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Monthly report warmed",
		applog.FieldEvent, msg.Event,
		applog.FieldOwnerID, msg.OwnerID,
		"year", msg.Year,
		"month", msg.Month,
		"top_categories", len(report.TopCategories))

	return nil
}

// Rebuild recomputes and persists the report for one owner-month.
func (w *ReportWarmer) Rebuild(ctx context.Context, ownerID string, year, month int) (core.MonthlyReport, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	expenses, err := w.store.List(ctx, ownerID, storage.Filter{From: &from, To: &to}, 1, 10_000)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load expenses for warm report: %w", err)
	}

	inMonth := expenses[:0:0]
	for _, e := range expenses {
		if e.Date.Before(to) {
			inMonth = append(inMonth, e)
		}
	}

	report := core.ComposeMonthlyReport(inMonth)

	if err := w.store.SaveMonthlyReport(ctx, ownerID, year, month, report); err != nil {
		return core.MonthlyReport{}, err
	}

	return report, nil
}
