package http

import (
	"net/http"

	applog "kharcha/internal/log"
	"kharcha/internal/services"
	"kharcha/internal/storage"
)

type dashboardJSON struct {
	TotalExpenses     float64            `json:"totalExpenses"`
	MonthlyExpenses   float64            `json:"monthlyExpenses"`
	MonthlyChange     float64            `json:"monthlyChange"`
	CategoryBreakdown map[string]float64 `json:"categoryBreakdown"`
	RecentExpenses    []expenseJSON      `json:"recentExpenses"`
	ExpenseCount      int                `json:"expenseCount"`
}

func toDashboardJSON(d services.Dashboard) dashboardJSON {
	breakdown := make(map[string]float64, len(d.CategoryBreakdown))
	for category, amount := range d.CategoryBreakdown {
		breakdown[category] = amount.Rupees()
	}

	return dashboardJSON{
		TotalExpenses:     d.TotalExpenses.Rupees(),
		MonthlyExpenses:   d.MonthlyExpenses.Rupees(),
		MonthlyChange:     d.MonthlyChange,
		CategoryBreakdown: breakdown,
		RecentExpenses:    toExpenseListJSON(d.RecentExpenses),
		ExpenseCount:      d.ExpenseCount,
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()

	if cached, ok := s.dashboardCache.Get(ownerID); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    cached,
		})
		return
	}

	d, err := s.service.Dashboard(ctx, ownerID)
	if err != nil {
		s.serverError(w, r, err, applog.OpRead, ownerID)
		return
	}

	payload := toDashboardJSON(d)
	s.dashboardCache.Set(ownerID, payload)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    payload,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := storage.Filter{
		From: parseDateBound(q.Get("startDate")),
		To:   parseDateBound(q.Get("endDate")),
	}

	got, err := s.service.Insights(ctx, ownerID, filter)
	if err != nil {
		s.serverError(w, r, err, applog.OpInsights, ownerID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(got),
		"data":    got,
	})
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()

	filter := parseFilter(r.URL.Query())
	// The report covers the owner's full history; stray date bounds from the
	// shared parser are discarded.
	filter.From, filter.To = nil, nil

	report, err := s.service.MonthlyReport(ctx, ownerID, filter)
	if err != nil {
		s.serverError(w, r, err, applog.OpReport, ownerID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}
