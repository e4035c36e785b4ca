package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"kharcha/internal/core"
	applog "kharcha/internal/log"
	"kharcha/internal/services"
	"kharcha/internal/storage"
)

// expenseRequest is the request body for create and update. Pointer fields
// distinguish "absent" from an explicit zero value so updates can be partial.
type expenseRequest struct {
	Description   *string      `json:"description"`
	Amount        *json.Number `json:"amount"`
	Category      *string      `json:"category"`
	Subcategory   *string      `json:"subcategory"`
	PaymentMethod *string      `json:"paymentMethod"`
	Tags          *[]string    `json:"tags"`
	Notes         *string      `json:"notes"`
	Date          *string      `json:"date"`
}

func decodeExpenseRequest(r *http.Request) (expenseRequest, error) {
	var req expenseRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return expenseRequest{}, err
	}
	return req, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := parseFilter(q)
	page, limit := parsePagination(q)

	expenses, total, err := s.service.ListExpenses(ctx, ownerID, filter, page, limit)
	if err != nil {
		s.serverError(w, r, err, applog.OpList, ownerID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(expenses),
		"total":   total,
		"page":    page,
		"data":    toExpenseListJSON(expenses),
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()

	req, err := decodeExpenseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var missing []string
	if req.Description == nil || strings.TrimSpace(*req.Description) == "" {
		missing = append(missing, "description")
	}
	if req.Amount == nil {
		missing = append(missing, "amount")
	}
	if req.Category == nil || strings.TrimSpace(*req.Category) == "" {
		missing = append(missing, "category")
	}
	if req.Date == nil || strings.TrimSpace(*req.Date) == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	paise, err := core.ParseDecimalToPaise(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Field 'amount' must be a positive number")
		return
	}

	date := parseDateBound(*req.Date)
	if date == nil {
		writeError(w, http.StatusBadRequest, "Field 'date' must be an ISO date")
		return
	}

	in := services.CreateInput{
		Description: strings.TrimSpace(*req.Description),
		AmountPaise: paise,
		Category:    strings.TrimSpace(*req.Category),
		Date:        *date,
	}
	if req.Subcategory != nil {
		in.Subcategory = strings.TrimSpace(*req.Subcategory)
	}
	if req.PaymentMethod != nil {
		in.PaymentMethod = strings.TrimSpace(*req.PaymentMethod)
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}
	if req.Notes != nil {
		in.Notes = strings.TrimSpace(*req.Notes)
	}

	expense, ai, err := s.service.CreateExpense(ctx, ownerID, in)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		s.serverError(w, r, err, applog.OpCreate, ownerID)
		return
	}

	s.dashboardCache.Delete(ownerID)

	logger := applog.FromContext(ctx)
	logger.InfoContext(ctx, "Expense created",
		applog.NewFields().
			WithExpense(expense.ID, expense.Amount.Paise, expense.Category).
			WithOwner(ownerID).
			WithOperation(applog.OpCreate).
			WithComponent(applog.ComponentExpense).
			ToSlice()...)

	resp := map[string]any{
		"success": true,
		"message": "Expense added successfully",
		"expense": toExpenseJSON(expense),
	}
	if ai != nil {
		resp["aiInsights"] = ai
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()
	id := r.PathValue("id")

	req, err := decodeExpenseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var patch storage.UpdatePatch
	touched := false

	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if desc == "" {
			writeError(w, http.StatusBadRequest, "Field 'description' cannot be empty")
			return
		}
		patch.Description = &desc
		touched = true
	}
	if req.Amount != nil {
		paise, err := core.ParseDecimalToPaise(req.Amount.String())
		if err != nil {
			writeError(w, http.StatusBadRequest, "Field 'amount' must be a positive number")
			return
		}
		patch.AmountPaise = &paise
		touched = true
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			writeError(w, http.StatusBadRequest, "Field 'category' cannot be empty")
			return
		}
		patch.Category = &category
		touched = true
	}
	// subcategory is set at creation only; a subcategory key in the
	// update body is ignored.
	if req.PaymentMethod != nil {
		pm := strings.TrimSpace(*req.PaymentMethod)
		if pm == "" {
			pm = core.DefaultPaymentMethod
		}
		patch.PaymentMethod = &pm
		touched = true
	}
	if req.Tags != nil {
		patch.Tags = req.Tags
		touched = true
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		patch.Notes = &notes
		touched = true
	}
	if req.Date != nil {
		date := parseDateBound(*req.Date)
		if date == nil {
			writeError(w, http.StatusBadRequest, "Field 'date' must be an ISO date")
			return
		}
		patch.Date = date
		touched = true
	}

	if !touched {
		writeError(w, http.StatusBadRequest, "No updatable fields provided")
		return
	}

	expense, ai, err := s.service.UpdateExpense(ctx, ownerID, id, patch)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Expense not found")
			return
		}
		s.serverError(w, r, err, applog.OpUpdate, ownerID)
		return
	}

	s.dashboardCache.Delete(ownerID)

	resp := map[string]any{
		"success": true,
		"message": "Expense updated successfully",
		"data":    toExpenseJSON(expense),
	}
	if ai != nil {
		resp["aiInsights"] = ai
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()
	id := r.PathValue("id")

	deleted, report, err := s.service.DeleteExpense(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Expense not found")
			return
		}
		s.serverError(w, r, err, applog.OpDelete, ownerID)
		return
	}

	s.dashboardCache.Delete(ownerID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "Expense deleted successfully",
		"deletedExpense": toExpenseJSON(deleted),
		"monthlyReport":  report,
	})
}

// validationMessage maps domain validation errors to user-facing messages.
func validationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		return "Field 'description' cannot be empty", true
	case errors.Is(err, core.ErrInvalidAmount):
		return "Field 'amount' must be a positive number", true
	case errors.Is(err, core.ErrEmptyCategory):
		return "Field 'category' cannot be empty", true
	case errors.Is(err, core.ErrEmptyPaymentMethod):
		return "Field 'paymentMethod' cannot be empty", true
	default:
		return "", false
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error, op, ownerID string) {
	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	fields := applog.NewFields().WithOwner(ownerID)
	fields[applog.FieldPath] = r.URL.Path
	sl.LogError(r.Context(), "Request failed", err, applog.ComponentExpense, op, fields)

	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"message": "Server error",
		"error":   err.Error(),
	})
}
