package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/storage"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// expenseJSON is the wire shape of an expense. Amounts are rupee floats at
// this boundary only; the owner is implied by the authenticated identity and
// never serialized.
type expenseJSON struct {
	ID            string   `json:"id"`
	Description   string   `json:"description"`
	Amount        float64  `json:"amount"`
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory"`
	PaymentMethod string   `json:"paymentMethod"`
	Tags          []string `json:"tags,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Date          string   `json:"date"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:            e.ID,
		Description:   e.Description,
		Amount:        e.Amount.Rupees(),
		Category:      e.Category,
		Subcategory:   e.Subcategory,
		PaymentMethod: e.PaymentMethod,
		Tags:          e.Tags,
		Notes:         e.Notes,
		Date:          e.Date.UTC().Format(time.RFC3339),
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toExpenseListJSON(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseJSON(e)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// parseFilter reads the shared query filters. Malformed numeric or date
// values are ignored rather than rejected; an explicit zero bound is kept.
func parseFilter(q url.Values) storage.Filter {
	f := storage.Filter{
		Category:      strings.TrimSpace(q.Get("category")),
		Subcategory:   strings.TrimSpace(q.Get("subcategory")),
		PaymentMethod: strings.TrimSpace(q.Get("paymentMethod")),
	}

	f.MinPaise = parseAmountBound(q.Get("minAmount"))
	f.MaxPaise = parseAmountBound(q.Get("maxAmount"))
	f.From = parseDateBound(q.Get("startDate"))
	f.To = parseDateBound(q.Get("endDate"))

	return f
}

func parseAmountBound(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if paise, err := core.ParseDecimalToPaise(s); err == nil {
		return &paise
	}

	// Zero is a legitimate explicit bound even though expense amounts
	// themselves must be positive.
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil && f == 0 {
		zero := int64(0)
		return &zero
	}

	return nil
}

func parseDateBound(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}

	return nil
}

func parsePagination(q url.Values) (page, limit int) {
	page = 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}

	limit = defaultPageSize
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}

	return page, limit
}
