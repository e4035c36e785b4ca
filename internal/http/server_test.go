package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	applog "kharcha/internal/log"
	"kharcha/internal/insights"
	"kharcha/internal/services"
	"kharcha/internal/storage"

	"github.com/stretchr/testify/require"
)

const authHeader = "X-User-ID"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kharcha.db"))
	require.NoError(t, err)

	engine := insights.NewEngine(nil, time.Second)
	svc := services.NewExpenseService(repo, nil, nil, engine, time.Second)

	s := NewServer(":0", svc, HeaderAuthenticator{Header: authHeader}, applog.New(applog.DefaultConfig()))
	ts := httptest.NewServer(s.Handler)

	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(context.Background())
		svc.Close()
	})

	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, owner string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if owner != "" {
		req.Header.Set(authHeader, owner)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	return resp, decoded
}

func createExpense(t *testing.T, ts *httptest.Server, owner string, body map[string]any) map[string]any {
	t.Helper()

	resp, decoded := doJSON(t, ts, http.MethodPost, "/expenses", owner, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	expense, ok := decoded["expense"].(map[string]any)
	require.True(t, ok, "response missing expense: %v", decoded)
	return expense
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	ts := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/expenses"},
		{http.MethodPost, "/expenses"},
		{http.MethodGet, "/expenses/dashboard"},
		{http.MethodGet, "/expenses/insights"},
		{http.MethodGet, "/expenses/monthly-report"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			resp, decoded := doJSON(t, ts, route.method, route.path, "", map[string]any{})
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Equal(t, false, decoded["success"])
		})
	}
}

func TestCreateAndListRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	expense := createExpense(t, ts, "user-1", map[string]any{
		"description": "Grocery run",
		"amount":      450.75,
		"category":    "Food",
		"date":        "2026-06-02",
	})

	require.Equal(t, "General", expense["subcategory"])
	require.Equal(t, "Other", expense["paymentMethod"])
	require.Equal(t, 450.75, expense["amount"])
	require.NotEmpty(t, expense["id"])

	resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decoded["success"])
	require.Equal(t, float64(1), decoded["count"])
	require.Equal(t, float64(1), decoded["total"])
	require.Equal(t, float64(1), decoded["page"])

	data := decoded["data"].([]any)
	require.Len(t, data, 1)
	require.Equal(t, "Grocery run", data[0].(map[string]any)["description"])
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing fields named", func(t *testing.T) {
		resp, decoded := doJSON(t, ts, http.MethodPost, "/expenses", "user-1", map[string]any{
			"description": "Lunch",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		msg := decoded["message"].(string)
		require.Contains(t, msg, "amount")
		require.Contains(t, msg, "category")
		require.Contains(t, msg, "date")
	})

	t.Run("non positive amount", func(t *testing.T) {
		resp, decoded := doJSON(t, ts, http.MethodPost, "/expenses", "user-1", map[string]any{
			"description": "Lunch",
			"amount":      0,
			"category":    "Food",
			"date":        "2026-06-02",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, decoded["message"], "amount")
	})

	t.Run("malformed date", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPost, "/expenses", "user-1", map[string]any{
			"description": "Lunch",
			"amount":      100,
			"category":    "Food",
			"date":        "02/06/2026",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListFiltersIgnoreMalformedBounds(t *testing.T) {
	ts := newTestServer(t)

	createExpense(t, ts, "user-1", map[string]any{
		"description": "Shoes",
		"amount":      2500,
		"category":    "Shopping",
		"date":        "2026-06-02",
	})

	resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses?minAmount=abc&maxAmount=||&startDate=junk", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), decoded["count"])
}

func TestListZeroAmountBoundsAreExplicit(t *testing.T) {
	ts := newTestServer(t)

	createExpense(t, ts, "user-1", map[string]any{
		"description": "Shoes",
		"amount":      2500,
		"category":    "Shopping",
		"date":        "2026-06-02",
	})

	t.Run("minAmount=0 admits everything", func(t *testing.T) {
		resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses?minAmount=0", "user-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, float64(1), decoded["count"])
	})

	t.Run("maxAmount=0 matches nothing", func(t *testing.T) {
		resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses?maxAmount=0", "user-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, float64(0), decoded["count"])
		require.Equal(t, float64(0), decoded["total"])
	})
}

func TestUpdateExpense(t *testing.T) {
	ts := newTestServer(t)

	expense := createExpense(t, ts, "user-1", map[string]any{
		"description": "Headphones",
		"amount":      3500,
		"category":    "Shopping",
		"date":        "2026-06-02",
	})
	id := expense["id"].(string)

	t.Run("partial update", func(t *testing.T) {
		resp, decoded := doJSON(t, ts, http.MethodPut, "/expenses/"+id, "user-1", map[string]any{
			"description": "Wireless headphones",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := decoded["data"].(map[string]any)
		require.Equal(t, "Wireless headphones", data["description"])
		require.Equal(t, float64(3500), data["amount"])
	})

	t.Run("other owner gets 404", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPut, "/expenses/"+id, "user-2", map[string]any{
			"description": "tampered",
		})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("empty patch rejected", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPut, "/expenses/"+id, "user-1", map[string]any{})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("subcategory is not updatable", func(t *testing.T) {
		created := createExpense(t, ts, "user-1", map[string]any{
			"description": "Cold brew",
			"amount":      250,
			"category":    "Food",
			"subcategory": "Beverages",
			"date":        "2026-06-03",
		})
		cid := created["id"].(string)

		resp, decoded := doJSON(t, ts, http.MethodPut, "/expenses/"+cid, "user-1", map[string]any{
			"subcategory": "Snacks",
			"notes":       "weekly treat",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := decoded["data"].(map[string]any)
		require.Equal(t, "Beverages", data["subcategory"])
		require.Equal(t, "weekly treat", data["notes"])

		resp, _ = doJSON(t, ts, http.MethodPut, "/expenses/"+cid, "user-1", map[string]any{
			"subcategory": "Snacks",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteExpense(t *testing.T) {
	ts := newTestServer(t)

	expense := createExpense(t, ts, "user-1", map[string]any{
		"description": "Concert tickets",
		"amount":      1800,
		"category":    "Entertainment",
		"date":        time.Now().UTC().Format("2006-01-02"),
	})
	id := expense["id"].(string)

	t.Run("other owner cannot delete", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodDelete, "/expenses/"+id, "user-2", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses", "user-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, float64(1), decoded["count"])
	})

	t.Run("owner delete returns record and report", func(t *testing.T) {
		resp, decoded := doJSON(t, ts, http.MethodDelete, "/expenses/"+id, "user-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		deleted := decoded["deletedExpense"].(map[string]any)
		require.Equal(t, id, deleted["id"])

		report := decoded["monthlyReport"].(map[string]any)
		require.NotEmpty(t, report["healthAssessment"])
		require.Len(t, report["recommendations"], 3)
	})

	t.Run("second delete is 404", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodDelete, "/expenses/"+id, "user-1", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDashboardShapeAndInvalidation(t *testing.T) {
	ts := newTestServer(t)
	today := time.Now().UTC().Format("2006-01-02")

	createExpense(t, ts, "user-1", map[string]any{
		"description": "Groceries",
		"amount":      500,
		"category":    "Food",
		"date":        today,
	})

	resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses/dashboard", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decoded["data"].(map[string]any)
	require.Equal(t, float64(500), data["totalExpenses"])
	require.Equal(t, float64(500), data["monthlyExpenses"])
	require.Equal(t, float64(1), data["expenseCount"])
	require.Len(t, data["recentExpenses"], 1)
	require.Equal(t, float64(500), data["categoryBreakdown"].(map[string]any)["Food"])

	// A write must invalidate the cached dashboard.
	createExpense(t, ts, "user-1", map[string]any{
		"description": "Fuel",
		"amount":      300,
		"category":    "Transport",
		"date":        today,
	})

	_, decoded = doJSON(t, ts, http.MethodGet, "/expenses/dashboard", "user-1", nil)
	data = decoded["data"].(map[string]any)
	require.Equal(t, float64(800), data["totalExpenses"])
	require.Equal(t, float64(2), data["expenseCount"])
}

func TestInsightsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses/insights", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decoded["success"])
	require.Equal(t, float64(1), decoded["count"])

	today := time.Now().UTC().Format("2006-01-02")
	for i := 0; i < 5; i++ {
		createExpense(t, ts, "user-1", map[string]any{
			"description": fmt.Sprintf("spend %d", i),
			"amount":      100 + i,
			"category":    "Food",
			"date":        today,
		})
	}

	_, decoded = doJSON(t, ts, http.MethodGet, "/expenses/insights", "user-1", nil)
	data := decoded["data"].([]any)
	require.NotEmpty(t, data)
	require.LessOrEqual(t, len(data), 3)
}

func TestMonthlyReportEndpoint(t *testing.T) {
	ts := newTestServer(t)
	today := time.Now().UTC().Format("2006-01-02")

	createExpense(t, ts, "user-1", map[string]any{
		"description": "Rent",
		"amount":      20000,
		"category":    "Housing",
		"date":        today,
	})

	resp, decoded := doJSON(t, ts, http.MethodGet, "/expenses/monthly-report", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decoded["report"].(map[string]any)
	require.Contains(t, report["healthAssessment"], "₹20,000.00")
	require.Len(t, report["recommendations"], 5)

	top := report["topCategories"].([]any)
	require.Equal(t, "Housing", top[0].(map[string]any)["name"])
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
