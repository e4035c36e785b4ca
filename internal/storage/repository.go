// Package storage persists expenses in SQLite. Every query is scoped by
// owner_id so one user can never read or mutate another user's records.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kharcha/internal/core"

	_ "modernc.org/sqlite"
)

// Filter narrows a listing. Pointer bounds distinguish "absent" from an
// explicit zero bound.
type Filter struct {
	Category      string
	Subcategory   string
	PaymentMethod string
	MinPaise      *int64
	MaxPaise      *int64
	From          *time.Time
	To            *time.Time
}

// UpdatePatch carries the fields of a partial update. Nil fields are left
// untouched. Subcategory is fixed at creation and not patchable.
type UpdatePatch struct {
	Description   *string
	AmountPaise   *int64
	Category      *string
	PaymentMethod *string
	Tags          *[]string
	Notes         *string
	Date          *time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = `id, owner_id, description, amount_paise, category, subcategory, payment_method, tags, notes, date, created_at, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) error {
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Description, e.Amount.Paise, e.Category, e.Subcategory,
		e.PaymentMethod, tags, e.Notes, encodeTime(e.Date), encodeTime(e.CreatedAt), encodeTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"owner_id", e.OwnerID,
		"amount_paise", e.Amount.Paise,
		"category", e.Category)

	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, ownerID, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = ? AND id = ?`, ownerID, id)

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// List returns one page of the owner's expenses, newest first. Page numbers
// start at 1.
func (r *SQLiteRepository) List(ctx context.Context, ownerID string, f Filter, page, limit int) ([]core.Expense, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	where, args := buildFilter(ownerID, f)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where +
		` ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// Count returns how many of the owner's expenses match the filter.
func (r *SQLiteRepository) Count(ctx context.Context, ownerID string, f Filter) (int, error) {
	where, args := buildFilter(ownerID, f)

	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// ListAll returns every expense of the owner, newest first.
func (r *SQLiteRepository) ListAll(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = ? ORDER BY date DESC, created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// Update applies the patch and returns the updated record. A missing or
// foreign record yields core.ErrNotFound.
func (r *SQLiteRepository) Update(ctx context.Context, ownerID, id string, p UpdatePatch) (core.Expense, error) {
	sets := []string{"updated_at = ?"}
	args := []any{encodeTime(time.Now().UTC())}

	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.AmountPaise != nil {
		sets = append(sets, "amount_paise = ?")
		args = append(args, *p.AmountPaise)
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *p.Category)
	}
	if p.PaymentMethod != nil {
		sets = append(sets, "payment_method = ?")
		args = append(args, *p.PaymentMethod)
	}
	if p.Tags != nil {
		tags, err := encodeTags(*p.Tags)
		if err != nil {
			return core.Expense{}, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if p.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *p.Notes)
	}
	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, encodeTime(*p.Date))
	}

	args = append(args, ownerID, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET `+strings.Join(sets, ", ")+` WHERE owner_id = ? AND id = ?`, args...)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense rows affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, core.ErrNotFound
	}

	return r.GetByID(ctx, ownerID, id)
}

// Delete removes the record and returns what was deleted so callers can echo
// it back.
func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) (core.Expense, error) {
	e, err := r.GetByID(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted",
		"expense_id", id,
		"owner_id", ownerID)

	return e, nil
}

// SumAll returns the owner's lifetime spend.
func (r *SQLiteRepository) SumAll(ctx context.Context, ownerID string) (core.Money, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_paise), 0) FROM expenses WHERE owner_id = ?`, ownerID).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Paise: total}, nil
}

// SumForRange sums expenses with from <= date < to. RFC3339 UTC text compares
// lexicographically, so the range is a plain string comparison in SQL.
func (r *SQLiteRepository) SumForRange(ctx context.Context, ownerID string, from, to time.Time) (core.Money, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_paise), 0) FROM expenses WHERE owner_id = ? AND date >= ? AND date < ?`,
		ownerID, encodeTime(from), encodeTime(to)).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses for range: %w", err)
	}
	return core.Money{Paise: total}, nil
}

// SumByCategory returns per-category totals for the owner, largest first.
func (r *SQLiteRepository) SumByCategory(ctx context.Context, ownerID string) (map[string]core.Money, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_paise) FROM expenses WHERE owner_id = ? GROUP BY category ORDER BY SUM(amount_paise) DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]core.Money)
	for rows.Next() {
		var category string
		var sum int64
		if err := rows.Scan(&category, &sum); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		totals[category] = core.Money{Paise: sum}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category sums: %w", err)
	}
	return totals, nil
}

// Recent returns the owner's n most recent expenses.
func (r *SQLiteRepository) Recent(ctx context.Context, ownerID string, n int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = ? ORDER BY date DESC, created_at DESC LIMIT ?`,
		ownerID, n)
	if err != nil {
		return nil, fmt.Errorf("list recent expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// CountAll returns how many expenses the owner has recorded.
func (r *SQLiteRepository) CountAll(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count all expenses: %w", err)
	}
	return n, nil
}

func buildFilter(ownerID string, f Filter) (string, []any) {
	clauses := []string{"owner_id = ?"}
	args := []any{ownerID}

	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Subcategory != "" {
		clauses = append(clauses, "subcategory = ?")
		args = append(args, f.Subcategory)
	}
	if f.PaymentMethod != "" {
		clauses = append(clauses, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}
	if f.MinPaise != nil {
		clauses = append(clauses, "amount_paise >= ?")
		args = append(args, *f.MinPaise)
	}
	if f.MaxPaise != nil {
		clauses = append(clauses, "amount_paise <= ?")
		args = append(args, *f.MaxPaise)
	}
	if f.From != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, encodeTime(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, encodeTime(*f.To))
	}

	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var tags, date, createdAt, updatedAt string

	err := row.Scan(&e.ID, &e.OwnerID, &e.Description, &e.Amount.Paise, &e.Category,
		&e.Subcategory, &e.PaymentMethod, &tags, &e.Notes, &date, &createdAt, &updatedAt)
	if err != nil {
		return core.Expense{}, err
	}

	if e.Tags, err = decodeTags(tags); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = decodeTime(date); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.Expense{}, err
	}
	if e.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return core.Expense{}, err
	}

	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// SaveMonthlyReport upserts the materialized report for one owner-month.
func (r *SQLiteRepository) SaveMonthlyReport(ctx context.Context, ownerID string, year, month int, report core.MonthlyReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode monthly report: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO monthly_reports (owner_id, year, month, report, generated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id, year, month)
		 DO UPDATE SET report = excluded.report, generated_at = excluded.generated_at`,
		ownerID, year, month, string(body), encodeTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("save monthly report: %w", err)
	}
	return nil
}

// MonthlyReportFor loads the materialized report for one owner-month.
// A missing period yields core.ErrNotFound.
func (r *SQLiteRepository) MonthlyReportFor(ctx context.Context, ownerID string, year, month int) (core.MonthlyReport, error) {
	var body string
	err := r.db.QueryRowContext(ctx,
		`SELECT report FROM monthly_reports WHERE owner_id = ? AND year = ? AND month = ?`,
		ownerID, year, month).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyReport{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load monthly report: %w", err)
	}

	var report core.MonthlyReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return core.MonthlyReport{}, fmt.Errorf("decode monthly report: %w", err)
	}
	return report, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

// encodeTime stores UTC RFC3339 at second precision: fixed width keeps
// lexicographic order equal to chronological order, which the range queries
// rely on.
func encodeTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}
	return t.UTC(), nil
}
