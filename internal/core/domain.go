package core

import (
	"errors"
	"strings"
	"time"
)

// Sentinel values applied when the client omits optional classification fields.
const (
	DefaultSubcategory   = "General"
	DefaultPaymentMethod = "Other"
)

type (
	Money struct {
		Paise int64
	}

	// Expense is the owned entity. OwnerID is set once at creation and scopes
	// every read, update and delete; no access path may cross owners.
	Expense struct {
		ID            string
		OwnerID       string
		Description   string
		Amount        Money
		Category      string
		Subcategory   string
		PaymentMethod string
		Tags          []string
		Notes         string
		Date          time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyPaymentMethod = errors.New("empty payment method")
	ErrEmptyOwner         = errors.New("empty owner id")
	ErrNotFound           = errors.New("expense not found")
)

func (m Money) Validate() error {
	if m.Paise <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ApplyDefaults fills the sentinel values for optional fields and defaults
// the date to now (UTC) when the client did not supply one.
func (e *Expense) ApplyDefaults(now time.Time) {
	if strings.TrimSpace(e.Subcategory) == "" {
		e.Subcategory = DefaultSubcategory
	}
	if strings.TrimSpace(e.PaymentMethod) == "" {
		e.PaymentMethod = DefaultPaymentMethod
	}
	if e.Date.IsZero() {
		e.Date = now.UTC()
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.PaymentMethod) == "" {
		return ErrEmptyPaymentMethod
	}
	return nil
}
