package core

import (
	"strings"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Paise: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Paise: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Paise: -50}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		OwnerID:       "user-1",
		Description:   "Coffee",
		Amount:        Money{Paise: 15000},
		Category:      "Food",
		PaymentMethod: "Cash",
		Date:          time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	long := good
	long.Description = strings.Repeat("x", 1000)
	if err := long.Validate(); err != nil {
		t.Fatalf("long description should validate, got %v", err)
	}

	bads := []Expense{
		{OwnerID: "", Description: "a", Amount: Money{Paise: 1}, Category: "c", PaymentMethod: "p"},
		{OwnerID: "u", Description: "", Amount: Money{Paise: 1}, Category: "c", PaymentMethod: "p"},
		{OwnerID: "u", Description: "a", Amount: Money{Paise: 0}, Category: "c", PaymentMethod: "p"},
		{OwnerID: "u", Description: "a", Amount: Money{Paise: 1}, Category: "", PaymentMethod: "p"},
		{OwnerID: "u", Description: "a", Amount: Money{Paise: 1}, Category: "c", PaymentMethod: ""},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	e := Expense{OwnerID: "u", Description: "d", Amount: Money{Paise: 1}, Category: "c"}
	e.ApplyDefaults(now)

	if e.Subcategory != DefaultSubcategory {
		t.Fatalf("subcategory = %q, want %q", e.Subcategory, DefaultSubcategory)
	}
	if e.PaymentMethod != DefaultPaymentMethod {
		t.Fatalf("paymentMethod = %q, want %q", e.PaymentMethod, DefaultPaymentMethod)
	}
	if !e.Date.Equal(now) {
		t.Fatalf("date = %v, want %v", e.Date, now)
	}
	if e.Tags == nil {
		t.Fatalf("tags should default to empty slice")
	}

	// Supplied values survive.
	given := Expense{
		Subcategory:   "Snacks",
		PaymentMethod: "UPI",
		Date:          time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	given.ApplyDefaults(now)
	if given.Subcategory != "Snacks" || given.PaymentMethod != "UPI" {
		t.Fatalf("defaults overwrote supplied values: %+v", given)
	}
	if given.Date.Year() != 2023 {
		t.Fatalf("date overwritten: %v", given.Date)
	}
}
