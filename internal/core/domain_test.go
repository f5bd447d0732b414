package core

import (
	"errors"
	"testing"
)

func TestPercentages(t *testing.T) {
	rows := []CategoryTotalRow{
		{Category: "Food", Count: 3, Total: Money{Units: 6000}},
		{Category: "Transport", Count: 1, Total: Money{Units: 4000}},
	}
	shares, err := Percentages(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}
	if shares[0] != 60 || shares[1] != 40 {
		t.Fatalf("expected [60 40], got %v", shares)
	}
}

func TestPercentagesZeroTotal(t *testing.T) {
	if _, err := Percentages(nil); !errors.Is(err, ErrZeroTotal) {
		t.Fatalf("empty breakdown: expected ErrZeroTotal, got %v", err)
	}
	rows := []CategoryTotalRow{{Category: "Food"}}
	if _, err := Percentages(rows); !errors.Is(err, ErrZeroTotal) {
		t.Fatalf("zero totals: expected ErrZeroTotal, got %v", err)
	}
}
