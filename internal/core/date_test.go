package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"01.01.2024", true},
		{"31.12.2023", true},
		{"2024-01-01", false},
		{"32.01.2024", false},
		{"01/01/2024", false},
		{"yesterday", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDay(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error: %v", tc.in, err)
			}
			if d.Input() != tc.in {
				t.Fatalf("%q did not round-trip, got %q", tc.in, d.Input())
			}
		} else {
			if !errors.Is(err, ErrBadDate) {
				t.Fatalf("%q: expected ErrBadDate, got %v", tc.in, err)
			}
		}
	}
}

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		year      int
		month     time.Month
		wantFirst string
		wantLast  string
	}{
		{2024, time.January, "2024-01-01", "2024-01-31"},
		{2024, time.February, "2024-02-01", "2024-02-29"}, // leap year
		{2023, time.February, "2023-02-01", "2023-02-28"},
		{2024, time.December, "2024-12-01", "2024-12-31"}, // year rollover
	}
	for _, tc := range cases {
		first, last := MonthBounds(tc.year, tc.month)
		if first.ISO() != tc.wantFirst || last.ISO() != tc.wantLast {
			t.Fatalf("MonthBounds(%d, %s) = [%s, %s], want [%s, %s]",
				tc.year, tc.month, first.ISO(), last.ISO(), tc.wantFirst, tc.wantLast)
		}
	}
}

func TestMonthsBack(t *testing.T) {
	cases := []struct {
		year      int
		month     time.Month
		n         int
		wantYear  int
		wantMonth time.Month
	}{
		{2024, time.June, 0, 2024, time.June},
		{2024, time.June, 3, 2024, time.March},
		{2024, time.February, 2, 2023, time.December},
		{2024, time.January, 13, 2022, time.December},
	}
	for _, tc := range cases {
		y, m := MonthsBack(tc.year, tc.month, tc.n)
		if y != tc.wantYear || m != tc.wantMonth {
			t.Fatalf("MonthsBack(%d, %s, %d) = (%d, %s), want (%d, %s)",
				tc.year, tc.month, tc.n, y, m, tc.wantYear, tc.wantMonth)
		}
	}
}

func TestNewRange(t *testing.T) {
	start, _ := ParseDay("01.01.2024")
	end, _ := ParseDay("31.01.2024")

	rng, err := NewRange(start, end)
	if err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	if rng.Filename() != "expenses_2024-01-01_to_2024-01-31.xlsx" {
		t.Fatalf("unexpected filename %q", rng.Filename())
	}
	if rng.Caption() != "01.01.2024 - 31.01.2024" {
		t.Fatalf("unexpected caption %q", rng.Caption())
	}

	if _, err := NewRange(end, start); !errors.Is(err, ErrBadRange) {
		t.Fatalf("expected ErrBadRange, got %v", err)
	}
	// Single-day ranges are valid.
	if _, err := NewRange(start, start); err != nil {
		t.Fatalf("single-day range rejected: %v", err)
	}
}

func TestLastDays(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tashkent")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// Late UTC evening is already the next day in Tashkent (UTC+5).
	now := time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	rng := LastDays(now, loc, 7)
	if rng.End.ISO() != "2024-03-11" {
		t.Fatalf("end should be local today, got %s", rng.End.ISO())
	}
	if rng.Start.ISO() != "2024-03-04" {
		t.Fatalf("start should be 7 days back, got %s", rng.Start.ISO())
	}
}
