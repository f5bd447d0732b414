package core

import (
	"errors"
	"time"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrBadDate       = errors.New("unparseable date")
	ErrBadRange      = errors.New("start date after end date")
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("user not allowed")
	ErrNoData        = errors.New("no expenses in range")
	ErrZeroTotal     = errors.New("zero grand total")
)

type (
	// User is an account keyed by its external chat identity.
	User struct {
		ID         int64
		ExternalID int64
		CreatedAt  time.Time
	}

	// Category belongs to exactly one user; (UserID, Name) is unique.
	Category struct {
		ID     int64
		UserID int64
		Name   string
	}

	// Expense is immutable once recorded. CategoryID is nil when the
	// expense has no category.
	Expense struct {
		ID          int64
		UserID      int64
		Amount      Money
		CategoryID  *int64
		Description string
		Date        time.Time
	}

	// ExpenseRow is one detailed report line.
	ExpenseRow struct {
		Date        time.Time
		Amount      Money
		Category    string
		Description string
	}

	// CategoryTotalRow is one per-category aggregate line, ordered by
	// total descending.
	CategoryTotalRow struct {
		Category string
		Count    int64
		Total    Money
	}

	// DailyTotalRow is one per-day aggregate line, ordered by day ascending.
	DailyTotalRow struct {
		Day   Day
		Total Money
		Count int64
	}
)

// Percentages returns each category's share of the grand total, parallel to
// rows. A zero grand total is an error; callers must check for empty
// breakdowns before computing shares.
func Percentages(rows []CategoryTotalRow) ([]float64, error) {
	var total int64
	for _, r := range rows {
		total += r.Total.Units
	}
	if total == 0 {
		return nil, ErrZeroTotal
	}
	shares := make([]float64, len(rows))
	for i, r := range rows {
		shares[i] = float64(r.Total.Units) / float64(total) * 100
	}
	return shares, nil
}
