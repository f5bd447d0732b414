package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"xarajat/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), time.UTC)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustRange(t *testing.T, start, end string) core.Range {
	t.Helper()
	s, err := core.ParseDay(start)
	if err != nil {
		t.Fatalf("parse %q: %v", start, err)
	}
	e, err := core.ParseDay(end)
	if err != nil {
		t.Fatalf("parse %q: %v", end, err)
	}
	rng, err := core.NewRange(s, e)
	if err != nil {
		t.Fatalf("range [%s, %s]: %v", start, end, err)
	}
	return rng
}

func TestEnsureUserIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.EnsureUser(ctx, 555)
	if err != nil {
		t.Fatalf("first EnsureUser: %v", err)
	}
	second, err := repo.EnsureUser(ctx, 555)
	if err != nil {
		t.Fatalf("second EnsureUser: %v", err)
	}
	if first != second {
		t.Fatalf("EnsureUser not idempotent: %d != %d", first, second)
	}

	cats, err := repo.ListCategories(ctx, first)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != len(defaultCategories) {
		t.Fatalf("expected %d seeded categories, got %d", len(defaultCategories), len(cats))
	}
	// Ordered by name, and seeding must not duplicate on repeat contact.
	for i := 1; i < len(cats); i++ {
		if cats[i-1].Name > cats[i].Name {
			t.Fatalf("categories not ordered by name: %q > %q", cats[i-1].Name, cats[i].Name)
		}
	}
}

func TestGetCategoryScopedToOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	owner, _ := repo.EnsureUser(ctx, 1)
	other, _ := repo.EnsureUser(ctx, 2)

	cats, err := repo.ListCategories(ctx, owner)
	if err != nil || len(cats) == 0 {
		t.Fatalf("ListCategories: %v (%d cats)", err, len(cats))
	}

	if _, err := repo.GetCategory(ctx, cats[0].ID, owner); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := repo.GetCategory(ctx, cats[0].ID, other); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-user lookup must be ErrNotFound, got %v", err)
	}
}

func TestAggregationTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID, _ := repo.EnsureUser(ctx, 10)
	cats, _ := repo.ListCategories(ctx, userID)
	catID := cats[0].ID

	at := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	for _, units := range []int64{1000, 2000, 3000} {
		if _, err := repo.InsertExpense(ctx, userID, core.Money{Units: units}, &catID, "test", at); err != nil {
			t.Fatalf("InsertExpense(%d): %v", units, err)
		}
	}

	rng := mustRange(t, "01.01.2024", "31.01.2024")

	byCat, err := repo.CategoryTotals(ctx, userID, rng)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	var catTotal int64
	for _, row := range byCat {
		catTotal += row.Total.Units
	}
	if catTotal != 6000 {
		t.Fatalf("category grand total = %d, want 6000", catTotal)
	}

	byDay, err := repo.DailyTotals(ctx, userID, rng)
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	var dayTotal int64
	for _, row := range byDay {
		dayTotal += row.Total.Units
	}
	if dayTotal != catTotal {
		t.Fatalf("daily total %d != category total %d", dayTotal, catTotal)
	}
	if len(byDay) != 1 || byDay[0].Count != 3 {
		t.Fatalf("expected one day with 3 expenses, got %+v", byDay)
	}
}

func TestExpensesByRangeBoundaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID, _ := repo.EnsureUser(ctx, 20)

	dates := []time.Time{
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 40),
	}
	for i, at := range dates {
		if _, err := repo.InsertExpense(ctx, userID, core.Money{Units: int64(100 * (i + 1))}, nil, "", at); err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
	}

	rows, err := repo.ExpensesByRange(ctx, userID, mustRange(t, "01.01.2024", "31.01.2024"))
	if err != nil {
		t.Fatalf("ExpensesByRange: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows in January, got %d", len(rows))
	}
	if !rows[0].Date.Before(rows[1].Date) {
		t.Fatalf("rows not ordered by date ascending: %v, %v", rows[0].Date, rows[1].Date)
	}
	if rows[0].Amount.Units != 100 || rows[1].Amount.Units != 200 {
		t.Fatalf("wrong rows included: %+v", rows)
	}
}

func TestExpensesScopedToUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alice, _ := repo.EnsureUser(ctx, 100)
	bob, _ := repo.EnsureUser(ctx, 200)

	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	if _, err := repo.InsertExpense(ctx, alice, core.Money{Units: 500}, nil, "alice lunch", at); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}

	rng := mustRange(t, "01.02.2024", "29.02.2024")
	rows, err := repo.ExpensesByRange(ctx, bob, rng)
	if err != nil {
		t.Fatalf("ExpensesByRange: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("bob sees alice's expenses: %+v", rows)
	}
}

func TestRecentExpensesLimitAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID, _ := repo.EnsureUser(ctx, 30)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		if _, err := repo.InsertExpense(ctx, userID, core.Money{Units: int64(i + 1)}, nil, "", base.AddDate(0, 0, i)); err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
	}

	rows, err := repo.RecentExpenses(ctx, userID, 10)
	if err != nil {
		t.Fatalf("RecentExpenses: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
	if rows[0].Amount.Units != 12 {
		t.Fatalf("newest expense first, got amount %d", rows[0].Amount.Units)
	}
}

func TestMirrorQueue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID, _ := repo.EnsureUser(ctx, 40)
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	id1, _ := repo.InsertExpense(ctx, userID, core.Money{Units: 100}, nil, "first", at)
	id2, _ := repo.InsertExpense(ctx, userID, core.Money{Units: 200}, nil, "second", at)

	pending, err := repo.PendingMirror(ctx, 10)
	if err != nil {
		t.Fatalf("PendingMirror: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %v", pending)
	}

	if err := repo.MarkMirrored(ctx, id1); err != nil {
		t.Fatalf("MarkMirrored: %v", err)
	}
	if err := repo.MarkMirrorError(ctx, id2); err != nil {
		t.Fatalf("MarkMirrorError: %v", err)
	}

	pending, err = repo.PendingMirror(ctx, 10)
	if err != nil {
		t.Fatalf("PendingMirror after marks: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending after marks, got %v", pending)
	}

	row, err := repo.GetExpense(ctx, id1)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if row.Amount.Units != 100 || row.Description != "first" {
		t.Fatalf("unexpected expense row: %+v", row)
	}
}

func TestReset(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID, _ := repo.EnsureUser(ctx, 50)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if _, err := repo.InsertExpense(ctx, userID, core.Money{Units: 900}, nil, "", at); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}

	if err := repo.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	// Schema exists again and is empty: the same external id creates a
	// fresh user with freshly seeded categories.
	newID, err := repo.EnsureUser(ctx, 50)
	if err != nil {
		t.Fatalf("EnsureUser after reset: %v", err)
	}
	rows, err := repo.RecentExpenses(ctx, newID, 10)
	if err != nil {
		t.Fatalf("RecentExpenses after reset: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expenses survived reset: %+v", rows)
	}
}

func TestExpenseDateRoundTrip(t *testing.T) {
	loc := time.FixedZone("UZT", 5*3600)
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), loc)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	ctx := context.Background()

	userID, err := repo.EnsureUser(ctx, 321)
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	cats, err := repo.ListCategories(ctx, userID)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}

	at := time.Date(2024, 5, 2, 13, 45, 10, 0, loc)
	id, err := repo.InsertExpense(ctx, userID, core.Money{Units: 2500}, &cats[0].ID, "lunch", at)
	if err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}

	row, err := repo.GetExpense(ctx, id)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if !row.Date.Equal(at) {
		t.Fatalf("GetExpense date = %v, want %v", row.Date, at)
	}
	if row.Date.Location() != loc {
		t.Fatalf("GetExpense location = %v, want %v", row.Date.Location(), loc)
	}

	rows, err := repo.ExpensesByRange(ctx, userID, mustRange(t, "02.05.2024", "02.05.2024"))
	if err != nil {
		t.Fatalf("ExpensesByRange: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0].Date.Format("02.01.2006 15:04:05"); got != "02.05.2024 13:45:10" {
		t.Fatalf("round-tripped wall clock = %q", got)
	}
}
