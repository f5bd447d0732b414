package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"xarajat/internal/core"
	applog "xarajat/internal/log"

	_ "modernc.org/sqlite"
)

// timeLayout is the wall-clock form expense timestamps are stored in.
// Values are local to the configured reporting timezone, so SQLite's
// date() sees calendar days in that zone.
const timeLayout = "2006-01-02 15:04:05"

// defaultCategories is seeded for every new user.
var defaultCategories = []string{
	"🏠 Housing",
	"🍽️ Food",
	"🚗 Transport",
	"👕 Clothes",
	"💊 Health",
	"📚 Education",
	"🎮 Entertainment",
	"🛍️ Other",
}

// SQLiteRepository is the ledger store: users, categories and the
// append-only expense log.
type SQLiteRepository struct {
	db     *sql.DB
	dbPath string
	loc    *time.Location
}

func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
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

	return &SQLiteRepository{db: db, dbPath: dbPath, loc: loc}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureUser returns the internal id for an external chat identity,
// creating the user and seeding the default category set on first contact.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, externalID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE external_id = ?`, externalID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (external_id) VALUES (?)`, externalID)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("new user id: %w", err)
	}

	for _, name := range defaultCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (user_id, name) VALUES (?, ?)`, id, name); err != nil {
			return 0, fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create user: %w", err)
	}

	slog.InfoContext(ctx, "User created",
		applog.FieldUserID, id,
		applog.FieldExternalID, externalID,
		"categories", len(defaultCategories))
	return id, nil
}

// ListCategories returns the user's categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetCategory fetches one category scoped to its owner. A category owned by
// another user is core.ErrNotFound, never someone else's record.
func (r *SQLiteRepository) GetCategory(ctx context.Context, categoryID, userID int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE id = ? AND user_id = ?`,
		categoryID, userID).Scan(&c.ID, &c.UserID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// InsertExpense appends one expense and returns its id. The timestamp is
// stored as local wall-clock in the configured timezone.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, userID int64, amount core.Money, categoryID *int64, description string, at time.Time) (int64, error) {
	if err := amount.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount, category_id, description, date) VALUES (?, ?, ?, ?, ?)`,
		userID, amount.Units, categoryID, description, at.In(r.loc).Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("new expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		applog.FieldExpenseID, id,
		applog.FieldUserID, userID,
		applog.FieldAmount, amount.Units)
	return id, nil
}

// RecentExpenses returns up to limit expenses, newest first.
func (r *SQLiteRepository) RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.ExpenseRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.date, e.amount, c.name, e.description
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = ?
		ORDER BY e.date DESC, e.id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	defer rows.Close()
	return r.scanExpenseRows(rows)
}

// ExpensesByRange returns detailed rows inside the inclusive range, ordered
// by date ascending then insertion order.
func (r *SQLiteRepository) ExpensesByRange(ctx context.Context, userID int64, rng core.Range) ([]core.ExpenseRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.date, e.amount, c.name, e.description
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = ?
		  AND date(e.date) >= date(?)
		  AND date(e.date) <= date(?)
		ORDER BY e.date ASC, e.id ASC`,
		userID, rng.Start.ISO(), rng.End.ISO())
	if err != nil {
		return nil, fmt.Errorf("expenses by range: %w", err)
	}
	defer rows.Close()
	return r.scanExpenseRows(rows)
}

// CategoryTotals aggregates the range per category, largest total first.
// Categories without expenses in range do not appear.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64, rng core.Range) ([]core.CategoryTotalRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, COUNT(*), SUM(e.amount)
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = ?
		  AND date(e.date) >= date(?)
		  AND date(e.date) <= date(?)
		GROUP BY c.id, c.name
		ORDER BY SUM(e.amount) DESC`,
		userID, rng.Start.ISO(), rng.End.ISO())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotalRow
	for rows.Next() {
		var (
			name  sql.NullString
			row   core.CategoryTotalRow
			total int64
		)
		if err := rows.Scan(&name, &row.Count, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		row.Category = name.String
		row.Total = core.Money{Units: total}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DailyTotals aggregates the range per calendar day, oldest day first.
func (r *SQLiteRepository) DailyTotals(ctx context.Context, userID int64, rng core.Range) ([]core.DailyTotalRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date(e.date), SUM(e.amount), COUNT(*)
		FROM expenses e
		WHERE e.user_id = ?
		  AND date(e.date) >= date(?)
		  AND date(e.date) <= date(?)
		GROUP BY date(e.date)
		ORDER BY date(e.date) ASC`,
		userID, rng.Start.ISO(), rng.End.ISO())
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var out []core.DailyTotalRow
	for rows.Next() {
		var (
			day   string
			total int64
			row   core.DailyTotalRow
		)
		if err := rows.Scan(&day, &total, &row.Count); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d, err := core.ParseISODay(day)
		if err != nil {
			return nil, fmt.Errorf("stored day %q: %w", day, err)
		}
		row.Day = d
		row.Total = core.Money{Units: total}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetExpense fetches a single expense as a report row, used by the mirror
// worker.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.ExpenseRow, error) {
	var (
		date     time.Time
		amount   int64
		category sql.NullString
		desc     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT e.date, e.amount, c.name, e.description
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.id = ?`, id).Scan(&date, &amount, &category, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRow{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.ExpenseRow{}, fmt.Errorf("get expense: %w", err)
	}
	return core.ExpenseRow{
		Date:        r.localize(date),
		Amount:      core.Money{Units: amount},
		Category:    category.String,
		Description: desc.String,
	}, nil
}

// PendingMirror lists ids of expenses not yet pushed to the spreadsheet
// mirror.
func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM expenses WHERE mirrored = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending mirror: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkMirrored records a successful mirror push.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET mirrored = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	return nil
}

// MarkMirrorError flags an expense whose mirror push failed; it is excluded
// from the pending sweep until an operator intervenes.
func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET mirrored = -1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with mirror error", applog.FieldExpenseID, id)
	return nil
}

// Reset drops and recreates the whole schema.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	if err := DropAll(r.dbPath); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	slog.InfoContext(ctx, "Database reset", applog.FieldPath, r.dbPath)
	return nil
}

func (r *SQLiteRepository) scanExpenseRows(rows *sql.Rows) ([]core.ExpenseRow, error) {
	var out []core.ExpenseRow
	for rows.Next() {
		var (
			date     time.Time
			amount   int64
			category sql.NullString
			desc     sql.NullString
		)
		if err := rows.Scan(&date, &amount, &category, &desc); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		out = append(out, core.ExpenseRow{
			Date:        r.localize(date),
			Amount:      core.Money{Units: amount},
			Category:    category.String,
			Description: desc.String,
		})
	}
	return out, rows.Err()
}

// localize re-reads a stored wall-clock timestamp in the reporting
// timezone. Values are written as local wall-clock strings; the driver
// hands them back stamped UTC.
func (r *SQLiteRepository) localize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.loc)
}
