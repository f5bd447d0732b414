// Package report builds expense reports for a date range: the raw
// aggregates, a plain-text summary, and an xlsx artifact.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"xarajat/internal/core"
	applog "xarajat/internal/log"
)

// Store is the slice of the ledger the report service reads.
type Store interface {
	ExpensesByRange(ctx context.Context, userID int64, rng core.Range) ([]core.ExpenseRow, error)
	CategoryTotals(ctx context.Context, userID int64, rng core.Range) ([]core.CategoryTotalRow, error)
	DailyTotals(ctx context.Context, userID int64, rng core.Range) ([]core.DailyTotalRow, error)
}

// Data holds everything a rendered report needs.
type Data struct {
	Range      core.Range
	Expenses   []core.ExpenseRow
	ByCategory []core.CategoryTotalRow
	ByDay      []core.DailyTotalRow
}

// Total returns the grand total across all expenses in the range.
func (d Data) Total() core.Money {
	var units int64
	for _, row := range d.Expenses {
		units += row.Amount.Units
	}
	return core.Money{Units: units}
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Build runs the three range queries concurrently and assembles the
// report data. Returns core.ErrNoData when the range holds no expenses.
func (s *Service) Build(ctx context.Context, userID int64, rng core.Range) (Data, error) {
	start := time.Now()
	data := Data{Range: rng}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.ExpensesByRange(gctx, userID, rng)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		data.Expenses = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.CategoryTotals(gctx, userID, rng)
		if err != nil {
			return fmt.Errorf("load category totals: %w", err)
		}
		data.ByCategory = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.DailyTotals(gctx, userID, rng)
		if err != nil {
			return fmt.Errorf("load daily totals: %w", err)
		}
		data.ByDay = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Data{}, err
	}

	if len(data.Expenses) == 0 {
		return Data{}, core.ErrNoData
	}

	s.logger.Debug("report data assembled",
		applog.FieldUserID, userID,
		applog.FieldRangeStart, rng.Start.ISO(),
		applog.FieldRangeEnd, rng.End.ISO(),
		applog.FieldRowCount, len(data.Expenses),
		"duration", time.Since(start))
	return data, nil
}
