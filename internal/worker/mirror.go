package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"xarajat/internal/amqp"
	"xarajat/internal/core"
	applog "xarajat/internal/log"
)

// MirrorStore is the ledger surface the mirror worker needs.
type MirrorStore interface {
	GetExpense(ctx context.Context, id int64) (core.ExpenseRow, error)
	PendingMirror(ctx context.Context, limit int) ([]int64, error)
	MarkMirrored(ctx context.Context, id int64) error
	MarkMirrorError(ctx context.Context, id int64) error
}

// Mirror writes one expense row to the external spreadsheet.
type Mirror interface {
	Append(ctx context.Context, row core.ExpenseRow) error
}

// MirrorWorker copies saved expenses to the spreadsheet mirror.
type MirrorWorker struct {
	store  MirrorStore
	mirror Mirror
	logger *slog.Logger
}

func NewMirrorWorker(store MirrorStore, mirror Mirror, logger *slog.Logger) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror, logger: logger}
}

// Handle syncs one expense. A missing row is marked failed and the
// message is dropped; an append failure requeues.
func (w *MirrorWorker) Handle(ctx context.Context, msg *amqp.MirrorSync) error {
	row, err := w.store.GetExpense(ctx, msg.ExpenseID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.Warn("expense vanished before mirror sync", applog.FieldExpenseID, msg.ExpenseID)
		if err := w.store.MarkMirrorError(ctx, msg.ExpenseID); err != nil {
			w.logger.Error("failed to mark mirror error", applog.FieldError, err, applog.FieldExpenseID, msg.ExpenseID)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense %d: %w", msg.ExpenseID, err)
	}

	if err := w.mirror.Append(ctx, row); err != nil {
		return fmt.Errorf("append expense %d to mirror: %w", msg.ExpenseID, err)
	}

	if err := w.store.MarkMirrored(ctx, msg.ExpenseID); err != nil {
		return fmt.Errorf("mark expense %d mirrored: %w", msg.ExpenseID, err)
	}

	w.logger.Info("expense mirrored", applog.FieldExpenseID, msg.ExpenseID)
	return nil
}

// Sweep syncs expenses that never made it through the queue, typically
// because the broker was down when they were saved.
func (w *MirrorWorker) Sweep(ctx context.Context, batchSize int) error {
	ids, err := w.store.PendingMirror(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("load pending mirrors: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	w.logger.Info("sweeping unmirrored expenses", applog.FieldRowCount, len(ids))
	for _, id := range ids {
		if err := w.Handle(ctx, &amqp.MirrorSync{ExpenseID: id}); err != nil {
			// Keep going; the next sweep retries the rest.
			w.logger.Error("sweep failed for expense", applog.FieldError, err, applog.FieldExpenseID, id)
		}
	}
	return nil
}
