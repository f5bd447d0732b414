package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"xarajat/internal/amqp"
	"xarajat/internal/core"
	"xarajat/internal/gateway/memory"
	"xarajat/internal/report"
)

type fakeReportStore struct {
	expenses []core.ExpenseRow
}

func (f *fakeReportStore) ExpensesByRange(context.Context, int64, core.Range) ([]core.ExpenseRow, error) {
	return f.expenses, nil
}

func (f *fakeReportStore) CategoryTotals(context.Context, int64, core.Range) ([]core.CategoryTotalRow, error) {
	if len(f.expenses) == 0 {
		return nil, nil
	}
	return []core.CategoryTotalRow{{Category: "🍽️ Food", Count: int64(len(f.expenses)), Total: core.Money{Units: 3000}}}, nil
}

func (f *fakeReportStore) DailyTotals(context.Context, int64, core.Range) ([]core.DailyTotalRow, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReportWorkerDeliversDocument(t *testing.T) {
	store := &fakeReportStore{expenses: []core.ExpenseRow{
		{Date: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), Amount: core.Money{Units: 3000}, Category: "🍽️ Food"},
	}}
	sender := memory.NewSender()
	w := NewReportWorker(report.NewService(store, testLogger()), sender, testLogger())

	job := &amqp.ReportJob{UserID: 1, ChatID: 5, Start: "2024-01-01", End: "2024-01-31"}
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	docs := sender.Documents()
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	if docs[0].ChatID != 5 {
		t.Errorf("chat id = %d, want 5", docs[0].ChatID)
	}
	if docs[0].Document.Filename != "expenses_2024-01-01_to_2024-01-31.xlsx" {
		t.Errorf("filename = %q", docs[0].Document.Filename)
	}
}

func TestReportWorkerNoData(t *testing.T) {
	sender := memory.NewSender()
	w := NewReportWorker(report.NewService(&fakeReportStore{}, testLogger()), sender, testLogger())

	job := &amqp.ReportJob{UserID: 1, ChatID: 5, Start: "2024-01-01", End: "2024-01-31"}
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(sender.Documents()) != 0 {
		t.Fatal("empty range produced a document")
	}
	last, ok := sender.LastText()
	if !ok || last.Text != msgNoData {
		t.Fatalf("expected no-data notice, got %+v", last)
	}
}

func TestReportWorkerDropsMalformedJob(t *testing.T) {
	sender := memory.NewSender()
	w := NewReportWorker(report.NewService(&fakeReportStore{}, testLogger()), sender, testLogger())

	job := &amqp.ReportJob{UserID: 1, ChatID: 5, Start: "backwards", End: "2024-01-31"}
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("malformed job must not requeue, got %v", err)
	}
	if len(sender.Texts()) != 0 || len(sender.Documents()) != 0 {
		t.Fatal("malformed job produced output")
	}
}

type fakeMirrorStore struct {
	rows     map[int64]core.ExpenseRow
	mirrored []int64
	failed   []int64
	pending  []int64
}

func (f *fakeMirrorStore) GetExpense(_ context.Context, id int64) (core.ExpenseRow, error) {
	row, ok := f.rows[id]
	if !ok {
		return core.ExpenseRow{}, core.ErrNotFound
	}
	return row, nil
}

func (f *fakeMirrorStore) PendingMirror(context.Context, int) ([]int64, error) {
	return f.pending, nil
}

func (f *fakeMirrorStore) MarkMirrored(_ context.Context, id int64) error {
	f.mirrored = append(f.mirrored, id)
	return nil
}

func (f *fakeMirrorStore) MarkMirrorError(_ context.Context, id int64) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeMirror struct {
	appended []core.ExpenseRow
	err      error
}

func (f *fakeMirror) Append(_ context.Context, row core.ExpenseRow) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, row)
	return nil
}

func TestMirrorWorkerSyncsExpense(t *testing.T) {
	store := &fakeMirrorStore{rows: map[int64]core.ExpenseRow{
		42: {Amount: core.Money{Units: 700}, Category: "🍽️ Food"},
	}}
	mirror := &fakeMirror{}
	w := NewMirrorWorker(store, mirror, testLogger())

	if err := w.Handle(context.Background(), &amqp.MirrorSync{ExpenseID: 42}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(mirror.appended) != 1 {
		t.Fatalf("appended = %d rows", len(mirror.appended))
	}
	if len(store.mirrored) != 1 || store.mirrored[0] != 42 {
		t.Fatalf("mirrored = %v", store.mirrored)
	}
}

func TestMirrorWorkerMissingExpense(t *testing.T) {
	store := &fakeMirrorStore{rows: map[int64]core.ExpenseRow{}}
	w := NewMirrorWorker(store, &fakeMirror{}, testLogger())

	if err := w.Handle(context.Background(), &amqp.MirrorSync{ExpenseID: 9}); err != nil {
		t.Fatalf("missing row must not requeue, got %v", err)
	}
	if len(store.failed) != 1 || store.failed[0] != 9 {
		t.Fatalf("failed marks = %v", store.failed)
	}
}

func TestMirrorWorkerAppendFailureRequeues(t *testing.T) {
	store := &fakeMirrorStore{rows: map[int64]core.ExpenseRow{1: {}}}
	w := NewMirrorWorker(store, &fakeMirror{err: errors.New("quota exceeded")}, testLogger())

	if err := w.Handle(context.Background(), &amqp.MirrorSync{ExpenseID: 1}); err == nil {
		t.Fatal("append failure should return an error")
	}
	if len(store.mirrored) != 0 {
		t.Fatal("failed append marked as mirrored")
	}
}

func TestSweepHandlesPending(t *testing.T) {
	store := &fakeMirrorStore{
		rows:    map[int64]core.ExpenseRow{1: {}, 2: {}},
		pending: []int64{1, 2},
	}
	mirror := &fakeMirror{}
	w := NewMirrorWorker(store, mirror, testLogger())

	if err := w.Sweep(context.Background(), 10); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(mirror.appended) != 2 {
		t.Fatalf("appended = %d, want 2", len(mirror.appended))
	}
}
