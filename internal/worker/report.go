// Package worker consumes queued jobs: report builds and spreadsheet
// mirror syncs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"xarajat/internal/amqp"
	"xarajat/internal/core"
	"xarajat/internal/gateway"
	applog "xarajat/internal/log"
	"xarajat/internal/report"
)

const msgNoData = "No expenses in this period."

// ReportWorker builds report artifacts for queued jobs and delivers
// them to the requesting chat.
type ReportWorker struct {
	reports *report.Service
	sender  gateway.Sender
	logger  *slog.Logger
}

func NewReportWorker(reports *report.Service, sender gateway.Sender, logger *slog.Logger) *ReportWorker {
	return &ReportWorker{reports: reports, sender: sender, logger: logger}
}

// Handle processes one report job. Malformed jobs are logged and
// dropped; transient failures return an error so the message requeues.
func (w *ReportWorker) Handle(ctx context.Context, job *amqp.ReportJob) error {
	rng, err := parseJobRange(job)
	if err != nil {
		w.logger.Error("dropping malformed report job",
			applog.FieldError, err,
			applog.FieldUserID, job.UserID,
			applog.FieldRangeStart, job.Start,
			applog.FieldRangeEnd, job.End)
		return nil
	}

	data, err := w.reports.Build(ctx, job.UserID, rng)
	if errors.Is(err, core.ErrNoData) {
		return w.sender.SendText(ctx, job.ChatID, msgNoData, nil)
	}
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	out, err := report.Render(data)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if err := w.sender.SendDocument(ctx, job.ChatID, gateway.Document{
		Filename: rng.Filename(),
		Caption:  rng.Caption(),
		Data:     out,
	}); err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}

	w.logger.Info("report delivered",
		applog.FieldUserID, job.UserID,
		applog.FieldFilename, rng.Filename(),
		applog.FieldRowCount, len(data.Expenses))
	return nil
}

func parseJobRange(job *amqp.ReportJob) (core.Range, error) {
	start, err := core.ParseISODay(job.Start)
	if err != nil {
		return core.Range{}, fmt.Errorf("start date: %w", err)
	}
	end, err := core.ParseISODay(job.End)
	if err != nil {
		return core.Range{}, fmt.Errorf("end date: %w", err)
	}
	return core.NewRange(start, end)
}
