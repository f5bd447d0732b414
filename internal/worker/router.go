package worker

import (
	"context"
	"log/slog"

	"xarajat/internal/amqp"
	applog "xarajat/internal/log"
)

// Router dispatches decoded queue envelopes to the right worker.
// Either worker may be nil when its feature is disabled.
type Router struct {
	reports *ReportWorker
	mirror  *MirrorWorker
	logger  *slog.Logger
}

func NewRouter(reports *ReportWorker, mirror *MirrorWorker, logger *slog.Logger) *Router {
	return &Router{reports: reports, mirror: mirror, logger: logger}
}

// Handle implements the consume callback. Unknown kinds and jobs for
// disabled workers are dropped without requeue.
func (r *Router) Handle(ctx context.Context, env amqp.Envelope) error {
	switch env.Kind {
	case amqp.KindReportJob:
		if r.reports == nil {
			r.logger.Warn("report job received but reports are disabled")
			return nil
		}
		job, err := amqp.ReportJobFromEnvelope(env)
		if err != nil {
			r.logger.Error("dropping undecodable report job", applog.FieldError, err)
			return nil
		}
		return r.reports.Handle(ctx, job)
	case amqp.KindMirrorSync:
		if r.mirror == nil {
			r.logger.Warn("mirror sync received but the mirror is disabled")
			return nil
		}
		msg, err := amqp.MirrorSyncFromEnvelope(env)
		if err != nil {
			r.logger.Error("dropping undecodable mirror sync", applog.FieldError, err)
			return nil
		}
		return r.mirror.Handle(ctx, msg)
	default:
		r.logger.Warn("dropping message of unknown kind", "kind", env.Kind)
		return nil
	}
}
