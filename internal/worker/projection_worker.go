package worker

import (
	"context"
	"sync/atomic"
	"time"

	"collegesave/internal/amqp"
	"collegesave/internal/api"
	"collegesave/internal/core"
	applog "collegesave/internal/log"
)

// ProjectionWorker answers projection requests received over AMQP. It is
// stateless; any number of copies may consume the same queue.
type ProjectionWorker struct {
	logger    *applog.Logger
	processed atomic.Int64
	rejected  atomic.Int64
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Processed int64
	Rejected  int64
}

func NewProjectionWorker(logger *applog.Logger) *ProjectionWorker {
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentWorker})
	}
	return &ProjectionWorker{logger: logger}
}

// Handle runs one calculation. Invalid input becomes an error reply rather
// than a failed delivery, since retrying it would give the same answer.
func (w *ProjectionWorker) Handle(ctx context.Context, req *amqp.ProjectionRequest) *amqp.ProjectionReply {
	start := time.Now()
	p, err := core.Calculate(req.Input)
	if err != nil {
		w.rejected.Add(1)
		resp := api.FromError(err)
		w.logger.WarnContext(ctx, "Rejected projection request",
			applog.FieldOperation, applog.OpConsume,
			applog.FieldErrorKind, resp.Error,
			applog.FieldField, resp.Field,
			applog.FieldError, err)
		return &amqp.ProjectionReply{Error: &resp, Timestamp: time.Now()}
	}

	w.processed.Add(1)
	w.logger.InfoContext(ctx, "Processed projection request",
		applog.FieldOperation, applog.OpConsume,
		applog.FieldYearsToGo, p.YearsUntilCollege,
		applog.FieldMonths, p.MonthsUntilCollege,
		applog.FieldMonthlySaving, p.MonthlySavings,
		applog.FieldDuration, time.Since(start).Milliseconds())

	resp := api.FromProjection(p, req.IncludeSeries)
	return &amqp.ProjectionReply{Result: &resp, Timestamp: time.Now()}
}

func (w *ProjectionWorker) Stats() Stats {
	return Stats{Processed: w.processed.Load(), Rejected: w.rejected.Load()}
}
