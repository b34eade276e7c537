package store

import (
	"context"
	"errors"
	"time"

	"github.com/dedezza1D/tasklife/internal/observability"
	"github.com/dedezza1D/tasklife/internal/task"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type instrumented struct {
	next    Backend
	backend string
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Instrument wraps b so every call gets a span, a duration sample and a debug log on failure.
func Instrument(b Backend, backend string, logger *zap.Logger) Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{
		next:    b,
		backend: backend,
		logger:  logger.With(zap.String("backend", backend)),
		tracer:  otel.Tracer(observability.TracerName + "/store"),
	}
}

func (s *instrumented) observe(ctx context.Context, op, id string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", s.backend),
		attribute.String("task.id", id),
	)

	start := time.Now()
	err := fn(ctx)

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrStateConflict):
		result = "conflict"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("store call failed", zap.String("op", op), zap.String("task_id", id), zap.Error(err))
	}
	observability.StoreOperationDuration.WithLabelValues(s.backend, op, result).Observe(time.Since(start).Seconds())
	return err
}

func (s *instrumented) GetTask(ctx context.Context, id string) (*task.Task, bool, error) {
	var (
		t     *task.Task
		found bool
	)
	err := s.observe(ctx, "get_task", id, func(ctx context.Context) error {
		var err error
		t, found, err = s.next.GetTask(ctx, id)
		return err
	})
	return t, found, err
}

func (s *instrumented) PutTask(ctx context.Context, t *task.Task) error {
	return s.observe(ctx, "put_task", t.GlobalTaskID, func(ctx context.Context) error {
		return s.next.PutTask(ctx, t)
	})
}

func (s *instrumented) PutTaskIfState(ctx context.Context, t *task.Task, expected task.State) error {
	return s.observe(ctx, "put_task_if_state", t.GlobalTaskID, func(ctx context.Context) error {
		return s.next.PutTaskIfState(ctx, t, expected)
	})
}

func (s *instrumented) Close() error { return s.next.Close() }

// Unwrap returns the adapter under the instrumentation.
func (s *instrumented) Unwrap() Backend { return s.next }
