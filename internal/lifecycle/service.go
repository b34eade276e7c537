// Package lifecycle loads tasks, validates requested state changes against the
// task model and writes the result back through a store.Repository.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dedezza1D/tasklife/internal/events"
	"github.com/dedezza1D/tasklife/internal/observability"
	"github.com/dedezza1D/tasklife/internal/store"
	"github.com/dedezza1D/tasklife/internal/task"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultStoreTimeout = 5 * time.Second

type Options struct {
	// StoreTimeout bounds each repository call. Zero means 5s.
	StoreTimeout time.Duration
	Events       events.Publisher
	Now          func() time.Time
}

type Service struct {
	repo    store.Repository
	events  events.Publisher
	logger  *zap.Logger
	tracer  trace.Tracer
	timeout time.Duration
	now     func() time.Time
}

func NewService(repo store.Repository, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:    repo,
		events:  opts.Events,
		logger:  logger,
		tracer:  otel.Tracer(observability.TracerName + "/lifecycle"),
		timeout: opts.StoreTimeout,
		now:     opts.Now,
	}
}

type SubmitParams struct {
	UserUUID   string
	TaskType   string
	SourceFile string
}

func (p SubmitParams) validate() error {
	var missing []string
	if strings.TrimSpace(p.UserUUID) == "" {
		missing = append(missing, "user_uuid")
	}
	if strings.TrimSpace(p.TaskType) == "" {
		missing = append(missing, "task_type")
	}
	if strings.TrimSpace(p.SourceFile) == "" {
		missing = append(missing, "source_file")
	}
	if len(missing) > 0 {
		return &Error{Kind: KindBadRequest, Msg: strings.Join(missing, ", ") + " required"}
	}
	return nil
}

// Submit creates a queued task and persists it.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (*task.Task, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.submit")
	defer span.End()

	if err := p.validate(); err != nil {
		return nil, err
	}

	t := task.New(p.UserUUID, p.TaskType, p.SourceFile)
	span.SetAttributes(attribute.String("task.id", t.GlobalID()), attribute.String("task.type", t.TaskType))

	if err := s.put(ctx, t); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "creation_failure")
		s.logger.Error("task creation failed", zap.String("task_id", t.GlobalID()), zap.Error(err))
		return nil, &Error{Kind: KindCreation, TaskID: t.GlobalID(), Err: err}
	}

	observability.TasksSubmittedTotal.WithLabelValues(t.TaskType).Inc()
	s.logger.Info("task submitted",
		zap.String("task_id", t.GlobalID()),
		zap.String("user_uuid", t.UserUUID),
		zap.String("type", t.TaskType),
	)
	s.publish(ctx, t)
	return t, nil
}

// Get returns the stored task. Ids that are not UUIDs are never issued, so they
// are reported as not found without a store round trip.
func (s *Service) Get(ctx context.Context, id string) (*task.Task, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.get", trace.WithAttributes(attribute.String("task.id", id)))
	defer span.End()

	return s.load(ctx, id)
}

func (s *Service) Start(ctx context.Context, id string) (*task.Task, error) {
	return s.Transition(ctx, id, task.StateInProgress, "")
}

func (s *Service) Complete(ctx context.Context, id, resultFile string) (*task.Task, error) {
	if strings.TrimSpace(resultFile) == "" {
		return nil, &Error{Kind: KindBadRequest, TaskID: id, Msg: "result_file required"}
	}
	return s.Transition(ctx, id, task.StateCompleted, resultFile)
}

// Transition moves task id to requested. resultFile is recorded only when requested
// is completed and is required then.
//
// When the repository supports conditional writes the commit only succeeds if the
// stored state is still the one validated against; otherwise the last writer wins.
func (s *Service) Transition(ctx context.Context, id string, requested task.State, resultFile string) (*task.Task, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.transition", trace.WithAttributes(
		attribute.String("task.id", id),
		attribute.String("task.requested_state", string(requested)),
	))
	defer span.End()

	if requested == task.StateCompleted && resultFile == "" {
		return nil, &Error{Kind: KindBadRequest, TaskID: id, Msg: "result_file required"}
	}

	t, err := s.load(ctx, id)
	if err != nil {
		observability.TaskTransitionsRejectedTotal.WithLabelValues(KindOf(err).String()).Inc()
		return nil, err
	}

	prior := t.State
	if !task.CanTransitionState(prior, requested) {
		observability.TaskTransitionsRejectedTotal.WithLabelValues(KindInvalidTransition.String()).Inc()
		s.logger.Info("task transition rejected",
			zap.String("task_id", id),
			zap.String("from", string(prior)),
			zap.String("to", string(requested)),
		)
		return nil, &Error{Kind: KindInvalidTransition, TaskID: id, From: prior, To: requested}
	}

	t.State = requested
	if requested == task.StateCompleted {
		t.ResultFile = &resultFile
	}

	if err := s.commit(ctx, t, prior); err != nil {
		kind := KindPersistence
		if errors.Is(err, store.ErrStateConflict) {
			kind = KindInvalidTransition
		}
		if errors.Is(err, store.ErrNotFound) {
			kind = KindNotFound
		}
		observability.TaskTransitionsRejectedTotal.WithLabelValues(kind.String()).Inc()
		span.RecordError(err)
		s.logger.Warn("task transition not committed",
			zap.String("task_id", id),
			zap.String("from", string(prior)),
			zap.String("to", string(requested)),
			zap.Error(err),
		)
		return nil, &Error{Kind: kind, TaskID: id, From: prior, To: requested, Err: err}
	}

	observability.TaskTransitionsTotal.WithLabelValues(string(prior), string(requested)).Inc()
	s.logger.Info("task transitioned",
		zap.String("task_id", id),
		zap.String("from", string(prior)),
		zap.String("to", string(requested)),
	)
	s.publish(ctx, t)
	return t, nil
}

func (s *Service) load(ctx context.Context, id string) (*task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &Error{Kind: KindNotFound, TaskID: id}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	t, found, err := s.repo.GetTask(ctx, id)
	if err != nil {
		s.logger.Error("task lookup failed", zap.String("task_id", id), zap.Error(err))
		return nil, &Error{Kind: KindPersistence, TaskID: id, Err: err}
	}
	if !found {
		return nil, &Error{Kind: KindNotFound, TaskID: id}
	}
	return t, nil
}

func (s *Service) put(ctx context.Context, t *task.Task) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.PutTask(ctx, t)
}

func (s *Service) commit(ctx context.Context, t *task.Task, prior task.State) error {
	cw, ok := s.repo.(store.ConditionalWriter)
	if !ok {
		return s.put(ctx, t)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return cw.PutTaskIfState(ctx, t, prior)
}

// publish is best effort; the record is already committed.
func (s *Service) publish(ctx context.Context, t *task.Task) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.events.Publish(ctx, events.FromTask(t, s.now())); err != nil {
		observability.EventsPublishFailedTotal.Inc()
		s.logger.Warn("failed to publish task event", zap.String("task_id", t.GlobalID()), zap.Error(err))
	}
}
