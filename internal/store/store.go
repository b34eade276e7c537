package store

import (
	"context"
	"fmt"

	"github.com/dedezza1D/tasklife/internal/task"
	"go.uber.org/zap"
)

// Repository persists whole task records keyed by global task id.
type Repository interface {
	// GetTask returns (task, true, nil) when present and (nil, false, nil) when absent.
	// A non-nil error means presence could not be determined.
	GetTask(ctx context.Context, id string) (*task.Task, bool, error)

	// PutTask upserts the full record.
	PutTask(ctx context.Context, t *task.Task) error
}

// ConditionalWriter overwrites a record only while its stored state still equals expected.
// It returns ErrNotFound when no record exists and ErrStateConflict when the state moved.
type ConditionalWriter interface {
	PutTaskIfState(ctx context.Context, t *task.Task, expected task.State) error
}

// Backend is what every adapter in this package provides.
type Backend interface {
	Repository
	ConditionalWriter
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendNATS     = "nats"
)

type Config struct {
	Backend string

	DatabaseURL string
	SQLitePath  string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	NATSURL    string
	NATSBucket string
}

// Open connects the configured backend and wraps it with tracing and metrics.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		b = NewMemory()
	case BackendPostgres:
		b, err = NewPostgres(ctx, cfg.DatabaseURL)
	case BackendSQLite:
		b, err = NewSQLite(ctx, cfg.SQLitePath)
	case BackendRedis:
		b, err = NewRedis(ctx, RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	case BackendNATS:
		b, err = DialNATSKV(ctx, cfg.NATSURL, cfg.NATSBucket)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	name := cfg.Backend
	if name == "" {
		name = BackendMemory
	}
	logger.Info("task store ready", zap.String("backend", name))
	return Instrument(b, name, logger), nil
}
