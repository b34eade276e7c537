package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dedezza1D/tasklife/internal/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    global_task_id TEXT PRIMARY KEY,
    user_uuid      TEXT        NOT NULL,
    task_type      TEXT        NOT NULL,
    source_file    TEXT        NOT NULL,
    result_file    TEXT        NULL,
    state          TEXT        NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	// sensible defaults
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func (s *Postgres) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

func (s *Postgres) GetTask(ctx context.Context, id string) (*task.Task, bool, error) {
	q := `
SELECT global_task_id, user_uuid, task_type, source_file, result_file, state
FROM tasks
WHERE global_task_id = $1;
`
	var (
		t     task.Task
		state string
	)
	err := s.db.QueryRow(ctx, q, id).Scan(
		&t.GlobalTaskID, &t.UserUUID, &t.TaskType, &t.SourceFile, &t.ResultFile, &state,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if t.State, err = task.ParseState(state); err != nil {
		return nil, false, err
	}
	return &t, true, nil
}

func (s *Postgres) PutTask(ctx context.Context, t *task.Task) error {
	q := `
INSERT INTO tasks (global_task_id, user_uuid, task_type, source_file, result_file, state)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (global_task_id) DO UPDATE
SET user_uuid   = EXCLUDED.user_uuid,
    task_type   = EXCLUDED.task_type,
    source_file = EXCLUDED.source_file,
    result_file = EXCLUDED.result_file,
    state       = EXCLUDED.state,
    updated_at  = now();
`
	_, err := s.db.Exec(ctx, q,
		t.GlobalTaskID, t.UserUUID, t.TaskType, t.SourceFile, t.ResultFile, string(t.State),
	)
	return err
}

func (s *Postgres) PutTaskIfState(ctx context.Context, t *task.Task, expected task.State) error {
	q := `
UPDATE tasks
SET user_uuid   = $2,
    task_type   = $3,
    source_file = $4,
    result_file = $5,
    state       = $6,
    updated_at  = now()
WHERE global_task_id = $1 AND state = $7;
`
	tag, err := s.db.Exec(ctx, q,
		t.GlobalTaskID, t.UserUUID, t.TaskType, t.SourceFile, t.ResultFile, string(t.State), string(expected),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// either not found OR state moved; check existence
	_, found, err := s.GetTask(ctx, t.GlobalTaskID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return ErrStateConflict
}
