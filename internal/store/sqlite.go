package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dedezza1D/tasklife/internal/task"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    global_task_id VARCHAR(64)  PRIMARY KEY,
    user_uuid      VARCHAR(64)  NOT NULL,
    task_type      VARCHAR(255) NOT NULL,
    source_file    TEXT         NOT NULL,
    result_file    TEXT         NULL,
    state          VARCHAR(32)  NOT NULL,
    updated_at     DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is an embedded single-node Backend built on modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dsn, e.g. "file:tasks.db" or
// "file:x?mode=memory&cache=shared".
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) GetTask(ctx context.Context, id string) (*task.Task, bool, error) {
	q := `SELECT global_task_id, user_uuid, task_type, source_file, result_file, state FROM tasks WHERE global_task_id = ?`

	var (
		t          task.Task
		resultFile sql.NullString
		state      string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&t.GlobalTaskID, &t.UserUUID, &t.TaskType, &t.SourceFile, &resultFile, &state,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if resultFile.Valid {
		v := resultFile.String
		t.ResultFile = &v
	}
	if t.State, err = task.ParseState(state); err != nil {
		return nil, false, err
	}
	return &t, true, nil
}

func (s *SQLite) PutTask(ctx context.Context, t *task.Task) error {
	q := `INSERT INTO tasks (global_task_id, user_uuid, task_type, source_file, result_file, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (global_task_id) DO UPDATE SET
			user_uuid = excluded.user_uuid,
			task_type = excluded.task_type,
			source_file = excluded.source_file,
			result_file = excluded.result_file,
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP`
	_, err := s.db.ExecContext(ctx, q,
		t.GlobalTaskID, t.UserUUID, t.TaskType, t.SourceFile, nullString(t.ResultFile), string(t.State),
	)
	return err
}

func (s *SQLite) PutTaskIfState(ctx context.Context, t *task.Task, expected task.State) error {
	q := `UPDATE tasks SET user_uuid = ?, task_type = ?, source_file = ?, result_file = ?, state = ?, updated_at = CURRENT_TIMESTAMP
		WHERE global_task_id = ? AND state = ?`
	res, err := s.db.ExecContext(ctx, q,
		t.UserUUID, t.TaskType, t.SourceFile, nullString(t.ResultFile), string(t.State), t.GlobalTaskID, string(expected),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	_, found, err := s.GetTask(ctx, t.GlobalTaskID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return ErrStateConflict
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
