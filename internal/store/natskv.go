package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dedezza1D/tasklife/internal/task"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const DefaultNATSBucket = "tasks"

// NATSKV stores tasks in a JetStream key-value bucket keyed by global task id.
type NATSKV struct {
	nc     *nats.Conn
	ownsNC bool
	kv     jetstream.KeyValue
}

// DialNATSKV connects to url and binds (creating if needed) the bucket.
func DialNATSKV(ctx context.Context, url, bucket string) (*NATSKV, error) {
	nc, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	s, err := NewNATSKV(ctx, nc, bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}
	s.ownsNC = true
	return s, nil
}

func NewNATSKV(ctx context.Context, nc *nats.Conn, bucket string) (*NATSKV, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection required")
	}
	if bucket == "" {
		bucket = DefaultNATSBucket
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "task lifecycle records",
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket: %w", err)
	}
	return &NATSKV{nc: nc, kv: kv}, nil
}

func (s *NATSKV) Close() error {
	if s.ownsNC && s.nc != nil {
		s.nc.Close()
	}
	return nil
}

func (s *NATSKV) GetTask(ctx context.Context, id string) (*task.Task, bool, error) {
	entry, err := s.kv.Get(ctx, id)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	t, err := decodeTask(entry.Value())
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s *NATSKV) PutTask(ctx context.Context, t *task.Task) error {
	b, err := encodeTask(t)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, t.GlobalTaskID, b); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// PutTaskIfState reads the current revision and updates against it, so a concurrent
// writer between the read and the update makes the update fail.
func (s *NATSKV) PutTaskIfState(ctx context.Context, t *task.Task, expected task.State) error {
	b, err := encodeTask(t)
	if err != nil {
		return err
	}

	entry, err := s.kv.Get(ctx, t.GlobalTaskID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("kv get: %w", err)
	}
	cur, err := decodeTask(entry.Value())
	if err != nil {
		return err
	}
	if cur.State != expected {
		return ErrStateConflict
	}

	if _, err := s.kv.Update(ctx, t.GlobalTaskID, b, entry.Revision()); err != nil {
		if isWrongRevision(err) {
			return ErrStateConflict
		}
		return fmt.Errorf("kv update: %w", err)
	}
	return nil
}

func isWrongRevision(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

// Status exposes bucket details for operational tooling.
func (s *NATSKV) Status(ctx context.Context) (jetstream.KeyValueStatus, error) {
	return s.kv.Status(ctx)
}
