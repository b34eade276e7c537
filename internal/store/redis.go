package store

import (
	"context"
	"errors"

	"github.com/dedezza1D/tasklife/internal/task"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Redis keeps each task as a JSON string at <prefix><global_task_id>.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisWithClient(client, cfg.KeyPrefix), nil
}

func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "task:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) key(id string) string { return s.prefix + id }

func (s *Redis) Close() error { return s.client.Close() }

func (s *Redis) GetTask(ctx context.Context, id string) (*task.Task, bool, error) {
	b, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	t, err := decodeTask(b)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s *Redis) PutTask(ctx context.Context, t *task.Task) error {
	b, err := encodeTask(t)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(t.GlobalTaskID), b, 0).Err()
}

func (s *Redis) PutTaskIfState(ctx context.Context, t *task.Task, expected task.State) error {
	b, err := encodeTask(t)
	if err != nil {
		return err
	}
	key := s.key(t.GlobalTaskID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decodeTask(raw)
		if err != nil {
			return err
		}
		if cur.State != expected {
			return ErrStateConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}

	// Watch aborts the MULTI if another client touched the key after our read.
	err = s.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStateConflict
	}
	return err
}
