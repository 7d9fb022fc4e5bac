// Package taskmon tracks background task status. Entries live in Redis as
// hashes with a TTL so that finished tasks age out on their own; the server
// reads them back for GET /tasks/{id}.
package taskmon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type State string

const (
	StateReceived  State = "RECEIVED"
	StateStarted   State = "STARTED"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

var ErrNotFound = errors.New("task not found")

type Task struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DocumentID string `json:"document_id"`
	State      State  `json:"state"`
	Error      string `json:"error,omitempty"`
}

// Store is what both the worker (writes) and the server (reads) need.
type Store interface {
	Set(ctx context.Context, task Task) error
	Get(ctx context.Context, id string) (Task, error)
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{rdb: redis.NewClient(opts), ttl: ttl}, nil
}

func (s *RedisStore) Set(ctx context.Context, task Task) error {
	key := taskKey(task.ID)
	if err := s.rdb.HSet(ctx, key, taskFields(task)).Err(); err != nil {
		return fmt.Errorf("store task %s: %w", task.ID, err)
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("expire task %s: %w", task.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Task, error) {
	fields, err := s.rdb.HGetAll(ctx, taskKey(id)).Result()
	if err != nil {
		return Task{}, fmt.Errorf("load task %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Task{}, ErrNotFound
	}
	return taskFromFields(id, fields), nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func taskKey(id string) string {
	return "task:" + id
}

func taskFields(task Task) map[string]string {
	return map[string]string{
		"name":        task.Name,
		"document_id": task.DocumentID,
		"state":       string(task.State),
		"error":       task.Error,
	}
}

func taskFromFields(id string, fields map[string]string) Task {
	return Task{
		ID:         id,
		Name:       fields["name"],
		DocumentID: fields["document_id"],
		State:      State(fields["state"]),
		Error:      fields["error"],
	}
}
