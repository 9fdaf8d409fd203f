package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Cache on a Redis instance.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis pointed at by url and verifies the
// connection.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

// SetJobStatus stores the snapshot under the job's status key.
func (r *Redis) SetJobStatus(ctx context.Context, jobID string, snap StatusSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal status snapshot: %w", err)
	}
	if err := r.client.Set(ctx, JobStatusKey(jobID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	return nil
}

// GetJobStatus returns the snapshot and whether it was present.
func (r *Redis) GetJobStatus(ctx context.Context, jobID string) (StatusSnapshot, bool, error) {
	payload, err := r.client.Get(ctx, JobStatusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return StatusSnapshot{}, false, nil
	}
	if err != nil {
		return StatusSnapshot{}, false, fmt.Errorf("get job status: %w", err)
	}
	var snap StatusSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return StatusSnapshot{}, false, fmt.Errorf("decode status snapshot: %w", err)
	}
	return snap, true, nil
}

// DeleteJobStatus drops the snapshot.
func (r *Redis) DeleteJobStatus(ctx context.Context, jobID string) error {
	if err := r.client.Del(ctx, JobStatusKey(jobID)).Err(); err != nil {
		return fmt.Errorf("delete job status: %w", err)
	}
	return nil
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
