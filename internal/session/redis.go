package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ignite/courier-ops/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session in a hash with a TTL, plus a per-dataset
// set of tokens so that ResetAll can find them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(ds domain.Dataset, token string) string {
	return fmt.Sprintf("upload_session:%s:%s", ds, token)
}

func indexKey(ds domain.Dataset) string {
	return fmt.Sprintf("upload_sessions:%s", ds)
}

func (r *RedisStore) Create(ctx context.Context, ds domain.Dataset) (*Session, error) {
	s := &Session{Token: NewToken(), Dataset: ds, CreatedAt: time.Now().UTC()}
	key := sessionKey(ds, s.Token)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"initialized":     "0",
		"total_processed": 0,
		"created_at":      s.CreatedAt.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, r.ttl)
	pipe.SAdd(ctx, indexKey(ds), s.Token)
	pipe.Expire(ctx, indexKey(ds), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("creating upload session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, ds domain.Dataset, token string) (*Session, error) {
	vals, err := r.client.HGetAll(ctx, sessionKey(ds, token)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading upload session: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	total, _ := strconv.Atoi(vals["total_processed"])
	created, _ := time.Parse(time.RFC3339Nano, vals["created_at"])
	return &Session{
		Token:          token,
		Dataset:        ds,
		Initialized:    vals["initialized"] == "1",
		TotalProcessed: total,
		CreatedAt:      created,
	}, nil
}

// exists guards writes so that an expired session is not resurrected as a
// hash without a TTL.
func (r *RedisStore) exists(ctx context.Context, key string) error {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("checking upload session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) MarkInitialized(ctx context.Context, ds domain.Dataset, token string) error {
	key := sessionKey(ds, token)
	if err := r.exists(ctx, key); err != nil {
		return err
	}
	if err := r.client.HSet(ctx, key, "initialized", "1").Err(); err != nil {
		return fmt.Errorf("marking upload session: %w", err)
	}
	return nil
}

func (r *RedisStore) AddProcessed(ctx context.Context, ds domain.Dataset, token string, n int) (int, error) {
	key := sessionKey(ds, token)
	if err := r.exists(ctx, key); err != nil {
		return 0, err
	}
	total, err := r.client.HIncrBy(ctx, key, "total_processed", int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("updating upload session: %w", err)
	}
	return int(total), nil
}

func (r *RedisStore) Reset(ctx context.Context, ds domain.Dataset, token string) error {
	key := sessionKey(ds, token)
	if err := r.exists(ctx, key); err != nil {
		return err
	}
	if err := r.client.HSet(ctx, key, "initialized", "0", "total_processed", 0).Err(); err != nil {
		return fmt.Errorf("resetting upload session: %w", err)
	}
	return nil
}

func (r *RedisStore) ResetAll(ctx context.Context, ds domain.Dataset) (int, error) {
	tokens, err := r.client.SMembers(ctx, indexKey(ds)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("listing upload sessions: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(ds, t))
	}
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("deleting upload sessions: %w", err)
	}
	if err := r.client.Del(ctx, indexKey(ds)).Err(); err != nil {
		return 0, fmt.Errorf("deleting upload session index: %w", err)
	}
	return int(deleted), nil
}
