package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each payload under its key and the write time under
// "<key>_timestamp".
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a new Redis-backed cache
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a cache from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "floorplan:", now: time.Now}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Put(ctx context.Context, key string, payload []byte) error {
	k := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, payload, 0)
		pipe.Set(ctx, k+"_timestamp", s.now().UnixMilli(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	k := s.key(key)
	vals, err := s.client.MGet(ctx, k, k+"_timestamp").Result()
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", key, err)
	}
	payload, ok := vals[0].(string)
	if !ok {
		return Entry{}, ErrMiss
	}
	e := Entry{Payload: []byte(payload)}
	if ts, ok := vals[1].(string); ok {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			e.UpdatedAt = time.UnixMilli(ms)
		}
	}
	return e, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	k := s.key(key)
	if err := s.client.Del(ctx, k, k+"_timestamp").Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
