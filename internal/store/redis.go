package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces every key written by RedisStore.
const RedisKeyPrefix = "inkledger:"

const redisScanBatch = 100

// RedisStore keeps each entry as a plain string value.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects using a redis:// or rediss:// URL.
func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: RedisKeyPrefix}, nil
}

func (r *RedisStore) Read(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, redisErr("read", err)
	}
	return value, true, nil
}

func (r *RedisStore) Write(ctx context.Context, key, value string) error {
	return redisErr("write", r.client.Set(ctx, r.prefix+key, value, 0).Err())
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	return redisErr("remove", r.client.Del(ctx, r.prefix+key).Err())
}

func (r *RedisStore) Usage(ctx context.Context) (int64, error) {
	var (
		total  int64
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", redisScanBatch).Result()
		if err != nil {
			return 0, redisErr("usage", err)
		}
		if len(keys) > 0 {
			pipeline := r.client.Pipeline()
			cmds := make([]*redis.IntCmd, len(keys))
			for i, k := range keys {
				cmds[i] = pipeline.StrLen(ctx, k)
			}
			if _, err := pipeline.Exec(ctx); err != nil && err != redis.Nil {
				return 0, redisErr("usage", err)
			}
			for _, c := range cmds {
				total += c.Val()
			}
		}
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("store: redis %s: %w", op, err)
}
