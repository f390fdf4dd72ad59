package repositories

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"pipeline-workers/domain"
)

const scanBatch = 100

type redisKV struct {
	client *redis.Client
}

func NewRedisKV(host, port, password string, db int) KV {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})
	return &redisKV{client: rdb}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errors.Wrapf(domain.ErrNotFound, "redis get %s", key)
	}
	if err != nil {
		return "", errors.Wrapf(err, "redis get failure for %s", key)
	}
	return v, nil
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set failure for %s", key)
	}
	return nil
}

// Scan walks the keyspace with SCAN MATCH prefix* and reads every match.
// Keys deleted between the scan and the read are skipped.
func (r *redisKV) Scan(ctx context.Context, prefix string) (map[string]string, error) {
	out := map[string]string{}
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "redis scan failure for %s", prefix)
		}
		for _, key := range keys {
			v, err := r.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, errors.Wrapf(err, "redis get failure for %s", key)
			}
			out[key] = v
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
