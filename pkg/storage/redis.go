package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HatiCode/velostat/pkg/points"
)

const (
	redisKeyPrefix      = "velostat"
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// RedisStore keeps only the latest value per measurement and station, in a
// hash at velostat:<measurement>:<id>. Hashes expire after ttl unless
// refreshed by a newer write; ttl <= 0 disables expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr. Call Ping to verify connectivity.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Write stores the batch in one pipelined transaction. When the batch holds
// several points for the same key, the newest one wins.
func (s *RedisStore) Write(ctx context.Context, batch []points.Point) error {
	latest := make(map[string]points.Point, len(batch))
	for _, p := range batch {
		key := redisKey(p.Measurement, p.Tags[points.TagID])
		if prev, ok := latest[key]; ok && prev.Timestamp > p.Timestamp {
			continue
		}
		latest[key] = p
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, p := range latest {
			pipe.HSet(ctx, key,
				"name", p.Tags[points.TagName],
				"ts", p.Timestamp,
				"value", p.Value,
			)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write: %w", err)
	}
	return nil
}

// Latest returns the stored point for a measurement and station id.
func (s *RedisStore) Latest(ctx context.Context, measurement string, id int) (points.Point, bool, error) {
	idStr := strconv.Itoa(id)
	vals, err := s.client.HGetAll(ctx, redisKey(measurement, idStr)).Result()
	if err != nil {
		return points.Point{}, false, fmt.Errorf("redis read: %w", err)
	}
	if len(vals) == 0 {
		return points.Point{}, false, nil
	}

	ts, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return points.Point{}, false, fmt.Errorf("redis read ts: %w", err)
	}
	value, err := strconv.ParseInt(vals["value"], 10, 64)
	if err != nil {
		return points.Point{}, false, fmt.Errorf("redis read value: %w", err)
	}

	return points.Point{
		Measurement: measurement,
		Tags: map[string]string{
			points.TagName: vals["name"],
			points.TagID:   idStr,
		},
		Timestamp: ts,
		Value:     value,
	}, true, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisKey(measurement, id string) string {
	return redisKeyPrefix + ":" + measurement + ":" + id
}
