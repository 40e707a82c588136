package pagerdutyaction

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultStore remembers the outcome of a mutating job so a redelivered job
// does not repeat the PagerDuty call.
type ResultStore interface {
	Get(ctx context.Context, jobKey int64) (interface{}, bool, error)
	Put(ctx context.Context, jobKey int64, value interface{}) error
}

const resultKeyPrefix = "pagerduty-action:result:"

type RedisResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResultStore(client *redis.Client, ttl time.Duration) *RedisResultStore {
	return &RedisResultStore{client: client, ttl: ttl}
}

func resultKey(jobKey int64) string {
	return resultKeyPrefix + strconv.FormatInt(jobKey, 10)
}

func (s *RedisResultStore) Get(ctx context.Context, jobKey int64) (interface{}, bool, error) {
	data, err := s.client.Get(ctx, resultKey(jobKey)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read stored result: %w", err)
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("decode stored result: %w", err)
	}
	return value, true, nil
}

func (s *RedisResultStore) Put(ctx context.Context, jobKey int64, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := s.client.Set(ctx, resultKey(jobKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}
