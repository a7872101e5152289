package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matst80/gremlink/internal/obs"
)

const redisKeyPrefix = "gremlink:result:"

// Redis is a Store backed by a shared Redis instance. Values survive only as
// their JSON form, so typed wire values come back as generic JSON shapes;
// callers treating cached and fresh results identically should cache only
// plain data.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and verifies the backend with a ping.
func NewRedis(addr, password string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &Redis{client: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]any, bool) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			obs.Error("cache.redis.get", obs.Fields{"err": err.Error()})
		}
		return nil, false
	}
	var values []any
	if err := json.Unmarshal([]byte(val), &values); err != nil {
		obs.Error("cache.redis.unmarshal", obs.Fields{"err": err.Error()})
		return nil, false
	}
	return values, true
}

func (r *Redis) Put(ctx context.Context, key string, values []any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(values)
	if err != nil {
		obs.Error("cache.redis.marshal", obs.Fields{"err": err.Error()})
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		obs.Error("cache.redis.set", obs.Fields{"err": err.Error()})
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
