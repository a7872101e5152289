package cache

import "github.com/matst80/gremlink/internal/obs"

// New creates either an in-memory or Redis-backed store based on configuration.
func New(redisAddr, redisPassword string, redisDB int) (Store, error) {
	if redisAddr == "" {
		obs.Info("cache.backend", obs.Fields{"type": "in-memory"})
		return NewMemory(0), nil
	}
	obs.Info("cache.backend", obs.Fields{"type": "redis", "addr": redisAddr})
	return NewRedis(redisAddr, redisPassword, redisDB)
}
