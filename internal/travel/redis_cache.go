package travel

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/meetpoint/internal/models"
)

// RedisCache implements Cache on Redis so travel-time lookups survive
// restarts and are shared across instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, ttl time.Duration) *RedisCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisCache{client: c, ttl: ttl}
}

func redisKey(from, to models.Coord, mode models.TravelMode) string {
	return "travel:" + cacheKey(from, to, mode)
}

func (r *RedisCache) Get(ctx context.Context, from, to models.Coord, mode models.TravelMode) (float64, bool) {
	v, err := r.client.Get(ctx, redisKey(from, to, mode)).Result()
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (r *RedisCache) Set(ctx context.Context, from, to models.Coord, mode models.TravelMode, seconds float64) {
	// best-effort; a failed cache write only costs a repeat lookup
	_ = r.client.Set(ctx, redisKey(from, to, mode), strconv.FormatFloat(seconds, 'f', 1, 64), r.ttl).Err()
}

func (r *RedisCache) Close() error { return r.client.Close() }
