package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"storefront-gateway/internal/models"
)

const (
	listingPrefix  = "listing:"
	cooldownPrefix = "otp:cooldown:"
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	ctx    context.Context
}

// NewRedisCache connects using REDIS_URL/REDIS_DB/CACHE_TTL. It returns nil
// when Redis is unreachable; every method is nil-safe so the gateway degrades
// to uncached operation.
func NewRedisCache() *RedisCache {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	redisDB := 0
	if db := os.Getenv("REDIS_DB"); db != "" {
		if dbNum, err := strconv.Atoi(db); err == nil {
			redisDB = dbNum
		}
	}

	ttlSeconds := 300 // 5 minutes default for listing pages
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			ttlSeconds = t
		}
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warnf("failed to parse Redis URL: %v", err)
		return nil
	}
	opt.DB = redisDB

	client := redis.NewClient(opt)
	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warnf("Redis connection failed, running uncached: %v", err)
		return nil
	}

	log.Infof("Redis connected, DB: %d, TTL: %d seconds", redisDB, ttlSeconds)

	return &RedisCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		ctx:    ctx,
	}
}

// ListingKey derives the deterministic cache key for one listing request.
func ListingKey(params models.QueryParams) string {
	return listingPrefix + params.Key()
}

// GetListing returns a cached listing page, or nil on a miss.
func (r *RedisCache) GetListing(params models.QueryParams) (*models.Listing, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	val, err := r.client.Get(r.ctx, ListingKey(params)).Result()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %v", err)
	}

	var listing models.Listing
	if err := json.Unmarshal([]byte(val), &listing); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %v", err)
	}
	return &listing, nil
}

// SetListing caches a listing page under its params key.
func (r *RedisCache) SetListing(params models.QueryParams, listing *models.Listing) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not available")
	}

	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("json marshal error: %v", err)
	}
	return r.client.Set(r.ctx, ListingKey(params), data, r.ttl).Err()
}

// GetCooldownDeadline returns the persisted OTP resend deadline for a checkout
// flow; the zero time means none is active.
func (r *RedisCache) GetCooldownDeadline(flowID string) (time.Time, error) {
	if r == nil || r.client == nil {
		return time.Time{}, fmt.Errorf("redis client not available")
	}

	val, err := r.client.Get(r.ctx, cooldownPrefix+flowID).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis get error: %v", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad cooldown value %q: %v", val, err)
	}
	return time.Unix(unix, 0), nil
}

// SetCooldownDeadline persists the resend deadline, expiring shortly after it
// passes.
func (r *RedisCache) SetCooldownDeadline(flowID string, deadline time.Time) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not available")
	}

	ttl := time.Until(deadline) + time.Minute
	return r.client.Set(r.ctx, cooldownPrefix+flowID, strconv.FormatInt(deadline.Unix(), 10), ttl).Err()
}

func (r *RedisCache) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *RedisCache) IsAvailable() bool {
	return r != nil && r.client != nil
}

func (r *RedisCache) GetStats() map[string]interface{} {
	if r == nil || r.client == nil {
		return map[string]interface{}{
			"status": "unavailable",
		}
	}

	info := r.client.Info(r.ctx, "memory").Val()
	return map[string]interface{}{
		"status":      "connected",
		"ttl_seconds": int(r.ttl.Seconds()),
		"memory_info": info,
	}
}

// GetAllKeys lists the gateway's cache keys (listing pages and cooldowns).
func (r *RedisCache) GetAllKeys() []string {
	if r == nil || r.client == nil {
		return []string{}
	}
	var all []string
	for _, pattern := range []string{listingPrefix + "*", cooldownPrefix + "*"} {
		keys, err := r.client.Keys(r.ctx, pattern).Result()
		if err != nil {
			continue
		}
		all = append(all, keys...)
	}
	if all == nil {
		all = []string{}
	}
	return all
}

func (r *RedisCache) FlushCache() error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not available")
	}
	return r.client.FlushDB(r.ctx).Err()
}

func (r *RedisCache) GetKeyTTL(key string) time.Duration {
	if r == nil || r.client == nil {
		return 0
	}
	ttl, err := r.client.TTL(r.ctx, key).Result()
	if err != nil {
		return 0
	}
	return ttl
}
