/*
Package cache keeps completed settlements in Redis so replays of a checkout
answer without touching the store.

Only fully settled outcomes are written. A partial settlement is never
cached, so a retry always re-reads the store and sees the missing steps.

KEYS:
  settlement:<booking id>  JSON-encoded settlement.Settled, expires after TTL
*/
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warp/occupancy-engine/occupancy"
	"github.com/warp/occupancy-engine/settlement"
)

// DefaultTTL bounds how long a settled outcome is replayed from Redis.
const DefaultTTL = 24 * time.Hour

// RedisOutcomeCache implements settlement.OutcomeCache.
type RedisOutcomeCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ settlement.OutcomeCache = (*RedisOutcomeCache)(nil)

// Options selects the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisOutcomeCache dials a new client from opts.
func NewRedisOutcomeCache(opts Options) (*RedisOutcomeCache, *redis.Client) {
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	return New(client, opts.TTL), client
}

// New wraps an existing client. A non-positive ttl uses DefaultTTL.
func New(client redis.Cmdable, ttl time.Duration) *RedisOutcomeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisOutcomeCache{client: client, ttl: ttl}
}

func (c *RedisOutcomeCache) Load(ctx context.Context, id occupancy.BookingID) (*settlement.Settled, error) {
	data, err := c.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settlement %s: %w", id, err)
	}

	var settled settlement.Settled
	if err := json.Unmarshal(data, &settled); err != nil {
		return nil, fmt.Errorf("failed to decode settlement %s: %w", id, err)
	}
	return &settled, nil
}

func (c *RedisOutcomeCache) Store(ctx context.Context, id occupancy.BookingID, s settlement.Settled) error {
	// Replay flags describe one call, not the settlement.
	s.AlreadySettled = false
	s.ConcurrentLoss = false

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settlement %s: %w", id, err)
	}
	return c.client.Set(ctx, Key(id), payload, c.ttl).Err()
}

// Invalidate drops a cached outcome.
func (c *RedisOutcomeCache) Invalidate(ctx context.Context, id occupancy.BookingID) error {
	return c.client.Del(ctx, Key(id)).Err()
}

func Key(id occupancy.BookingID) string {
	return "settlement:" + string(id)
}
