package availability

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

const slotCacheKeyPrefix = "avail:"

// SlotCache keeps recently computed slot lists in Redis so bursts of
// availability requests for the same day do not refetch busy intervals.
// Every failure is treated as a miss; the cache can never break a request.
//
// One hash per day, fields keyed by requested duration, so a booking on a
// day invalidates every cached duration with a single DEL.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewSlotCache returns a cache, or nil when no Redis client is configured.
func NewSlotCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *SlotCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotCache{client: client, ttl: ttl, logger: logger}
}

type cachedAvailability struct {
	Slots      []time.Time `json:"slots"`
	Incomplete bool        `json:"incomplete"`
}

func slotCacheKey(date time.Time, loc *time.Location) string {
	return slotCacheKeyPrefix + date.In(loc).Format("2006-01-02")
}

// Get returns a cached availability result, if any.
func (c *SlotCache) Get(ctx context.Context, date time.Time, loc *time.Location, duration time.Duration) (Availability, bool) {
	if c == nil {
		return Availability{}, false
	}
	field := strconv.Itoa(int(duration / time.Minute))
	data, err := c.client.HGet(ctx, slotCacheKey(date, loc), field).Bytes()
	if err == redis.Nil {
		return Availability{}, false
	}
	if err != nil {
		c.logger.Warn("slot cache read failed", "error", err)
		return Availability{}, false
	}
	var cached cachedAvailability
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("slot cache payload corrupt", "error", err)
		return Availability{}, false
	}
	return Availability{Date: date, Slots: cached.Slots, Incomplete: cached.Incomplete}, true
}

// Set stores a computed availability result.
func (c *SlotCache) Set(ctx context.Context, date time.Time, loc *time.Location, duration time.Duration, result Availability) {
	if c == nil {
		return
	}
	data, err := json.Marshal(cachedAvailability{Slots: result.Slots, Incomplete: result.Incomplete})
	if err != nil {
		return
	}
	key := slotCacheKey(date, loc)
	field := strconv.Itoa(int(duration / time.Minute))
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("slot cache write failed", "error", err)
	}
}

// InvalidateDay drops every cached duration for a date. Called after an
// appointment on that date is created or cancelled.
func (c *SlotCache) InvalidateDay(ctx context.Context, date time.Time, loc *time.Location) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, slotCacheKey(date, loc)).Err(); err != nil {
		c.logger.Warn("slot cache invalidation failed", "error", err)
	}
}
