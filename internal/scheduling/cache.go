package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"clinic-scheduler/internal/logging"

	"github.com/redis/go-redis/v9"
)

const slotCacheTTL = time.Minute

// SlotCache caches bookable slot lists per doctor and day. The cache is advisory only:
// a miss or an error falls back to the resolver, and the booking path never consults it.
type SlotCache interface {
	GetSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, bool)
	SetSlots(ctx context.Context, doctorID int64, date time.Time, slots []string)
	InvalidateDay(ctx context.Context, doctorID int64, date time.Time)
	InvalidateDoctor(ctx context.Context, doctorID int64)
}

type redisSlotCache struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisSlotCache creates a SlotCache backed by the given Redis client.
func NewRedisSlotCache(client *redis.Client, logger *log.Logger) SlotCache {
	return &redisSlotCache{client: client, logger: logger}
}

func slotCacheKey(doctorID int64, date time.Time) string {
	return fmt.Sprintf("slots:%d:%s", doctorID, date.Format("2006-01-02"))
}

func (c *redisSlotCache) GetSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, bool) {
	payload, err := c.client.Get(ctx, slotCacheKey(doctorID, date)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.PrintlnWarn(c.logger, fmt.Sprint("slot cache read failed: ", err))
		}
		return nil, false
	}
	slots := make([]string, 0)
	if err = json.Unmarshal([]byte(payload), &slots); err != nil {
		logging.PrintlnWarn(c.logger, fmt.Sprint("slot cache entry is not parseable: ", err))
		return nil, false
	}
	return slots, true
}

func (c *redisSlotCache) SetSlots(ctx context.Context, doctorID int64, date time.Time, slots []string) {
	payload, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err = c.client.Set(ctx, slotCacheKey(doctorID, date), payload, slotCacheTTL).Err(); err != nil {
		logging.PrintlnWarn(c.logger, fmt.Sprint("slot cache write failed: ", err))
	}
}

func (c *redisSlotCache) InvalidateDay(ctx context.Context, doctorID int64, date time.Time) {
	if err := c.client.Del(ctx, slotCacheKey(doctorID, date)).Err(); err != nil {
		logging.PrintlnWarn(c.logger, fmt.Sprint("slot cache invalidation failed: ", err))
	}
}

// InvalidateDoctor drops every cached day of the doctor. Used when the weekly recurring
// windows change, since a window affects all future dates of its weekday.
func (c *redisSlotCache) InvalidateDoctor(ctx context.Context, doctorID int64) {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("slots:%d:*", doctorID), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logging.PrintlnWarn(c.logger, fmt.Sprint("slot cache invalidation failed: ", err))
		}
	}
	if err := iter.Err(); err != nil {
		logging.PrintlnWarn(c.logger, fmt.Sprint("slot cache scan failed: ", err))
	}
}

type nopSlotCache struct{}

// NewNopSlotCache creates a SlotCache that stores nothing, used when no cache server is configured.
func NewNopSlotCache() SlotCache {
	return nopSlotCache{}
}

func (nopSlotCache) GetSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, bool) {
	return nil, false
}

func (nopSlotCache) SetSlots(ctx context.Context, doctorID int64, date time.Time, slots []string) {
}

func (nopSlotCache) InvalidateDay(ctx context.Context, doctorID int64, date time.Time) {}

func (nopSlotCache) InvalidateDoctor(ctx context.Context, doctorID int64) {}
