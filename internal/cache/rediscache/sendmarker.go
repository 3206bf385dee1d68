package rediscache

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/vprep/preparator-backend-go/internal/domain/notification"
)

const (
	keyPrefix  = "alert:send:"
	pending    = "pending"
	sentPrefix = "sent:"
	sentTTL    = 48 * time.Hour
)

type SendMarker struct {
	c   *redis.Client
	ttl time.Duration
}

// NewSendMarker keeps a pending claim for ttl. A claim that outlives a crash
// expires and the alert becomes eligible again.
func NewSendMarker(c *redis.Client, ttl time.Duration) *SendMarker {
	return &SendMarker{c: c, ttl: ttl}
}

func (m *SendMarker) Acquire(ctx context.Context, key string) (notification.MarkerState, string, error) {
	for range 2 {
		ok, err := m.c.SetNX(ctx, keyPrefix+key, pending, m.ttl).Result()
		if err != nil {
			return 0, "", errors.Wrap(err, "redis setnx")
		}
		if ok {
			return notification.MarkerAcquired, "", nil
		}

		val, err := m.c.Get(ctx, keyPrefix+key).Result()
		if err == redis.Nil {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return 0, "", errors.Wrap(err, "redis get")
		}
		if id, ok := strings.CutPrefix(val, sentPrefix); ok {
			return notification.MarkerSent, id, nil
		}
		return notification.MarkerPending, "", nil
	}
	return notification.MarkerPending, "", nil
}

func (m *SendMarker) Confirm(ctx context.Context, key, messageID string) error {
	if err := m.c.Set(ctx, keyPrefix+key, sentPrefix+messageID, sentTTL).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (m *SendMarker) Release(ctx context.Context, key string) error {
	if err := m.c.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}
