package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DailyCounter is a fast-path view of today's earns per (user, currency,
// source). It exists only to short-circuit obviously over-cap traffic before
// it reaches Postgres; the SQL sum inside the earn transaction stays
// authoritative, so the counter may lag or be lost without affecting
// correctness.
type DailyCounter interface {
	Used(ctx context.Context, userID int64, cur Currency, reason string) (int64, error)
	Add(ctx context.Context, userID int64, cur Currency, reason string, amount int64) error
}

// RedisDailyCounter keeps per-day earn totals in Redis with keys that expire
// shortly after UTC midnight.
type RedisDailyCounter struct {
	client *redis.Client
	prefix string
}

func NewRedisDailyCounter(client *redis.Client, prefix string) *RedisDailyCounter {
	if prefix == "" {
		prefix = "earncap:"
	}
	return &RedisDailyCounter{client: client, prefix: prefix}
}

func (r *RedisDailyCounter) key(userID int64, cur Currency, reason string) string {
	day := time.Now().UTC().Format("20060102")
	return fmt.Sprintf("%s%s:%s:%d:%s", r.prefix, cur, reason, userID, day)
}

func (r *RedisDailyCounter) Used(ctx context.Context, userID int64, cur Currency, reason string) (int64, error) {
	n, err := r.client.Get(ctx, r.key(userID, cur, reason)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (r *RedisDailyCounter) Add(ctx context.Context, userID int64, cur Currency, reason string, amount int64) error {
	key := r.key(userID, cur, reason)
	n, err := r.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		return err
	}
	if n == amount {
		// first write of the day: expire a little past the UTC rollover
		now := time.Now().UTC()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		_ = r.client.Expire(ctx, key, time.Until(midnight)+time.Hour).Err()
	}
	return nil
}
