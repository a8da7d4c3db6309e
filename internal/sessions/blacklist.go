package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist tracks revoked access tokens in Redis until their natural expiry.
// A nil *Blacklist (or one built from a nil client) is a no-op, so callers can
// hold one unconditionally.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

func (b *Blacklist) key(token string) string {
	return "blacklist:access:" + token
}

// Revoke stores the token with the given TTL. No-op without a Redis client.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Set(ctx, b.key(token), "1", ttl).Err()
}

// IsRevoked reports whether the token has been blacklisted.
// Without a Redis client it always returns (false, nil).
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if b == nil || b.client == nil {
		return false, nil
	}
	exists, err := b.client.Exists(ctx, b.key(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
