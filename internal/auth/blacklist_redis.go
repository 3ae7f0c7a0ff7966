package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBlacklist is a Blacklist shared across process instances. Entries
// carry a TTL derived from the token's own expiry, so Redis evicts them
// without any sweep of ours.
type RedisBlacklist struct {
	client *redis.Client
	prefix string
	nowFn  func() time.Time
}

// NewRedisBlacklist constructs a RedisBlacklist.
func NewRedisBlacklist(client *redis.Client, prefix string) *RedisBlacklist {
	return &RedisBlacklist{
		client: client,
		prefix: strings.TrimSpace(prefix),
		nowFn:  time.Now,
	}
}

// Revoke records the token as revoked until expiresAt. Tokens already past
// their expiry are not stored.
func (b *RedisBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return nil
	}
	ttl := expiresAt.Sub(b.nowFn())
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.buildKey(token), "1", ttl).Err()
}

// IsRevoked reports whether the token is currently revoked.
func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	count, errExists := b.client.Exists(ctx, b.buildKey(token)).Result()
	if errExists != nil {
		return false, errExists
	}
	return count > 0, nil
}

// Clear removes every entry under the configured prefix.
func (b *RedisBlacklist) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, errScan := b.client.Scan(ctx, cursor, b.prefix+":*", 100).Result()
		if errScan != nil {
			return errScan
		}
		if len(keys) > 0 {
			if errDel := b.client.Del(ctx, keys...).Err(); errDel != nil {
				return errDel
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// buildKey derives a fixed-length fingerprint key for the token.
func (b *RedisBlacklist) buildKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	fingerprint := hex.EncodeToString(sum[:])
	if b.prefix == "" {
		return fingerprint
	}
	return b.prefix + ":" + fingerprint
}
