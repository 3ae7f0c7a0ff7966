package auth

import (
	"context"
	"sync"
	"time"
)

// Blacklist rejects revoked tokens until their natural expiry. Entries are
// keyed by the full token string; implementations must be safe for
// concurrent use.
type Blacklist interface {
	// Revoke records the token as revoked until expiresAt. Revoking an
	// already-revoked token is a no-op.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// IsRevoked reports whether the token is currently revoked. Entries
	// past their expiry read as not revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Clear removes every entry (test isolation).
	Clear(ctx context.Context) error
}

// MemoryBlacklist is a process-local Blacklist guarded by a mutex. Expired
// entries are evicted lazily on lookup, so no background sweeper is needed.
// It is single-instance only: horizontally scaled deployments must use the
// Redis-backed store so every replica sees a revocation.
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	nowFn   func() time.Time
}

// NewMemoryBlacklist constructs a MemoryBlacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: make(map[string]time.Time),
		nowFn:   time.Now,
	}
}

// Revoke records the token as revoked until expiresAt.
func (b *MemoryBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return nil
	}
	b.mu.Lock()
	b.entries[token] = expiresAt
	b.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token is currently revoked, evicting the
// entry when its remembered expiry has passed.
func (b *MemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiresAt, ok := b.entries[token]
	if !ok {
		return false, nil
	}
	if b.nowFn().After(expiresAt) {
		delete(b.entries, token)
		return false, nil
	}
	return true, nil
}

// Clear removes every entry.
func (b *MemoryBlacklist) Clear(_ context.Context) error {
	b.mu.Lock()
	b.entries = make(map[string]time.Time)
	b.mu.Unlock()
	return nil
}

// Size returns the current entry count, counting not-yet-evicted expired
// entries.
func (b *MemoryBlacklist) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
