package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryTRL is an in-memory TokenRevocationList. Entries are dropped
// lazily on lookup once their expiry passes; suitable for tests and
// single-instance deployments only.
type MemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

// MemoryTRLOption configures a MemoryTRL instance.
type MemoryTRLOption func(*MemoryTRL)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock Clock) MemoryTRLOption {
	return func(trl *MemoryTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

// NewMemoryTRL constructs an in-memory token revocation list.
func NewMemoryTRL(opts ...MemoryTRLOption) *MemoryTRL {
	trl := &MemoryTRL{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken marks the JTI as revoked until the TTL elapses.
func (t *MemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = t.clock().Add(ttl)
	return nil
}

// IsRevoked reports whether the JTI is currently revoked. Expired
// entries are removed as a side effect.
func (t *MemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	expiresAt, ok := t.revoked[jti]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if t.clock().After(expiresAt) {
		t.mu.Lock()
		delete(t.revoked, jti)
		t.mu.Unlock()
		return false, nil
	}
	return true, nil
}
