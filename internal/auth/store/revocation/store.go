// Package revocation provides token revocation list (TRL) implementations.
//
// A logout writes the token's JTI here with a TTL matching the token's
// remaining lifetime; validation checks membership. Three backends are
// provided: in-memory for tests and single-instance runs, Redis for
// distributed deployments, and PostgreSQL where a durable audit trail
// of revocations is required.
package revocation

import (
	"context"
	"time"
)

// TokenRevocationList records revoked token IDs until they would have
// expired anyway.
type TokenRevocationList interface {
	// RevokeToken marks the JTI as revoked for the given TTL.
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether the JTI is currently revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Clock is a time source, injectable for tests.
type Clock func() time.Time
