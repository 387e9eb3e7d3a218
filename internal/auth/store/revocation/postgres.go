package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresTRL persists revoked token JTIs in PostgreSQL. Unlike the
// Redis variant the rows survive restarts, which gives operators an
// audit trail of logouts at the cost of an explicit cleanup pass.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock // injected clock for testability (defaults to time.Now)
}

// PostgresTRLOption configures a PostgresTRL instance.
type PostgresTRLOption func(*PostgresTRL)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

// NewPostgresTRL constructs a PostgreSQL-backed token revocation list.
func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken adds a token to the revocation list with TTL.
func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	expiresAt := t.clock().Add(ttl)
	query := `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	_, err := t.db.ExecContext(ctx, query, jti, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks if a token is in the revocation list.
func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := t.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	if t.clock().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// PurgeExpired deletes rows whose expiry has passed. Intended to run
// periodically; safe to call concurrently with reads and writes.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at < $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge expired revocations: %w", err)
	}
	return res.RowsAffected()
}
