// Package jwt is the token codec: it signs and parses this service's own
// access and refresh tokens. Pure functions over the signing key, no I/O.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authsvc/internal/auth/models"
	"authsvc/internal/platform/config"
	dErrors "authsvc/pkg/domain-errors"
)

// Claims are the assertions embedded in both token kinds.
type Claims struct {
	AccountID string   `json:"account_id"`
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies token pairs. Access and refresh tokens share the
// signing key and differ only in lifetime.
type Codec struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec constructs a codec from configuration.
func NewCodec(cfg config.JWTConfig) *Codec {
	return &Codec{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

// SignPair issues an access/refresh pair for an account. The subject is the
// account's email, matching what peers expect in validation replies.
func (c *Codec) SignPair(account *models.Account) (*models.TokenPair, error) {
	roles := []string{"USER"}
	if account.Role != "" {
		roles = []string{account.Role}
	}

	access, err := c.sign(Claims{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Roles:     roles,
	}, account.Email, c.accessTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}

	refresh, err := c.sign(Claims{
		AccountID: account.ID,
		Email:     account.Email,
	}, account.Email, c.refreshTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign refresh token")
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (c *Codec) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
}

// Verify parses and validates a token, returning its claims. Expired tokens
// are unauthorized; everything else malformed is an invalid token.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token claims")
	}
	return claims, nil
}
