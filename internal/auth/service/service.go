// Package service composes the federation client, the peer account
// directory, and the token codec into the end-to-end login/signup sequence,
// plus validation and logout for issued tokens.
package service

import (
	"context"
	"log/slog"
	"time"

	"authsvc/internal/auth/google"
	"authsvc/internal/auth/jwt"
	"authsvc/internal/auth/models"
	"authsvc/internal/platform/metrics"
	dErrors "authsvc/pkg/domain-errors"
)

// Federation is the provider-facing surface of the Google client.
type Federation interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*google.Token, error)
	FetchUserInfo(ctx context.Context, accessToken string) (models.IdentityClaims, error)
	VerifyIDToken(ctx context.Context, rawIDToken string) (models.IdentityClaims, error)
}

// AccountDirectory is the peer account service, reached over the broker.
type AccountDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, claims models.IdentityClaims) (*models.Account, error)
}

// TokenRevocationList tracks revoked token ids until their natural expiry.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service is the federation orchestrator.
type Service struct {
	federation  Federation
	accounts    AccountDirectory
	codec       *jwt.Codec
	revocations TokenRevocationList
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// New wires the orchestrator. metrics may be nil in tests.
func New(
	federation Federation,
	accounts AccountDirectory,
	codec *jwt.Codec,
	revocations TokenRevocationList,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		federation:  federation,
		accounts:    accounts,
		codec:       codec,
		revocations: revocations,
		logger:      logger,
		metrics:     m,
	}
}

// AuthorizationURL exposes the provider consent URL for the redirect
// endpoint.
func (s *Service) AuthorizationURL(state string) string {
	return s.federation.AuthorizationURL(state)
}

// LoginWithCode runs the full federation pipeline for a browser login:
// exchange the authorization code, fetch identity claims, resolve the
// account, issue the token pair. The first failing stage aborts the rest.
func (s *Service) LoginWithCode(ctx context.Context, code string) (*models.AuthResult, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "authorization code is required")
	}

	token, err := s.federation.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.IncLoginFailed()
		return nil, err
	}

	claims, err := s.federation.FetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		s.metrics.IncLoginFailed()
		return nil, err
	}

	return s.completeLogin(ctx, claims)
}

// LoginWithIDToken runs the native-client variant: the mobile app already
// holds a provider-issued ID token, verified here before its claims are
// trusted.
func (s *Service) LoginWithIDToken(ctx context.Context, rawIDToken string) (*models.AuthResult, error) {
	claims, err := s.federation.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		s.metrics.IncLoginFailed()
		return nil, err
	}
	return s.completeLogin(ctx, claims)
}

func (s *Service) completeLogin(ctx context.Context, claims models.IdentityClaims) (*models.AuthResult, error) {
	if claims.Email == "" {
		s.metrics.IncLoginFailed()
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider returned no email")
	}

	account, err := s.resolveAccount(ctx, claims)
	if err != nil {
		s.metrics.IncLoginFailed()
		return nil, err
	}

	pair, err := s.codec.SignPair(account)
	if err != nil {
		s.metrics.IncLoginFailed()
		return nil, err
	}

	s.metrics.IncLogin()
	s.logger.Info("federated login completed",
		"email", account.Email,
		"account_id", account.ID,
	)

	return &models.AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Email:        account.Email,
		Name:         account.Name,
		ProfileImage: account.Picture,
	}, nil
}

// resolveAccount finds the account by email, provisioning it on first login.
// Exactly one of the two remote calls succeeds per invocation.
func (s *Service) resolveAccount(ctx context.Context, claims models.IdentityClaims) (*models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, claims.Email)
	if err == nil {
		return account, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}

	account, err = s.accounts.Create(ctx, claims)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account could not be created")
	}

	s.metrics.IncAccountCreated()
	s.logger.Info("account provisioned", "email", account.Email, "account_id", account.ID)
	return account, nil
}

// Validate verifies a service-issued access token and rejects revoked ones.
func (s *Service) Validate(ctx context.Context, tokenString string) (*jwt.Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token is required")
	}

	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check revocation list")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}
	return claims, nil
}

// Logout revokes the presented token's id for the remainder of its
// lifetime. Revoking an already revoked token succeeds.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke token")
	}

	s.logger.Info("token revoked", "account_id", claims.AccountID)
	return nil
}
