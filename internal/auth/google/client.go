// Package google is the federation client: the three outbound calls to the
// identity provider, plus native ID-token verification for mobile clients.
// Each operation is a single attempt; retry policy belongs to outer layers.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"authsvc/internal/auth/models"
	"authsvc/internal/platform/config"
	dErrors "authsvc/pkg/domain-errors"
)

// Token is the provider's token-endpoint response. IDToken is present when
// the openid scope applies; the code-exchange path only needs AccessToken.
type Token struct {
	AccessToken string
	IDToken     string
}

// Client performs the outbound provider calls.
type Client struct {
	oauth          oauth2.Config
	httpClient     *http.Client
	userInfoURL    string
	tokenInfoURL   string
	nativeAudience string
	logger         *slog.Logger
}

// New builds a client from the provider registration. Endpoint URLs come
// from configuration so tests can point at a stub server; timeout bounds
// every provider call and falls back to 10s when unset.
func New(cfg config.GoogleConfig, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		httpClient:     &http.Client{Timeout: timeout},
		userInfoURL:    cfg.UserInfoURL,
		tokenInfoURL:   cfg.TokenInfoURL,
		nativeAudience: cfg.NativeAudience,
		logger:         logger,
	}
}

// AuthorizationURL builds the provider's consent-screen URL. Pure string
// construction, no failure mode.
func (c *Client) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode posts the authorization code to the provider's token
// endpoint.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFederation, "exchange authorization code")
	}

	idToken, _ := tok.Extra("id_token").(string)
	return &Token{AccessToken: tok.AccessToken, IDToken: idToken}, nil
}

// userInfoPayload matches Google's v3 userinfo response.
type userInfoPayload struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Sub     string `json:"sub"`
}

// FetchUserInfo retrieves identity claims with a bearer-authenticated GET
// against the user-info endpoint.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (models.IdentityClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return models.IdentityClaims{}, dErrors.Wrap(err, dErrors.CodeInternal, "build userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.IdentityClaims{}, dErrors.Wrap(err, dErrors.CodeFederation, "fetch user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.IdentityClaims{}, dErrors.Newf(dErrors.CodeFederation,
			"userinfo endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var payload userInfoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.IdentityClaims{}, dErrors.Wrap(err, dErrors.CodeFederation, "parse userinfo response")
	}

	return models.IdentityClaims{
		Email:   payload.Email,
		Name:    payload.Name,
		Picture: payload.Picture,
		Subject: payload.Sub,
	}, nil
}

// tokenInfoPayload matches Google's tokeninfo response for ID tokens.
type tokenInfoPayload struct {
	Aud     string `json:"aud"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Sub     string `json:"sub"`
	Exp     string `json:"exp"`
}

// VerifyIDToken validates a pre-issued provider ID token (the native mobile
// path) against the tokeninfo endpoint and checks its audience and expiry
// before trusting any claim. Verification failures are the caller's fault,
// not the provider's, so they map to bad request.
func (c *Client) VerifyIDToken(ctx context.Context, rawIDToken string) (models.IdentityClaims, error) {
	if rawIDToken == "" {
		return models.IdentityClaims{}, dErrors.New(dErrors.CodeBadRequest, "idToken is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenInfoURL, nil)
	if err != nil {
		return models.IdentityClaims{}, dErrors.Wrap(err, dErrors.CodeInternal, "build tokeninfo request")
	}
	q := req.URL.Query()
	q.Set("id_token", rawIDToken)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.IdentityClaims{}, dErrors.Wrap(err, dErrors.CodeFederation, "verify ID token")
	}
	defer resp.Body.Close()

	// Google answers 4xx for malformed or expired ID tokens.
	if resp.StatusCode != http.StatusOK {
		return models.IdentityClaims{}, dErrors.New(dErrors.CodeBadRequest, "invalid ID token")
	}

	var payload tokenInfoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.IdentityClaims{}, dErrors.Wrap(err, dErrors.CodeFederation, "parse tokeninfo response")
	}

	if payload.Aud != c.nativeAudience {
		c.logger.Warn("ID token audience mismatch", "aud", payload.Aud)
		return models.IdentityClaims{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("ID token audience mismatch: %s", payload.Aud))
	}

	// Google already rejects expired tokens with a 4xx, but the expiry in
	// the payload is not taken on faith either.
	exp, err := strconv.ParseInt(payload.Exp, 10, 64)
	if err != nil || time.Now().Unix() >= exp {
		return models.IdentityClaims{}, dErrors.New(dErrors.CodeBadRequest, "ID token has expired")
	}

	return models.IdentityClaims{
		Email:   payload.Email,
		Name:    payload.Name,
		Picture: payload.Picture,
		Subject: payload.Sub,
	}, nil
}
