package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/auth/jwt"
	"authsvc/internal/auth/models"
	"authsvc/internal/messaging/router"
	dErrors "authsvc/pkg/domain-errors"
)

// fakeService records calls and returns scripted results.
type fakeService struct {
	loginCodeArg  string
	loginTokenArg string
	validateArg   string
	logoutArg     string

	result      *models.AuthResult
	claims      *jwt.Claims
	loginErr    error
	validateErr error
	logoutErr   error
}

func (f *fakeService) LoginWithCode(_ context.Context, code string) (*models.AuthResult, error) {
	f.loginCodeArg = code
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result, nil
}

func (f *fakeService) LoginWithIDToken(_ context.Context, idToken string) (*models.AuthResult, error) {
	f.loginTokenArg = idToken
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result, nil
}

func (f *fakeService) Validate(_ context.Context, token string) (*jwt.Claims, error) {
	f.validateArg = token
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.claims, nil
}

func (f *fakeService) Logout(_ context.Context, token string) error {
	f.logoutArg = token
	return f.logoutErr
}

type AuthHandlerSuite struct {
	suite.Suite
	service *fakeService
	router  *router.Router
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	s.service = &fakeService{
		result: &models.AuthResult{
			AccessToken:  "access-123",
			RefreshToken: "refresh-456",
			Email:        "a@b.com",
			Name:         "A B",
			ProfileImage: "http://x/p.png",
		},
		claims: &jwt.Claims{AccountID: "acc-1", Email: "a@b.com", Name: "A B", Roles: []string{"USER"}},
	}
	logger := slog.New(slog.DiscardHandler)
	s.router = router.New(logger)
	New(s.service, logger).Register(s.router)
}

func (s *AuthHandlerSuite) dispatch(method, path string, body any) *messaging.ResponseEnvelope {
	var raw json.RawMessage
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		raw = encoded
	}
	return s.router.Dispatch(context.Background(), &messaging.RequestEnvelope{
		Method:        method,
		Path:          path,
		Body:          raw,
		CorrelationID: "corr-1",
	})
}

func (s *AuthHandlerSuite) TestHealth() {
	resp := s.dispatch(http.MethodGet, "/api/auth/health", nil)

	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("corr-1", resp.CorrelationID)
	assert.JSONEq(s.T(), `{"success":true,"message":"I'm alive"}`, string(resp.Body))
}

func (s *AuthHandlerSuite) TestErrorProbe() {
	resp := s.dispatch(http.MethodGet, "/api/auth/error", nil)

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(s.T(), `{"error":"unauthorized access"}`, string(resp.Body))
}

func (s *AuthHandlerSuite) TestGoogleCallback() {
	s.Run("success returns the auth result", func() {
		resp := s.dispatch(http.MethodGet, "/api/auth/google/callback", models.CallbackRequest{Code: "oauth-code"})

		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("oauth-code", s.service.loginCodeArg)

		var result models.AuthResult
		require.NoError(s.T(), json.Unmarshal(resp.Body, &result))
		s.Equal("access-123", result.AccessToken)
		s.Equal("a@b.com", result.Email)
		s.Equal("http://x/p.png", result.ProfileImage)
	})

	s.Run("missing body is a bad request", func() {
		resp := s.dispatch(http.MethodGet, "/api/auth/google/callback", nil)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("service failure maps to the coded status", func() {
		s.service.loginErr = dErrors.New(dErrors.CodeFederation, "provider unavailable")

		resp := s.dispatch(http.MethodGet, "/api/auth/google/callback", models.CallbackRequest{Code: "x"})
		s.Equal(http.StatusBadGateway, resp.StatusCode)
		assert.JSONEq(s.T(), `{"error":"provider unavailable"}`, string(resp.Body))
	})
}

func (s *AuthHandlerSuite) TestGoogleAndroid() {
	resp := s.dispatch(http.MethodPost, "/api/auth/google/android", models.GoogleOAuthRequest{IDToken: "native-id-token"})

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("native-id-token", s.service.loginTokenArg)

	var result models.AuthResult
	require.NoError(s.T(), json.Unmarshal(resp.Body, &result))
	s.Equal("refresh-456", result.RefreshToken)
}

func (s *AuthHandlerSuite) TestValidate() {
	s.Run("HTTP-shaped key", func() {
		resp := s.dispatch(http.MethodPost, "/api/auth/validate", models.TokenRequest{Token: "some-jwt"})

		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("some-jwt", s.service.validateArg)
		assert.JSONEq(s.T(),
			`{"accountId":"acc-1","email":"a@b.com","name":"A B","roles":["USER"]}`,
			string(resp.Body))
	})

	s.Run("bare operation key used by peer services", func() {
		resp := s.router.Dispatch(context.Background(), &messaging.RequestEnvelope{
			Path:          "validateToken",
			Body:          json.RawMessage(`{"token":"peer-jwt"}`),
			CorrelationID: "corr-2",
		})

		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("peer-jwt", s.service.validateArg)
		s.Equal("corr-2", resp.CorrelationID)
	})

	s.Run("revoked token is unauthorized", func() {
		s.service.validateErr = dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")

		resp := s.dispatch(http.MethodPost, "/api/auth/validate", models.TokenRequest{Token: "revoked"})
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *AuthHandlerSuite) TestLogout() {
	resp := s.dispatch(http.MethodPost, "/api/auth/logout", models.TokenRequest{Token: "some-jwt"})

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("some-jwt", s.service.logoutArg)
	assert.JSONEq(s.T(), `{"success":true,"message":"logged out"}`, string(resp.Body))
}
