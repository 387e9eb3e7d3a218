// Package handler binds the auth endpoints to the message router. Each
// handler decodes the envelope body, invokes the service, and returns a
// result for the router to shape; error mapping lives in the router.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/auth/jwt"
	"authsvc/internal/auth/models"
	"authsvc/internal/messaging/router"
	dErrors "authsvc/pkg/domain-errors"
)

// Service defines the auth operations exposed over the broker.
type Service interface {
	LoginWithCode(ctx context.Context, code string) (*models.AuthResult, error)
	LoginWithIDToken(ctx context.Context, idToken string) (*models.AuthResult, error)
	Validate(ctx context.Context, token string) (*jwt.Claims, error)
	Logout(ctx context.Context, token string) error
}

// Handler handles auth request envelopes.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new auth Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Register wires the handler table. HTTP-shaped keys serve requests
// relayed by the API gateway; the bare operation keys serve peer
// services calling over their own request topics.
func (h *Handler) Register(r *router.Router) {
	r.Register("GET /api/auth/health", h.handleHealth)
	r.Register("GET /api/auth/error", h.handleError)
	r.Register("GET /api/auth/google/callback", h.handleGoogleCallback)
	r.Register("POST /api/auth/google/android", h.handleGoogleAndroid)
	r.Register("POST /api/auth/validate", h.handleValidate)
	r.Register("POST /api/auth/logout", h.handleLogout)
	r.Register("validateToken", h.handleValidate)
}

// statusResponse is the body for endpoints that only signal an outcome.
type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// tokenClaimsResponse is returned by token validation.
type tokenClaimsResponse struct {
	AccountID string   `json:"accountId"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Roles     []string `json:"roles"`
}

// handleHealth answers liveness probes relayed through the gateway.
func (h *Handler) handleHealth(_ context.Context, _ *messaging.RequestEnvelope) (*router.Result, error) {
	return &router.Result{
		StatusCode: http.StatusCreated,
		Body:       statusResponse{Success: true, Message: "I'm alive"},
	}, nil
}

// handleError exercises the error path end to end so the gateway team can
// verify status propagation without a real failure.
func (h *Handler) handleError(_ context.Context, _ *messaging.RequestEnvelope) (*router.Result, error) {
	return nil, dErrors.New(dErrors.CodeUnauthorized, "unauthorized access")
}

func (h *Handler) handleGoogleCallback(ctx context.Context, req *messaging.RequestEnvelope) (*router.Result, error) {
	var body models.CallbackRequest
	if err := decode(req.Body, &body); err != nil {
		return nil, err
	}

	result, err := h.service.LoginWithCode(ctx, body.Code)
	if err != nil {
		return nil, err
	}
	return &router.Result{Body: result}, nil
}

func (h *Handler) handleGoogleAndroid(ctx context.Context, req *messaging.RequestEnvelope) (*router.Result, error) {
	var body models.GoogleOAuthRequest
	if err := decode(req.Body, &body); err != nil {
		return nil, err
	}

	result, err := h.service.LoginWithIDToken(ctx, body.IDToken)
	if err != nil {
		return nil, err
	}
	return &router.Result{Body: result}, nil
}

func (h *Handler) handleValidate(ctx context.Context, req *messaging.RequestEnvelope) (*router.Result, error) {
	var body models.TokenRequest
	if err := decode(req.Body, &body); err != nil {
		return nil, err
	}

	claims, err := h.service.Validate(ctx, body.Token)
	if err != nil {
		return nil, err
	}
	return &router.Result{Body: tokenClaimsResponse{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Name:      claims.Name,
		Roles:     claims.Roles,
	}}, nil
}

func (h *Handler) handleLogout(ctx context.Context, req *messaging.RequestEnvelope) (*router.Result, error) {
	var body models.TokenRequest
	if err := decode(req.Body, &body); err != nil {
		return nil, err
	}

	if err := h.service.Logout(ctx, body.Token); err != nil {
		return nil, err
	}
	return &router.Result{Body: statusResponse{Success: true, Message: "logged out"}}, nil
}

func decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "empty request body")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed request body")
	}
	return nil
}
