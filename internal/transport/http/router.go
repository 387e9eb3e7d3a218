// Package httptransport is the thin HTTP edge. Browser-facing OAuth
// redirects terminate here; everything else is translated into request
// envelopes and pushed through the same dispatch table the broker
// consumers use, so both edges share one behavior.
package httptransport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/auth/models"
	"authsvc/internal/messaging/router"
)

// Authorizer supplies the provider's consent-screen URL.
type Authorizer interface {
	AuthorizationURL(state string) string
}

// Handler serves the public HTTP surface.
type Handler struct {
	dispatcher  *router.Router
	authorizer  Authorizer
	redirectURI string
	logger      *slog.Logger
}

// NewHandler creates the HTTP edge. redirectURI is the client app's
// deep link that receives tokens after a browser login.
func NewHandler(dispatcher *router.Router, authorizer Authorizer, redirectURI string, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		authorizer:  authorizer,
		redirectURI: redirectURI,
		logger:      logger,
	}
}

// NewRouter wires the public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/oauth2/google", h.handleGoogleRedirect)
	r.Get("/oauth2/google/callback", h.handleGoogleCallback)
	r.Post("/validate", h.handleValidate)
	r.Post("/logout", h.handleLogout)

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGoogleRedirect sends the browser to the provider's consent screen.
func (h *Handler) handleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.Redirect(w, r, h.authorizer.AuthorizationURL(state), http.StatusFound)
}

// handleGoogleCallback finishes the browser login and hands the tokens to
// the client app via its deep link. Failures redirect without tokens so
// the app can show its own error screen.
func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	resp := h.relay(r, http.MethodGet, "/api/auth/google/callback", models.CallbackRequest{Code: code})

	target, err := url.Parse(h.redirectURI)
	if err != nil {
		h.logger.Error("invalid client redirect uri", "uri", h.redirectURI, "error", err)
		http.Error(w, "misconfigured redirect", http.StatusInternalServerError)
		return
	}

	if resp.StatusCode >= http.StatusBadRequest {
		h.logger.Warn("google login failed",
			"status", resp.StatusCode,
			"correlation_id", resp.CorrelationID,
		)
		http.Redirect(w, r, target.String(), http.StatusFound)
		return
	}

	var result models.AuthResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		h.logger.Error("undecodable auth result", "correlation_id", resp.CorrelationID, "error", err)
		http.Redirect(w, r, target.String(), http.StatusFound)
		return
	}

	query := target.Query()
	query.Set("access_token", result.AccessToken)
	query.Set("refresh_token", result.RefreshToken)
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	h.relayJSON(w, r, http.MethodPost, "/api/auth/validate")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.relayJSON(w, r, http.MethodPost, "/api/auth/logout")
}

// relayJSON pushes the raw request body through the dispatch table and
// mirrors the response envelope onto the HTTP response.
func (h *Handler) relayJSON(w http.ResponseWriter, r *http.Request, method, path string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), &messaging.RequestEnvelope{
		Method:        method,
		Path:          path,
		Body:          body,
		CorrelationID: uuid.NewString(),
	})

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) relay(r *http.Request, method, path string, body any) *messaging.ResponseEnvelope {
	raw, _ := json.Marshal(body)
	return h.dispatcher.Dispatch(r.Context(), &messaging.RequestEnvelope{
		Method:        method,
		Path:          path,
		Body:          raw,
		CorrelationID: uuid.NewString(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
