// Package router dispatches inbound request envelopes to handlers and shapes
// the response envelope, including error mapping. The handler table is built
// once at startup; unmatched keys are a data-driven case, not a code branch
// per route.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	messaging "authsvc/contracts/messaging"
	dErrors "authsvc/pkg/domain-errors"
)

var dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "auth_router_dispatch_duration_seconds",
	Help:    "Handler execution time by dispatch key",
	Buckets: prometheus.DefBuckets,
}, []string{"key"})

// Result is a handler's successful outcome. Body is marshalled into the
// response envelope; a nil Body yields an empty body. Headers are optional.
type Result struct {
	StatusCode int
	Body       any
	Headers    map[string]string
}

// HandlerFunc processes one request envelope. Application failures are
// returned as coded errors and rendered once at the router boundary; they
// are control data here, not exceptions.
type HandlerFunc func(ctx context.Context, req *messaging.RequestEnvelope) (*Result, error)

// Router maps dispatch keys ("METHOD path" or a bare operation name) to
// handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// New creates an empty router.
func New(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Register adds a handler for a dispatch key. Call during startup only; the
// table is read concurrently afterwards.
func (r *Router) Register(key string, handler HandlerFunc) {
	r.handlers[key] = handler
}

// Dispatch routes one envelope and always returns a response envelope
// carrying the inbound correlation id, on every path including unmatched
// routes, coded failures, and panics.
func (r *Router) Dispatch(ctx context.Context, req *messaging.RequestEnvelope) (resp *messaging.ResponseEnvelope) {
	key := req.Key()
	start := time.Now()

	defer func() {
		dispatchDuration.WithLabelValues(key).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked",
				"key", key,
				"correlation_id", req.CorrelationID,
				"panic", rec,
			)
			resp = errorEnvelope(req, http.StatusInternalServerError, fmt.Sprintf("%v", rec))
		}
	}()

	handler, ok := r.handlers[key]
	if !ok {
		r.logger.Warn("no handler for request",
			"key", key,
			"correlation_id", req.CorrelationID,
		)
		return errorEnvelope(req, http.StatusNotFound, "unknown request: "+key)
	}

	result, err := handler(ctx, req)
	if err != nil {
		code := dErrors.CodeOf(err)
		r.logger.Error("handler failed",
			"key", key,
			"correlation_id", req.CorrelationID,
			"code", string(code),
			"error", err,
		)
		return errorEnvelope(req, dErrors.HTTPStatus(code), dErrors.MessageOf(err))
	}

	return successEnvelope(req, result)
}

func successEnvelope(req *messaging.RequestEnvelope, result *Result) *messaging.ResponseEnvelope {
	resp := &messaging.ResponseEnvelope{
		StatusCode:    result.StatusCode,
		Headers:       map[string]string{"Content-Type": "application/json"},
		CorrelationID: req.CorrelationID,
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	for k, v := range result.Headers {
		resp.Headers[k] = v
	}
	if result.Body != nil {
		body, err := json.Marshal(result.Body)
		if err != nil {
			return errorEnvelope(req, http.StatusInternalServerError, "encode response body: "+err.Error())
		}
		resp.Body = body
	}
	return resp
}

func errorEnvelope(req *messaging.RequestEnvelope, status int, message string) *messaging.ResponseEnvelope {
	body, _ := json.Marshal(map[string]string{"error": message})
	return &messaging.ResponseEnvelope{
		StatusCode:    status,
		Headers:       map[string]string{"Content-Type": "application/json"},
		Body:          body,
		CorrelationID: req.CorrelationID,
	}
}
