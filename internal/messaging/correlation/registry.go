// Package correlation matches out-of-band broker replies to pending callers.
// A caller registers a unique id before publishing, awaits the slot with a
// timeout, and the reply consumer completes the slot when (if) the response
// arrives. The registry is the only concurrently-mutated shared structure in
// the messaging core.
package correlation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "authsvc/pkg/domain-errors"
)

var pendingCalls = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "auth_pending_correlations",
	Help: "In-flight correlated calls; sustained growth indicates a leak",
})

type outcome struct {
	result any
	err    error
}

// PendingCall is the waitable slot returned by Register. Exactly one of
// Complete or the await timeout consumes it.
type PendingCall struct {
	id       string
	ch       chan outcome
	registry *Registry
}

// Registry is the process-wide correlation table. Construct one per process
// and share it between the gateway and the reply consumer; tests construct
// their own.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*PendingCall
	logger  *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		pending: make(map[string]*PendingCall),
		logger:  logger,
	}
}

// Register creates a pending slot for id. Ids are caller-minted unique
// values; a duplicate is a caller bug, not a recoverable condition.
func (r *Registry) Register(id string) (*PendingCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[id]; exists {
		return nil, dErrors.Newf(dErrors.CodeDuplicateCorrelation, "correlation id already pending: %s", id)
	}

	call := &PendingCall{
		id:       id,
		ch:       make(chan outcome, 1),
		registry: r,
	}
	r.pending[id] = call
	pendingCalls.Inc()
	return call, nil
}

// Complete delivers a result (or error) to the pending slot for id. First
// writer wins; if the id is absent - already completed or timed out - the
// call is dropped and logged. It never fails: it runs on the broker delivery
// path, where a panic would be indistinguishable from a broker fault.
func (r *Registry) Complete(id string, result any, err error) {
	r.mu.Lock()
	call, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("dropping stale completion", "correlation_id", id)
		return
	}

	pendingCalls.Dec()
	// Buffered channel: never blocks, even if the awaiter already gave up.
	call.ch <- outcome{result: result, err: err}
}

// Len reports the number of in-flight calls. The registry drains to zero
// when no calls are pending; anything else is a leak.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// remove drops a slot that timed out before completion.
func (r *Registry) remove(id string) {
	r.mu.Lock()
	_, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if ok {
		pendingCalls.Dec()
	}
}

// Await blocks the calling goroutine until the slot is completed or the
// timeout elapses. On timeout the entry is removed and a timeout error
// returned; a reply arriving afterwards hits the stale-completion path in
// Complete. Context cancellation counts as a timeout.
func (c *PendingCall) Await(ctx context.Context, timeout time.Duration) (any, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-c.ch:
		return out.result, out.err
	case <-timer.C:
		c.registry.remove(c.id)
		return nil, dErrors.Newf(dErrors.CodeTimeout, "no reply within %s for correlation id %s", timeout, c.id)
	case <-ctx.Done():
		c.registry.remove(c.id)
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "await cancelled")
	}
}
