// Package gateway performs fire-and-await RPC calls to peer services over
// the broker. It wraps the correlation registry around a publish: mint an
// id, register, publish the service message, await the reply.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/messaging/correlation"
	dErrors "authsvc/pkg/domain-errors"
)

// Publisher publishes a record to the broker. Satisfied by the kafka
// producer; tests substitute a capture.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Gateway issues correlated service calls. At most one outstanding call per
// correlation id; no ordering guarantee across calls.
type Gateway struct {
	registry  *correlation.Registry
	publisher Publisher
	sender    string
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a gateway publishing as sender, with the default per-call
// timeout for internal request/response round trips.
func New(registry *correlation.Registry, publisher Publisher, sender string, timeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry:  registry,
		publisher: publisher,
		sender:    sender,
		timeout:   timeout,
		logger:    logger,
	}
}

// Call sends operation and payload to the target service's request topic and
// waits for the correlated reply, decoding its payload into out. A nil out
// discards the payload. Returns a timeout error when no reply arrives, or a
// remote error when the peer reports failure.
func (g *Gateway) Call(ctx context.Context, targetTopic, operation string, payload any, out any) error {
	id := uuid.NewString()

	call, err := g.registry.Register(id)
	if err != nil {
		return err
	}

	var raw json.RawMessage
	if payload != nil {
		raw, err = json.Marshal(payload)
		if err != nil {
			g.registry.Complete(id, nil, err) // free the slot
			return dErrors.Wrap(err, dErrors.CodeInternal, "marshal call payload")
		}
	}

	msg := messaging.ServiceMessage{
		CorrelationID: id,
		Sender:        g.sender,
		Operation:     operation,
		Payload:       raw,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		g.registry.Complete(id, nil, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal service message")
	}

	headers := map[string]string{messaging.HeaderCorrelationID: id}
	if err := g.publisher.Publish(ctx, targetTopic, id, value, headers); err != nil {
		g.registry.Complete(id, nil, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "publish service call")
	}

	g.logger.Debug("service call published",
		"target", targetTopic,
		"operation", operation,
		"correlation_id", id,
	)

	result, err := call.Await(ctx, g.timeout)
	if err != nil {
		return err
	}

	reply, ok := result.(*messaging.ServiceMessage)
	if !ok {
		return dErrors.Newf(dErrors.CodeInternal, "unexpected reply type %T for operation %s", result, operation)
	}
	if reply.Error != "" {
		return dErrors.Newf(dErrors.CodeRemote, "%s failed: %s", operation, reply.Error)
	}
	if out == nil || len(reply.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Payload, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeRemote, "decode reply payload")
	}
	return nil
}
