package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/messaging/correlation"
	"authsvc/internal/platform/kafka/consumer"
	"authsvc/internal/platform/metrics"
	dErrors "authsvc/pkg/domain-errors"
)

// Replies consumes our own reply topic and completes the pending call
// the reply correlates to. Replies with no matching pending call are
// dropped by the registry; that is the late-reply case, not an error.
type Replies struct {
	registry *correlation.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewReplies creates the reply consumer.
func NewReplies(registry *correlation.Registry, m *metrics.Metrics, logger *slog.Logger) *Replies {
	return &Replies{
		registry: registry,
		metrics:  m,
		logger:   logger,
	}
}

// Handle decodes one reply and hands it to the correlation registry.
func (c *Replies) Handle(_ context.Context, msg *consumer.Message) error {
	c.metrics.IncConsumed(msg.Topic)

	var reply messaging.ServiceMessage
	if err := json.Unmarshal(msg.Value, &reply); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "undecodable reply")
	}

	id := reply.CorrelationID
	if id == "" {
		id = msg.Header(messaging.HeaderCorrelationID)
	}
	if id == "" {
		c.logger.Warn("reply without correlation id",
			"topic", msg.Topic,
			"sender", reply.Sender,
		)
		return nil
	}
	reply.CorrelationID = id

	c.registry.Complete(id, &reply, nil)
	return nil
}
