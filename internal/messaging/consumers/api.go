package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/errgroup"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/messaging/router"
	"authsvc/internal/platform/kafka/consumer"
	"authsvc/internal/platform/metrics"
	dErrors "authsvc/pkg/domain-errors"
)

// APIRequests consumes HTTP requests relayed by the API gateway and
// publishes the response envelope on the gateway's shared reply topic.
// Dispatch runs on a bounded worker group so one slow federation call
// does not stall the poll loop; the group limit doubles as backpressure
// once all workers are busy.
type APIRequests struct {
	router    *router.Router
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	group     *errgroup.Group
}

// NewAPIRequests creates the API request consumer with the given
// dispatch concurrency.
func NewAPIRequests(r *router.Router, publisher Publisher, workers int, m *metrics.Metrics, logger *slog.Logger) *APIRequests {
	group := new(errgroup.Group)
	if workers > 0 {
		group.SetLimit(workers)
	}
	return &APIRequests{
		router:    r,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		group:     group,
	}
}

// Handle decodes one relayed request and schedules its dispatch. Blocks
// only when all workers are busy.
func (c *APIRequests) Handle(ctx context.Context, msg *consumer.Message) error {
	c.metrics.IncConsumed(msg.Topic)

	var req messaging.RequestEnvelope
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "undecodable request envelope")
	}
	if req.CorrelationID == "" {
		req.CorrelationID = msg.Header(messaging.HeaderCorrelationID)
	}

	c.group.Go(func() error {
		c.dispatch(ctx, &req)
		return nil
	})
	return nil
}

func (c *APIRequests) dispatch(ctx context.Context, req *messaging.RequestEnvelope) {
	resp := c.router.Dispatch(ctx, req)

	value, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("encode response envelope",
			"key", req.Key(),
			"correlation_id", req.CorrelationID,
			"error", err,
		)
		return
	}

	headers := map[string]string{messaging.HeaderCorrelationID: resp.CorrelationID}
	if err := c.publisher.Publish(ctx, messaging.TopicAPIGatewayReplies, resp.CorrelationID, value, headers); err != nil {
		c.logger.Error("publish response envelope",
			"topic", messaging.TopicAPIGatewayReplies,
			"correlation_id", resp.CorrelationID,
			"error", err,
		)
		return
	}
	c.metrics.IncPublished(messaging.TopicAPIGatewayReplies)
}

// Wait blocks until all in-flight dispatches have finished. Call during
// shutdown, after the poll loop has stopped.
func (c *APIRequests) Wait() {
	_ = c.group.Wait()
}
