package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/messaging/router"
	"authsvc/internal/platform/kafka/consumer"
	"authsvc/internal/platform/metrics"
	dErrors "authsvc/pkg/domain-errors"
)

// ServiceRequests consumes operation calls from peer services and sends
// the reply to the caller's own reply topic, addressed by the Sender
// field of the inbound message. Operations like validateToken hit the
// revocation store, so dispatch runs on the same bounded worker group
// the API consumer uses; the delivery goroutine only decodes.
type ServiceRequests struct {
	router      *router.Router
	publisher   Publisher
	serviceName string
	metrics     *metrics.Metrics
	logger      *slog.Logger
	group       *errgroup.Group
}

// NewServiceRequests creates the peer request consumer with the given
// dispatch concurrency. serviceName is stamped as Sender on every reply.
func NewServiceRequests(r *router.Router, publisher Publisher, serviceName string, workers int, m *metrics.Metrics, logger *slog.Logger) *ServiceRequests {
	group := new(errgroup.Group)
	if workers > 0 {
		group.SetLimit(workers)
	}
	return &ServiceRequests{
		router:      r,
		publisher:   publisher,
		serviceName: serviceName,
		metrics:     m,
		logger:      logger,
		group:       group,
	}
}

// Handle decodes one peer request and schedules its dispatch. Blocks only
// when all workers are busy.
func (c *ServiceRequests) Handle(ctx context.Context, msg *consumer.Message) error {
	c.metrics.IncConsumed(msg.Topic)

	var req messaging.ServiceMessage
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "undecodable service message")
	}
	if req.CorrelationID == "" {
		req.CorrelationID = msg.Header(messaging.HeaderCorrelationID)
	}
	if req.Sender == "" {
		// Nowhere to send the reply; drop rather than guess.
		c.logger.Warn("service request without sender",
			"operation", req.Operation,
			"correlation_id", req.CorrelationID,
		)
		return nil
	}

	c.group.Go(func() error {
		c.dispatch(ctx, &req)
		return nil
	})
	return nil
}

func (c *ServiceRequests) dispatch(ctx context.Context, req *messaging.ServiceMessage) {
	resp := c.router.Dispatch(ctx, &messaging.RequestEnvelope{
		Path:          req.Operation,
		Body:          req.Payload,
		CorrelationID: req.CorrelationID,
	})

	reply := messaging.ServiceMessage{
		CorrelationID: req.CorrelationID,
		Sender:        c.serviceName,
		Operation:     req.Operation,
	}
	if resp.StatusCode >= http.StatusBadRequest {
		reply.Error = errorMessage(resp.Body)
	} else {
		reply.Payload = resp.Body
	}

	value, err := json.Marshal(reply)
	if err != nil {
		c.logger.Error("encode service reply",
			"operation", req.Operation,
			"correlation_id", req.CorrelationID,
			"error", err,
		)
		return
	}

	topic := messaging.ReplyTopic(req.Sender)
	headers := map[string]string{messaging.HeaderCorrelationID: req.CorrelationID}
	if err := c.publisher.Publish(ctx, topic, req.CorrelationID, value, headers); err != nil {
		c.logger.Error("publish service reply",
			"topic", topic,
			"correlation_id", req.CorrelationID,
			"error", err,
		)
		return
	}
	c.metrics.IncPublished(topic)
}

// Wait blocks until all in-flight dispatches have finished. Call during
// shutdown, after the poll loop has stopped.
func (c *ServiceRequests) Wait() {
	_ = c.group.Wait()
}

// errorMessage pulls the message out of an error envelope body.
func errorMessage(body json.RawMessage) string {
	var wrapper struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error == "" {
		return "request failed"
	}
	return wrapper.Error
}
