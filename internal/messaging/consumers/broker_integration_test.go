//go:build integration

package consumers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/messaging/consumers"
	"authsvc/internal/messaging/router"
	"authsvc/internal/platform/kafka/consumer"
	"authsvc/internal/platform/kafka/producer"
	"authsvc/pkg/testutil/containers"
)

// BrokerRoundTripSuite produces a request envelope to the API request
// topic and asserts the correlated response envelope appears on the
// gateway reply topic, exercising producer, consumer, router, and the
// API dispatch pool against a real broker.
type BrokerRoundTripSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *producer.Producer
	consumer *consumer.Consumer
	api      *consumers.APIRequests
	cancel   context.CancelFunc
	done     chan struct{}
}

func TestBrokerRoundTripSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BrokerRoundTripSuite))
}

func (s *BrokerRoundTripSuite) SetupSuite() {
	ctx := context.Background()
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.Require().NoError(s.redpanda.CreateTopics(ctx,
		messaging.TopicAuthAPIRequests,
		messaging.TopicAPIGatewayReplies,
	))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	brokers := []string{s.redpanda.Broker}

	pub, err := producer.New(brokers, logger)
	s.Require().NoError(err)
	s.producer = pub

	dispatcher := router.New(logger)
	dispatcher.Register("GET /api/auth/health", func(context.Context, *messaging.RequestEnvelope) (*router.Result, error) {
		return &router.Result{
			StatusCode: http.StatusCreated,
			Body:       map[string]any{"success": true, "message": "I'm alive"},
		}, nil
	})
	s.api = consumers.NewAPIRequests(dispatcher, pub, 4, nil, logger)

	c, err := consumer.New(brokers, "authsvc-it", []string{messaging.TopicAuthAPIRequests}, s.api, logger)
	s.Require().NoError(err)
	s.consumer = c

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = c.Run(runCtx)
	}()
}

func (s *BrokerRoundTripSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.consumer != nil {
		s.consumer.Close()
	}
	if s.done != nil {
		<-s.done
	}
	if s.api != nil {
		s.api.Wait()
	}
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *BrokerRoundTripSuite) TestHealthRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	correlationID := uuid.NewString()
	req := messaging.RequestEnvelope{
		Method:        http.MethodGet,
		Path:          "/api/auth/health",
		CorrelationID: correlationID,
	}
	value, err := json.Marshal(req)
	s.Require().NoError(err)

	headers := map[string]string{messaging.HeaderCorrelationID: correlationID}
	s.Require().NoError(s.producer.Publish(ctx, messaging.TopicAuthAPIRequests, correlationID, value, headers))

	reply := s.awaitReply(ctx, correlationID)
	s.Equal(http.StatusCreated, reply.StatusCode)
	s.Equal(correlationID, reply.CorrelationID)
	s.JSONEq(`{"success":true,"message":"I'm alive"}`, string(reply.Body))
}

// awaitReply polls the gateway reply topic until the envelope with the
// wanted correlation id arrives.
func (s *BrokerRoundTripSuite) awaitReply(ctx context.Context, correlationID string) *messaging.ResponseEnvelope {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(messaging.TopicAPIGatewayReplies),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out waiting for reply")

		var found *messaging.ResponseEnvelope
		fetches.EachRecord(func(rec *kgo.Record) {
			if found != nil {
				return
			}
			var resp messaging.ResponseEnvelope
			if err := json.Unmarshal(rec.Value, &resp); err == nil && resp.CorrelationID == correlationID {
				found = &resp
			}
		})
		if found != nil {
			return found
		}
	}
}
