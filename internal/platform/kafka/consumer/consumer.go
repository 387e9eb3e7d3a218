// Package consumer wraps franz-go group consumption behind a small Handler
// interface so the broker-edge packages never touch kgo types directly.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one consumed record.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Header returns a record header value, or "" when absent.
func (m *Message) Header(key string) string {
	return m.Headers[key]
}

// Handler processes consumed messages. Errors are logged and the message is
// committed anyway; redelivery is the broker's concern, not the handler's.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer runs a group-consume loop over a set of topics.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New creates a consumer joined to group, subscribed to topics.
func New(brokers []string, group string, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is cancelled or the client is closed. Handler
// errors do not stop the loop.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			msg := &Message{
				Topic:   rec.Topic,
				Key:     rec.Key,
				Value:   rec.Value,
				Headers: make(map[string]string, len(rec.Headers)),
			}
			for _, h := range rec.Headers {
				msg.Headers[h.Key] = string(h.Value)
			}

			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.Error("message handling failed",
					"topic", rec.Topic,
					"key", string(rec.Key),
					"error", err,
				)
			}
		})
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}
