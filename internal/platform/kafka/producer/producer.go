// Package producer wraps franz-go for publishing envelopes and service
// messages. Publishes are synchronous; the broker's delivery semantics
// (at-least-once, unordered per queue) are taken as given and made safe by
// the correlation layer above.
package producer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes records to the broker.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// New connects a producer to the given brokers.
func New(brokers []string, logger *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, logger: logger}, nil
}

// Publish produces a single record and waits for the broker's ack. Headers
// carry broker-native metadata such as the correlation id.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}
