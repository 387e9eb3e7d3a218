// Package consumers contains the broker-edge handlers: gateway-relayed API
// requests, peer service requests, and replies to our own outbound calls.
// Each implements the platform consumer.Handler interface and stays
// oblivious to kgo; decoding, dispatch, and reply publishing happen here.
package consumers

import "context"

// Publisher sends one record to a topic. Satisfied by the platform
// kafka producer.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}
