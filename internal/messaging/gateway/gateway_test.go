package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/messaging/correlation"
	dErrors "authsvc/pkg/domain-errors"
)

// capturePublisher records publishes and optionally hands each message to a
// fake peer.
type capturePublisher struct {
	mu        sync.Mutex
	published []publishedRecord
	onPublish func(msg messaging.ServiceMessage)
}

type publishedRecord struct {
	topic   string
	key     string
	value   []byte
	headers map[string]string
}

func (p *capturePublisher) Publish(_ context.Context, topic, key string, value []byte, headers map[string]string) error {
	p.mu.Lock()
	p.published = append(p.published, publishedRecord{topic: topic, key: key, value: value, headers: headers})
	p.mu.Unlock()

	if p.onPublish != nil {
		var msg messaging.ServiceMessage
		if err := json.Unmarshal(value, &msg); err == nil {
			p.onPublish(msg)
		}
	}
	return nil
}

func (p *capturePublisher) last() publishedRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[len(p.published)-1]
}

type account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newGateway(t *testing.T, pub Publisher, timeout time.Duration) (*Gateway, *correlation.Registry) {
	t.Helper()
	registry := correlation.New(slog.New(slog.DiscardHandler))
	return New(registry, pub, "auth", timeout, slog.New(slog.DiscardHandler)), registry
}

func TestGateway_CallRoundTrip(t *testing.T) {
	pub := &capturePublisher{}
	gw, registry := newGateway(t, pub, time.Second)

	// Fake peer: replies asynchronously with a payload, echoing the id.
	pub.onPublish = func(msg messaging.ServiceMessage) {
		go func() {
			payload, _ := json.Marshal(account{ID: "acc-1", Email: "a@b.com"})
			registry.Complete(msg.CorrelationID, &messaging.ServiceMessage{
				CorrelationID: msg.CorrelationID,
				Sender:        "account",
				Operation:     msg.Operation + "Response",
				Payload:       payload,
			}, nil)
		}()
	}

	var got *account
	err := gw.Call(context.Background(), messaging.TopicAccountRequests, "getFindByEmail", map[string]string{"email": "a@b.com"}, &got)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acc-1", got.ID)
	assert.Equal(t, "a@b.com", got.Email)

	rec := pub.last()
	assert.Equal(t, messaging.TopicAccountRequests, rec.topic)

	var sent messaging.ServiceMessage
	require.NoError(t, json.Unmarshal(rec.value, &sent))
	assert.Equal(t, "getFindByEmail", sent.Operation)
	assert.Equal(t, "auth", sent.Sender)
	assert.NotEmpty(t, sent.CorrelationID)
	assert.Equal(t, sent.CorrelationID, rec.key)
	assert.Equal(t, sent.CorrelationID, rec.headers[messaging.HeaderCorrelationID],
		"correlation id is duplicated as a broker-native header")

	assert.Equal(t, 0, registry.Len(), "no pending entries after completion")
}

func TestGateway_PeerErrorBecomesRemoteError(t *testing.T) {
	pub := &capturePublisher{}
	gw, registry := newGateway(t, pub, time.Second)

	pub.onPublish = func(msg messaging.ServiceMessage) {
		go registry.Complete(msg.CorrelationID, &messaging.ServiceMessage{
			CorrelationID: msg.CorrelationID,
			Sender:        "account",
			Error:         "account store unavailable",
		}, nil)
	}

	err := gw.Call(context.Background(), messaging.TopicAccountRequests, "postCreateAccount", nil, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRemote))
	assert.Contains(t, err.Error(), "account store unavailable")
}

func TestGateway_NoReplyTimesOut(t *testing.T) {
	pub := &capturePublisher{}
	gw, registry := newGateway(t, pub, 50*time.Millisecond)

	err := gw.Call(context.Background(), messaging.TopicAccountRequests, "getFindByEmail", nil, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.Equal(t, 0, registry.Len(), "timed-out call must not leak")
}

func TestGateway_EmptyReplyPayloadLeavesOutUntouched(t *testing.T) {
	pub := &capturePublisher{}
	gw, registry := newGateway(t, pub, time.Second)

	pub.onPublish = func(msg messaging.ServiceMessage) {
		go registry.Complete(msg.CorrelationID, &messaging.ServiceMessage{
			CorrelationID: msg.CorrelationID,
			Sender:        "account",
		}, nil)
	}

	var got *account
	err := gw.Call(context.Background(), messaging.TopicAccountRequests, "getFindByEmail", map[string]string{"email": "nobody@b.com"}, &got)
	require.NoError(t, err)
	assert.Nil(t, got, "empty payload means the peer found nothing")
}
