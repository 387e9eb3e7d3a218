// Package messaging is the broker wire contract shared between services.
// It is a standalone module so peer services can depend on the envelope
// shapes without pulling in this service's internals. Field names must stay
// backward compatible.
package messaging

import "encoding/json"

// RequestEnvelope wraps an API request delivered over the broker. The
// gateway fills Method and Path from the original HTTP request; CorrelationID
// is minted by the caller and echoed on the response. Immutable once received.
type RequestEnvelope struct {
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Body          json.RawMessage   `json:"body,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	CorrelationID string            `json:"correlationId"`
}

// Key builds the dispatch key for an envelope. API requests dispatch on
// "METHOD path"; intra-service requests leave Method empty and dispatch on
// the bare operation name carried in Path.
func (e *RequestEnvelope) Key() string {
	if e.Method == "" {
		return e.Path
	}
	return e.Method + " " + e.Path
}

// ResponseEnvelope is the reply published back to the caller's response
// route. CorrelationID is always copied from the inbound envelope, on every
// path including errors, so the caller-side registry can match it.
type ResponseEnvelope struct {
	StatusCode    int               `json:"statusCode"`
	Headers       map[string]string `json:"headers"`
	Body          json.RawMessage   `json:"body,omitempty"`
	CorrelationID string            `json:"correlationId"`
}

// ServiceMessage carries an RPC-shaped request or reply between internal
// services. Requests set Operation and Payload; replies echo CorrelationID
// and set either Payload or Error, never both.
type ServiceMessage struct {
	CorrelationID string          `json:"correlationId"`
	Sender        string          `json:"senderService"`
	Operation     string          `json:"operation"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         string          `json:"error,omitempty"`
}
