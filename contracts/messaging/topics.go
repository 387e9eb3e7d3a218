package messaging

// Logical channels. One inbound topic per service for API-shaped requests,
// one for service-to-service requests, and a reply topic per service derived
// from its name.
const (
	TopicAuthAPIRequests     = "auth.api.requests"
	TopicAuthServiceRequests = "auth.service.requests"
	TopicAccountRequests     = "account.service.requests"
	TopicAPIGatewayReplies   = "api-gateway.replies"

	// HeaderCorrelationID duplicates the envelope's correlation id as a
	// broker-native record header for resilience.
	HeaderCorrelationID = "correlation-id"
)

// ReplyTopic returns the reply route for a service name, e.g. "auth" ->
// "auth.replies". Senders listen there for correlated responses.
func ReplyTopic(service string) string {
	return service + ".replies"
}
