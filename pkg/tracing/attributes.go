package tracing

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys shared by the routing, queue and adapter spans.
const (
	AttrRequestID  = attribute.Key("conduit.request_id")
	AttrMessageID  = attribute.Key("conduit.message_id")
	AttrEndpointID = attribute.Key("conduit.endpoint_id")
	AttrProtocol   = attribute.Key("conduit.protocol")
	AttrOperation  = attribute.Key("conduit.operation")
	AttrQueue      = attribute.Key("conduit.queue")
	AttrTenantID   = attribute.Key("conduit.tenant_id")
	AttrStatusCode = attribute.Key("conduit.status_code")
	AttrRetryable  = attribute.Key("conduit.retryable")
)

// DeliveryAttributes describes one delivery attempt. Empty values are
// omitted.
func DeliveryAttributes(tenantID, endpointID, protocol, requestID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	for _, kv := range []attribute.KeyValue{
		AttrTenantID.String(tenantID),
		AttrEndpointID.String(endpointID),
		AttrProtocol.String(protocol),
		AttrRequestID.String(requestID),
	} {
		if kv.Value.AsString() != "" {
			attrs = append(attrs, kv)
		}
	}
	return attrs
}
