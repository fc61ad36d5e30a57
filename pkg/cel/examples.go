package cel

// RouteExpressionExamples are sample routing rule conditions over `request`.
var RouteExpressionExamples = map[string]string{
	"by_operation":      `request.operation == "invoice.create"`,
	"by_tenant":         `request.tenant_id == "acme"`,
	"by_metadata":       `"region" in request.metadata && request.metadata.region == "eu"`,
	"by_payload_field":  `has(request.payload.amount) && request.payload.amount > 1000.0`,
	"by_format":         `request.format == "yaml"`,
	"operation_prefix":  `request.operation.startsWith("crm.")`,
	"combined":          `request.operation == "order.ship" && request.metadata.carrier in ["ups", "dhl"]`,
	"correlation_probe": `request.correlation_id.endsWith("-canary")`,
}

// AlertExpressionExamples are sample alert conditions over metric variables.
var AlertExpressionExamples = map[string]string{
	"high_error_rate":      `error_rate > 0.2 && event_count >= 10.0`,
	"slow_p95":             `p95_latency_ms > 2000.0`,
	"any_dead_letters":     `dead_letter_count > 0.0`,
	"silent_traffic":       `event_count == 0.0`,
	"failures_and_latency": `failure_count > 5.0 || avg_latency_ms > 500.0`,
}

// PayloadExpressionExamples are sample payload mappings for the cel
// transformer.
var PayloadExpressionExamples = map[string]string{
	"rename_fields": `{"customer": payload.name, "total": payload.amount}`,
	"wrap":          `{"data": payload, "source": metadata.source}`,
	"pick_nested":   `payload.order.items`,
}
