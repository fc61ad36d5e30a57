package api

import (
	"encoding/json"
	"time"

	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

type RegisterEndpointRequest struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Protocol string                 `json:"protocol" binding:"required"`
	Config   map[string]interface{} `json:"config"`
	Enabled  *bool                  `json:"enabled"`
}

func (r RegisterEndpointRequest) toEndpoint() models.Endpoint {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return models.Endpoint{
		ID:       r.ID,
		Name:     r.Name,
		Protocol: r.Protocol,
		Config:   r.Config,
		Enabled:  enabled,
	}
}

type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type EndpointHealthResponse struct {
	EndpointID string              `json:"endpoint_id"`
	Status     models.HealthStatus `json:"status"`
}

// RouteRequest carries a JSON payload. Non-JSON formats travel as a JSON
// string.
type RouteRequest struct {
	EndpointID    string            `json:"endpoint_id"`
	Operation     string            `json:"operation"`
	Format        string            `json:"format"`
	Payload       json.RawMessage   `json:"payload" swaggertype:"object"`
	Metadata      map[string]string `json:"metadata"`
	CorrelationID string            `json:"correlation_id"`
}

func (r RouteRequest) toRequest() *models.Request {
	format := r.Format
	if format == "" {
		format = "json"
	}
	return &models.Request{
		EndpointID:    r.EndpointID,
		Operation:     r.Operation,
		Payload:       unwrapPayload(r.Payload, format),
		Format:        format,
		Metadata:      r.Metadata,
		CorrelationID: r.CorrelationID,
	}
}

func unwrapPayload(raw json.RawMessage, format string) []byte {
	var s string
	if format != "json" && json.Unmarshal(raw, &s) == nil {
		return []byte(s)
	}
	return []byte(raw)
}

type EnqueueRequest struct {
	ID         string            `json:"id"`
	EndpointID string            `json:"endpoint_id" binding:"required"`
	Operation  string            `json:"operation"`
	Priority   models.Priority   `json:"priority" swaggertype:"string" enums:"low,normal,high,critical"`
	Format     string            `json:"format"`
	Payload    json.RawMessage   `json:"payload" binding:"required" swaggertype:"object"`
	Metadata   map[string]string `json:"metadata"`
	MaxRetries int               `json:"max_retries"`
}

func (r EnqueueRequest) envelope(queue string) *models.InboundEnvelope {
	return &models.InboundEnvelope{
		ID:         r.ID,
		Queue:      queue,
		EndpointID: r.EndpointID,
		Operation:  r.Operation,
		Priority:   r.Priority,
		Format:     r.Format,
		Payload:    r.Payload,
		Metadata:   r.Metadata,
		MaxRetries: r.MaxRetries,
	}
}

type EnqueueResponse struct {
	ID    string `json:"id"`
	Queue string `json:"queue"`
}

type TransformRequest struct {
	TargetFormat string `json:"target_format" binding:"required"`
}

// TransformResponse returns the payload as text so YAML stays readable.
type TransformResponse struct {
	MessageID string `json:"message_id"`
	Format    string `json:"format"`
	Payload   string `json:"payload"`
}

type CreateAlertRuleRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name" binding:"required"`
	Metric     string  `json:"metric"`
	Operator   string  `json:"operator"`
	Threshold  float64 `json:"threshold"`
	Window     string  `json:"window" binding:"required" example:"5m"`
	EndpointID string  `json:"endpoint_id"`
	Expression string  `json:"expression"`
	Severity   string  `json:"severity"`
	Enabled    *bool   `json:"enabled"`
}

func (r CreateAlertRuleRequest) toRule() (models.AlertRule, error) {
	window, err := time.ParseDuration(r.Window)
	if err != nil {
		return models.AlertRule{}, apperrors.NewValidation("window", err.Error())
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return models.AlertRule{
		ID:         r.ID,
		Name:       r.Name,
		Metric:     models.AlertMetric(r.Metric),
		Operator:   models.Operator(r.Operator),
		Threshold:  r.Threshold,
		Window:     window,
		EndpointID: r.EndpointID,
		Expression: r.Expression,
		Severity:   models.Severity(r.Severity),
		Enabled:    enabled,
	}, nil
}
