package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// InboundEnvelope is the wire shape of messages arriving on the inbound
// topic and the enqueue API.
type InboundEnvelope struct {
	ID         string            `json:"id,omitempty"`
	TenantID   string            `json:"tenant_id,omitempty"`
	Queue      string            `json:"queue"`
	EndpointID string            `json:"endpoint_id"`
	Operation  string            `json:"operation,omitempty"`
	Priority   Priority          `json:"priority,omitempty"`
	Format     string            `json:"format,omitempty"`
	Payload    json.RawMessage   `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	MaxRetries int               `json:"max_retries,omitempty"`
	Timestamp  time.Time         `json:"timestamp,omitempty"`
}

func ValidateInboundEnvelope(env *InboundEnvelope) error {
	if env == nil {
		return &ValidationError{Field: "envelope", Message: "envelope cannot be nil"}
	}
	if env.Queue == "" {
		return &ValidationError{Field: "queue", Message: "queue is required"}
	}
	if env.EndpointID == "" {
		return &ValidationError{Field: "endpoint_id", Message: "endpoint_id is required"}
	}
	if len(env.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "payload is required"}
	}
	if env.Priority != PriorityUnset && !env.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: fmt.Sprintf("invalid priority %d", env.Priority)}
	}
	if env.MaxRetries < 0 {
		return &ValidationError{Field: "max_retries", Message: "must be non-negative"}
	}
	return nil
}

// ToMessage converts the envelope into a queueable message. A JSON string
// payload is unwrapped so non-JSON formats can travel inside the envelope.
func (env *InboundEnvelope) ToMessage() *Message {
	payload := []byte(env.Payload)
	var s string
	if env.Format != "" && env.Format != "json" && json.Unmarshal(env.Payload, &s) == nil {
		payload = []byte(s)
	}

	b := NewMessageBuilder().
		WithID(env.ID).
		WithTenant(env.TenantID).
		WithQueue(env.Queue).
		WithEndpoint(env.EndpointID).
		WithOperation(env.Operation).
		WithPriority(env.Priority).
		WithPayload(payload, env.Format).
		WithMaxRetries(env.MaxRetries)
	for k, v := range env.Metadata {
		b.WithMetadata(k, v)
	}
	msg := b.Build()
	if !env.Timestamp.IsZero() {
		msg.CreatedAt = env.Timestamp
	}
	return msg
}
