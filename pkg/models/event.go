package models

import (
	"context"
	"time"
)

type EventType string

const (
	EventRequestRouted        EventType = "request.routed"
	EventMessageEnqueued      EventType = "message.enqueued"
	EventMessageDelivered     EventType = "message.delivered"
	EventMessageFailed        EventType = "message.failed"
	EventMessageDeadLettered  EventType = "message.dead_lettered"
	EventMessageRetried       EventType = "message.retried"
	EventEndpointRegistered   EventType = "endpoint.registered"
	EventEndpointUnregistered EventType = "endpoint.unregistered"
	EventEndpointHealth       EventType = "endpoint.health"
	EventAlertFired           EventType = "alert.fired"
	EventAlertResolved        EventType = "alert.resolved"
)

// IsDelivery reports whether the event describes a delivery attempt and
// therefore counts toward success/failure metrics.
func (t EventType) IsDelivery() bool {
	switch t {
	case EventRequestRouted, EventMessageDelivered, EventMessageFailed, EventMessageDeadLettered:
		return true
	}
	return false
}

// Event is an append-only audit entry. It is never mutated after LogEvent.
type Event struct {
	ID         string            `json:"id" bson:"_id"`
	TenantID   string            `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	Type       EventType         `json:"type" bson:"type"`
	EndpointID string            `json:"endpoint_id,omitempty" bson:"endpoint_id,omitempty"`
	MessageID  string            `json:"message_id,omitempty" bson:"message_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Queue      string            `json:"queue,omitempty" bson:"queue,omitempty"`
	Protocol   string            `json:"protocol,omitempty" bson:"protocol,omitempty"`
	Success    bool              `json:"success" bson:"success"`
	Duration   time.Duration     `json:"duration" bson:"duration"`
	Error      string            `json:"error,omitempty" bson:"error,omitempty"`
	Timestamp  time.Time         `json:"timestamp" bson:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// EventLogger receives audit events. Implementations must not block the
// caller or report failures back.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event)
}

type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) {}
