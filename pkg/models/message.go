package models

import (
	"fmt"
	"strings"
	"time"
)

type Priority int

const (
	PriorityUnset Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityUnset:    "unset",
	PriorityLow:      "low",
	PriorityNormal:   "normal",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// Priorities lists the valid priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical}
}

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset":
		return PriorityUnset, nil
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	}
	return PriorityUnset, fmt.Errorf("unknown priority %q", s)
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	parsed, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type MessageState int

const (
	StateQueued MessageState = iota + 1
	StateProcessing
	StateFailed
	StateDelivered
	StateDeadLettered
)

func (s MessageState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateProcessing:
		return "processing"
	case StateFailed:
		return "failed"
	case StateDelivered:
		return "delivered"
	case StateDeadLettered:
		return "dead_lettered"
	}
	return "unknown"
}

func ParseMessageState(s string) (MessageState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued":
		return StateQueued, nil
	case "processing":
		return StateProcessing, nil
	case "failed":
		return StateFailed, nil
	case "delivered":
		return StateDelivered, nil
	case "dead_lettered", "deadlettered":
		return StateDeadLettered, nil
	}
	return 0, fmt.Errorf("unknown message state %q", s)
}

// IsFinal reports whether no automatic transition leaves the state.
func (s MessageState) IsFinal() bool {
	return s == StateDelivered || s == StateDeadLettered
}

func (s MessageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Message is a unit of queued work owned by the orchestrator.
type Message struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id,omitempty"`
	Queue         string            `json:"queue"`
	EndpointID    string            `json:"endpoint_id"`
	Operation     string            `json:"operation,omitempty"`
	Priority      Priority          `json:"priority"`
	Payload       []byte            `json:"payload"`
	Format        string            `json:"format,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	State         MessageState      `json:"state"`
	RetryCount    int               `json:"retry_count"`
	MaxRetries    int               `json:"max_retries"`
	LastError     string            `json:"last_error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	EnqueuedAt    time.Time         `json:"enqueued_at"`
	NextAttemptAt time.Time         `json:"next_attempt_at,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers never alias queue-owned state.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	if m.Payload != nil {
		out.Payload = append([]byte(nil), m.Payload...)
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Eligible reports whether the message may be dequeued at now.
func (m *Message) Eligible(now time.Time) bool {
	return m.NextAttemptAt.IsZero() || !m.NextAttemptAt.After(now)
}

// ToRequest builds the adapter request for a delivery attempt.
func (m *Message) ToRequest() *Request {
	return &Request{
		ID:            m.ID,
		TenantID:      m.TenantID,
		EndpointID:    m.EndpointID,
		Operation:     m.Operation,
		Payload:       m.Payload,
		Format:        m.Format,
		Metadata:      m.Metadata,
		CorrelationID: m.Metadata["correlation_id"],
		CreatedAt:     m.CreatedAt,
	}
}

// QueueStatus is a read-only snapshot computed from live queue state.
type QueueStatus struct {
	Queue        string           `json:"queue"`
	Depth        int              `json:"depth"`
	Processing   int              `json:"processing"`
	Failed       int              `json:"failed"`
	DeadLettered int              `json:"dead_lettered"`
	OldestAge    time.Duration    `json:"oldest_age"`
	ByPriority   map[Priority]int `json:"by_priority"`
}
