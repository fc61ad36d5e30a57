package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_ParseAndJSON(t *testing.T) {
	for _, p := range Priorities() {
		parsed, err := ParsePriority(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePriority("urgent")
	assert.Error(t, err)

	var env InboundEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"queue":"q","endpoint_id":"e","priority":"high","payload":{"a":1}}`), &env))
	assert.Equal(t, PriorityHigh, env.Priority)
	assert.True(t, PriorityCritical > PriorityHigh)
}

func TestMessage_CloneIsDeep(t *testing.T) {
	msg := NewMessageBuilder().
		WithID("m1").
		WithPayload([]byte(`{"a":1}`), "json").
		WithMetadata("k", "v").
		Build()

	clone := msg.Clone()
	clone.Payload[0] = 'X'
	clone.Metadata["k"] = "changed"

	assert.Equal(t, byte('{'), msg.Payload[0])
	assert.Equal(t, "v", msg.Metadata["k"])
}

func TestMessage_Eligible(t *testing.T) {
	now := time.Now()
	msg := &Message{}
	assert.True(t, msg.Eligible(now))

	msg.NextAttemptAt = now.Add(time.Second)
	assert.False(t, msg.Eligible(now))
	assert.True(t, msg.Eligible(now.Add(time.Second)))
}

func TestInboundEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name  string
		env   *InboundEnvelope
		field string
	}{
		{"nil", nil, "envelope"},
		{"missing queue", &InboundEnvelope{EndpointID: "e", Payload: json.RawMessage(`{}`)}, "queue"},
		{"missing endpoint", &InboundEnvelope{Queue: "q", Payload: json.RawMessage(`{}`)}, "endpoint_id"},
		{"missing payload", &InboundEnvelope{Queue: "q", EndpointID: "e"}, "payload"},
		{"valid", &InboundEnvelope{Queue: "q", EndpointID: "e", Payload: json.RawMessage(`{}`)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInboundEnvelope(tt.env)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestInboundEnvelope_ToMessageUnwrapsStringPayload(t *testing.T) {
	env := &InboundEnvelope{
		Queue:      "outbound",
		EndpointID: "e1",
		Format:     "yaml",
		Payload:    json.RawMessage(`"name: test\n"`),
	}

	msg := env.ToMessage()
	assert.Equal(t, "name: test\n", string(msg.Payload))
	assert.Equal(t, "yaml", msg.Format)
	assert.Equal(t, "outbound", msg.Queue)
}

func TestOperator_Compare(t *testing.T) {
	ok, err := OpGreater.Compare(0.5, 0.2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = OpLessEqual.Compare(3, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Operator("~").Compare(1, 1)
	assert.Error(t, err)
}

func TestEndpoint_ConfigHelpers(t *testing.T) {
	ep := Endpoint{Config: map[string]interface{}{
		"brokers": []interface{}{"a:9092", "b:9092"},
		"timeout": "2s",
		"topic":   "events",
		"db":      float64(3),
	}}

	assert.Equal(t, []string{"a:9092", "b:9092"}, ep.ConfigStrings("brokers"))
	assert.Equal(t, 2*time.Second, ep.ConfigDuration("timeout", time.Second))
	assert.Equal(t, time.Second, ep.ConfigDuration("missing", time.Second))
	assert.Equal(t, "events", ep.ConfigString("topic"))
	assert.Equal(t, 3, ep.ConfigInt("db", 0))

	clone := ep.Clone()
	clone.Config["topic"] = "other"
	assert.Equal(t, "events", ep.ConfigString("topic"))
}

func TestMessageState_Parse(t *testing.T) {
	for _, s := range []MessageState{StateQueued, StateProcessing, StateFailed, StateDelivered, StateDeadLettered} {
		parsed, err := ParseMessageState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseMessageState("lost")
	assert.Error(t, err)
	assert.True(t, StateDeadLettered.IsFinal())
	assert.False(t, StateFailed.IsFinal())
}
