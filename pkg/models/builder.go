package models

import "time"

type MessageBuilder struct {
	msg *Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		msg: &Message{
			Metadata: make(map[string]string),
		},
	}
}

func (b *MessageBuilder) WithID(id string) *MessageBuilder {
	b.msg.ID = id
	return b
}

func (b *MessageBuilder) WithTenant(tenantID string) *MessageBuilder {
	b.msg.TenantID = tenantID
	return b
}

func (b *MessageBuilder) WithQueue(queue string) *MessageBuilder {
	b.msg.Queue = queue
	return b
}

func (b *MessageBuilder) WithEndpoint(endpointID string) *MessageBuilder {
	b.msg.EndpointID = endpointID
	return b
}

func (b *MessageBuilder) WithOperation(op string) *MessageBuilder {
	b.msg.Operation = op
	return b
}

func (b *MessageBuilder) WithPriority(p Priority) *MessageBuilder {
	b.msg.Priority = p
	return b
}

func (b *MessageBuilder) WithPayload(payload []byte, format string) *MessageBuilder {
	b.msg.Payload = payload
	b.msg.Format = format
	return b
}

func (b *MessageBuilder) WithMetadata(key, value string) *MessageBuilder {
	b.msg.Metadata[key] = value
	return b
}

func (b *MessageBuilder) WithMaxRetries(n int) *MessageBuilder {
	b.msg.MaxRetries = n
	return b
}

func (b *MessageBuilder) Build() *Message {
	if b.msg.CreatedAt.IsZero() {
		b.msg.CreatedAt = time.Now()
	}
	return b.msg
}
