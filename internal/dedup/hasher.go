package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"conduit/pkg/models"
)

var defaultFields = []string{"tenant_id", "id"}

// Hasher builds the dedup key of a message from an ordered list of its
// attributes.
type Hasher struct {
	fields []string
}

func NewHasher(fields []string) (*Hasher, error) {
	if len(fields) == 0 {
		fields = defaultFields
	}
	for _, f := range fields {
		if !validField(f) {
			return nil, fmt.Errorf("unknown dedup field %q", f)
		}
	}
	return &Hasher{fields: append([]string(nil), fields...)}, nil
}

func validField(f string) bool {
	switch f {
	case "id", "tenant_id", "queue", "endpoint_id", "operation", "payload":
		return true
	}
	return strings.HasPrefix(f, "metadata.") && len(f) > len("metadata.")
}

func (h *Hasher) Fields() []string {
	return append([]string(nil), h.fields...)
}

// Hash returns the hex sha256 of the selected attributes joined with '|'.
func (h *Hasher) Hash(msg *models.Message) string {
	var b strings.Builder
	for _, f := range h.fields {
		b.WriteString(fieldValue(msg, f))
		b.WriteByte('|')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func fieldValue(msg *models.Message, field string) string {
	switch field {
	case "id":
		return msg.ID
	case "tenant_id":
		return msg.TenantID
	case "queue":
		return msg.Queue
	case "endpoint_id":
		return msg.EndpointID
	case "operation":
		return msg.Operation
	case "payload":
		sum := sha256.Sum256(msg.Payload)
		return hex.EncodeToString(sum[:])
	}
	return msg.Metadata[strings.TrimPrefix(field, "metadata.")]
}
