package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"conduit/internal/config"
	"conduit/pkg/cel"
)

type metadataKey struct{}

// WithMetadata exposes message metadata to mapping expressions.
func WithMetadata(ctx context.Context, metadata map[string]string) context.Context {
	return context.WithValue(ctx, metadataKey{}, metadata)
}

func metadataFrom(ctx context.Context) map[string]string {
	if md, ok := ctx.Value(metadataKey{}).(map[string]string); ok && md != nil {
		return md
	}
	return map[string]string{}
}

// MappingTransformer builds a new JSON document field by field from a json
// or yaml source document.
type MappingTransformer struct {
	source    string
	fields    []config.FieldMapping
	evaluator *cel.Evaluator
}

func NewMappingTransformer(source string, fields []config.FieldMapping, evaluator *cel.Evaluator) (*MappingTransformer, error) {
	if evaluator == nil {
		var err error
		evaluator, err = cel.NewPayloadEvaluator()
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
		}
	}
	for _, f := range fields {
		if f.Expression == "" {
			continue
		}
		if err := evaluator.ValidateExpression(f.Expression); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.TargetField, err)
		}
	}
	return &MappingTransformer{source: source, fields: fields, evaluator: evaluator}, nil
}

func (m *MappingTransformer) Transform(ctx context.Context, payload []byte) ([]byte, error) {
	doc, err := decodeDocument(m.source, payload)
	if err != nil {
		return nil, err
	}
	metadata := metadataFrom(ctx)

	out := make(map[string]interface{}, len(m.fields))
	for _, f := range m.fields {
		value, exists := lookupPath(doc, f.SourcePath)
		if !exists {
			if f.Default != nil {
				setPath(out, f.TargetField, f.Default)
			}
			continue
		}

		if f.Expression != "" {
			value, err = m.evaluator.Evaluate(ctx, f.Expression, map[string]interface{}{
				"payload":  doc,
				"value":    value,
				"metadata": metadata,
			})
			if err != nil {
				if f.Default == nil {
					return nil, fmt.Errorf("field %s: %w", f.TargetField, err)
				}
				value = f.Default
			}
		}
		setPath(out, f.TargetField, value)
	}

	return json.Marshal(out)
}

// lookupPath walks a dot separated path through nested objects. "." and ""
// select the whole document.
func lookupPath(doc interface{}, path string) (interface{}, bool) {
	if path == "" || path == "." {
		return doc, true
	}
	current := doc
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setPath(out map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := out
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// NewRegistryFromConfig returns the default registry plus every configured
// mapping.
func NewRegistryFromConfig(cfg config.TransformConfig) (*Registry, error) {
	r := NewDefaultRegistry()
	if len(cfg.Mappings) == 0 {
		return r, nil
	}

	evaluator, err := cel.NewPayloadEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}
	for _, mc := range cfg.Mappings {
		t, err := NewMappingTransformer(mc.Source, mc.Fields, evaluator)
		if err != nil {
			return nil, fmt.Errorf("mapping %s->%s: %w", mc.Source, mc.Target, err)
		}
		if err := r.Register(mc.Source, mc.Target, t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
