package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func JSONToYAML(_ context.Context, payload []byte) ([]byte, error) {
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}

func YAMLToJSON(_ context.Context, payload []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	out, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return out, nil
}

// jsonCompatible rewrites the map[interface{}]interface{} values yaml
// produces for non-string keys into map[string]interface{}.
func jsonCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = jsonCompatible(item)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []interface{}:
		for i, item := range t {
			t[i] = jsonCompatible(item)
		}
		return t
	default:
		return v
	}
}

// decodeDocument parses a json or yaml payload into plain Go values.
func decodeDocument(format string, payload []byte) (interface{}, error) {
	var doc interface{}
	switch normalize(format) {
	case FormatYAML:
		if err := yaml.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return jsonCompatible(doc), nil
	default:
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return doc, nil
	}
}
