package transform

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/config"
	apperrors "conduit/pkg/errors"
)

func TestRegistry_UnsupportedPair(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Transform(context.Background(), "json", "xml", []byte(`{}`))

	require.Error(t, err)
	assert.True(t, apperrors.IsUnsupportedFormat(err))
	assert.False(t, r.Supports("json", "xml"))
	assert.True(t, r.Supports("json", "JSON"))
}

func TestRegistry_RegisterTwice(t *testing.T) {
	r := NewDefaultRegistry()

	err := r.Register("JSON", "yaml", Func(JSONToYAML))

	assert.True(t, apperrors.IsDuplicate(err))
	assert.Equal(t, []Pair{{"json", "yaml"}, {"yaml", "json"}}, r.Pairs())
}

func TestRegistry_SameFormatReturnsCopy(t *testing.T) {
	r := NewRegistry()
	in := []byte(`{"a":1}`)

	out, err := r.Transform(context.Background(), "json", "json", in)
	require.NoError(t, err)
	out[0] = 'X'

	assert.Equal(t, `{"a":1}`, string(in))
}

func TestJSONYAMLRoundTrip(t *testing.T) {
	r := NewDefaultRegistry()
	original := []byte(`{"order":{"id":"o-1","items":[{"sku":"a","qty":2}],"paid":true},"note":null}`)

	asYAML, err := r.Transform(context.Background(), "json", "yaml", original)
	require.NoError(t, err)
	assert.Contains(t, string(asYAML), "sku: a")

	back, err := r.Transform(context.Background(), "yaml", "json", asYAML)
	require.NoError(t, err)
	assert.JSONEq(t, string(original), string(back))
}

func TestYAMLToJSON_NonStringKeys(t *testing.T) {
	out, err := YAMLToJSON(context.Background(), []byte("codes:\n  200: ok\n  404: missing\n"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"codes":{"200":"ok","404":"missing"}}`, string(out))
}

func TestTransform_InvalidPayload(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Transform(context.Background(), "json", "yaml", []byte(`{not json`))

	assert.True(t, apperrors.IsValidation(err))
}

func TestMappingTransformer(t *testing.T) {
	r, err := NewRegistryFromConfig(config.TransformConfig{
		Mappings: []config.MappingConfig{{
			Source: "json",
			Target: "crm.contact.v1",
			Fields: []config.FieldMapping{
				{SourcePath: "customer.name", TargetField: "contact.full_name"},
				{SourcePath: "amount", TargetField: "total_cents", Expression: "value * 100.0"},
				{SourcePath: "customer.email", TargetField: "email", Default: "unknown"},
				{SourcePath: ".", TargetField: "origin", Expression: "metadata.source"},
			},
		}},
	})
	require.NoError(t, err)

	ctx := WithMetadata(context.Background(), map[string]string{"source": "shop"})
	out, err := r.Transform(ctx, "json", "crm.contact.v1", []byte(`{"customer":{"name":"Ada"},"amount":12.5}`))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, map[string]interface{}{"full_name": "Ada"}, doc["contact"])
	assert.Equal(t, 1250.0, doc["total_cents"])
	assert.Equal(t, "unknown", doc["email"])
	assert.Equal(t, "shop", doc["origin"])
}

func TestMappingTransformer_RejectsBadExpression(t *testing.T) {
	_, err := NewMappingTransformer("json", []config.FieldMapping{
		{SourcePath: "a", TargetField: "b", Expression: "value +"},
	}, nil)

	assert.Error(t, err)
}
