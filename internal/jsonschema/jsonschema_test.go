package jsonschema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonStringWithIndentation(t *testing.T) {
	schema := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"name": {Type: "string"},
		},
		Required: []string{"name"},
	}

	compact, err := schema.JsonString()
	require.NoError(t, err)
	assert.NotContains(t, compact, "\n")

	indented, err := schema.JsonString(true)
	require.NoError(t, err)
	assert.Contains(t, indented, "\n  ")

	var a, b map[string]any
	require.NoError(t, json.Unmarshal([]byte(compact), &a))
	require.NoError(t, json.Unmarshal([]byte(indented), &b))
	assert.Equal(t, a, b)
}

func TestSchemaOmitsEmptyFields(t *testing.T) {
	schema := &Schema{Type: "array", Items: &Schema{Type: "string"}}

	assert.Equal(t, `{"type":"array","items":{"type":"string"}}`, schema.String())
}

func TestAdditionalPropertiesFalseIsSerialized(t *testing.T) {
	// false is a non-nil interface value, so omitempty keeps it.
	schema := &Schema{Type: "object", AdditionalProperties: false}

	assert.Equal(t, `{"type":"object","additionalProperties":false}`, schema.String())
}
