package parse

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptsSingleJSONValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{
			name:  "object",
			input: `{"language": "Python", "purpose": "testing", "benefits": ["safe"]}`,
			want: map[string]any{
				"language": "Python",
				"purpose":  "testing",
				"benefits": []any{"safe"},
			},
		},
		{
			name:  "surrounding whitespace",
			input: "\n\t {\"a\": null}  \n",
			want:  map[string]any{"a": nil},
		},
		{
			name:  "array",
			input: `[1, "two", true]`,
			want:  []any{json.Number("1"), "two", true},
		},
		{
			name:  "string scalar",
			input: `"just text"`,
			want:  "just text",
		},
		{
			name:  "number scalar",
			input: `42.5`,
			want:  json.Number("42.5"),
		},
		{
			name:  "null",
			input: `null`,
			want:  nil,
		},
		{
			name:  "number beyond float64 range",
			input: `{"benefits": ["safe", 1e400, "isolated"]}`,
			want:  map[string]any{"benefits": []any{"safe", json.Number("1e400"), "isolated"}},
		},
		{
			name:  "number literal kept verbatim",
			input: `[1.0, -0, 12345678901234567890123]`,
			want:  []any{json.Number("1.0"), json.Number("-0"), json.Number("12345678901234567890123")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_RejectsAnythingButStrictJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "prose", input: "Sure! Here is the JSON you asked for."},
		{name: "trailing text", input: `{"language": "Go"} Hope this helps!`},
		{name: "trailing character", input: `{"language": "Go"}x`},
		{name: "two values", input: `{"a": 1}{"b": 2}`},
		{name: "leading prose", input: `Here you go: {"language": "Go"}`},
		{name: "markdown fence", input: "```json\n{\"language\": \"Go\"}\n```"},
		{name: "trailing comma", input: `{"language": "Go",}`},
		{name: "unquoted key", input: `{language: "Go"}`},
		{name: "single quotes", input: `{'language': 'Go'}`},
		{name: "comment", input: "{\"language\": \"Go\" // the language\n}"},
		{name: "truncated", input: `{"language": "Go", "benefits": ["fa`},
		{name: "trailing scalar", input: `42 43`},
		{name: "invalid utf-8 in string", input: "{\"language\": \"G\xffo\"}"},
		{name: "invalid utf-8 outside string", input: "\xff{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.Error(t, err)
			assert.Nil(t, got)

			var failure *ParseFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.input, failure.RawText)
			assert.NotEmpty(t, failure.Message)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestParse_FailureCarriesOffset(t *testing.T) {
	_, err := Parse(`{"language": "Go"}x`)

	var failure *ParseFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, int64(19), failure.Offset)
	assert.Contains(t, failure.Error(), "offset 19")
}

func TestParse_FailureOffsets(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int64
	}{
		{name: "second value", input: `{"a": 1} {"b": 2}`, offset: 10},
		{name: "trailing after scalar", input: "42 x", offset: 4},
		{name: "empty", input: "", offset: 0},
		{name: "truncated", input: `["fa`, offset: 4},
		{name: "invalid utf-8", input: "\"ab\xff\"", offset: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)

			var failure *ParseFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.offset, failure.Offset)
		})
	}
}

func TestParse_RepairableIsDiagnosticOnly(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "trailing comma", input: `{"language": "Go",}`},
		{name: "missing closing brace", input: `{"language": "Go"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Parse(tt.input)
			require.Error(t, err, "repairable input must still fail")
			assert.Nil(t, value)

			var failure *ParseFailure
			require.ErrorAs(t, err, &failure)
			assert.True(t, failure.Repairable)
		})
	}
}

// TestParse_RoundTrip checks that re-serializing a parsed value reparses to
// an equal value.
func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"language":"Python","purpose":"testing","benefits":["safe",42,"isolated",null]}`,
		`{"nested":{"deep":[1,2,{"x":false}]},"unicode":"héllo"}`,
		`[]`,
		`"s"`,
		`{"big":1e400,"precise":12345678901234567890123,"float":1.50}`,
	}

	for _, input := range inputs {
		first, err := Parse(input)
		require.NoError(t, err, input)

		encoded, err := json.Marshal(first)
		require.NoError(t, err)

		second, err := Parse(string(encoded))
		require.NoError(t, err)
		assert.Equal(t, first, second, input)
	}
}

func TestParseObject(t *testing.T) {
	obj, ok, err := ParseObject(`{"a": "b"}`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"a": "b"}, obj)

	obj, ok, err = ParseObject(`["a"]`)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, obj)

	_, _, err = ParseObject(`{`)
	assert.ErrorIs(t, err, ErrParse)
}
