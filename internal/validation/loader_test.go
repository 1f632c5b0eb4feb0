package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"json", `{"a": 1}`, map[string]any{"a": float64(1)}},
		{"line comment", "{\n// note\n\"a\": \"x // not a comment\"\n}", map[string]any{"a": "x // not a comment"}},
		{"block comment", `{/* c */"a": [1, 2,]}`, map[string]any{"a": []any{float64(1), float64(2)}}},
		{"trailing comma", "{\"a\": {\"b\": true,},\n}", map[string]any{"a": map[string]any{"b": true}}},
		{"escaped quote", `{"a": "say \"hi\", ok"}`, map[string]any{"a": `say "hi", ok`}},
		{"yaml", "a: 1\nb:\n  - x\n", map[string]any{"a": float64(1), "b": []any{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDocument([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDocument([]byte("a: [unclosed"))
	require.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"mode": map[string]any{"default": "tgz"},
			"nested": map[string]any{
				"default":    map[string]any{},
				"properties": map[string]any{"level": map[string]any{"default": float64(3)}},
			},
		},
	}
	got := ApplyDefaults(schema, map[string]any{})
	assert.Equal(t, map[string]any{
		"mode":   "tgz",
		"nested": map[string]any{"level": float64(3)},
	}, got)

	kept := ApplyDefaults(schema, map[string]any{"mode": "none"})
	assert.Equal(t, "none", kept.(map[string]any)["mode"])

	assert.Equal(t, "scalar", ApplyDefaults(schema, "scalar"))
}
