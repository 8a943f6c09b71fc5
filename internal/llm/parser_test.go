package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONParsesPlainObject(t *testing.T) {
	var out map[string]any
	err := ExtractJSON(`{"intent_type": "mood_variety"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "mood_variety", out["intent_type"])
}

func TestExtractJSONStripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"overall_score\": 0.82}\n```"
	var out map[string]any
	err := ExtractJSON(raw, &out)
	require.NoError(t, err)
	assert.InDelta(t, 0.82, out["overall_score"], 0.0001)
}

func TestExtractJSONSkipsLeadingProse(t *testing.T) {
	raw := `Sure, here is the result: {"strategies": ["generate_more"]}`
	var out map[string]any
	err := ExtractJSON(raw, &out)
	require.NoError(t, err)
	strategies, ok := out["strategies"].([]any)
	require.True(t, ok)
	assert.Equal(t, "generate_more", strategies[0])
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	raw := `{"reasoning": "use the { symbol carefully }", "overall_score": 0.5}`
	var out map[string]any
	err := ExtractJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "use the { symbol carefully }", out["reasoning"])
}

func TestExtractJSONReturnsErrorWhenNoJSONPresent(t *testing.T) {
	var out map[string]any
	err := ExtractJSON("no json here at all", &out)
	assert.Error(t, err)
}

func TestExtractJSONParsesArray(t *testing.T) {
	var out []string
	err := ExtractJSON(`["chill", "lofi", "rainy day"]`, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"chill", "lofi", "rainy day"}, out)
}
