package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	got, err := ExtractJSON(`Here is the result: {"x": 10, "y": 20} Hope that helps!`)
	require.NoError(t, err)
	assert.Equal(t, `{"x": 10, "y": 20}`, got)
}

func TestExtractJSONArray(t *testing.T) {
	got, err := ExtractJSON("Sure:\n```json\n[{\"title\": \"Step 1\"}, {\"title\": \"Step 2\"}]\n```")
	require.NoError(t, err)
	assert.Equal(t, `[{"title": "Step 1"}, {"title": "Step 2"}]`, got)
}

func TestExtractJSONNested(t *testing.T) {
	got, err := ExtractJSON(`{"steps": [{"a": 1}, {"b": {"c": 2}}]} trailing`)
	require.NoError(t, err)
	assert.Equal(t, `{"steps": [{"a": 1}, {"b": {"c": 2}}]}`, got)
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	got, err := ExtractJSON(`{"selector": "div[data-x='}']", "title": "a \"quoted\" title"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"selector": "div[data-x='}']", "title": "a \"quoted\" title"}`, got)
}

func TestExtractJSONMissing(t *testing.T) {
	_, err := ExtractJSON("I could not produce a tour for this page.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractJSONUnbalanced(t *testing.T) {
	_, err := ExtractJSON(`{"x": 1`)
	assert.ErrorIs(t, err, ErrNoJSON)
}
