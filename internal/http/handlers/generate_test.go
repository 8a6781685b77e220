package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"narrify/internal/ai"
)

func newStubAnthropic(t *testing.T, completion string) *ai.AnthropicClient {
	t.Helper()
	type block struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	payload := struct {
		Content []block `json:"content"`
	}{Content: []block{{Type: "text", Text: completion}}}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	c := ai.NewAnthropicClient("test-key", "test-model")
	c.SetBaseURL(srv.URL)
	return c
}

func TestGenerateStepsParsesCompletion(t *testing.T) {
	client := newStubAnthropic(t, `Here are the steps:
[
  {"selector": "#signup", "title": "Create an account", "body": "Start here.", "narration": "First, create your account."},
  {"selector": ".nav-billing", "title": "Billing", "body": "Manage your plan.", "narration": "Next, check billing."}
]`)

	drafts, err := GenerateSteps(client, "https://app.example.com", "page text")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "#signup", drafts[0].Selector)
	assert.Equal(t, "Create an account", drafts[0].Title)

	steps := draftsToSteps(drafts)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Position)
	assert.Equal(t, 2, steps[1].Position)
	assert.Equal(t, "Next, check billing.", steps[1].Narration)
}

func TestGenerateStepsRejectsProseOnlyCompletion(t *testing.T) {
	client := newStubAnthropic(t, "I cannot author a tour for this page.")

	_, err := GenerateSteps(client, "", "page text")
	assert.Error(t, err)
}

func TestGenerateStepsRejectsEmptyArray(t *testing.T) {
	client := newStubAnthropic(t, "[]")

	_, err := GenerateSteps(client, "", "page text")
	assert.Error(t, err)
}
