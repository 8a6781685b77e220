package ai

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicMessages(t *testing.T) {
	var gotPath, gotAPIKey, gotVersion string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Here you go: "},{"type":"text","text":"[{\"title\":\"Step\"}]"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", "test-model")
	c.SetBaseURL(srv.URL)

	text, err := c.Messages("system prompt", []ContentBlock{TextBlock("hello")})
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, anthropicVersion, gotVersion)
	assert.Equal(t, "test-model", gotBody["model"])
	assert.Equal(t, "system prompt", gotBody["system"])
	assert.Equal(t, `Here you go: [{"title":"Step"}]`, text)
}

func TestAnthropicMessagesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", "test-model")
	c.SetBaseURL(srv.URL)

	_, err := c.Messages("", []ContentBlock{TextBlock("hello")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAnthropicMessagesEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", "test-model")
	c.SetBaseURL(srv.URL)

	_, err := c.Messages("", []ContentBlock{TextBlock("hello")})
	assert.Error(t, err)
}

func TestImageBlock(t *testing.T) {
	b := ImageBlock("image/png", "aGVsbG8=")
	assert.Equal(t, "image", b.Type)
	require.NotNil(t, b.Source)
	assert.Equal(t, "base64", b.Source.Type)
	assert.Equal(t, "image/png", b.Source.MediaType)
}
