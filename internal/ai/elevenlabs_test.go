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

func TestElevenLabsSynthesize(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("xi-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake-mp3-bytes"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("el-key")
	c.SetBaseURL(srv.URL)

	audio, contentType, err := c.Synthesize("voice-1", "Welcome to the dashboard.")
	require.NoError(t, err)
	defer audio.Close()

	assert.Equal(t, "/v1/text-to-speech/voice-1", gotPath)
	assert.Equal(t, "el-key", gotAPIKey)
	assert.Equal(t, "Welcome to the dashboard.", gotBody["text"])
	assert.Equal(t, "audio/mpeg", contentType)

	data, err := io.ReadAll(audio)
	require.NoError(t, err)
	assert.Equal(t, "fake-mp3-bytes", string(data))
}

func TestElevenLabsSynthesizeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("bad-key")
	c.SetBaseURL(srv.URL)

	_, _, err := c.Synthesize("voice-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}
