package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ElevenLabsClient calls the ElevenLabs text-to-speech API.
type ElevenLabsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewElevenLabsClient(apiKey string) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:  apiKey,
		baseURL: "https://api.elevenlabs.io",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize converts narration text to audio with the given voice and
// returns the audio stream plus its content type. The caller owns the
// returned reader and must close it.
func (c *ElevenLabsClient) Synthesize(voiceID, text string) (io.ReadCloser, string, error) {
	body, err := json.Marshal(ttsRequest{Text: text, ModelID: "eleven_multilingual_v2"})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("elevenlabs request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, "", fmt.Errorf("elevenlabs error (%d): %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return resp.Body, contentType, nil
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *ElevenLabsClient) SetBaseURL(u string) { c.baseURL = u }
