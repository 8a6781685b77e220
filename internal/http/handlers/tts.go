package handlers

import (
	"bufio"
	"encoding/json"
	"io"
	"log"

	"github.com/valyala/fasthttp"

	"narrify/internal/ai"
	"narrify/internal/config"
)

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// TTSHandler synthesizes narration audio for a step and streams it back.
func TTSHandler(eleven *ai.ElevenLabsClient, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if eleven == nil {
			errResponse(ctx, fasthttp.StatusServiceUnavailable, "narration is not configured")
			return
		}
		if _, ok := MustAccess(ctx); !ok {
			return
		}

		var req ttsRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Text == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "text required")
			return
		}
		voice := req.VoiceID
		if voice == "" {
			voice = cfg.DefaultVoiceID
		}

		audio, contentType, err := eleven.Synthesize(voice, req.Text)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadGateway, "narration failed: "+err.Error())
			return
		}

		ctx.SetContentType(contentType)
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer audio.Close()
			if _, err := io.Copy(w, audio); err != nil {
				log.Printf("tts stream aborted: %v", err)
			}
		})
	}
}
