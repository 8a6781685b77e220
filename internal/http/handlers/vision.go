package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"

	"narrify/internal/ai"
)

const visionSystemPrompt = `You locate UI elements in screenshots. Given a screenshot and a
description of an element, respond with a JSON object only, no prose,
with the fields: "x" and "y" (the element center as percentages of the
image width/height, 0-100) and "selector" (your best guess at a CSS
selector for the element, or an empty string).`

type visionRequest struct {
	ImageBase64 string `json:"image_base64"`
	MediaType   string `json:"media_type"`
	Instruction string `json:"instruction"`
}

type visionResult struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Selector string  `json:"selector"`
}

// VisionLocateHandler finds an element in a screenshot via the vision
// model. Used by the builder when a generated selector does not resolve.
func VisionLocateHandler(anthropic *ai.AnthropicClient) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if anthropic == nil {
			errResponse(ctx, fasthttp.StatusServiceUnavailable, "vision locate is not configured")
			return
		}
		if _, ok := MustAccess(ctx); !ok {
			return
		}

		var req visionRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ImageBase64 == "" || req.Instruction == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "image_base64 and instruction required")
			return
		}
		mediaType := req.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}

		text, err := anthropic.Messages(visionSystemPrompt, []ai.ContentBlock{
			ai.ImageBlock(mediaType, req.ImageBase64),
			ai.TextBlock(fmt.Sprintf("Locate this element: %s", req.Instruction)),
		})
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadGateway, "vision locate failed: "+err.Error())
			return
		}

		raw, err := ai.ExtractJSON(text)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadGateway, "vision completion had no JSON")
			return
		}
		var result visionResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			errResponse(ctx, fasthttp.StatusBadGateway, "could not decode vision result")
			return
		}

		ctx.SetContentType("application/json")
		body, _ := json.Marshal(result)
		ctx.SetBody(body)
	}
}
