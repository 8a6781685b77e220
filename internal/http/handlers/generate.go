package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"

	"narrify/internal/ai"
	dbpkg "narrify/internal/db"
)

const generateSystemPrompt = `You are a product-tour author. Given the text content of a web page,
produce a short interactive tour (3 to 7 steps) that walks a first-time
visitor through the page's main features. Respond with a JSON array only,
no prose. Each element must have the fields: "selector" (a CSS selector
for the element the step points at), "title" (max 8 words), "body"
(1-2 sentences shown in the tooltip) and "narration" (1-3 spoken
sentences, conversational).`

// StepDraft is one generated tour step as returned by the model.
type StepDraft struct {
	Selector  string `json:"selector"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Narration string `json:"narration"`
}

// GenerateSteps asks the model to author tour steps for the given page
// content and parses the JSON array out of the completion text.
func GenerateSteps(client *ai.AnthropicClient, sourceURL, pageText string) ([]StepDraft, error) {
	prompt := fmt.Sprintf("Page URL: %s\n\nPage content:\n%s", sourceURL, pageText)
	text, err := client.Messages(generateSystemPrompt, []ai.ContentBlock{ai.TextBlock(prompt)})
	if err != nil {
		return nil, err
	}

	raw, err := ai.ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("completion had no JSON steps: %w", err)
	}

	var drafts []StepDraft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		return nil, fmt.Errorf("could not decode generated steps: %w", err)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("model produced no steps")
	}
	return drafts, nil
}

func draftsToSteps(drafts []StepDraft) []dbpkg.TourStep {
	steps := make([]dbpkg.TourStep, 0, len(drafts))
	for i, d := range drafts {
		steps = append(steps, dbpkg.TourStep{
			Position:  i + 1,
			Selector:  d.Selector,
			Title:     d.Title,
			Body:      d.Body,
			Narration: d.Narration,
		})
	}
	return steps
}

type generateRequest struct {
	URL      string `json:"url"`
	PageText string `json:"page_text"`
}

// GenerateHandler authors tour steps on demand for the builder UI.
// It does not persist anything; the builder saves the result itself.
func GenerateHandler(anthropic *ai.AnthropicClient) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if anthropic == nil {
			errResponse(ctx, fasthttp.StatusServiceUnavailable, "tour generation is not configured")
			return
		}
		if _, ok := MustAccess(ctx); !ok {
			return
		}

		var req generateRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.PageText == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "page_text required")
			return
		}

		drafts, err := GenerateSteps(anthropic, req.URL, req.PageText)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadGateway, "generation failed: "+err.Error())
			return
		}

		ctx.SetContentType("application/json")
		body, _ := json.Marshal(map[string]any{"steps": drafts})
		ctx.SetBody(body)
	}
}
