package middleware

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"narrify/internal/gate"
	httpctx "narrify/internal/http/ctx"
)

// Header names accepted for the tenant API key. X-Narrify-Key is what the
// embed script sends; X-API-Key is kept for older integrations.
const (
	HeaderNarrifyKey = "X-Narrify-Key"
	HeaderAPIKey     = "X-API-Key"
)

// KeyAuth validates the tenant API key on /v1 requests through the access
// gate. Every rejection maps to 401 with a JSON {"error": ...} body; on
// success the validation result is stored on the request context.
func KeyAuth(g *gate.Gate) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			apiKey := string(ctx.Request.Header.Peek(HeaderNarrifyKey))
			if apiKey == "" {
				apiKey = string(ctx.Request.Header.Peek(HeaderAPIKey))
			}
			origin := string(ctx.Request.Header.Peek("Origin"))

			res := g.Validate(apiKey, origin)
			if !res.Valid {
				var fe *gate.FailureError
				if errors.As(res.Err, &fe) {
					countValidation(string(fe.Kind))
				}
				unauthorized(ctx, res.Err.Error())
				return
			}
			countValidation("ok")

			httpctx.SetAccess(ctx, res)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx, msg string) {
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": msg})
	ctx.SetBody(body)
}
