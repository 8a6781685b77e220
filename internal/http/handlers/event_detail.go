package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "narrify/internal/db"
)

// EventDetail returns one raw embed event with its attributes, for the
// drill-down view behind the live feed.
func EventDetail(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathID(ctx)
		if !ok {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("invalid id")
			return
		}

		var e dbpkg.ViewEvent
		if err := db.First(&e, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				ctx.SetBodyString("event not found")
				return
			}
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to load event")
			return
		}

		if e.UserID != user.ID {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			ctx.SetBodyString("forbidden")
			return
		}

		resp := map[string]any{
			"id":                 e.ID,
			"created_at":         e.CreatedAt.Format(time.RFC3339Nano),
			"created_at_display": FormatEventDateTime(e.CreatedAt, user.TimeFormat, user.DateFormat),
			"expires_at":         e.ExpiresAt,
			"tour":               e.TourPublicID,
			"kind":               e.Kind,
			"step":               e.StepPosition,
			"remote_ip":          e.RemoteIP,
			"attributes":         e.Attributes,
		}

		ctx.SetContentType("application/json")
		body, _ := json.Marshal(resp)
		ctx.SetBody(body)
	}
}
