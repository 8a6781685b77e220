package handlers

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"narrify/internal/ai"
	"narrify/internal/config"
	dbpkg "narrify/internal/db"
)

func CreateTour(db *gorm.DB, _ *config.Config, anthropic *ai.AnthropicClient) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		name := string(ctx.PostArgs().Peek("name"))
		sourceURL := string(ctx.PostArgs().Peek("source_url"))
		theme := string(ctx.PostArgs().Peek("theme"))
		pageText := string(ctx.PostArgs().Peek("page_text"))

		if name == "" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("name required")
			return
		}
		switch theme {
		case "light", "dark", "auto":
		default:
			theme = "auto"
		}

		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		tour := &dbpkg.Tour{
			PublicID:  uuid.NewString(),
			UserID:    user.ID,
			Name:      name,
			SourceURL: sourceURL,
			Theme:     theme,
		}

		// When the builder pasted page content, author the steps now.
		// A generation failure still creates the (empty) tour so the
		// user can retry or author steps by hand.
		if pageText != "" && anthropic != nil {
			drafts, err := GenerateSteps(anthropic, sourceURL, pageText)
			if err != nil {
				log.Printf("tour generation failed for %q: %v", name, err)
			} else {
				tour.Steps = draftsToSteps(drafts)
			}
		}

		if err := db.Create(tour).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to create tour")
			return
		}

		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

// loadOwnedTour fetches the tour named by the {id} route parameter and
// checks the current user may manage it.
func loadOwnedTour(ctx *fasthttp.RequestCtx, db *gorm.DB) (*dbpkg.Tour, bool) {
	id, ok := pathID(ctx)
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("invalid tour ID")
		return nil, false
	}

	user, ok := MustUser(ctx)
	if !ok {
		return nil, false
	}

	var tour dbpkg.Tour
	if err := db.First(&tour, id).Error; err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("tour not found")
		return nil, false
	}
	if tour.UserID != user.ID && !user.IsAdmin {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.SetBodyString("forbidden")
		return nil, false
	}
	return &tour, true
}

func DeleteTour(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		tour, ok := loadOwnedTour(ctx, db)
		if !ok {
			return
		}
		if err := db.Select("Steps").Delete(tour).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to delete tour")
			return
		}
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

// PublishTour toggles whether the embed endpoint serves the tour.
func PublishTour(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		publishedStr := string(ctx.PostArgs().Peek("published"))
		if publishedStr != "true" && publishedStr != "false" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("published (true|false) required")
			return
		}

		tour, ok := loadOwnedTour(ctx, db)
		if !ok {
			return
		}
		if err := db.Model(tour).Update("published", publishedStr == "true").Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to update tour")
			return
		}
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

type embedStep struct {
	Position  int     `json:"position"`
	Selector  string  `json:"selector"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Narration string  `json:"narration,omitempty"`
}

type embedTour struct {
	PublicID string      `json:"id"`
	Name     string      `json:"name"`
	Theme    string      `json:"theme"`
	VoiceID  string      `json:"voice_id"`
	Steps    []embedStep `json:"steps"`
}

// EmbedTourConfig serves the tour configuration the embed script renders.
// The request is key-authenticated; the key must belong to the tour's
// owner and the tour must be published.
func EmbedTourConfig(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		clientID, ok := MustAccess(ctx)
		if !ok {
			return
		}
		publicID, _ := ctx.UserValue("publicID").(string)
		if publicID == "" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("tour id required")
			return
		}

		var tour dbpkg.Tour
		err := db.Where("public_id = ?", publicID).Preload("Steps", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).First(&tour).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				ctx.SetBodyString("tour not found")
				return
			}
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to load tour")
			return
		}

		// A key only unlocks its own tenant's tours; an unpublished
		// tour looks the same as a missing one from outside.
		if tour.UserID != clientID || !tour.Published {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("tour not found")
			return
		}

		voice := tour.VoiceID
		if voice == "" {
			voice = cfg.DefaultVoiceID
		}

		out := embedTour{
			PublicID: tour.PublicID,
			Name:     tour.Name,
			Theme:    tour.Theme,
			VoiceID:  voice,
		}
		for _, s := range tour.Steps {
			out.Steps = append(out.Steps, embedStep{
				Position:  s.Position,
				Selector:  s.Selector,
				X:         s.X,
				Y:         s.Y,
				Title:     s.Title,
				Body:      s.Body,
				Narration: s.Narration,
			})
		}

		ctx.SetContentType("application/json")
		body, _ := json.Marshal(out)
		ctx.SetBody(body)
	}
}
