package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"narrify/internal/config"
	dbpkg "narrify/internal/db"
	"narrify/internal/gate"
)

// generateAPIKey issues a new bearer secret: the live prefix followed by
// 64 lowercase hex characters from 32 securely-random bytes.
func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return gate.KeyPrefix + hex.EncodeToString(b), nil
}

// parseDomains splits a comma- or newline-separated allow-list into
// clean entries. An empty input means no restriction.
func parseDomains(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	domains := make([]string, 0, len(fields))
	for _, f := range fields {
		if d := strings.TrimSpace(f); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

func CreateAPIKey(db *gorm.DB, _ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		name := string(ctx.PostArgs().Peek("name"))
		domainsStr := string(ctx.PostArgs().Peek("domains"))
		limitStr := string(ctx.PostArgs().Peek("usage_limit"))

		if name == "" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("name required")
			return
		}

		var usageLimit *int64
		if limitStr != "" {
			v, err := strconv.ParseInt(limitStr, 10, 64)
			if err != nil || v < 0 {
				ctx.SetStatusCode(fasthttp.StatusBadRequest)
				ctx.SetBodyString("invalid usage_limit")
				return
			}
			usageLimit = &v
		}

		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		key, err := generateAPIKey()
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to generate API key")
			return
		}

		apiKey := &dbpkg.APIKey{
			UserID:     user.ID,
			Name:       name,
			Key:        key,
			Active:     true,
			Domains:    datatypes.NewJSONSlice(parseDomains(domainsStr)),
			UsageLimit: usageLimit,
		}

		if err := db.Create(apiKey).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("failed to create API key")
			return
		}

		ctx.Redirect("/settings", fasthttp.StatusSeeOther)
	}
}

// loadOwnedKey fetches the key named by the "id" form/query value and
// checks the current user may manage it.
func loadOwnedKey(ctx *fasthttp.RequestCtx, db *gorm.DB, id string) (*dbpkg.APIKey, *dbpkg.User, bool) {
	if id == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("id required")
		return nil, nil, false
	}

	user, ok := MustUser(ctx)
	if !ok {
		return nil, nil, false
	}
	var apiKey dbpkg.APIKey
	if err := db.First(&apiKey, id).Error; err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("API key not found")
		return nil, nil, false
	}

	if apiKey.UserID != user.ID && !user.IsAdmin {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.SetBodyString("forbidden")
		return nil, nil, false
	}
	return &apiKey, user, true
}

func DeleteAPIKey(db *gorm.DB, _ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		apiKey, _, ok := loadOwnedKey(ctx, db, string(ctx.QueryArgs().Peek("id")))
		if !ok {
			return
		}

		if err := db.Delete(apiKey).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to delete API key")
			return
		}

		ctx.Redirect("/settings", fasthttp.StatusSeeOther)
	}
}

func SetActiveAPIKey(db *gorm.DB, _ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		activeStr := string(ctx.PostArgs().Peek("active"))
		if activeStr != "true" && activeStr != "false" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("active (true|false) required")
			return
		}

		apiKey, _, ok := loadOwnedKey(ctx, db, string(ctx.PostArgs().Peek("id")))
		if !ok {
			return
		}

		if err := db.Model(apiKey).Update("active", activeStr == "true").Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to update API key")
			return
		}
		ctx.Redirect("/settings", fasthttp.StatusSeeOther)
	}
}

// SetAPIKeyDomains replaces a key's domain allow-list. An empty list
// removes the restriction.
func SetAPIKeyDomains(db *gorm.DB, _ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		apiKey, _, ok := loadOwnedKey(ctx, db, string(ctx.PostArgs().Peek("id")))
		if !ok {
			return
		}

		domains := parseDomains(string(ctx.PostArgs().Peek("domains")))
		if err := db.Model(apiKey).Update("domains", datatypes.NewJSONSlice(domains)).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to update domains")
			return
		}
		ctx.Redirect("/settings", fasthttp.StatusSeeOther)
	}
}

// SetAPIKeyLimit updates a key's lifetime usage limit. An empty value
// removes the limit; the usage counter itself is never reset here.
func SetAPIKeyLimit(db *gorm.DB, _ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		apiKey, _, ok := loadOwnedKey(ctx, db, string(ctx.PostArgs().Peek("id")))
		if !ok {
			return
		}

		limitStr := string(ctx.PostArgs().Peek("usage_limit"))
		var usageLimit *int64
		if limitStr != "" {
			v, err := strconv.ParseInt(limitStr, 10, 64)
			if err != nil || v < 0 {
				ctx.SetStatusCode(fasthttp.StatusBadRequest)
				ctx.SetBodyString("invalid usage_limit")
				return
			}
			usageLimit = &v
		}

		if err := db.Model(apiKey).Update("usage_limit", usageLimit).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to update usage limit")
			return
		}
		ctx.Redirect("/settings", fasthttp.StatusSeeOther)
	}
}
