package handlers

import (
	"bytes"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"narrify/internal/config"
	dbpkg "narrify/internal/db"
	httpctx "narrify/internal/http/ctx"
	ui "narrify/web"
)

type LayoutData struct {
	Title        string
	Breadcrumb   string
	ActivePage   string
	PageTemplate string
	IsAdmin      bool
	Username     string
	AdminUser    string
	Users        []dbpkg.User
	APIKeys      []dbpkg.APIKey
	Tours        []dbpkg.Tour
	TimeFormat   string
	DateFormat   string
}

func getLayoutData(ctx *fasthttp.RequestCtx, cfg *config.Config, activePage, breadcrumb, pageTemplate string) LayoutData {
	isAdmin := false
	username := ""
	timeFormat := "12"
	dateFormat := "dd-mm-yyyy"
	if u, ok := httpctx.UserFromCtx(ctx); ok {
		if user, ok := u.(*dbpkg.User); ok && user != nil {
			username = user.Username
			isAdmin = user.IsAdmin || username == cfg.AdminUser
			if user.TimeFormat != "" {
				timeFormat = user.TimeFormat
			}
			if user.DateFormat != "" {
				dateFormat = user.DateFormat
			}
		}
	}

	return LayoutData{
		Title:        breadcrumb,
		Breadcrumb:   breadcrumb,
		ActivePage:   activePage,
		PageTemplate: pageTemplate,
		IsAdmin:      isAdmin,
		Username:     username,
		AdminUser:    cfg.AdminUser,
		TimeFormat:   timeFormat,
		DateFormat:   dateFormat,
	}
}

func renderLayout(ctx *fasthttp.RequestCtx, data LayoutData) {
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, "layout", data); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render error")
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

// ToursPage lists the tenant's tours with publish toggles and the
// create-tour form. This is the dashboard landing page.
func ToursPage(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var tours []dbpkg.Tour
		if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&tours).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to load tours")
			return
		}

		data := getLayoutData(ctx, cfg, "tours", "Tours", "tours")
		data.Tours = tours
		renderLayout(ctx, data)
	}
}

func SettingsPage(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var apiKeys []dbpkg.APIKey
		if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&apiKeys).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to load API keys")
			return
		}

		data := getLayoutData(ctx, cfg, "settings", "Settings", "settings")
		data.APIKeys = apiKeys
		renderLayout(ctx, data)
	}
}

func UsersPage(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		isAdmin := user.IsAdmin || user.Username == cfg.AdminUser
		if !isAdmin {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			ctx.SetBodyString("forbidden")
			return
		}

		var users []dbpkg.User
		if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to load users")
			return
		}

		data := getLayoutData(ctx, cfg, "users", "Users", "users")
		data.Users = users
		renderLayout(ctx, data)
	}
}

func UpdateDisplaySettings(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		timeFormat := string(ctx.PostArgs().Peek("time_format"))
		dateFormat := string(ctx.PostArgs().Peek("date_format"))
		if timeFormat != "12" && timeFormat != "24" {
			timeFormat = "12"
		}
		switch dateFormat {
		case "dd-mm-yyyy", "mm-dd-yyyy", "yyyy-mm-dd":
		default:
			dateFormat = "dd-mm-yyyy"
		}
		if err := db.Model(&dbpkg.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"time_format": timeFormat,
			"date_format": dateFormat,
		}).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to save display settings")
			return
		}
		ctx.Redirect("/settings", fasthttp.StatusSeeOther)
	}
}

func DocsPage(_ *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		data := getLayoutData(ctx, cfg, "docs", "Docs", "docs")
		renderLayout(ctx, data)
	}
}
