package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"narrify/internal/ai"
	"narrify/internal/config"
	"narrify/internal/db"
	"narrify/internal/gate"
	"narrify/internal/http/handlers"
	appmw "narrify/internal/http/middleware"
	ui "narrify/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	db.StartRetentionWorker(sqlDB)
	db.StartAggregationWorker(sqlDB)

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}

	// The access gate and AI clients are built once here and injected;
	// nothing below constructs clients per request.
	accessGate := gate.New(db.NewKeyStore(sqlDB))

	var anthropic *ai.AnthropicClient
	if cfg.AnthropicAPIKey != "" {
		anthropic = ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	} else {
		log.Printf("ANTHROPIC_API_KEY not set; tour generation and vision locate disabled")
	}

	var eleven *ai.ElevenLabsClient
	if cfg.ElevenLabsAPIKey != "" {
		eleven = ai.NewElevenLabsClient(cfg.ElevenLabsAPIKey)
	} else {
		log.Printf("ELEVENLABS_API_KEY not set; narration disabled")
	}

	handlers.InitPrometheusMetrics()
	appmw.InitRequestMetrics()

	r := router.New()

	// Global middleware chain: request logger, then request metrics, then router
	handler := handlers.RequestLogger(appmw.RequestMetrics(r.Handler))

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/login", handlers.LoginForm(cfg))
	r.POST("/login", handlers.LoginSubmit(sqlDB))
	r.POST("/logout", handlers.Logout())

	admin := appmw.AdminAuth(sqlDB, cfg)

	r.GET("/", admin(handlers.ToursPage(sqlDB, cfg)))
	r.GET("/docs", admin(handlers.DocsPage(sqlDB, cfg)))
	r.GET("/settings", admin(handlers.SettingsPage(sqlDB, cfg)))
	r.GET("/users", admin(handlers.UsersPage(sqlDB, cfg)))

	r.POST("/admin/users/create", admin(handlers.CreateUser(sqlDB)))
	r.POST("/admin/users/{id}/reset-password", admin(handlers.ResetPassword(sqlDB, cfg)))
	r.POST("/admin/users/{id}/delete", admin(handlers.DeleteUser(sqlDB, cfg)))

	r.POST("/settings/password", admin(handlers.ChangePasswordSelf(sqlDB, cfg)))
	r.POST("/settings/display", admin(handlers.UpdateDisplaySettings(sqlDB, cfg)))

	r.POST("/admin/apikeys/create", admin(handlers.CreateAPIKey(sqlDB, cfg)))
	r.POST("/admin/apikeys/delete", admin(handlers.DeleteAPIKey(sqlDB, cfg)))
	r.POST("/admin/apikeys/set-active", admin(handlers.SetActiveAPIKey(sqlDB, cfg)))
	r.POST("/admin/apikeys/set-domains", admin(handlers.SetAPIKeyDomains(sqlDB, cfg)))
	r.POST("/admin/apikeys/set-limit", admin(handlers.SetAPIKeyLimit(sqlDB, cfg)))

	r.POST("/admin/tours/create", admin(handlers.CreateTour(sqlDB, cfg, anthropic)))
	r.POST("/admin/tours/{id}/delete", admin(handlers.DeleteTour(sqlDB)))
	r.POST("/admin/tours/{id}/publish", admin(handlers.PublishTour(sqlDB)))

	r.GET("/v1/metrics/traffic", admin(handlers.TrafficSeries(sqlDB)))
	r.GET("/v1/metrics/completion-rate", admin(handlers.CompletionRate(sqlDB)))
	r.GET("/v1/metrics/top-tours", admin(handlers.TopTours(sqlDB)))
	r.GET("/v1/metrics/recent", admin(handlers.RecentEvents(sqlDB)))
	r.GET("/v1/metrics/event/{id}", admin(handlers.EventDetail(sqlDB)))

	// Public embed API, key-authenticated through the access gate.
	keyed := appmw.KeyAuth(accessGate)

	r.GET("/v1/tours/{publicID}", keyed(handlers.EmbedTourConfig(sqlDB, cfg)))
	r.POST("/v1/events", keyed(handlers.IngestHandler(sqlDB, cfg)))
	r.POST("/v1/generate", keyed(handlers.GenerateHandler(anthropic)))
	r.POST("/v1/vision/locate", keyed(handlers.VisionLocateHandler(anthropic)))
	r.POST("/v1/tts", keyed(handlers.TTSHandler(eleven, cfg)))

	r.GET("/v1/metrics/export", handlers.TenantMetricsHandler(sqlDB))

	log.Printf("narrify listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
