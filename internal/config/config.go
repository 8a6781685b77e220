package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	AdminUser     string
	AdminPassword string

	DatabaseURL string

	ListenAddr string

	// RetentionDays is how long raw view events from the embed script
	// are kept before the retention worker deletes them. Aggregated
	// metric buckets are not affected.
	RetentionDays int

	// AnthropicAPIKey authenticates tour-generation and vision-locate
	// calls against the Anthropic API. If empty, those endpoints
	// respond 503.
	AnthropicAPIKey string

	// AnthropicModel is the model id used for generation and vision.
	AnthropicModel string

	// ElevenLabsAPIKey authenticates narration synthesis. If empty,
	// the TTS endpoint responds 503.
	ElevenLabsAPIKey string

	// DefaultVoiceID is the ElevenLabs voice used when a tour has no
	// voice of its own.
	DefaultVoiceID string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AdminUser:        getenv("APP_ADMIN_USER", "admin"),
		AdminPassword:    getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:      os.Getenv("APP_DATABASE_URL"),
		ListenAddr:       getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays:    90,
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getenv("APP_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		DefaultVoiceID:   getenv("APP_DEFAULT_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
