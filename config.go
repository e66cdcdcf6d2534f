// Package appgen orchestrates grounded app generation: intent classification,
// planning, source enrichment, the tool-call loop, and parse-with-repair.
package appgen

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Desarso/appgen/media"
	"github.com/Desarso/appgen/models"
)

// Config carries all environment-driven settings, resolved once at process
// start and injected explicitly from there on.
type Config struct {
	OpenAIKey string
	GeminiKey string

	DefaultProvider string
	OpenAIModel     string
	GeminiModel     string

	ServerHost string
	MediaDir   string

	// TraceDB selects the generation trace database: a DSN for postgres or a
	// file path for sqlite. Empty disables tracing.
	TraceDB     string
	TraceDBType string
}

// Load_Config loads .env if present and resolves configuration from the
// environment. The key for the default provider is required; the other
// provider stays available but errors on first use if its key is absent.
func Load_Config() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		GeminiKey:       os.Getenv("GEMINI_API_KEY"),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "gemini"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ServerHost:      getEnv("SERVER_HOST", "http://localhost:8080"),
		MediaDir:        getEnv("MEDIA_DIR", "media"),
		TraceDB:         os.Getenv("TRACE_DB"),
		TraceDBType:     getEnv("TRACE_DB_TYPE", "sqlite"),
	}

	switch cfg.DefaultProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, &models.Config_Error{Variable: "OPENAI_API_KEY"}
		}
	default:
		if cfg.GeminiKey == "" {
			return nil, &models.Config_Error{Variable: "GEMINI_API_KEY"}
		}
	}

	return cfg, nil
}

// NewMediaStore builds the media store from configuration: files land under
// MediaDir and are served at ServerHost/media.
func NewMediaStore(cfg *Config) (*media.Store, error) {
	return media.NewStore(cfg.MediaDir, strings.TrimRight(cfg.ServerHost, "/")+"/media")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
