// Package config loads application configuration from environment variables.
// All variables use the TUTOR_ prefix.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingConfiguration marks configuration whose absence prevents startup.
var ErrMissingConfiguration = errors.New("missing configuration")

// Supported AI provider names.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

const (
	defaultGoogleModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	AI             AIConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	CORS           CORSConfig
	Log            LogConfig
	CurriculumPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// AIConfig selects the generation provider and its sampling options.
type AIConfig struct {
	Provider        string
	Model           string
	GoogleAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Temperature     float64
	MaxOutputTokens int
	TopP            float64
	Timeout         time.Duration // 0 means no deadline on the provider call
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL disables
// the analytics event log.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL keeps usage
// counters in memory.
type CacheConfig struct {
	URL string
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with TUTOR_ prefix.
func Load() (*Config, error) {
	provider := strings.ToLower(envStr("TUTOR_AI_PROVIDER", ProviderGoogle))

	cfg := &Config{
		Server: ServerConfig{
			// Hosting platforms inject PORT; the prefixed variable wins.
			Port: envInt("TUTOR_SERVER_PORT", envInt("PORT", 8000)),
			Host: envStr("TUTOR_SERVER_HOST", "0.0.0.0"),
		},
		AI: AIConfig{
			Provider:        provider,
			Model:           envStr("TUTOR_AI_MODEL", defaultModel(provider)),
			GoogleAPIKey:    envStr("TUTOR_AI_GOOGLE_API_KEY", ""),
			OpenAIAPIKey:    envStr("TUTOR_AI_OPENAI_API_KEY", ""),
			OpenAIBaseURL:   envStr("TUTOR_AI_OPENAI_BASE_URL", ""),
			Temperature:     envFloat("TUTOR_AI_TEMPERATURE", 0.7),
			MaxOutputTokens: envInt("TUTOR_AI_MAX_OUTPUT_TOKENS", 2048),
			TopP:            envFloat("TUTOR_AI_TOP_P", 0.9),
			Timeout:         envDuration("TUTOR_AI_TIMEOUT", 0),
		},
		Database: DatabaseConfig{
			URL:      envStr("TUTOR_DATABASE_URL", ""),
			MaxConns: envInt("TUTOR_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("TUTOR_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("TUTOR_CACHE_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("TUTOR_CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  envStr("TUTOR_LOG_LEVEL", "info"),
			Format: envStr("TUTOR_LOG_FORMAT", "json"),
		},
		CurriculumPath: envStr("TUTOR_CURRICULUM_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderGoogle:
		if c.AI.GoogleAPIKey == "" {
			return fmt.Errorf("%w: TUTOR_AI_GOOGLE_API_KEY is required", ErrMissingConfiguration)
		}
	case ProviderOpenAI:
		if c.AI.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: TUTOR_AI_OPENAI_API_KEY is required", ErrMissingConfiguration)
		}
	default:
		return fmt.Errorf("TUTOR_AI_PROVIDER must be %q or %q, got %q", ProviderGoogle, ProviderOpenAI, c.AI.Provider)
	}

	if c.AI.Model == "" {
		return fmt.Errorf("%w: TUTOR_AI_MODEL is required", ErrMissingConfiguration)
	}
	if c.AI.MaxOutputTokens <= 0 {
		return fmt.Errorf("TUTOR_AI_MAX_OUTPUT_TOKENS must be positive, got %d", c.AI.MaxOutputTokens)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("TUTOR_AI_TEMPERATURE must be within [0, 2], got %v", c.AI.Temperature)
	}
	if c.AI.TopP < 0 || c.AI.TopP > 1 {
		return fmt.Errorf("TUTOR_AI_TOP_P must be within [0, 1], got %v", c.AI.TopP)
	}

	return nil
}

// APIKey returns the key of the selected provider.
func (c AIConfig) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GoogleAPIKey
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultGoogleModel
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
