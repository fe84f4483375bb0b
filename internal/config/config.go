// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	APISecretKey string
	LogLevel     slog.Level
	CORSOrigins  []string

	Store     StoreConfig
	Detection DetectionConfig
	LLM       LLMConfig
	Callback  CallbackConfig
	RateLimit RateLimitConfig

	MaxMessagesPerSession int
	SessionLocking        bool
	LexiconPath           string
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Backend       string
	DBPath        string
	PostgresDSN   string
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// DetectionConfig controls scoring.
type DetectionConfig struct {
	ScoreThreshold int
	LLMEnabled     bool
	LLMWeight      int
}

// LLMConfig configures the remote model backends. Both are optional.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	ClassifierAddr string
}

// CallbackConfig configures final result delivery.
type CallbackConfig struct {
	URL     string
	Timeout time.Duration
}

// RateLimitConfig configures per-client throttling. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := getEnv("LLM_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("GROQ_API_KEY", "")
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		APISecretKey: getEnv("API_SECRET_KEY", ""),
		LogLevel:     parseLevel(getEnv("LOG_LEVEL", "INFO")),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "*")),
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			DBPath:        getEnv("DB_PATH", "./data/honeypot.db"),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_SECONDS", 24*60*60)) * time.Second,
			SweepInterval: getEnvDuration("STORE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Detection: DetectionConfig{
			ScoreThreshold: getEnvInt("SCAM_SCORE_THRESHOLD", 70),
			LLMEnabled:     getEnvBool("LLM_DETECTION_ENABLED", true),
			LLMWeight:      getEnvInt("LLM_WEIGHT", 40),
		},
		LLM: LLMConfig{
			APIKey:         apiKey,
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:          getEnv("MODEL_NAME", "llama-3.1-70b-versatile"),
			Timeout:        getEnvDuration("LLM_TIMEOUT", 20*time.Second),
			ClassifierAddr: getEnv("CLASSIFIER_GRPC_ADDR", ""),
		},
		Callback: CallbackConfig{
			URL:     getEnv("CALLBACK_URL", ""),
			Timeout: getEnvDuration("CALLBACK_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 0),
			Burst: getEnvInt("RATE_LIMIT_BURST", 20),
		},
		MaxMessagesPerSession: getEnvInt("MAX_MESSAGES_PER_SESSION", 25),
		SessionLocking:        getEnvBool("SESSION_LOCKING", false),
		LexiconPath:           getEnv("LEXICON_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.APISecretKey == "" {
		return fmt.Errorf("API_SECRET_KEY cannot be empty")
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty for the sqlite store")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN cannot be empty for the postgres store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, sqlite, postgres (got %q)", c.Store.Backend)
	}
	if c.Store.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be > 0")
	}
	if c.Detection.ScoreThreshold < 1 || c.Detection.ScoreThreshold > 100 {
		return fmt.Errorf("SCAM_SCORE_THRESHOLD must be between 1 and 100")
	}
	if c.Detection.LLMWeight < 0 || c.Detection.LLMWeight > 100 {
		return fmt.Errorf("LLM_WEIGHT must be between 0 and 100")
	}
	if c.MaxMessagesPerSession <= 0 {
		return fmt.Errorf("MAX_MESSAGES_PER_SESSION must be > 0")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be > 0 when rate limiting is enabled")
	}
	return nil
}

// ClassifierEnabled reports whether any classifier backend should be wired.
func (c *Config) ClassifierEnabled() bool {
	return c.Detection.LLMEnabled && (c.LLM.ClassifierAddr != "" || c.LLM.APIKey != "")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings ("30s") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
