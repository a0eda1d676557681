package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGoogleAI  = "googleai"
)

// Session backends
const (
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type Config struct {
	// Service configuration
	ServiceName string
	Env         string

	// HTTP configuration
	HTTPAddr      string
	HTTPRateLimit float64
	HTTPRateBurst int

	// NATS configuration
	NatsEnabled       bool
	NatsURL           string
	NatsSubjectPrefix string
	NatsTimeout       time.Duration

	// Language model configuration
	LLMProvider    string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMMaxTokens   int
	LLMTemperature float64
	LLMRateLimit   float64
	LLMRateBurst   int

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	OllamaURL       string

	// Dialog configuration
	AgentMaxIterations int

	// Session configuration
	SessionBackend       string
	RedisURL             string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Database configuration
	DBDriver          string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Catalog configuration
	MenuMappingsFile string
	MenuSeedCSV      string
	SizePriceDelta   int64

	// Logging configuration
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	env := getEnv("ENV", "dev")

	cfg := &Config{
		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "coffee-assistant"),
		Env:         env,

		// HTTP settings
		HTTPAddr:      getEnv("HTTP_ADDR", ":8000"),
		HTTPRateLimit: getFloatEnv("HTTP_RATE_LIMIT", 5),
		HTTPRateBurst: getIntEnv("HTTP_RATE_BURST", 10),

		// NATS settings
		NatsEnabled:       getBoolEnv("NATS_ENABLED", false),
		NatsURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NatsSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "chat"),
		NatsTimeout:       getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Language model settings
		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", defaultProvider(env))),
		LLMModel:       getEnv("LLM_MODEL", ""),
		LLMTimeout:     getDurationEnv("LLM_TIMEOUT", 60*time.Second),
		LLMMaxTokens:   getIntEnv("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getFloatEnv("LLM_TEMPERATURE", 0.5),
		LLMRateLimit:   getFloatEnv("LLM_RATE_LIMIT", 0),
		LLMRateBurst:   getIntEnv("LLM_RATE_BURST", 1),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),

		// Dialog settings
		AgentMaxIterations: getIntEnv("AGENT_MAX_ITERATIONS", 8),

		// Session settings
		SessionBackend:       strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendRedis)),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:           getDurationEnv("SESSION_TTL", 60*time.Minute),
		SessionSweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		// Database settings
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:       getEnv("DATABASE_URL", "host=localhost user=postgres dbname=coffee sslmode=disable"),
		DBMaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		// Catalog settings
		MenuMappingsFile: getEnv("MENU_MAPPINGS_FILE", ""),
		MenuSeedCSV:      getEnv("MENU_SEED_CSV", ""),
		SizePriceDelta:   int64(getIntEnv("SIZE_PRICE_DELTA", 10000)),

		// Logging settings
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY environment variable is required")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY environment variable is required")
		}
	case ProviderGoogleAI:
		if c.GoogleAPIKey == "" {
			return errors.New("GOOGLE_API_KEY environment variable is required")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.SessionBackend {
	case SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	if c.AgentMaxIterations <= 0 {
		return errors.New("AGENT_MAX_ITERATIONS must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

func defaultProvider(env string) string {
	if env == "prod" {
		return ProviderGoogleAI
	}
	return ProviderOllama
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-sonnet-20241022"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGoogleAI:
		return "gemini-2.5-flash"
	default:
		return "qwen2.5:3b"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
