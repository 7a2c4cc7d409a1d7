// Package config provides environment configuration for the API server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `yaml:"port"`
	ServerReadTimeout  time.Duration `yaml:"readTimeout"`
	ServerWriteTimeout time.Duration `yaml:"writeTimeout"`
	CORSAllowedOrigins []string      `yaml:"corsAllowedOrigins"`

	// Storage
	DatabaseURL string `yaml:"databaseURL"`
	UploadDir   string `yaml:"uploadDir"`
	MaxUploadMB int64  `yaml:"maxUploadMB"`

	// Redis is optional. When set, collection creation is serialized across
	// processes with a Redis lock.
	RedisURL string `yaml:"redisURL"`

	// NATS is optional. When set, domain events are published to JetStream.
	NATSURL   string `yaml:"natsURL"`
	NATSToken string `yaml:"natsToken"`

	// JWT settings
	JWTSecret string `yaml:"jwtSecret"`

	// AI provider
	ProviderBaseURL         string        `yaml:"providerBaseURL"`
	ProviderAPIKey          string        `yaml:"providerAPIKey"`
	ProviderEmbeddingsModel string        `yaml:"providerEmbeddingsModel"`
	ProviderLLMModel        string        `yaml:"providerLLMModel"`
	ProviderTimeout         time.Duration `yaml:"providerTimeout"`
	SearchTopK              int           `yaml:"searchTopK"`

	// Completion backend: "openai" (the provider's OpenAI-compatible endpoint)
	// or "anthropic".
	CompletionBackend string `yaml:"completionBackend"`
	AnthropicAPIKey   string `yaml:"anthropicAPIKey"`
	AnthropicModel    string `yaml:"anthropicModel"`

	// Rate limiting
	RateLimitRequests int           `yaml:"rateLimitRequests"`
	RateLimitWindow   time.Duration `yaml:"rateLimitWindow"`

	// Logging
	LogLevel string `yaml:"logLevel"`

	// Tracing
	TracingEndpoint string `yaml:"tracingEndpoint"`
	TracingEnabled  bool   `yaml:"tracingEnabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerPort:              "8080",
		ServerReadTimeout:       30 * time.Second,
		ServerWriteTimeout:      120 * time.Second,
		DatabaseURL:             "file:assistant.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		UploadDir:               "uploads",
		MaxUploadMB:             25,
		JWTSecret:               "development-secret-change-in-production",
		ProviderBaseURL:         "https://albert.api.etalab.gouv.fr",
		ProviderEmbeddingsModel: "BAAI/bge-m3",
		ProviderLLMModel:        "AgentPublic/llama3-instruct-8b",
		ProviderTimeout:         60 * time.Second,
		SearchTopK:              6,
		CompletionBackend:       "openai",
		AnthropicModel:          "claude-3-5-sonnet-20241022",
		RateLimitRequests:       60,
		RateLimitWindow:         time.Minute,
		LogLevel:                "info",
		TracingEndpoint:         "localhost:4318",
	}
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment variables on top. Environment always wins.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	// Server
	cfg.ServerPort = getEnv("PORT", cfg.ServerPort)
	cfg.ServerReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", cfg.ServerReadTimeout)
	cfg.ServerWriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", cfg.ServerWriteTimeout)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}

	// Storage
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxUploadMB = int64(getIntEnv("MAX_UPLOAD_MB", int(cfg.MaxUploadMB)))
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)

	// NATS
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSToken = getEnv("NATS_TOKEN", cfg.NATSToken)

	// JWT
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	// Provider
	cfg.ProviderBaseURL = getEnv("PROVIDER_BASE_URL", cfg.ProviderBaseURL)
	cfg.ProviderAPIKey = getEnv("PROVIDER_API_KEY", cfg.ProviderAPIKey)
	cfg.ProviderEmbeddingsModel = getEnv("PROVIDER_EMBEDDINGS_MODEL", cfg.ProviderEmbeddingsModel)
	cfg.ProviderLLMModel = getEnv("PROVIDER_LLM_MODEL", cfg.ProviderLLMModel)
	cfg.ProviderTimeout = getDurationEnv("PROVIDER_TIMEOUT", cfg.ProviderTimeout)
	cfg.SearchTopK = getIntEnv("SEARCH_TOP_K", cfg.SearchTopK)
	cfg.CompletionBackend = getEnv("COMPLETION_BACKEND", cfg.CompletionBackend)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = getEnv("ANTHROPIC_MODEL", cfg.AnthropicModel)

	// Rate limiting
	cfg.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitWindow = getDurationEnv("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	// Tracing
	cfg.TracingEndpoint = getEnv("TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingEnabled = getBoolEnv("TRACING_ENABLED", cfg.TracingEnabled)
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("config: UPLOAD_DIR is required")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("config: PROVIDER_TIMEOUT must be positive")
	}
	switch c.CompletionBackend {
	case "openai":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("config: ANTHROPIC_API_KEY is required for the anthropic backend")
		}
	default:
		return fmt.Errorf("config: unknown COMPLETION_BACKEND %q", c.CompletionBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
