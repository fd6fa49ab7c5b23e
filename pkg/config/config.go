// Package config provides application configuration management with
// environment variable loading, validation, and sensible defaults. It
// supports .env files for local development and validates all required
// settings on startup to prevent runtime configuration errors.
//
// Configuration is loaded from environment variables with the Load()
// function, which returns a validated Config struct or an error if required
// variables are missing or invalid.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//
//	server := &http.Server{
//	    Addr: ":" + cfg.Server.Port,
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
)

// Config holds all configuration for the console gateway. It aggregates all
// configuration sections into a single struct for easy access throughout
// the application.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Redis     RedisConfig
	AI        AIConfig
	Console   ConsoleConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// ServerConfig holds local HTTP surface configuration.
type ServerConfig struct {
	Port        string
	Environment string
}

// BackendConfig holds the upstream Ckryptbit backend API configuration.
// The backend is an opaque REST collaborator; the console proxies every
// remote operation to it.
type BackendConfig struct {
	BaseURL string        // e.g. "https://api.ckryptbit.xyz/api"
	Timeout time.Duration // Per-request HTTP timeout
}

// RedisConfig holds Redis configuration for the durable terminal store,
// the catalog cache, and rate limiting.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int // Connection pool size
}

// AIConfig holds AI uplink defaults: which provider is selected when the
// console starts and the default sub-configs for the alternate providers.
type AIConfig struct {
	DefaultProvider  models.AiProviderID
	LocalLlmBaseURL  string
	LocalLlmModel    string
	HuggingFaceModel string
}

// ConsoleConfig holds the orchestration core's tunables: the view
// transition lock duration and the synthetic threat feed parameters.
type ConsoleConfig struct {
	ViewTransition     time.Duration // Duration of the transition lock
	ThreatFeedMax      int           // Ring buffer capacity
	ThreatFeedInterval time.Duration // Base interval between synthetic events
	ThreatFeedJitter   time.Duration // Random extra delay added per tick
}

// CORSConfig holds Cross-Origin Resource Sharing configuration to control
// which origins can access the console surface.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds rate limiting configuration for the auth endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int
	WindowDuration    time.Duration
}

// CacheConfig holds catalog cache configuration.
type CacheConfig struct {
	CatalogTTL time.Duration
	Enabled    bool // Master switch to enable/disable catalog caching
}

// Load reads and validates configuration from environment variables.
// It attempts to load a .env file if present (for local development) but
// doesn't fail if the file is missing (for production deployments).
//
// Required environment variables:
//   - BACKEND_API_URL: Base URL of the Ckryptbit backend API
//
// Optional environment variables have sensible defaults.
//
// Returns an error if any required variable is missing or if validation
// fails.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	backendURL, err := getEnvRequired("BACKEND_API_URL")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENV", "development"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(backendURL, "/"),
			Timeout: getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 50),
		},
		AI: AIConfig{
			DefaultProvider:  models.AiProviderID(getEnv("AI_DEFAULT_PROVIDER", string(models.ProviderGemini))),
			LocalLlmBaseURL:  getEnv("AI_LOCAL_LLM_BASE_URL", "http://localhost:11434"),
			LocalLlmModel:    getEnv("AI_LOCAL_LLM_MODEL", "llama3:latest"),
			HuggingFaceModel: getEnv("AI_HUGGINGFACE_MODEL", "mistralai/Mistral-7B-Instruct-v0.1"),
		},
		Console: ConsoleConfig{
			ViewTransition:     getEnvAsDuration("VIEW_TRANSITION_DURATION", 250*time.Millisecond),
			ThreatFeedMax:      getEnvAsInt("THREAT_FEED_MAX_EVENTS", 50),
			ThreatFeedInterval: getEnvAsDuration("THREAT_FEED_INTERVAL", 6*time.Second),
			ThreatFeedJitter:   getEnvAsDuration("THREAT_FEED_JITTER", 4*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS", 30),
			WindowDuration:    getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Cache: CacheConfig{
			CatalogTTL: getEnvAsDuration("CACHE_CATALOG_TTL", 5*time.Minute),
			Enabled:    getEnv("CACHE_ENABLED", "true") == "true",
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if all required configuration is present and valid.
// It performs comprehensive validation including:
//   - Port numbers are valid integers
//   - URLs are properly formatted
//   - The default AI provider is one of the known provider ids
//   - Durations and capacities are positive
//
// This method is called automatically by Load() but can also be called
// independently for testing or validation purposes.
//
// Returns an error describing the first validation failure encountered,
// or nil if all configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be a valid integer: %w", err)
	}

	if _, err := strconv.Atoi(c.Redis.Port); err != nil {
		return fmt.Errorf("redis port must be a valid integer: %w", err)
	}

	if _, err := url.ParseRequestURI(c.Backend.BaseURL); err != nil {
		return fmt.Errorf("invalid backend API URL: %w", err)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if !c.AI.DefaultProvider.Valid() {
		return fmt.Errorf("unknown default AI provider %q", c.AI.DefaultProvider)
	}
	if _, err := url.ParseRequestURI(c.AI.LocalLlmBaseURL); err != nil {
		return fmt.Errorf("invalid local LLM base URL: %w", err)
	}

	if c.Console.ViewTransition <= 0 {
		return fmt.Errorf("view transition duration must be positive")
	}
	if c.Console.ThreatFeedMax <= 0 {
		return fmt.Errorf("threat feed capacity must be positive")
	}
	if c.Console.ThreatFeedInterval <= 0 {
		return fmt.Errorf("threat feed interval must be positive")
	}

	return nil
}

// Address returns the Redis server address in "host:port" format.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{
//	    Addr: cfg.Redis.Address(),
//	})
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions for environment variable parsing

// getEnv retrieves an environment variable with a default fallback.
// Returns the environment variable value if set, otherwise returns defaultValue.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequired retrieves a required environment variable.
// Returns an error if the variable is not set or is empty.
//
// Use this for configuration that has no sensible default and must be
// explicitly provided by the operator.
func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an integer with a default fallback.
// If the variable is not set or cannot be parsed as an integer, returns defaultValue.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration with
// a default fallback. Supports Go duration format: "300ms", "1.5h", "2h45m".
// If the variable is not set or cannot be parsed, returns defaultValue.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice retrieves an environment variable as a string slice with a
// default fallback. Parses comma-separated values into a slice, trimming
// whitespace around each element.
// If the variable is not set, returns defaultValue.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
