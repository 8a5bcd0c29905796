// Package config provides application configuration management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config defines the configuration surface most components need.
type Config interface {
	GetBackendBaseURL() string
	GetDatabasePath() string
	GetTokenSecret() string
	GetEnvironment() string
	GetLogLevel() string
	IsProduction() bool
}

// NotificationConfig is the configuration of the notification channel.
type NotificationConfig interface {
	GetWebSocketURL() string
	GetReconnectAttempts() int
	GetReconnectDelay() time.Duration
}

// CacheConfig is the configuration of the caching layers.
type CacheConfig interface {
	GetRedisAddr() string
	GetListingCacheTTL() time.Duration
	GetAnalysisRetention() time.Duration
}

// AppConfig implements all configuration interfaces.
type AppConfig struct {
	backendBaseURL    string
	githubAPIBaseURL  string
	databasePath      string
	tokenSecret       string
	webSocketURL      string
	redisAddr         string
	environment       string
	logLevel          string
	httpTimeout       time.Duration
	reconnectAttempts int
	reconnectDelay    time.Duration
	listingCacheTTL   time.Duration
	analysisRetention time.Duration
}

// NewConfig creates a new configuration instance with default values
// and overrides from environment variables.
func NewConfig() *AppConfig {
	return &AppConfig{
		backendBaseURL:    getEnvString("BACKEND_BASE_URL", "https://gitgauge-backend.fly.dev"),
		githubAPIBaseURL:  getEnvString("GITHUB_API_BASE_URL", ""),
		databasePath:      getEnvString("DATABASE_PATH", "gitgauge.db"),
		tokenSecret:       getEnvString("TOKEN_SECRET", generateDefaultTokenSecret()),
		webSocketURL:      getEnvString("WEBSOCKET_URL", "wss://gitgauge-backend.fly.dev/ws/notifications"),
		redisAddr:         getEnvString("REDIS_ADDR", ""),
		environment:       getEnvString("ENVIRONMENT", "development"),
		logLevel:          getEnvString("LOG_LEVEL", "info"),
		httpTimeout:       getEnvDuration("HTTP_TIMEOUT", "30s"),
		reconnectAttempts: getEnvInt("RECONNECT_ATTEMPTS", 5),
		reconnectDelay:    getEnvDuration("RECONNECT_DELAY", "3s"),
		listingCacheTTL:   getEnvDuration("LISTING_CACHE_TTL", "5m"),
		analysisRetention: getEnvDuration("ANALYSIS_RETENTION", "720h"), // 30 days
	}
}

// GetBackendBaseURL returns the analysis backend base URL.
func (c *AppConfig) GetBackendBaseURL() string {
	return c.backendBaseURL
}

// GetGitHubAPIBaseURL returns the GitHub API base URL override. Empty means
// the public api.github.com.
func (c *AppConfig) GetGitHubAPIBaseURL() string {
	return c.githubAPIBaseURL
}

// GetDatabasePath returns the local SQLite database path.
func (c *AppConfig) GetDatabasePath() string {
	return c.databasePath
}

// GetTokenSecret returns the secret protecting stored credentials.
func (c *AppConfig) GetTokenSecret() string {
	return c.tokenSecret
}

// GetWebSocketURL returns the notification channel URL.
func (c *AppConfig) GetWebSocketURL() string {
	return c.webSocketURL
}

// GetRedisAddr returns the Redis address for the shared hot cache. Empty
// means the in-process cache is used.
func (c *AppConfig) GetRedisAddr() string {
	return c.redisAddr
}

// GetEnvironment returns the application environment configuration.
func (c *AppConfig) GetEnvironment() string {
	return c.environment
}

// GetLogLevel returns the log level configuration.
func (c *AppConfig) GetLogLevel() string {
	return c.logLevel
}

// IsProduction returns true if the application is running in production environment.
func (c *AppConfig) IsProduction() bool {
	return c.environment == "production"
}

// GetHTTPTimeout returns the backend request timeout.
func (c *AppConfig) GetHTTPTimeout() time.Duration {
	return c.httpTimeout
}

// GetReconnectAttempts returns the notification channel reconnect budget.
func (c *AppConfig) GetReconnectAttempts() int {
	return c.reconnectAttempts
}

// GetReconnectDelay returns the delay between reconnect attempts.
func (c *AppConfig) GetReconnectDelay() time.Duration {
	return c.reconnectDelay
}

// GetListingCacheTTL returns how long the hot repository listing stays fresh.
func (c *AppConfig) GetListingCacheTTL() time.Duration {
	return c.listingCacheTTL
}

// GetAnalysisRetention returns how long cached analyses are kept.
func (c *AppConfig) GetAnalysisRetention() time.Duration {
	return c.analysisRetention
}

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	if c.backendBaseURL == "" {
		return fmt.Errorf("backend base URL cannot be empty")
	}

	if c.databasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.tokenSecret == "" {
		return fmt.Errorf("token secret cannot be empty")
	}

	if len(c.tokenSecret) < 32 {
		return fmt.Errorf("token secret must be at least 32 characters long")
	}

	if c.reconnectAttempts < 1 {
		return fmt.Errorf("reconnect attempts must be at least 1")
	}

	if c.environment != "development" && c.environment != "staging" && c.environment != "production" {
		return fmt.Errorf("environment must be one of: development, staging, production")
	}

	return nil
}

// Helper functions for environment variable parsing.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Second
}

// generateDefaultTokenSecret generates a default credential secret for development.
func generateDefaultTokenSecret() string {
	return "gitgauge-development-token-secret-key-32chars-minimum-length-required"
}
