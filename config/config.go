package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"wagerbook/database"

	"github.com/joho/godotenv"
)

// DefaultSlackHandlePattern matches Slack user and workspace member ids
const DefaultSlackHandlePattern = `^[UW][A-Z0-9]+$`

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string
	TxIsolation  string // read_committed, repeatable_read or serializable

	// Validation
	SlackHandlePattern string

	// Listeners
	HTTPAddr           string
	MetricsAddr        string // empty disables the metrics server
	CORSAllowedOrigins string // comma-separated; empty allows any origin

	// NATS configuration
	NATSServers       string // comma-separated; empty disables event forwarding
	NATSSubjectPrefix string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// HandlePattern compiles the slack handle pattern
func (c *Config) HandlePattern() (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(c.SlackHandlePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid SLACK_HANDLE_PATTERN %q: %w", c.SlackHandlePattern, err)
	}
	return pattern, nil
}

// NATSServerList splits NATSServers into individual URLs
func (c *Config) NATSServerList() []string {
	return splitList(c.NATSServers)
}

// AllowedOrigins splits CORSAllowedOrigins into individual origins
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(raw string) []string {
	var items []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// load loads configuration from a .env file, if present, and the environment
func load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		TxIsolation:  getEnvWithDefault("DATABASE_TX_ISOLATION", database.IsolationReadCommitted),

		SlackHandlePattern: getEnvWithDefault("SLACK_HANDLE_PATTERN", DefaultSlackHandlePattern),

		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnvWithDefault("METRICS_ADDR", ":9090"),

		CORSAllowedOrigins: os.Getenv("CORS_ALLOWED_ORIGINS"),

		NATSServers:       os.Getenv("NATS_SERVERS"),
		NATSSubjectPrefix: getEnvWithDefault("NATS_SUBJECT_PREFIX", "wagerbook"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	if _, err := database.TxOptions(config.TxIsolation); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_TX_ISOLATION: %w", err)
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		TxIsolation:        database.IsolationReadCommitted,
		SlackHandlePattern: DefaultSlackHandlePattern,
		HTTPAddr:           ":0",
		NATSSubjectPrefix:  "wagerbook",
		LogLevel:           "debug",
		LogFormat:          "text",
		Environment:        "test",
	}
}
