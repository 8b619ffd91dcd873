package server

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHost                = "localhost"
	defaultPort                = "8081"
	defaultMaxMessageSize      = 16 << 20
	defaultBurst               = 20
	defaultIdleTimeout         = 60 * time.Second
	defaultDatabasePath        = "chat.db"
	defaultHistoryLimit        = 200
	defaultHistoryCacheTTL     = 5 * time.Second
	defaultCollaboratorTimeout = 5 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Host           string
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
	IdleTimeout    time.Duration

	DatabasePath        string
	HistoryLimit        int
	HistoryCacheTTL     time.Duration
	CollaboratorTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Host:           defaultHost,
		Port:           defaultPort,
		AllowedOrigins: []string{"http://localhost:" + defaultPort},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultBurst,
			RefillInterval: time.Second,
		},
		IdleTimeout:         defaultIdleTimeout,
		DatabasePath:        defaultDatabasePath,
		HistoryLimit:        defaultHistoryLimit,
		HistoryCacheTTL:     defaultHistoryCacheTTL,
		CollaboratorTimeout: defaultCollaboratorTimeout,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Unset or invalid values fall back to the defaults.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()

	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Host = strings.TrimSpace(host)
	}
	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = parsePort(port, cfg.Port)
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}
	if idle := os.Getenv("IDLE_TIMEOUT"); idle != "" {
		cfg.IdleTimeout = parseSeconds(idle, cfg.IdleTimeout)
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.DatabasePath = path
	}
	if limit := os.Getenv("HISTORY_LIMIT"); limit != "" {
		cfg.HistoryLimit = parseIntValue(limit, cfg.HistoryLimit)
	}
	if ttl := os.Getenv("HISTORY_CACHE_TTL"); ttl != "" {
		cfg.HistoryCacheTTL = parseSeconds(ttl, cfg.HistoryCacheTTL)
	}
	if timeout := os.Getenv("COLLABORATOR_TIMEOUT"); timeout != "" {
		cfg.CollaboratorTimeout = parseSeconds(timeout, cfg.CollaboratorTimeout)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	return cfg
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// sanitized returns a copy with every invalid value replaced by its default.
func (c Config) sanitized() Config {
	def := NewConfig()

	c.Port = parsePort(c.Port, def.Port)
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = def.CollaboratorTimeout
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

func parsePort(value, defaultValue string) string {
	value = strings.TrimPrefix(strings.TrimSpace(value), ":")
	if port, err := strconv.Atoi(value); err == nil && port >= 1 && port <= 65535 {
		return strconv.Itoa(port)
	}
	return defaultValue
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
