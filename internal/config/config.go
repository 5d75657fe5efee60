package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    slog.Level

	StatusPageURL string
	PollInterval  time.Duration

	SweepInterval time.Duration
	SweepOnStart  bool

	DeliveryConcurrency  int
	WebhookRatePerSecond float64
	WebhookTimeout       time.Duration
	DiscordAPIURL        string

	DiscordPublicKey    string
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string

	OperatorIDs      []string
	AdminToken       string
	SupportServerURL string
	CommandCooldown  time.Duration

	SentryDSN   string
	Environment string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		StatusPageURL: getEnv("STATUSPAGE_URL", "https://discordstatus.com"),
		PollInterval:  getEnvDuration("POLL_INTERVAL", 10*time.Second),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 24*time.Hour),
		SweepOnStart:  getEnvBool("SWEEP_ON_START", true),

		DeliveryConcurrency:  getEnvInt("DELIVERY_CONCURRENCY", 0),
		WebhookRatePerSecond: getEnvFloat("WEBHOOK_RATE_PER_SECOND", 40),
		WebhookTimeout:       getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		DiscordAPIURL:        getEnv("DISCORD_API_URL", "https://discord.com/api/v10"),

		DiscordPublicKey:    getEnv("DISCORD_PUBLIC_KEY", ""),
		DiscordClientID:     getEnv("DISCORD_CLIENT_ID", ""),
		DiscordClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
		DiscordRedirectURL:  getEnv("DISCORD_REDIRECT_URL", ""),

		OperatorIDs:      getEnvList("OPERATOR_IDS"),
		AdminToken:       getEnv("ADMIN_TOKEN", ""),
		SupportServerURL: getEnv("SUPPORT_SERVER_URL", ""),
		CommandCooldown:  getEnvDuration("COMMAND_COOLDOWN", 3*time.Second),

		SentryDSN:   getEnv("SENTRY_DSN", ""),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s required", strings.Join(missing, ", "))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}

	return cfg, nil
}

// InteractionsEnabled reports whether slash commands can be served.
func (c *Config) InteractionsEnabled() bool {
	return c.DiscordPublicKey != ""
}

// OAuthEnabled reports whether the webhook install flow is configured.
func (c *Config) OAuthEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != "" && c.DiscordRedirectURL != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
