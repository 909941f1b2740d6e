// Package config loads engine configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Broker credentials for the market data feed. Optional: without an
	// API key the engine trades on whatever prices are already stored.
	BrokerBaseURL    string
	BrokerAPIKey     string
	BrokerClientCode string
	BrokerPassword   string
	BrokerTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Scheduling
	StrategyCron    string
	RefreshCron     string
	MarketHoursOnly bool

	// Notifications (each optional)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	return &Config{
		BrokerBaseURL:    getEnv("BROKER_BASE_URL", ""),
		BrokerAPIKey:     getEnv("BROKER_API_KEY", ""),
		BrokerClientCode: getEnv("BROKER_CLIENT_CODE", ""),
		BrokerPassword:   getEnv("BROKER_PASSWORD", ""),
		BrokerTOTPSecret: getEnv("BROKER_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/trading.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		StrategyCron:    getEnv("STRATEGY_CRON", "*/5 * * * *"),
		RefreshCron:     getEnv("REFRESH_CRON", "15 17 * * *"),
		MarketHoursOnly: getEnvBool("MARKET_HOURS_ONLY", true),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

// HasBroker reports whether broker credentials are configured.
func (c *Config) HasBroker() bool {
	return c.BrokerAPIKey != "" && c.BrokerClientCode != "" &&
		c.BrokerPassword != "" && c.BrokerTOTPSecret != ""
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}
