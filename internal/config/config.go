package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	VK struct {
		BaseURL         string
		GroupID         string
		GroupToken      string
		UserToken       string
		Version         string
		RequestInterval time.Duration
		MaxResults      int
		OAuthClientID   string
	}

	HTTP struct {
		Host string
		Port string
	}

	Bot struct {
		SessionTTL    time.Duration
		SweepInterval time.Duration
	}
}

func New() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "bot")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "vkinder")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// VK directory API
	cfg.VK.BaseURL = getEnvDefault("VK_BASE_URL", "https://api.vk.com/method")
	cfg.VK.GroupID = os.Getenv("VK_GROUP_ID")
	cfg.VK.GroupToken = os.Getenv("VK_GROUP_TOKEN")
	cfg.VK.UserToken = os.Getenv("VK_USER_TOKEN")
	cfg.VK.Version = getEnvDefault("VK_API_VERSION", "5.131")
	cfg.VK.RequestInterval = getEnvDuration("VK_REQUEST_INTERVAL", 340*time.Millisecond)
	cfg.VK.MaxResults = getEnvInt("VK_MAX_RESULTS", 1000)
	cfg.VK.OAuthClientID = getEnvDefault("VK_OAUTH_CLIENT_ID", "54388226")

	// Token capture HTTP server
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "5000")

	// Bot behavior
	cfg.Bot.SessionTTL = getEnvDuration("BOT_SESSION_TTL", time.Hour)
	cfg.Bot.SweepInterval = getEnvDuration("BOT_SWEEP_INTERVAL", 5*time.Minute)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
