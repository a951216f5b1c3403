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
	Server    ServerConfig
	Scraper   ScraperConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type ScraperConfig struct {
	// Residential proxy used for the retried direct fetch.
	ProxyUsername string
	ProxyPassword string
	ProxyHost     string
	ProxyPort     int

	// Web unlocker escalation endpoint.
	UnlockerURL   string
	UnlockerToken string

	TimeoutSeconds int
	RetryCount     int
	DelayMinMs     int
	DelayMaxMs     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	Enabled       bool
	CheckInterval time.Duration
	StartupDelay  time.Duration
	ProductDelay  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Best-effort: a missing .env just means plain environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvOrDefault("SERVER_PORT", "8000"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     getStringSliceOrDefault("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		},
		Scraper: ScraperConfig{
			ProxyUsername:  getEnvOrDefault("PROXY_USERNAME", ""),
			ProxyPassword:  getEnvOrDefault("PROXY_PASSWORD", ""),
			ProxyHost:      getEnvOrDefault("PROXY_HOST", "t.pr.thordata.net"),
			ProxyPort:      getIntOrDefault("PROXY_PORT", 9999),
			UnlockerURL:    getEnvOrDefault("WEBUNLOCKER_URL", "https://webunlocker.thordata.com/request"),
			UnlockerToken:  getEnvOrDefault("WEBUNLOCKER_TOKEN", ""),
			TimeoutSeconds: getIntOrDefault("SCRAPE_TIMEOUT_SECONDS", 30),
			RetryCount:     getIntOrDefault("SCRAPE_RETRY_COUNT", 3),
			DelayMinMs:     getIntOrDefault("SCRAPE_DELAY_MIN_MS", 1000),
			DelayMaxMs:     getIntOrDefault("SCRAPE_DELAY_MAX_MS", 3000),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "pricewatch"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getBoolOrDefault("SCHEDULER_ENABLED", true),
			CheckInterval: getDurationOrDefault("SCHEDULER_CHECK_INTERVAL", time.Hour),
			StartupDelay:  getDurationOrDefault("SCHEDULER_STARTUP_DELAY", 30*time.Second),
			ProductDelay:  getDurationOrDefault("SCHEDULER_PRODUCT_DELAY", 3*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.RetryCount < 1 {
		return fmt.Errorf("SCRAPE_RETRY_COUNT must be at least 1")
	}

	if c.Scraper.DelayMinMs > c.Scraper.DelayMaxMs {
		return fmt.Errorf("SCRAPE_DELAY_MIN_MS cannot be greater than SCRAPE_DELAY_MAX_MS")
	}

	if c.Scraper.TimeoutSeconds < 1 {
		return fmt.Errorf("SCRAPE_TIMEOUT_SECONDS must be at least 1")
	}

	return nil
}

// ProxyURL assembles the residential proxy URL, or "" when no credentials
// are configured.
func (s ScraperConfig) ProxyURL() string {
	if s.ProxyUsername == "" || s.ProxyPassword == "" {
		return ""
	}
	return fmt.Sprintf("http://%s:%s@%s:%d", s.ProxyUsername, s.ProxyPassword, s.ProxyHost, s.ProxyPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
