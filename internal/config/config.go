package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Pricing PricingConfig
	Listing ListingConfig
	Browser BrowserConfig
	Batch   BatchConfig
	Journal JournalConfig
	Events  EventsConfig
	Logging LoggingConfig
}

type PricingConfig struct {
	APIURL string
}

type ListingConfig struct {
	URL     string
	RowWait time.Duration
	RefWait time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	UserDataDir    string
	ViewportWidth  int
	ViewportHeight int
}

type BatchConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Cooldown    time.Duration
	StepWait    time.Duration
	Settle      time.Duration
}

type JournalConfig struct {
	DatabaseURL string // empty disables the journal
}

type EventsConfig struct {
	RedisAddr string // empty disables event publishing
	Stream    string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Pricing: PricingConfig{
			APIURL: getEnvOrDefault("PRICING_API_URL", "http://localhost:8080"),
		},
		Listing: ListingConfig{
			URL:     getEnvOrDefault("LISTING_URL", "https://app.dropi.com.br/produtos"),
			RowWait: getDurationOrDefault("LISTING_ROW_WAIT", 30*time.Second),
			RefWait: getDurationOrDefault("LISTING_REF_WAIT", 5*time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			UserDataDir:    getEnvOrDefault("BROWSER_USER_DATA_DIR", "browser-data"),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
		},
		Batch: BatchConfig{
			MaxAttempts: getIntOrDefault("COMMIT_MAX_ATTEMPTS", 3),
			RetryDelay:  getDurationOrDefault("COMMIT_RETRY_DELAY", 5*time.Second),
			Cooldown:    getDurationOrDefault("PRODUCT_COOLDOWN", 5*time.Second),
			StepWait:    getDurationOrDefault("COMMIT_STEP_WAIT", 30*time.Second),
			Settle:      getDurationOrDefault("COMMIT_SETTLE", 2*time.Second),
		},
		Journal: JournalConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Events: EventsConfig{
			RedisAddr: os.Getenv("REDIS_ADDR"),
			Stream:    getEnvOrDefault("REDIS_STREAM", "stream:repricer_runs"),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Pricing.APIURL == "" {
		return fmt.Errorf("PRICING_API_URL must not be empty")
	}

	if c.Listing.URL == "" {
		return fmt.Errorf("LISTING_URL must not be empty")
	}

	if c.Batch.MaxAttempts < 1 {
		return fmt.Errorf("COMMIT_MAX_ATTEMPTS must be at least 1")
	}

	return nil
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
