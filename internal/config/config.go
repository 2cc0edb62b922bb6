package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv       string
	Port         string
	DatabaseURL  string
	CohereAPIKey string
	CohereAPIURL string
	LogLevel     string
	LogFormat    string

	// MaxSubscribers caps concurrent push-channel connections.
	MaxSubscribers int
}

func Load() (*Config, error) {
	// In development a .env file is convenient; missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:       getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		CohereAPIKey: getEnv("COHERE_API_KEY", ""),
		CohereAPIURL: getEnv("COHERE_API_URL", "https://api.cohere.ai"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}

	maxSubs, err := getEnvInt("MAX_SUBSCRIBERS", 256)
	if err != nil {
		return nil, err
	}
	cfg.MaxSubscribers = maxSubs

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CohereAPIKey == "" {
		return nil, fmt.Errorf("COHERE_API_KEY is required")
	}
	if cfg.MaxSubscribers <= 0 {
		return nil, fmt.Errorf("MAX_SUBSCRIBERS must be positive, got %d", cfg.MaxSubscribers)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
