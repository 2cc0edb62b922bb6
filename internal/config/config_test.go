package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/lantern")
	t.Setenv("COHERE_API_KEY", "test-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.cohere.ai", cfg.CohereAPIURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 256, cfg.MaxSubscribers)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9999")
	t.Setenv("MAX_SUBSCRIBERS", "32")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 32, cfg.MaxSubscribers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("COHERE_API_KEY", "test-key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/lantern")
	t.Setenv("COHERE_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COHERE_API_KEY")
}

func TestLoad_InvalidMaxSubscribers(t *testing.T) {
	setRequired(t)

	t.Setenv("MAX_SUBSCRIBERS", "not-a-number")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MAX_SUBSCRIBERS", "0")
	_, err = Load()
	require.Error(t, err)
}
