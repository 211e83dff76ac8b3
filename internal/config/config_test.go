package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYDESK_API_URL", "https://api.example.com/v1/")
	t.Setenv("PAYDESK_TIMEOUT_SECONDS", "")
	t.Setenv("PAYDESK_PAGE_SIZE", "")
	t.Setenv("PAYDESK_FANOUT_LIMIT", "")
	t.Setenv("PAYDESK_RATE_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 8, cfg.FanoutLimit)
	assert.Zero(t, cfg.RateLimit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAYDESK_API_URL", "http://localhost:8080")
	t.Setenv("PAYDESK_TIMEOUT_SECONDS", "5")
	t.Setenv("PAYDESK_RATE_LIMIT", "2.5")
	t.Setenv("PAYDESK_PAGE_SIZE", "25")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj")
	t.Setenv("DOCUMENT_AI_PROCESSOR_ID", "proc")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 25, cfg.PageSize)
	assert.True(t, cfg.HasDocumentAI())
	assert.Equal(t, "debug", cfg.GetLoggerConfig().Level)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing url", map[string]string{"PAYDESK_API_URL": ""}},
		{"relative url", map[string]string{"PAYDESK_API_URL": "api/v1"}},
		{"zero timeout", map[string]string{"PAYDESK_API_URL": "http://x", "PAYDESK_TIMEOUT_SECONDS": "0"}},
		{"negative rate", map[string]string{"PAYDESK_API_URL": "http://x", "PAYDESK_RATE_LIMIT": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoggerConfigWithoutBackendSettings(t *testing.T) {
	t.Setenv("PAYDESK_API_URL", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("LOG_TIME_FORMAT", "")

	_, err := Load()
	require.Error(t, err)

	logConfig := LoggerConfigFromEnv()
	assert.Equal(t, "debug", logConfig.Level)
	assert.Equal(t, "json", logConfig.Format)
	assert.Equal(t, "stdout", logConfig.Output)
	assert.Equal(t, "2006-01-02T15:04:05Z07:00", logConfig.TimeFormat)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("PAYDESK_TEST_INT", "ten")
	assert.Equal(t, 7, getEnvInt("PAYDESK_TEST_INT", 7))
}

func TestGoogleCredentials(t *testing.T) {
	cfg := &Config{}
	creds, err := cfg.GoogleCredentials()
	require.NoError(t, err)
	assert.Nil(t, creds)

	cfg.GoogleServiceAccountKey = ` {"type":"service_account"}`
	creds, err = cfg.GoogleCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(creds))

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"file"}`), 0o600))
	cfg.GoogleServiceAccountKey = path
	creds, err = cfg.GoogleCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"file"}`, string(creds))

	cfg.GoogleServiceAccountKey = filepath.Join(t.TempDir(), "missing.json")
	_, err = cfg.GoogleCredentials()
	assert.Error(t, err)
}
