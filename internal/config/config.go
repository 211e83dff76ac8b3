package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"paydesk/internal/logger"
)

type Config struct {
	// Backend API Configuration
	APIURL         string
	APIToken       string
	TimeoutSeconds int
	RateLimit      float64
	FanoutLimit    int
	PageSize       int

	// Google Cloud Configuration
	GoogleCloudProject      string
	GoogleCloudLocation     string
	DocumentAIProcessorID   string
	GoogleServiceAccountKey string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		APIURL:                  strings.TrimRight(getEnv("PAYDESK_API_URL", ""), "/"),
		APIToken:                getEnv("PAYDESK_API_TOKEN", ""),
		TimeoutSeconds:          getEnvInt("PAYDESK_TIMEOUT_SECONDS", 30),
		RateLimit:               getEnvFloat("PAYDESK_RATE_LIMIT", 0),
		FanoutLimit:             getEnvInt("PAYDESK_FANOUT_LIMIT", 8),
		PageSize:                getEnvInt("PAYDESK_PAGE_SIZE", 10),
		GoogleCloudProject:      getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:     getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:   getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleServiceAccountKey: getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleSheetURL:          getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:    getEnv("GOOGLE_SHEET_WORKSHEET", "Payments"),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}
	logConfig := LoggerConfigFromEnv()
	config.LogLevel = logConfig.Level
	config.LogFormat = logConfig.Format
	config.LogTimeFormat = logConfig.TimeFormat
	config.LogOutput = logConfig.Output

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("PAYDESK_API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PAYDESK_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("PAYDESK_TIMEOUT_SECONDS must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("PAYDESK_RATE_LIMIT must not be negative")
	}
	if c.FanoutLimit <= 0 {
		return fmt.Errorf("PAYDESK_FANOUT_LIMIT must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAYDESK_PAGE_SIZE must be positive")
	}
	return nil
}

// Timeout returns the per-command deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HasDocumentAI reports whether Document AI extraction can be used.
func (c *Config) HasDocumentAI() bool {
	return c.GoogleCloudProject != "" && c.DocumentAIProcessorID != ""
}

// GoogleCredentials returns the service account key as JSON. The key may be
// given inline or as a path to a JSON file. A nil result means application
// default credentials should be used.
func (c *Config) GoogleCredentials() ([]byte, error) {
	key := strings.TrimSpace(c.GoogleServiceAccountKey)
	if key == "" {
		return nil, nil
	}
	if strings.HasPrefix(key, "{") {
		return []byte(key), nil
	}
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	return data, nil
}

// HasSheets reports whether a Google Sheet target is configured.
func (c *Config) HasSheets() bool {
	return c.GoogleSheetURL != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// LoggerConfigFromEnv reads only the logging settings. It needs none of the
// backend settings, so logging works even when Load fails.
func LoggerConfigFromEnv() logger.LogConfig {
	return logger.LogConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Format:     getEnv("LOG_FORMAT", "console"),
		TimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		Output:     getEnv("LOG_OUTPUT", "stderr"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue
	}
	return f
}
