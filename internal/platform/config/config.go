// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppEnv values.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application settings.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	// HTTP API and health ports.
	HTTPPort   int `env:"HTTP_PORT" envDefault:"8081"`
	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`

	// LLM gateway.
	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"google/gemini-2.0-flash-001"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	RateLimitRPS int           `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Row store.
	SpreadsheetID         string        `env:"SPREADSHEET_ID"`
	SheetsCredentialsFile string        `env:"SHEETS_CREDENTIALS_FILE" envDefault:"credentials.json"`
	SheetsTimeout         time.Duration `env:"SHEETS_TIMEOUT" envDefault:"30s"`

	// Telegram reader.
	TGAPIID       int    `env:"TG_API_ID"`
	TGAPIHash     string `env:"TG_API_HASH"`
	TGPhone       string `env:"TG_PHONE"`
	TG2FAPassword string `env:"TG_2FA_PASSWORD"`
	TGSessionPath string `env:"TG_SESSION_PATH" envDefault:"session.json"`

	// Scan settings.
	ScanChatIDs         []int64       `env:"SCAN_CHAT_IDS" envSeparator:","`
	ScanWindow          time.Duration `env:"SCAN_WINDOW" envDefault:"1h"`
	ScanBatchSize       int           `env:"SCAN_BATCH_SIZE" envDefault:"10"`
	ScanInterBatchDelay time.Duration `env:"SCAN_INTER_BATCH_DELAY" envDefault:"1s"`
	ScanMaxBatchRetries int           `env:"SCAN_MAX_BATCH_RETRIES" envDefault:"2"`
	MinConfidence       int           `env:"MIN_CONFIDENCE" envDefault:"0"`
	LeadCriteria        string        `env:"LEAD_CRITERIA"`
	ReaderFetchLimit    int           `env:"READER_FETCH_LIMIT" envDefault:"100"`
}

// Load reads configuration from .env (when present) and the environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}
