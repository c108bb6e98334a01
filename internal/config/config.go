package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvironmentProduction = "production"

type Config struct {
	Addr              string        `env:"ADDR"                envDefault:":8080"`
	Environment       string        `env:"APP_ENV"             envDefault:"development"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	Model             string        `env:"MODEL"               envDefault:"gpt-4o-mini"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT"       envDefault:"20s"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT"  envDefault:"2m"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    envDefault:"10s"`
	MaxDocumentBytes  int64         `env:"MAX_DOCUMENT_BYTES"  envDefault:"5242880"`
	RateLimitRPS      float64       `env:"RATE_LIMIT_RPS"      envDefault:"0.5"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST"    envDefault:"5"`
	LogLevel          slog.Level    `env:"LOG_LEVEL"           envDefault:"INFO"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

// HasModelCredential reports whether a completion API key is configured.
// The key itself is never exposed.
func (c Config) HasModelCredential() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

// Load reads an optional .env file from the working directory and then parses
// the environment. Variables already set take precedence over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.FetchTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", cfg.FetchTimeout)
	}
	if cfg.CompletionTimeout <= 0 {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be positive, got %s", cfg.CompletionTimeout)
	}
	if cfg.MaxDocumentBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_DOCUMENT_BYTES must be positive, got %d", cfg.MaxDocumentBytes)
	}

	return cfg, nil
}
