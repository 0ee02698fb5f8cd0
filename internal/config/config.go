// Package config loads the receiver's settings from the environment.
package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Prefix is prepended to every variable name, e.g. APPROVEDENY_API_KEY.
const Prefix = "APPROVEDENY"

// Config holds the settings of cmd/server.
type Config struct {
	APIKey  string `envconfig:"API_KEY" required:"true"`
	BaseURL string `envconfig:"BASE_URL" default:"https://api.approvedeny.com"`

	// EncryptionKey verifies webhook signatures. The server must not start
	// without it.
	EncryptionKey   string `envconfig:"ENCRYPTION_KEY" required:"true"`
	SignatureHeader string `envconfig:"SIGNATURE_HEADER" default:"X-Approvedeny-Signature"`

	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	Workers    int    `envconfig:"WORKERS" default:"5"`
	QueueSize  int    `envconfig:"QUEUE_SIZE" default:"100"`
	MaxRetries uint64 `envconfig:"MAX_RETRIES" default:"5"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	Debug       bool          `envconfig:"DEBUG" default:"false"`
}

// Load reads the given dotenv files (".env" when none are given) and then
// the environment. A missing dotenv file is only logged.
func Load(logger *slog.Logger, files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		logger.Warn("No .env file found, continuing with environment variables")
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process environment variables")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings envconfig cannot check on its own.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.Errorf("%s_API_KEY is not set", Prefix)
	}
	if c.EncryptionKey == "" {
		return errors.Errorf("%s_ENCRYPTION_KEY is not set", Prefix)
	}
	if c.Workers < 1 {
		return errors.Errorf("%s_WORKERS must be at least 1, got %d", Prefix, c.Workers)
	}
	if c.QueueSize < 0 {
		return errors.Errorf("%s_QUEUE_SIZE cannot be negative, got %d", Prefix, c.QueueSize)
	}
	if c.HTTPTimeout <= 0 {
		return errors.Errorf("%s_HTTP_TIMEOUT must be positive, got %s", Prefix, c.HTTPTimeout)
	}
	if c.SignatureHeader == "" {
		return errors.Errorf("%s_SIGNATURE_HEADER cannot be empty", Prefix)
	}
	return nil
}
