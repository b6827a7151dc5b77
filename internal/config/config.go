// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Env is reported by the health endpoint.
	Env string `koanf:"env"`

	// Backend selects storage: memory, file or mongo.
	Backend     string        `koanf:"backend"`
	DataDir     string        `koanf:"data_dir"`
	LockTimeout time.Duration `koanf:"lock_timeout"`

	MongoURI      string        `koanf:"mongo_uri"`
	MongoDatabase string        `koanf:"mongo_db"`
	MongoTimeout  time.Duration `koanf:"mongo_timeout"`

	// Horizon is the number of months POST /api/schedule generates by default.
	Horizon int `koanf:"horizon"`

	// AuditQueueSize bounds the asynchronous audit writer queue.
	AuditQueueSize int `koanf:"audit_queue_size"`

	// AdminPassword is compared in constant time when no hash is set.
	AdminPassword string `koanf:"admin_password"`
	// AdminPasswordHash is a bcrypt hash and takes precedence.
	AdminPasswordHash string `koanf:"admin_password_hash"`

	// JWTSigningKey signs login tokens; a random key is used when empty.
	JWTSigningKey string        `koanf:"jwt_signing_key"`
	TokenTTL      time.Duration `koanf:"token_ttl"`

	// Timezone decides where a week ends for lead logs and regeneration.
	Timezone string `koanf:"timezone"`

	// AutoGenerateInterval is how often the next month is generated when
	// missing. Zero disables it.
	AutoGenerateInterval time.Duration `koanf:"auto_generate_interval"`
}

// New returns a Config filled with defaults.
func New() *Config {
	return &Config{
		Addr:                 ":8080",
		LogLevel:             "info",
		LogFormat:            "text",
		Env:                  "development",
		Backend:              BackendFile,
		DataDir:              "data",
		LockTimeout:          5 * time.Second,
		MongoDatabase:        "starboard",
		MongoTimeout:         10 * time.Second,
		Horizon:              6,
		AuditQueueSize:       1024,
		TokenTTL:             12 * time.Hour,
		Timezone:             "UTC",
		AutoGenerateInterval: time.Hour,
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("%w: data_dir is required for the file backend", ErrInvalidConfig)
		}
	case BackendMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("%w: mongo_uri is required for the mongo backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("%w: horizon must be positive", ErrInvalidConfig)
	}
	if c.AuditQueueSize < 0 {
		return fmt.Errorf("%w: audit_queue_size must not be negative", ErrInvalidConfig)
	}
	if c.AutoGenerateInterval < 0 {
		return fmt.Errorf("%w: auto_generate_interval must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
