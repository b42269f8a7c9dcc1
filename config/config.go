// Package config loads the store-level configuration (backend endpoint,
// credentials, pool sizing, feature flags) from the environment.
//
// Generalizes infrastructure/config/config.go's env-var loading with
// defaults and Validate(); drops the AWS/Lambda/WebSocket/JWT fields that
// belonged to the teacher's serverless HTTP app (see DESIGN.md) in favor
// of the fields the §6 facade surface (store.Open) actually needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds everything needed to open a Store.
type Config struct {
	// Backend connection
	Endpoint string `validate:"required,url|startswith=bolt://|startswith=neo4j://"`
	Username string
	Password string
	Database string

	// Pooling and timeouts
	MaxPoolSize       int           `validate:"gt=0"`
	ConnectionTimeout time.Duration `validate:"gt=0"`
	AcquireTimeout    time.Duration `validate:"gt=0"`

	// Observability
	LogLevel      string
	EnableMetrics bool

	// Compiler / registry tuning
	MaxComplexDepth int `validate:"gt=0"`
}

// validate is a package-level instance, the same long-lived-singleton
// shape the teacher uses for its own validator.New() call — struct-tag
// based validators are safe to reuse across goroutines once built.
var validate = validator.New()

// LoadDotEnv loads a .env file, if present, into the process environment
// before Load reads it — adopted from the broader pack's use of
// github.com/joho/godotenv for local-development configuration. Missing
// files are not an error; Load still falls back to process env vars.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Load reads configuration from environment variables, applying the
// same default-then-override shape as the teacher's LoadConfig.
func Load() (*Config, error) {
	cfg := &Config{
		Endpoint:          getEnv("GRAPHMODEL_ENDPOINT", "bolt://localhost:7687"),
		Username:          getEnv("GRAPHMODEL_USERNAME", ""),
		Password:          getEnv("GRAPHMODEL_PASSWORD", ""),
		Database:          getEnv("GRAPHMODEL_DATABASE", ""),
		MaxPoolSize:       getEnvInt("GRAPHMODEL_MAX_POOL_SIZE", 50),
		ConnectionTimeout: getEnvDuration("GRAPHMODEL_CONNECTION_TIMEOUT", 30*time.Second),
		AcquireTimeout:    getEnvDuration("GRAPHMODEL_ACQUIRE_TIMEOUT", 5*time.Second),
		LogLevel:          getEnv("GRAPHMODEL_LOG_LEVEL", "info"),
		EnableMetrics:     getEnvBool("GRAPHMODEL_ENABLE_METRICS", false),
		MaxComplexDepth:   getEnvInt("GRAPHMODEL_MAX_COMPLEX_DEPTH", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and sane,
// using struct-tag rules evaluated by go-playground/validator.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
