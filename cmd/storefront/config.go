package main

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

// Config holds the storefront settings, read from `BOOKS_STOREFRONT_*` envs.
type Config struct {
	APIURL   string        `envconfig:"API_URL" default:"http://localhost:8080"`
	PageSize int           `envconfig:"PAGE_SIZE" default:"10"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"5s"`
	LogFile  string        `envconfig:"LOG_FILE" default:"./logs/storefront.log"`
	LogLevel zapcore.Level `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads the environment and checks the values.
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := envconfig.Process("BOOKS_STOREFRONT", config); err != nil {
		return nil, err
	}
	if config.APIURL == "" {
		return nil, errors.New("storefront: api url is required")
	}
	if config.PageSize <= 0 {
		return nil, errors.New("storefront: page size must be positive")
	}
	return config, nil
}
