package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// CommonConfig holds settings shared by every ward-desk command.
type CommonConfig struct {
	LogLevel  string `env:"LOG_LEVEL" yaml:"log_level" default:"info"`
	LogFormat string `env:"LOG_FORMAT" yaml:"log_format" default:"json"`
	Service   string `env:"SERVICE_NAME" yaml:"service" default:"ward-desk"`
}

// Validate checks the log level and format.
func (c CommonConfig) Validate() error {
	var result error
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		result = multierror.Append(result, fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "json" && f != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	return result
}
