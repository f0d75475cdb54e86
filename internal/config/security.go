package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"*"`
	MaxRequestSize     int64    `env:"MAX_REQUEST_SIZE" yaml:"max_request_size" default:"65536"`
	RequestTimeout     int      `env:"REQUEST_TIMEOUT_SECONDS" yaml:"request_timeout_seconds" default:"30"`
}

func (s SecurityConfig) Validate() error {
	var result error
	if s.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}
	if s.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("request_timeout_seconds must be greater than 0"))
	}
	return result
}
