package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HTTPServerConfig holds the listener settings for the channel API.
type HTTPServerConfig struct {
	// Host is the bind address; empty listens on all interfaces.
	Host string `env:"HTTP_HOST" yaml:"http_host"`
	Port int    `env:"HTTP_PORT" yaml:"http_port" default:"8080"`

	ReadTimeoutSeconds int `env:"HTTP_READ_TIMEOUT_SECONDS" yaml:"read_timeout_seconds" default:"15"`
	// WriteTimeoutSeconds bounds plain HTTP responses. Websocket connections
	// set their own deadlines after the upgrade.
	WriteTimeoutSeconds int `env:"HTTP_WRITE_TIMEOUT_SECONDS" yaml:"write_timeout_seconds" default:"15"`
	IdleTimeoutSeconds  int `env:"HTTP_IDLE_TIMEOUT_SECONDS" yaml:"idle_timeout_seconds" default:"60"`

	MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" yaml:"max_header_bytes" default:"1048576"`
}

// Validate checks the port range and that timeouts are not negative.
func (h HTTPServerConfig) Validate() error {
	var result error
	if h.Port < 1 || h.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("http port must be between 1-65535, got %d", h.Port))
	}
	for name, v := range map[string]int{
		"read_timeout_seconds":  h.ReadTimeoutSeconds,
		"write_timeout_seconds": h.WriteTimeoutSeconds,
		"idle_timeout_seconds":  h.IdleTimeoutSeconds,
	} {
		if v < 0 {
			result = multierror.Append(result, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if h.MaxHeaderBytes < 0 {
		result = multierror.Append(result, fmt.Errorf("max_header_bytes must not be negative, got %d", h.MaxHeaderBytes))
	}
	return result
}

// Addr is the listen address for http.Server.
func (h HTTPServerConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

func (h HTTPServerConfig) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutSeconds) * time.Second
}

func (h HTTPServerConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutSeconds) * time.Second
}

func (h HTTPServerConfig) IdleTimeout() time.Duration {
	return time.Duration(h.IdleTimeoutSeconds) * time.Second
}
