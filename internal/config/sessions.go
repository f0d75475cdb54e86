package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// SessionsConfig selects where menu and chat sessions live.
type SessionsConfig struct {
	Backend        string        `env:"SESSION_BACKEND" yaml:"backend" default:"memory"`
	RedisURL       string        `env:"REDIS_URL" yaml:"redis_url"`
	MemoryCapacity int           `env:"SESSION_MEMORY_CAPACITY" yaml:"memory_capacity" default:"10000"`
	SweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL" yaml:"sweep_interval" default:"1m"`
	MenuWindow     time.Duration `env:"SESSION_MENU_WINDOW" yaml:"menu_window" default:"30m"`
	ChatWindow     time.Duration `env:"SESSION_CHAT_WINDOW" yaml:"chat_window" default:"1h"`
}

func (s SessionsConfig) Validate() error {
	var result error
	switch s.Backend {
	case SessionBackendMemory:
		if s.MemoryCapacity <= 0 {
			result = multierror.Append(result, fmt.Errorf("session memory_capacity must be greater than 0"))
		}
	case SessionBackendRedis:
		if s.RedisURL == "" {
			result = multierror.Append(result, fmt.Errorf("redis_url is required for the redis session backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("session backend must be memory or redis, got %q", s.Backend))
	}
	if s.MenuWindow <= 0 || s.ChatWindow <= 0 {
		result = multierror.Append(result, fmt.Errorf("session windows must be greater than 0"))
	}
	return result
}
