// Package config holds the ward-desk application configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/ward_desk/pkg/config"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	config.CommonConfig `yaml:",inline"`

	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	HTTP       config.HTTPServerConfig `yaml:"http"`
	Metrics    config.MetricsConfig    `yaml:"metrics"`
	Database   config.DatabaseConfig   `yaml:"database"`
	Health     HealthConfig            `yaml:"health"`
	Security   SecurityConfig          `yaml:"security"`
	Sessions   SessionsConfig          `yaml:"sessions"`
	Knowledge  KnowledgeConfig         `yaml:"knowledge"`
	Generation GenerationConfig        `yaml:"generation"`
	Telegram   TelegramConfig          `yaml:"telegram"`
	Slack      SlackConfig             `yaml:"slack"`
}

// Validate validates the configuration and returns an error if invalid
func (c AppConfig) Validate() error {
	var result error
	for _, v := range []config.Validator{
		c.CommonConfig, c.HTTP, c.Metrics, c.Database,
		c.Health, c.Security, c.Sessions, c.Knowledge, c.Generation, c.Slack,
	} {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Load reads path (optional) and the environment into a validated AppConfig.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := config.GetConfig(cfg, path, false); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.LogLevel)
}

// NewLogger builds the process logger from the common settings.
func (c *AppConfig) NewLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:   c.GetLogLevel(),
		Format:  c.LogFormat,
		Service: c.Service,
	})
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.Service),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("port", c.HTTP.Port),
		logger.StringField("log_level", c.LogLevel),
		logger.StringField("session_backend", c.Sessions.Backend),
		logger.StringField("knowledge_backend", c.Knowledge.Backend),
		logger.StringField("generation_provider", c.Generation.Provider),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
		logger.BoolField("database_enabled", c.Database.Enabled),
		logger.BoolField("telegram_enabled", c.Telegram.Enabled()),
		logger.BoolField("slack_enabled", c.Slack.Enabled()),
	)
}
