// Package cli holds the ward-desk command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	appconfig "github.com/lewisedginton/ward_desk/internal/config"
	"github.com/lewisedginton/ward_desk/internal/server"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

const loggerKey = "logger"

// NewApp builds the ward-desk CLI.
func NewApp() *cli.App {
	return &cli.App{
		Name:  "ward-desk",
		Usage: "Ward service desk: dial menu and chat assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "config-file",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Before: func(ctx *cli.Context) error {
			log := logger.NewLogger(logger.Config{
				Level:   logger.ParseLevel(ctx.String("log-level")),
				Format:  ctx.String("log-format"),
				Service: "ward-desk",
				Output:  ctx.App.ErrWriter,
			})
			ctx.App.Metadata = map[string]interface{}{loggerKey: log}
			return nil
		},
		Commands: []*cli.Command{
			ServerCommand(),
			ChatCommand(),
			MenuCommand(),
			KnowledgeCommand(),
			DatabaseCommand(),
			ConfigCommand(),
			ConnectorCommand(),
			HealthcheckCommand(),
		},
	}
}

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata[loggerKey].(logger.Logger); ok {
			return log
		}
	}
	return logger.NewNopLogger()
}

func loadConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		getLogger(ctx).Error("Failed to load configuration", logger.ErrorField(err))
		return nil, err
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
}

// newServer loads configuration and wires every component.
func newServer(ctx *cli.Context) (*server.Server, *appconfig.AppConfig, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	log := getLogger(ctx)
	s, err := server.New(ctx.Context, cfg, log)
	if err != nil {
		log.Error("Failed to create server", logger.ErrorField(err))
		return nil, nil, fmt.Errorf("failed to create server: %w", err)
	}
	return s, cfg, nil
}
