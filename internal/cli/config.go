package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ConfigCommand returns a command for configuration operations
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration operations",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate configuration",
				Action: configValidateAction,
			},
		},
	}
}

func configValidateAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg.LogConfig(getLogger(ctx))
	fmt.Fprintln(ctx.App.Writer, "Configuration is valid")
	return nil
}
