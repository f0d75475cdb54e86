package cli

import (
	"github.com/urfave/cli/v2"
)

// ServerCommand returns a command for server operations
func ServerCommand() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Server operations",
		Subcommands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Serve the menu and chat channels over HTTP and start configured connectors",
				Action: serverStartAction,
			},
		},
	}
}

func serverStartAction(ctx *cli.Context) error {
	s, cfg, err := newServer(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg.LogConfig(getLogger(ctx))
	return s.Run(ctx.Context)
}
