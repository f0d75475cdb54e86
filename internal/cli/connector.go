package cli

import (
	"github.com/urfave/cli/v2"
)

// ConnectorCommand runs one chat connector without the HTTP server.
func ConnectorCommand() *cli.Command {
	run := func(name string) cli.ActionFunc {
		return func(ctx *cli.Context) error {
			s, _, err := newServer(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			runCtx, stop := signalContext(ctx)
			defer stop()
			return s.RunConnector(runCtx, name)
		}
	}

	return &cli.Command{
		Name:  "connector",
		Usage: "Run a single chat connector",
		Subcommands: []*cli.Command{
			{Name: "telegram", Usage: "Poll Telegram (TELEGRAM_BOT_TOKEN)", Action: run("telegram")},
			{Name: "slack", Usage: "Connect to Slack socket mode (SLACK_BOT_TOKEN, SLACK_APP_TOKEN)", Action: run("slack")},
		},
	}
}
