package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/ward_desk/pkg/health/checkers"
)

// HealthcheckCommand probes a running ward-desk. It exits non-zero when the
// endpoint is unreachable or not ready, for use as a container HEALTHCHECK.
func HealthcheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "healthcheck",
		Usage: "Probe the readiness endpoint of a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080/health/ready",
				Usage:   "Readiness URL to probe",
				EnvVars: []string{"HEALTHCHECK_URL"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Second,
			},
		},
		Action: healthcheckAction,
	}
}

func healthcheckAction(ctx *cli.Context) error {
	checkCtx, cancel := signalContext(ctx)
	defer cancel()
	checkCtx, stop := context.WithTimeout(checkCtx, ctx.Duration("timeout"))
	defer stop()

	url := ctx.String("url")
	if err := checkers.NewHTTPChecker(url, "ready").Check(checkCtx); err != nil {
		return fmt.Errorf("%s: %w", url, err)
	}
	fmt.Fprintln(ctx.App.Writer, "ok")
	return nil
}
