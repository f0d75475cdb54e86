package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/ward_desk/internal/persistence"
)

// DatabaseCommand returns the schema commands.
func DatabaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database operations",
		Subcommands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply pending schema migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "Roll back every migration instead"},
				},
				Action: dbMigrateAction,
			},
		},
	}
}

func dbMigrateAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	pool, err := persistence.Connect(ctx.Context, cfg.Database.GetConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	mm := persistence.NewMigrationManager(pool, getLogger(ctx))
	if ctx.Bool("down") {
		return mm.RollbackAll()
	}
	return mm.RunMigrations()
}
