// cmd/portal/migrate.go
package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/yanizio/portal/internal/database"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply embedded MySQL migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "status", Usage: "print migration status instead of applying"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "mysql" {
				return errors.New("migrate: database.driver must be mysql")
			}
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if cmd.Bool("status") {
				return database.MigrationStatus(ctx, db)
			}
			return database.Migrate(ctx, db)
		},
	}
}
