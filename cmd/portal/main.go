// cmd/portal/main.go
//
// Subscription portal entry point.
//
// Commands
// --------
//
//	portal [serve]          run the HTTP API (default)
//	portal migrate          apply embedded MySQL migrations
//	portal seed             load catalog entries from seeds/tools.yaml
//	portal token            mint a bearer token for local testing
//
// Every command shares the --root flag (PORTAL_ROOT), which points at the
// directory holding conf/portal.yaml.  Until the config is read, logging
// goes to a console bootstrap logger; afterwards it moves to the daily
// JSON file.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/logger"

	_ "github.com/yanizio/portal/components/catalog"
	_ "github.com/yanizio/portal/components/feed"
	_ "github.com/yanizio/portal/components/subscriptions"
)

func main() {
	logger.Bootstrap()

	cmd := &cli.Command{
		Name:  "portal",
		Usage: "tool subscription request and approval service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Usage:   "directory containing conf/portal.yaml",
				Sources: cli.EnvVars("PORTAL_ROOT"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
			tokenCommand(),
		},
		Action: serve,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		zap.S().Errorw("portal exited", "err", err)
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
