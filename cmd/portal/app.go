// cmd/portal/app.go
//
// Process wiring shared by the commands: config, logger, stores, services,
// and the optional AMQP relay.

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/catalog"
	"github.com/yanizio/portal/internal/config"
	"github.com/yanizio/portal/internal/database"
	"github.com/yanizio/portal/internal/feed"
	"github.com/yanizio/portal/internal/logger"
	"github.com/yanizio/portal/internal/subscription"
)

// app owns every long-lived resource.  Close releases them in reverse
// order of acquisition.
type app struct {
	cfg           *config.Config
	db            *sqlx.DB // nil with the memory driver
	hub           *feed.Hub
	catalog       *catalog.Service
	subscriptions *subscription.Service
	closers       []func() error
}

// loadConfig reads the configuration and moves logging to the file sink.
func loadConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadWith(ctx, config.Options{Root: cmd.String("root")})
	if err != nil {
		return nil, err
	}
	if _, err := logger.New(logger.Options{
		Dir:   cfg.Log.Dir,
		Root:  cfg.Paths.Root,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Tee || runningInTTY(),
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// openDB connects with the configured pool sizes.
func openDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	opts := database.DefaultOptions()
	if cfg.Database.MaxOpen > 0 {
		opts.MaxOpenConns = cfg.Database.MaxOpen
	}
	if cfg.Database.MaxIdle > 0 {
		opts.MaxIdleConns = cfg.Database.MaxIdle
	}
	zap.L().Info("connecting to database")
	db, err := database.OpenWithOptions(ctx, cfg.Database.DSN, opts)
	if err != nil {
		return nil, err
	}
	zap.L().Info("database online")
	return db, nil
}

// build assembles stores and services for cfg.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, hub: feed.NewHub()}

	var (
		toolStore catalog.Store
		subStore  subscription.Store
	)
	switch cfg.Database.Driver {
	case "memory":
		zap.L().Warn("using in-memory stores; records are lost on exit")
		toolStore = catalog.NewMemoryStore(a.hub)
		subStore = subscription.NewMemoryStore(a.hub)
	default:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				a.Close()
				return nil, err
			}
		}
		toolStore = catalog.NewMySQLStore(db, a.hub)
		subStore = subscription.NewMySQLStore(db, a.hub)
	}

	chron, err := subscription.ParseChronology(cfg.GrantWindow.Chronology)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.catalog = catalog.NewService(toolStore, catalog.WithCache(cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL))
	stopWatch := a.catalog.Watch(a.hub)
	a.closers = append(a.closers, func() error { stopWatch(); return nil })
	a.subscriptions = subscription.NewService(subStore, a.catalog, subscription.Config{
		Chronology:         chron,
		AllowAdminOnBehalf: cfg.Auth.AllowAdminOnBehalf,
	})

	if cfg.Feed.AMQPURL != "" {
		relay, err := feed.DialAMQP(cfg.Feed.AMQPURL, cfg.Feed.Exchange)
		if err != nil {
			a.Close()
			return nil, err
		}
		unsubscribe := a.hub.Subscribe(relay.Observe)
		a.closers = append(a.closers, func() error {
			unsubscribe()
			return relay.Close()
		})
		zap.L().Info("feed relay online", zap.String("exchange", cfg.Feed.Exchange))
	}
	return a, nil
}

// Close releases resources in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// rootPath resolves p against the config root unless it is absolute.
func (a *app) rootPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cfg.Paths.Root, p)
}
