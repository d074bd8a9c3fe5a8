// cmd/portal/serve.go
//
// HTTP API.
//
// Request life-cycle
// ------------------
//
//  1. ForceHTTPS redirects plain HTTP from non-local hosts (when enabled).
//
//  2. Request id, request info (client IP, UA, GeoIP), access log, panic
//     recovery, and security headers.
//
//  3. CORS for the configured browser origins.
//
//  4. /metrics and /healthz are public.  Everything under /api requires a
//     bearer token; each registered component adds its routes there.
//
// Shutdown is driven by SIGINT or SIGTERM through an errgroup so the
// server and the relay stop together.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/portal/internal/auth"
	"github.com/yanizio/portal/internal/component"
	"github.com/yanizio/portal/internal/httpx"
	"github.com/yanizio/portal/internal/middleware"
	"github.com/yanizio/portal/internal/requestinfo"
	"github.com/yanizio/portal/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "seed",
				Usage: "load catalog entries from this YAML file before listening",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if path := cmd.String("seed"); path != "" {
		if _, err := seedCatalog(ctx, a, a.rootPath(path)); err != nil {
			return err
		}
	}

	enricher, err := requestinfo.New(a.rootPath(cfg.GeoIP.Path))
	if err != nil {
		return err
	}
	defer enricher.Close()

	handler, err := a.router(enricher)
	if err != nil {
		return err
	}

	srv := server.New(cfg.HTTP.ListenAddr, handler)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, srv) })
	return g.Wait()
}

// router builds the full handler tree.
func (a *app) router(enricher *requestinfo.Enricher) (http.Handler, error) {
	cfg := a.cfg
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(enricher.Middleware)
	r.Use(middleware.RequestLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	if len(cfg.HTTP.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.HTTP.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", a.health)

	var mountErr error
	r.Route("/api", func(api chi.Router) {
		api.Use(verifier.Middleware)
		mountErr = component.Mount(api, component.Deps{
			Catalog:       a.catalog,
			Subscriptions: a.subscriptions,
			Feed:          a.hub,
			Origins:       cfg.HTTP.CORSOrigins,
		})
	})
	if mountErr != nil {
		return nil, mountErr
	}

	return middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, r), nil
}

// health reports 200 when the store is reachable.
func (a *app) health(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			zap.L().Warn("health check failed", zap.Error(err))
			httpx.WriteStatus(w, http.StatusServiceUnavailable)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"driver":    a.cfg.Database.Driver,
		"observers": a.hub.Len(),
	})
}
