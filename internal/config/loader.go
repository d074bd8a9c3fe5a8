// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/portal.yaml`.
  3. Environment variables prefixed `PORTAL_`, where `__` maps to “.”
     (e.g., `PORTAL_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, every string value that starts with `vault:` is replaced by
the referenced Vault secret.  The tree is then unmarshalled over the
defaults into strongly-typed structs, the MySQL DSN is finalised (password
injected, parseTime forced), validated, enriched with the runtime root
path, and cached in an `atomic.Pointer` for lock-free reads.  `Reload()`
simply calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans for root discovery, YAML read, and env overlay.
  • ERROR spans for YAML parse, vault resolution, unmarshal, and validation.
  • INFO  span for the final “config loaded” line with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/portal.yaml`;
    this lets `go run ./cmd/portal` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/vault"
)

const (
	envPrefix = "PORTAL_"
	fileName  = "portal.yaml"
)

var current atomic.Pointer[Config]

// SecretResolver turns `vault:` references into plain values.
type SecretResolver interface {
	Resolve(ctx context.Context, s string) (string, error)
}

// Options override discovery for tests and tooling.
type Options struct {
	Root     string         // skip discovery when set
	Resolver SecretResolver // nil = dial Vault on first reference
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves PORTAL_ROOT or climbs directories until conf/portal.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("PORTAL_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", fileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── defaults ─────────────────────────────────*/

func defaults() Config {
	return Config{
		HTTP:        HTTP{ListenAddr: ":8080"},
		Database:    Database{Driver: "mysql", MaxOpen: 15, MaxIdle: 5},
		Auth:        Auth{Issuer: "portal"},
		GrantWindow: GrantWindow{Chronology: "soft"},
		Catalog:     Catalog{CacheSize: 512, CacheTTL: 30 * time.Second},
		Feed:        Feed{Exchange: "portal.changes"},
		Log:         Log{Dir: "logs", Level: "info"},
	}
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, validates, and caches Config.
func Load() (*Config, error) {
	return LoadWith(context.Background(), Options{})
}

// LoadWith is Load with explicit options.
func LoadWith(ctx context.Context, opts Options) (*Config, error) {
	root := opts.Root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", fileName)
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: PORTAL_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, opts.Resolver); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	if cfg.Database.Driver == "mysql" {
		dsn, err := finaliseDSN(cfg.Database.DSN, cfg.Database.Password)
		if err != nil {
			zap.S().Errorw("config dsn invalid", "err", err)
			return nil, err
		}
		cfg.Database.DSN = dsn
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"db_driver", cfg.Database.Driver,
		"chronology", cfg.GrantWindow.Chronology,
		"feed_relay", cfg.Feed.AMQPURL != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
}

// resolveSecrets swaps every `vault:` string in k for its secret value.
// The Vault client is only dialled when a reference is present.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, r SecretResolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vault.RefPrefix) {
			continue
		}
		if r == nil {
			cli, err := vault.New(ctx)
			if err != nil {
				return err
			}
			r = cli
		}
		plain, err := r.Resolve(ctx, s)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, plain); err != nil {
			return err
		}
		zap.S().Debugw("config value resolved from vault", "key", key)
	}
	return nil
}

// finaliseDSN injects password (when non-empty) and forces parseTime so
// DATETIME columns scan into time.Time.
func finaliseDSN(dsn, password string) (string, error) {
	if dsn == "" {
		return "", nil
	}
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("database.dsn: %w", err)
	}
	if password != "" {
		c.Passwd = password
	}
	c.ParseTime = true
	return c.FormatDSN(), nil
}

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
