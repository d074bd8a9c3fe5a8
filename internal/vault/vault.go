// internal/vault/vault.go
//
// Vault client for configuration secrets.
//
// Context
// -------
// Configuration values of the form `vault:<mount/path>#<key>` (JWT secret,
// database password, AMQP URL) are resolved here at load time.  The client
// reads KV-v2 secrets, caches each path#key for resolveTTL, and coalesces
// concurrent reads of the same key through singleflight.  A background
// lifetime watcher keeps the token renewed for as long as ctx lives.
//
// Environment
// -----------
//   - VAULT_ADDR is the scheme and host of the Vault server.
//   - VAULT_TOKEN is the initial token (the SDK falls back to ~/.vault-token).
//
// Notes
// -----
//   - Logging goes through zap.L(); the client may be created before the
//     file logger, in which case lines land on the bootstrap console.
//   - Oxford commas, two spaces after periods.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RefPrefix marks a configuration value that lives in Vault.
const RefPrefix = "vault:"

const (
	resolveTTL   = 5 * time.Minute
	retryDelay   = 30 * time.Second
	idleRecheck  = time.Hour
	renewalGrace = 15 * time.Second
)

// kvReader fetches one KV-v2 secret's data map.
type kvReader interface {
	read(ctx context.Context, mount, rel string) (map[string]any, error)
}

type sdkReader struct{ api *vault.Client }

func (s sdkReader) read(ctx context.Context, mount, rel string) (map[string]any, error) {
	sec, err := s.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// Client is safe for concurrent use.  The zero value is invalid; use New.
type Client struct {
	kv    kvReader
	now   func() time.Time
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]entry // path#key → value + expiry
}

type entry struct {
	val string
	exp time.Time
}

// New reads VAULT_* from the environment, builds the SDK client, and starts
// token renewal bound to ctx.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}

	go renew(ctx, api)
	return newClient(sdkReader{api: api}), nil
}

func newClient(kv kvReader) *Client {
	return &Client{kv: kv, now: time.Now, cache: make(map[string]entry)}
}

// ParseRef splits "vault:<mount/path>#<key>" into path and key.  ok is false
// when s is not a Vault reference.
func ParseRef(s string) (path, key string, ok bool, err error) {
	ref, found := strings.CutPrefix(s, RefPrefix)
	if !found {
		return "", "", false, nil
	}
	path, key, found = strings.Cut(ref, "#")
	if !found || path == "" || key == "" || !strings.Contains(path, "/") {
		return "", "", true, fmt.Errorf("malformed vault reference %q: want vault:<mount/path>#<key>", s)
	}
	return path, key, true, nil
}

// Resolve returns s unchanged unless it is a Vault reference, in which case
// the referenced key is returned.
func (c *Client) Resolve(ctx context.Context, s string) (string, error) {
	path, key, ok, err := ParseRef(s)
	if !ok || err != nil {
		return s, err
	}
	return c.Get(ctx, path, key)
}

// Get returns one string key of the KV-v2 secret at path, cached for
// resolveTTL.
func (c *Client) Get(ctx context.Context, path, key string) (string, error) {
	canonical := path + "#" + key

	c.mu.RLock()
	e, hit := c.cache[canonical]
	c.mu.RUnlock()
	if hit && c.now().Before(e.exp) {
		return e.val, nil
	}

	v, err, _ := c.group.Do(canonical, func() (any, error) {
		mount, rel := splitMount(path)
		data, err := c.kv.read(ctx, mount, rel)
		if err != nil {
			return "", fmt.Errorf("vault get %s: %w", path, err)
		}
		raw, ok := data[key]
		if !ok {
			return "", fmt.Errorf("key %q not found in secret %q", key, path)
		}
		val, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("value at %s is not a string", canonical)
		}

		c.mu.Lock()
		c.cache[canonical] = entry{val: val, exp: c.now().Add(resolveTTL)}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// renew keeps the client token alive until ctx ends.  Non-renewable tokens
// are rechecked hourly; failures retry after retryDelay.
func renew(ctx context.Context, api *vault.Client) {
	log := zap.L().Named("vault")
	for ctx.Err() == nil {
		sec, err := api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			log.Warn("token renew failed", zap.Error(err))
			sleep(ctx, retryDelay)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			log.Info("token is not renewable; rechecking later", zap.Duration("in", idleRecheck))
			sleep(ctx, idleRecheck)
			continue
		}
		if err := watch(ctx, api, sec); err != nil {
			log.Warn("token watcher stopped", zap.Error(err))
		}
		sleep(ctx, renewalGrace)
	}
}

// watch runs one lifetime watcher until it finishes or ctx ends.
func watch(ctx context.Context, api *vault.Client, sec *vault.Secret) error {
	w, err := api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
	if err != nil {
		return err
	}
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.DoneCh():
			if err == nil {
				err = errors.New("lease ended")
			}
			return err
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				zap.L().Named("vault").Debug("token renewed", zap.Int("ttl_seconds", ev.Secret.Auth.LeaseDuration))
			}
		}
	}
}

// splitMount turns "kv/portal/db" into ("kv", "portal/db").
func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
