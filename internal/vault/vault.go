// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
//   - Concurrency-safe wrapper around the HashiCorp Vault Go SDK.
//   - Background token renewal, a KV-v2 read helper, and per-key caching.
//   - Config values written as `vault:<mount>/<path>#<key>` are resolved
//     through GetKV at boot (see internal/config).
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx)                      // during boot.
//  2. pw,  err := cli.GetKV(ctx, path, key, ttl)      // anywhere in the app.
//
// Environment: VAULT_ADDR and VAULT_TOKEN, read by the SDK.
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
)

// RefPrefix marks a config value that names a Vault secret.
const RefPrefix = "vault:"

// ErrBadRef is returned by ParseRef for malformed references.
var ErrBadRef = errors.New("vault: reference must look like vault:<path>#<key>")

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.Logger

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a client from the environment and starts the token
// renewal loop, which stops when ctx is cancelled.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	c := &Client{
		api:   apiCli,
		log:   zap.L().Named("vault"),
		cache: make(map[string]cached),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// ParseRef splits "vault:<path>#<key>".
func ParseRef(ref string) (path, key string, err error) {
	rest, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok {
		return "", "", ErrBadRef
	}
	path, key, ok = strings.Cut(rest, "#")
	if !ok || path == "" || key == "" {
		return "", "", ErrBadRef
	}
	return path, key, nil
}

// GetKV fetches a single key from a KV-v2 secret.  With ttl > 0 the value
// is cached for that long.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("vault: secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warn("token renew-self failed", zap.Error(err))
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Info("token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			c.log.Warn("lifetime watcher init", zap.Error(err))
			backoff(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, w)
		backoff(ctx, 15*time.Second)
	}
}

// watch runs one lifetime watcher until it finishes or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warn("token renewal stopped", zap.Error(err))
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debug("token renewed", zap.Int("ttl_s", ev.Secret.Auth.LeaseDuration))
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
