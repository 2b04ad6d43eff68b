// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `CAMPUS_`, where `__` maps to “.”
     (e.g., `CAMPUS_HTTP__LISTEN_ADDR → http.listen_addr`).

String values of the form `vault:<path>#<key>` are then resolved through
Vault when `vault.enabled` is true.  A reference left unresolved is an
error, so a secret never reaches the app as its reference.

The merged tree is unmarshalled into typed structs, defaulted, validated,
and cached in an `atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG spans for root discovery, YAML read, and env overlay.
  • ERROR spans for parse, unmarshal, and validation failures.
  • Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`, so
    `go run ./cmd/web` works from any sub-directory.
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

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/cache"
	"github.com/yanizio/campus/internal/vault"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "CAMPUS_"

// Defaults applied after unmarshal.
const (
	DefaultUpstreamTimeout = 15 * time.Second
	DefaultIdleTTL         = 12 * time.Hour
	DefaultSweepInterval   = time.Minute
	DefaultLandingPath     = "/dashboard"
)

// SecretGetter resolves a single KV secret.  *vault.Client satisfies it.
type SecretGetter interface {
	GetKV(ctx context.Context, path, key string, ttl time.Duration) (string, error)
}

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves CAMPUS_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to the executable's parent for a bin/ layout.
func rootDir() string {
	if r := os.Getenv("CAMPUS_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
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

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root, connects to Vault when enabled, and delegates
// to LoadFrom.
func Load(ctx context.Context) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	k, err := read(root)
	if err != nil {
		return nil, err
	}

	var secrets SecretGetter
	if k.Bool("vault.enabled") {
		vc, err := vault.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("config: vault: %w", err)
		}
		secrets = vc
	}
	return finish(ctx, k, root, secrets)
}

// LoadFrom reads root/conf with secrets resolving vault references.
// secrets may be nil when no reference is used.
func LoadFrom(ctx context.Context, root string, secrets SecretGetter) (*Config, error) {
	k, err := read(root)
	if err != nil {
		return nil, err
	}
	return finish(ctx, k, root, secrets)
}

func read(root string) (*koanf.Koanf, error) {
	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// CAMPUS_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}
	return k, nil
}

func finish(ctx context.Context, k *koanf.Koanf, root string, secrets SecretGetter) (*Config, error) {
	if err := resolveSecrets(ctx, k, secrets); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"upstream", cfg.Upstream.BaseURL,
		"session_store", cfg.Session.Store,
		"vault", cfg.Vault.Enabled,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets replaces every vault reference in k.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, secrets SecretGetter) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vault.RefPrefix) {
			continue
		}
		if secrets == nil {
			return fmt.Errorf("config: %s references vault but vault.enabled is false", key)
		}
		path, field, err := vault.ParseRef(s)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		plain, err := secrets.GetKV(ctx, path, field, 0)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		if err := k.Set(key, plain); err != nil {
			return err
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = DefaultIdleTTL
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = cache.DefaultTTL
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = DefaultSweepInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(c.Paths.Root, "logs")
	}
	if c.App.LandingPath == "" {
		c.App.LandingPath = DefaultLandingPath
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }
