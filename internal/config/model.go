// internal/config/model.go
//
// Typed configuration model for the campus gateway.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `CAMPUS_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with `vault:` is resolved through the
// Vault client before unmarshalling, so the model never stores Vault
// references, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Upstream section
//

// Upstream points at the remote REST API.
type Upstream struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"  validate:"gte=0"`
}

//
// Session section
//

// Session configures the scs session cookie and the context store.
// Secret signs CSRF tokens.
type Session struct {
	CookieName string        `koanf:"cookie_name"`
	Secret     string        `koanf:"secret"   validate:"required,min=32"`
	IdleTTL    time.Duration `koanf:"idle_ttl" validate:"gte=0"`
	Lifetime   time.Duration `koanf:"lifetime" validate:"gte=0"`
	Store      string        `koanf:"store"    validate:"required,oneof=memory mysql"`
}

//
// Database section
//

// Database is required only when Session.Store is "mysql"; see
// validator.go.
type Database struct {
	DSN string `koanf:"dsn"`
}

//
// Cache section
//

// Cache tunes the data-slice response cache.
type Cache struct {
	TTL           time.Duration `koanf:"ttl"            validate:"gte=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gte=0"`
}

//
// App section
//

// App holds application-level routes.
type App struct {
	LandingPath string `koanf:"landing_path" validate:"required,startswith=/"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Vault section
//

// Vault toggles resolution of `vault:` references.
type Vault struct {
	Enabled bool `koanf:"enabled"`
}

//
// Log section
//

// Log configures the file logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // CAMPUS_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Upstream Upstream `koanf:"upstream"`
	Session  Session  `koanf:"session"`
	Database Database `koanf:"database"`
	Cache    Cache    `koanf:"cache"`
	App      App      `koanf:"app"`
	Geo      Geo      `koanf:"geo"`
	Vault    Vault    `koanf:"vault"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}
