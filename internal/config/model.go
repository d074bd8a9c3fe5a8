// internal/config/model.go
//
// Typed configuration model for the portal.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/portal.yaml`                       – primary static file,
//   • `PORTAL_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr  string   `koanf:"listen_addr"  validate:"required,hostname_port"`
	ForceHTTPS  bool     `koanf:"force_https"`
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,required"`
}

//
// Database section
//

// Database selects and tunes the record store.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host,
// port, or flags without touching Vault.  The *secret* portion
// (`Password`) is normally a `vault:` reference injected at runtime,
// keeping credentials out of flat files and git history.
type Database struct {
	Driver   string `koanf:"driver"   validate:"required,oneof=mysql memory"`
	DSN      string `koanf:"dsn"      validate:"required_if=Driver mysql"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
	// Migrate applies embedded migrations when serve starts.
	Migrate bool `koanf:"migrate"`
}

//
// Auth section
//

// Auth configures bearer-token verification and the on-behalf policy.
type Auth struct {
	JWTSecret          string `koanf:"jwt_secret"            validate:"required,min=32"`
	Issuer             string `koanf:"issuer"`
	AllowAdminOnBehalf bool   `koanf:"allow_admin_on_behalf"`
}

//
// Grant window section
//

// GrantWindow selects how the start/end chronology convention is enforced.
type GrantWindow struct {
	Chronology string `koanf:"chronology" validate:"omitempty,oneof=soft hard"`
}

//
// Catalog section
//

// Catalog tunes the slug cache used by subscription requests.  Entries
// expire after CacheTTL so a catalog write made by another instance is
// picked up within that bound.
type Catalog struct {
	CacheSize int           `koanf:"cache_size" validate:"gte=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl"  validate:"gte=0"`
}

//
// Feed section
//

// Feed configures the optional AMQP relay.  Empty AMQPURL disables it.
type Feed struct {
	AMQPURL  string `koanf:"amqp_url"`
	Exchange string `koanf:"exchange" validate:"required_with=AMQPURL"`
}

//
// Log section
//

// Log configures the zap file logger.
type Log struct {
	Dir   string `koanf:"dir"   validate:"required"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2 country database.
type GeoIP struct {
	Path string `koanf:"path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or PORTAL_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // PORTAL_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP        HTTP        `koanf:"http"`
	Database    Database    `koanf:"database"`
	Auth        Auth        `koanf:"auth"`
	GrantWindow GrantWindow `koanf:"grant_window"`
	Catalog     Catalog     `koanf:"catalog"`
	Feed        Feed        `koanf:"feed"`
	Log         Log         `koanf:"log"`
	GeoIP       GeoIP       `koanf:"geoip"`
	Paths       Paths       `koanf:"-"` // not loaded from config files
}
