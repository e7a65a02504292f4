// internal/config/model.go
//
// Typed configuration model for Serenity.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four overlay layers:
//
//   • built-in defaults                          – see defaults.go,
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `SERENITY_`-prefixed environment overrides – highest precedence.
//
// Any secret whose string begins with `vault:` is resolved through the
// Vault client by ResolveSecrets after Load, so handlers never see a Vault
// reference, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations are written as Go duration strings ("30s", "1m30s").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	TrustProxy   bool          `koanf:"trust_proxy"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gt=0"`
}

//
// Log section
//

// Log controls the zap logger.  Dir is relative to Paths.Root unless
// absolute.
type Log struct {
	Dir   string `koanf:"dir"   validate:"required"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Contact section
//

// Contact tunes the contact form sessions and abuse controls.
//
// CSRFKey is a base64url key of at least 32 bytes.  When empty the form
// package generates an ephemeral key at startup and logs a warning.
type Contact struct {
	Timeout       time.Duration `koanf:"timeout"         validate:"gt=0"`
	IdleTTL       time.Duration `koanf:"idle_ttl"        validate:"gt=0"`
	MaxSessions   int           `koanf:"max_sessions"    validate:"gte=1"`
	MinFillTime   time.Duration `koanf:"min_fill_time"   validate:"gte=0"`
	CSRFKey       string        `koanf:"csrf_key"`
	SecureCookie  bool          `koanf:"secure_cookie"`
	RatePerMinute float64       `koanf:"rate_per_minute" validate:"gte=0"`
	RateBurst     int           `koanf:"rate_burst"      validate:"gte=1"`
}

//
// Delivery section
//

// Delivery lists the backends a submission is handed to, in order.
type Delivery struct {
	Modes    []string `koanf:"modes" validate:"required,min=1,dive,delivery_mode"`
	Simulate Simulate `koanf:"simulate"`
	Webhook  Webhook  `koanf:"webhook"`
	Queue    Queue    `koanf:"queue"`
	Store    Store    `koanf:"store"`
}

// Simulate stands in for a real backend: a randomized delay, then success,
// or failure for FailureRate of calls.
type Simulate struct {
	MinDelay    time.Duration `koanf:"min_delay"    validate:"gte=0"`
	MaxDelay    time.Duration `koanf:"max_delay"    validate:"gtefield=MinDelay"`
	FailureRate float64       `koanf:"failure_rate" validate:"gte=0,lte=1"`
}

// Webhook posts each submission as JSON.
type Webhook struct {
	URL   string `koanf:"url"   validate:"omitempty,url"`
	Token string `koanf:"token"`
}

// Queue publishes each submission to SQS.  Endpoint is set for LocalStack.
type Queue struct {
	Region   string `koanf:"region"`
	QueueURL string `koanf:"queue_url" validate:"omitempty,url"`
	Endpoint string `koanf:"endpoint"  validate:"omitempty,url"`
}

// Store writes each submission to MySQL.
type Store struct {
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table" validate:"omitempty,sql_ident"`
}

//
// Vault and Geo sections
//

// Vault enables `vault:` secret references.  Address and token come from
// the standard VAULT_ADDR and VAULT_TOKEN variables.
type Vault struct {
	Enabled  bool          `koanf:"enabled"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // SERENITY_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Log      Log      `koanf:"log"`
	Contact  Contact  `koanf:"contact"`
	Delivery Delivery `koanf:"delivery"`
	Vault    Vault    `koanf:"vault"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"`
}

// HasMode reports whether mode is listed in Delivery.Modes.
func (d Delivery) HasMode(mode string) bool {
	for _, m := range d.Modes {
		if m == mode {
			return true
		}
	}
	return false
}
