// internal/config/model.go
//
// Typed configuration model for the storefront.
//
// Context
// -------
// These structs define the tree that `internal/config/loader.go` builds
// from four layers (highest precedence last):
//
//   - optional `.env` files                      – dotenv values,
//   - optional `conf/storefront.yaml`            – static defaults,
//   - `STOREFRONT_`-prefixed environment values   – operator overrides,
//   - hosting-platform bindings                   – per-tier fallback chains.
//
// Any value that begins with `vault:` is resolved through the Vault client
// before validation, so the model never stores Vault URIs at runtime.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   - `Paths` is filled at runtime; YAML must not try to set it.
//   - Oxford commas, two spaces after periods.  No em-dash.

package config

import "errors"

var (
	// ErrMissingSessionSecret is returned when no cookie-signing secret is
	// configured.  The request context cannot be built without one.
	ErrMissingSessionSecret = errors.New("SESSION_SECRET environment variable is not set")

	// ErrMissingReadToken is returned by preview routes when the CMS read
	// token is absent.
	ErrMissingReadToken = errors.New("SANITY_API_READ_TOKEN environment variable is not set")
)

// Fallback constants used when no platform binding is present.
const (
	DefaultProjectID     = "sx997gpv"
	DefaultDataset       = "production"
	DefaultStudioURL     = "https://meditate-with-eve.sanity.studio"
	DefaultCMSAPIVersion = "2025-02-19"
	DefaultStorefrontAPI = "2025-07"
	DefaultListenAddr    = ":8080"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// CMS section
//

// Sanity holds the headless CMS project binding.  ReadToken is optional at
// load time; the preview routes fail with 500 when it is empty.
type Sanity struct {
	ProjectID  string `koanf:"project_id"  validate:"required"`
	Dataset    string `koanf:"dataset"     validate:"required"`
	APIVersion string `koanf:"api_version" validate:"required"`
	StudioURL  string `koanf:"studio_url"  validate:"omitempty,url"`
	ReadToken  string `koanf:"read_token"`
}

//
// Session section
//

// Session lists cookie-signing secrets, newest first.  Older entries remain
// accepted for verification so secrets can be rotated without logging every
// editor out.
type Session struct {
	Secrets []string `koanf:"secrets"`
	MaxAge  int      `koanf:"max_age" validate:"gte=0"`
}

// Primary returns the signing secret, or "" when none is configured.
func (s Session) Primary() string {
	if len(s.Secrets) == 0 {
		return ""
	}
	return s.Secrets[0]
}

//
// Commerce section
//

// Storefront holds the commerce backend binding.
type Storefront struct {
	StoreDomain    string `koanf:"store_domain"`
	APIToken       string `koanf:"api_token"`
	APIVersion     string `koanf:"api_version"`
	StorefrontID   string `koanf:"storefront_id"`
	CheckoutDomain string `koanf:"checkout_domain"`
}

//
// Preview section
//

// Preview controls secret replay.  When SingleUseSecrets is true every
// preview secret is recorded in the SQL ledger at LedgerDSN and a second
// presentation is rejected.
type Preview struct {
	SingleUseSecrets bool   `koanf:"single_use_secrets"`
	LedgerDSN        string `koanf:"ledger_dsn" validate:"required_if=SingleUseSecrets true"`
}

//
// Request-info section
//

// Geo points at an optional GeoLite2 country database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime.  The loader discovers Root (repo root or
// STOREFRONT_ROOT override) so later code can build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load().
type Config struct {
	Tier       Tier       `koanf:"tier"`
	HTTP       HTTP       `koanf:"http"`
	Sanity     Sanity     `koanf:"sanity"`
	Session    Session    `koanf:"session"`
	Storefront Storefront `koanf:"storefront"`
	Preview    Preview    `koanf:"preview"`
	Geo        Geo        `koanf:"geo"`
	Paths      Paths      `koanf:"-"`
}
