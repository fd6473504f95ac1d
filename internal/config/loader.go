// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from four layers (highest precedence
last):

 1. Optional `.env` files: `<root>/conf/.env`, then `<root>/.env`.
 2. Optional `conf/storefront.yaml`.
 3. Environment variables prefixed `STOREFRONT_`, where `__` maps to “.”
    (e.g., `STOREFRONT_HTTP__LISTEN_ADDR → http.listen_addr`).
 4. Hosting-platform bindings (`SANITY_*`, `SESSION_SECRET`, …) resolved
    through per-tier fallback chains, see envchain.go.

After merging, `vault:` references are resolved, defaults are filled, the
tree is validated, and the result is handed to the caller, which owns it
for the life of the process.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay.
  • ERROR spans: YAML parse, env overlay, unmarshal, Vault, validation.
  • INFO span: final “config loaded” with key highlights (never secrets).
  • Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix = "STOREFRONT_"
	yamlName  = "storefront.yaml"
	vaultRef  = "vault:"
)

// SecretResolver turns a `vault:<path>#<key>` reference into its value.
// *vault.Client satisfies it.
type SecretResolver interface {
	ResolveRef(ctx context.Context, ref string) (string, error)
}

type options struct {
	lookup  LookupFunc
	secrets SecretResolver
	root    string
}

// Option customises Load.
type Option func(*options)

// WithLookup replaces os.LookupEnv for platform bindings.
func WithLookup(fn LookupFunc) Option { return func(o *options) { o.lookup = fn } }

// WithSecrets installs the resolver used for `vault:` references.
func WithSecrets(r SecretResolver) Option { return func(o *options) { o.secrets = r } }

// WithRoot pins the project root instead of discovering it.
func WithRoot(dir string) Option { return func(o *options) { o.root = dir } }

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves STOREFRONT_ROOT or climbs directories until
// conf/storefront.yaml is found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv("STOREFRONT_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", yamlName)); err == nil {
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

// Load reads dotenv, YAML, env overrides, and platform bindings, resolves
// Vault references, validates, and caches the Config.
func Load(ctx context.Context, opts ...Option) (*Config, error) {
	o := options{lookup: os.LookupEnv}
	for _, fn := range opts {
		fn(&o)
	}
	root := o.root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))
	_ = godotenv.Load(filepath.Join(root, ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", yamlName)
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// STOREFRONT_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	cfg.Tier = ParseTier(string(cfg.Tier))
	applyPlatform(&cfg, o.lookup)
	applyDefaults(&cfg)

	if err := resolveSecrets(ctx, &cfg, o.secrets); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"tier", cfg.Tier,
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"project_id", cfg.Sanity.ProjectID,
		"dataset", cfg.Sanity.Dataset,
		"session_secrets", len(cfg.Session.Secrets),
		"read_token", cfg.Sanity.ReadToken != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── platform bindings ───────────────────────────*/

// applyPlatform overlays hosting-platform variables.  Values already present
// from YAML or STOREFRONT_ overrides act as the fallback for each chain.
func applyPlatform(cfg *Config, lookup LookupFunc) {
	t := cfg.Tier

	cfg.Sanity.ProjectID = Resolve(lookup, Chain("SANITY_PROJECT_ID", t), or(cfg.Sanity.ProjectID, DefaultProjectID))
	cfg.Sanity.Dataset = Resolve(lookup, Chain("SANITY_DATASET", t), or(cfg.Sanity.Dataset, DefaultDataset))
	cfg.Sanity.StudioURL = Resolve(lookup, Chain("SANITY_STUDIO_URL", t), or(cfg.Sanity.StudioURL, DefaultStudioURL))
	cfg.Sanity.ReadToken = Resolve(lookup, secretChain("SANITY_API_READ_TOKEN", t), cfg.Sanity.ReadToken)

	cfg.Storefront.StoreDomain = Resolve(lookup, Chain("STORE_DOMAIN", t), cfg.Storefront.StoreDomain)
	cfg.Storefront.APIToken = Resolve(lookup, Chain("STOREFRONT_API_TOKEN", t), cfg.Storefront.APIToken)
	cfg.Storefront.StorefrontID = Resolve(lookup, Chain("STOREFRONT_ID", t), cfg.Storefront.StorefrontID)
	cfg.Storefront.CheckoutDomain = Resolve(lookup, Chain("CHECKOUT_DOMAIN", t), cfg.Storefront.CheckoutDomain)

	primary := Resolve(lookup, secretChain("SESSION_SECRET", t), "")
	previous := Resolve(lookup, secretChain("SESSION_SECRET_PREVIOUS", t), "")

	secrets := make([]string, 0, len(cfg.Session.Secrets)+2)
	secrets = append(secrets, primary)
	secrets = append(secrets, cfg.Session.Secrets...)
	secrets = append(secrets, strings.Split(previous, ",")...)
	cfg.Session.Secrets = dedupe(secrets)
}

// secretChain omits the PUBLIC_ candidate; secrets are never public.
func secretChain(base string, t Tier) []string {
	return Chain(base, t)[:2]
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.ListenAddr == "" {
		cfg.HTTP.ListenAddr = DefaultListenAddr
	}
	if cfg.Sanity.APIVersion == "" {
		cfg.Sanity.APIVersion = DefaultCMSAPIVersion
	}
	if cfg.Storefront.APIVersion == "" {
		cfg.Storefront.APIVersion = DefaultStorefrontAPI
	}
}

/*──────────────────────────── vault references ────────────────────────────*/

func resolveSecrets(ctx context.Context, cfg *Config, r SecretResolver) error {
	fields := []*string{
		&cfg.Sanity.ReadToken,
		&cfg.Storefront.APIToken,
		&cfg.Preview.LedgerDSN,
	}
	for i := range cfg.Session.Secrets {
		fields = append(fields, &cfg.Session.Secrets[i])
	}

	for _, f := range fields {
		if !strings.HasPrefix(*f, vaultRef) {
			continue
		}
		if r == nil {
			return errors.New("vault reference found but no Vault client configured")
		}
		val, err := r.ResolveRef(ctx, strings.TrimPrefix(*f, vaultRef))
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *f, err)
		}
		*f = val
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
