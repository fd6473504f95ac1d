// internal/vault/vault.go
//
// Vault client wrapper for the storefront.
//
// Context
// -------
//   - Resolves `vault:<mount/path>#<key>` references found in configuration
//     (CMS read token, Storefront API token, session secrets, ledger DSN).
//   - Keeps the token alive in the background and caches KV-v2 reads per
//     reference so config reloads do not hammer the server.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx)                      // during boot.
//  2. cfg, err := config.Load(ctx, config.WithSecrets(cli))
//
// Build tags: none.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a configuration value as a Vault reference.
const RefPrefix = "vault:"

// DefaultTTL bounds how long a resolved reference is served from memory.
const DefaultTTL = 5 * time.Minute

var ErrBadRef = errors.New("vault: reference must look like vault:<mount/path>#<key>")

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	kv  kvReader
	ttl time.Duration

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry.
}

// kvReader is the slice of the SDK this package needs; tests substitute a map.
type kvReader interface {
	Read(ctx context.Context, mount, rel string) (map[string]any, error)
}

type cached struct {
	val string
	exp time.Time
}

type sdkReader struct{ api *vault.Client }

func (s sdkReader) Read(ctx context.Context, mount, rel string) (map[string]any, error) {
	sec, err := s.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// New constructs a Vault client from VAULT_ADDR / VAULT_TOKEN and starts a
// background token-renewal loop bound to ctx.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(sdkReader{api: apiCli}, DefaultTTL)
	go renewLoop(ctx, apiCli)
	return c, nil
}

func newClient(kv kvReader, ttl time.Duration) *Client {
	return &Client{kv: kv, ttl: ttl, cache: make(map[string]cached)}
}

// IsRef reports whether v should be resolved through Vault.
func IsRef(v string) bool { return strings.HasPrefix(v, RefPrefix) }

// ParseRef splits "vault:secret/storefront#session_secret" into its path and
// key.  The prefix is optional.
func ParseRef(ref string) (path, key string, err error) {
	ref = strings.TrimPrefix(ref, RefPrefix)
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" || !strings.Contains(path, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrBadRef, ref)
	}
	return path, key, nil
}

// ResolveRef returns the string stored under a vault: reference.
func (c *Client) ResolveRef(ctx context.Context, ref string) (string, error) {
	path, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, path, key)
}

// GetKV fetches a single key from a KV-v2 secret, serving a cached copy
// while it is younger than the client TTL.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	canonical := secretPath + "#" + key

	c.cacheMu.RLock()
	if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
		c.cacheMu.RUnlock()
		return cv.val, nil
	}
	c.cacheMu.RUnlock()

	mount, rel := splitMount(secretPath)
	data, err := c.kv.Read(ctx, mount, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if c.ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(c.ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func renewLoop(ctx context.Context, api *vault.Client) {
	log := zap.S().With("component", "vault")
	for ctx.Err() == nil {
		sec, err := api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			log.Warnw("token renew-self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			log.Infow("token is not renewable, sleeping", "for", time.Hour)
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			log.Warnw("lifetime watcher init failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		watch(ctx, watcher, log)
		backoff(ctx, 15*time.Second)
	}
}

func watch(ctx context.Context, w *vault.LifetimeWatcher, log *zap.SugaredLogger) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				log.Warnw("token renewal stopped", "err", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				log.Debugw("token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
