// internal/commerce/client.go
//
// Storefront API client.
//
// Context
// -------
// All commerce reads go through one GraphQL endpoint:
//
//	https://<store domain>/api/<version>/graphql.json
//
// authenticated with the public storefront access token.  Every query is
// run with the request's country and language so `@inContext` directives
// resolve localized prices and menus.  Results are served from the shared
// query cache according to a cache.Strategy.
package commerce

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/machinebox/graphql"

	"github.com/yanizio/storefront/internal/cache"
	"github.com/yanizio/storefront/internal/metrics"
)

// TokenHeader carries the public storefront access token.
const TokenHeader = "X-Shopify-Storefront-Access-Token"

// Config addresses one shop.
type Config struct {
	StoreDomain string
	APIToken    string
	APIVersion  string
}

// I18n is the localisation context for queries.
type I18n struct {
	Country  string
	Language string
}

// DefaultI18n is used when nothing better is known about the visitor.
var DefaultI18n = I18n{Country: "US", Language: "EN"}

// Client is cheap to construct; rootctx builds one per request.
type Client struct {
	cfg      Config
	i18n     I18n
	cache    *cache.LRU
	gql      *graphql.Client
	endpoint string
}

// Option customises New.
type Option func(*options)

type options struct {
	hc       *http.Client
	endpoint string
}

// WithHTTPClient replaces the HTTP client used by the GraphQL transport.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.hc = hc } }

// WithEndpoint overrides the derived endpoint URL.
func WithEndpoint(u string) Option { return func(o *options) { o.endpoint = u } }

// New returns a client bound to cfg, the visitor's i18n, and a cache handle.
// A nil cache disables caching.
func New(cfg Config, i18n I18n, c *cache.LRU, opts ...Option) *Client {
	o := options{hc: &http.Client{Timeout: 15 * time.Second}}
	for _, fn := range opts {
		fn(&o)
	}
	if o.endpoint == "" {
		o.endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", cfg.StoreDomain, cfg.APIVersion)
	}
	if i18n.Country == "" {
		i18n.Country = DefaultI18n.Country
	}
	if i18n.Language == "" {
		i18n.Language = DefaultI18n.Language
	}
	return &Client{
		cfg:      cfg,
		i18n:     i18n,
		cache:    c,
		gql:      graphql.NewClient(o.endpoint, graphql.WithHTTPClient(o.hc)),
		endpoint: o.endpoint,
	}
}

// I18n reports the localisation context in use.
func (c *Client) I18n() I18n { return c.i18n }

// Endpoint reports the GraphQL URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Query runs a GraphQL document and decodes `data` into dst.  country and
// language variables are always supplied.
func (c *Client) Query(ctx context.Context, op, query string, vars map[string]any,
	strategy cache.Strategy, dst any) error {

	all := map[string]any{
		"country":  c.i18n.Country,
		"language": c.i18n.Language,
	}
	for k, v := range vars {
		all[k] = v
	}

	run := func(ctx context.Context) (any, error) {
		req := graphql.NewRequest(query)
		for k, v := range all {
			req.Var(k, v)
		}
		req.Header.Set(TokenHeader, c.cfg.APIToken)

		start := time.Now()
		var raw json.RawMessage
		err := c.gql.Run(ctx, req, &raw)
		metrics.StorefrontQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("storefront %s: %w", op, err)
		}
		return []byte(raw), nil
	}

	var (
		v   any
		err error
	)
	if c.cache == nil {
		v, err = run(ctx)
	} else {
		v, err = c.cache.Fetch(ctx, c.cacheKey(op, query, all), strategy, run)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(v.([]byte), dst); err != nil {
		return fmt.Errorf("storefront %s: decode: %w", op, err)
	}
	return nil
}

func (c *Client) cacheKey(op, query string, vars map[string]any) string {
	h := sha256.New()
	h.Write([]byte(c.endpoint))
	h.Write([]byte{0})
	h.Write([]byte(query))
	h.Write([]byte{0})
	b, _ := json.Marshal(vars) // map keys marshal sorted
	h.Write(b)
	return op + ":" + hex.EncodeToString(h.Sum(nil))
}
