// internal/sanity/client.go
//
// Minimal HTTP client for the CMS content API.
//
// Context
// -------
// The storefront only ever issues GROQ reads, so the client is a thin
// wrapper around one endpoint:
//
//	https://<project>.api[cdn].sanity.io/v<version>/data/query/<dataset>
//
// The CDN host is used only when UseCDN is set and no token is present;
// authenticated reads always go to the live API.  Responses are JSON
// envelopes with either a `result` or an `error.description`; gjson pulls
// those apart without a round-trip through map[string]any.
package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/yanizio/storefront/internal/metrics"
)

// ErrQuery wraps every failed content query.
var ErrQuery = errors.New("sanity: query failed")

// Perspectives understood by the content API.
const (
	PerspectiveRaw       = "raw"
	PerspectiveDrafts    = "drafts"
	PerspectivePublished = "published"
)

// Config carries everything needed to address one dataset.
type Config struct {
	ProjectID   string
	Dataset     string
	APIVersion  string
	UseCDN      bool
	Token       string
	Perspective []string
	Stega       bool
	StudioURL   string
}

// Client is immutable; derive variants with WithConfig.
type Client struct {
	cfg     Config
	http    *http.Client
	baseURL string // test override for scheme://host
}

// Option customises New.
type Option func(*Client)

// WithHTTPClient swaps the transport, e.g. for a bypass.Transport or a test
// server client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithBaseURL points every request at base instead of the project host.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// New returns a client for cfg.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{cfg: cfg, http: &http.Client{Timeout: 15 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	cfg := c.cfg
	cfg.Perspective = append([]string(nil), c.cfg.Perspective...)
	return cfg
}

// WithConfig returns a new client whose configuration is the current one
// with fn applied.  The receiver is not modified.
func (c *Client) WithConfig(fn func(*Config)) *Client {
	cp := *c
	cp.cfg = c.Config()
	fn(&cp.cfg)
	return &cp
}

// Endpoint reports the query URL (without parameters) the client targets.
func (c *Client) Endpoint() string {
	base := c.baseURL
	if base == "" {
		host := "api"
		if c.cfg.UseCDN && c.cfg.Token == "" {
			host = "apicdn"
		}
		base = fmt.Sprintf("https://%s.%s.sanity.io", c.cfg.ProjectID, host)
	}
	return fmt.Sprintf("%s/v%s/data/query/%s",
		base, strings.TrimPrefix(c.cfg.APIVersion, "v"), c.cfg.Dataset)
}

// Query runs a GROQ query and returns the `result` member.
func (c *Client) Query(ctx context.Context, query string, params map[string]any) (gjson.Result, error) {
	u, err := url.Parse(c.Endpoint())
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: endpoint: %v", ErrQuery, err)
	}

	q := url.Values{}
	q.Set("query", query)
	for k, v := range params {
		raw, err := json.Marshal(v)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("%w: param %s: %v", ErrQuery, k, err)
		}
		q.Set("$"+k, string(raw))
	}
	if len(c.cfg.Perspective) > 0 {
		q.Set("perspective", strings.Join(c.cfg.Perspective, ","))
	}
	if c.cfg.Stega {
		q.Set("resultSourceMap", "withKeyArraySelector")
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.CMSQueryDuration.WithLabelValues(strconv.FormatBool(c.cfg.UseCDN && c.cfg.Token == "")).
		Observe(time.Since(start).Seconds())
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: read body: %v", ErrQuery, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: status %d: non-JSON response", ErrQuery, resp.StatusCode)
	}

	env := gjson.ParseBytes(body)
	if desc := env.Get("error.description"); desc.Exists() || resp.StatusCode >= 400 {
		msg := desc.String()
		if msg == "" {
			msg = env.Get("message").String()
		}
		return gjson.Result{}, fmt.Errorf("%w: status %d: %s", ErrQuery, resp.StatusCode, msg)
	}
	return env.Get("result"), nil
}

// Fetch runs query and decodes the result into dst.  A null result leaves
// dst untouched.
func (c *Client) Fetch(ctx context.Context, query string, params map[string]any, dst any) error {
	res, err := c.Query(ctx, query, params)
	if err != nil {
		return err
	}
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Raw), dst); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrQuery, err)
	}
	return nil
}
