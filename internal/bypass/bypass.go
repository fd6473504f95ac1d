// internal/bypass/bypass.go
//
// Auth-bypass token propagation.
//
// Context
// -------
// When the storefront is rendered inside the CMS studio iframe, browsers
// with third-party cookie blocking never store the hosting gateway's bypass
// cookie.  The gateway also accepts the token as an `_auth` query parameter,
// so the first page request carries it and every later same-origin request
// must carry it again.
//
// Two pieces live here:
//
//   - Capture, a middleware that lifts `_auth` off the page request into the
//     request context so templates can hand it to the browser.
//   - Client and Transport, an explicit HTTP wrapper that re-appends the
//     token to same-origin requests and leaves every other origin alone.
//     Nothing global is patched; callers opt in by using the wrapper.
//   - Link, the same rule applied to hrefs the server renders, so plain
//     navigation inside the iframe keeps the token.
package bypass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Param is the query parameter the gateway reads.
const Param = "_auth"

type ctxKey struct{}

// Capture stores the `_auth` value of the incoming request, if any, in the
// request context.
func Capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := r.URL.Query().Get(Param); tok != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, tok))
		}
		next.ServeHTTP(w, r)
	})
}

// FromContext returns the captured token or "".
func FromContext(ctx context.Context) string {
	tok, _ := ctx.Value(ctxKey{}).(string)
	return tok
}

// Token returns the bypass token for r, preferring the captured value and
// falling back to the query string.
func Token(r *http.Request) string {
	if tok := FromContext(r.Context()); tok != "" {
		return tok
	}
	if r.URL == nil {
		return ""
	}
	return r.URL.Query().Get(Param)
}

/*──────────────────────────────── client ────────────────────────────────*/

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client wraps a Doer and appends the bypass token to same-origin requests.
type Client struct {
	origin *url.URL
	token  string
	next   Doer
}

// NewClient binds a page origin (scheme://host[:port]) and token to next.
// A nil next uses http.DefaultClient.  An empty token makes the wrapper a
// pure pass-through.
func NewClient(origin, token string, next Doer) (*Client, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("bypass origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("bypass origin must be absolute, e.g. https://shop.example")
	}
	if next == nil {
		next = http.DefaultClient
	}
	return &Client{origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, token: token, next: next}, nil
}

// Origin reports the page origin the client compares against.
func (c *Client) Origin() string { return originOf(c.origin) }

// Do sends req, adding `_auth` when req targets the page origin.  Requests
// without a usable URL are delegated untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.next.Do(rewrite(req, c.origin, c.token))
}

// Get resolves target against the page origin (so "/cart" works) and issues
// a GET.  A target that cannot be parsed yields the same error a plain
// http.NewRequest would; the wrapper itself never panics.
func (c *Client) Get(ctx context.Context, target string) (*http.Response, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("bypass get: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.origin.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("bypass get: %w", err)
	}
	return c.Do(req)
}

/*────────────────────────────── transport ───────────────────────────────*/

// Transport is the RoundTripper form of Client, for libraries that accept
// an *http.Client rather than a Doer.
type Transport struct {
	Origin *url.URL
	Token  string
	Base   http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(rewrite(req, t.Origin, t.Token))
}

/*──────────────────────────────── helpers ───────────────────────────────*/

// rewrite returns req unchanged, or a clone with the token set when req
// shares origin with page.
func rewrite(req *http.Request, page *url.URL, token string) *http.Request {
	if req == nil || req.URL == nil || page == nil || token == "" {
		return req
	}
	if !req.URL.IsAbs() || originOf(req.URL) != originOf(page) {
		return req
	}

	out := req.Clone(req.Context())
	out.URL.RawQuery = withToken(out.URL.RawQuery, token)
	return out
}

// Link returns href with the token applied when it points at page's origin.
// Relative references count as same-origin; fragments, opaque URLs, and
// anything unparseable come back unchanged.
func Link(href string, page *url.URL, token string) string {
	if token == "" || page == nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil || u.Opaque != "" {
		return href
	}
	if u.Scheme == "" && u.Host == "" && u.Path == "" && u.RawQuery == "" {
		return href
	}
	if originOf(page.ResolveReference(u)) != originOf(page) {
		return href
	}
	u.RawQuery = withToken(u.RawQuery, token)
	return u.String()
}

// withToken sets Param in a raw query string.  Other pairs keep their order
// and spelling; the first existing Param is replaced in place and any
// repeats are dropped.
func withToken(rawQuery, token string) string {
	pair := Param + "=" + url.QueryEscape(token)
	if rawQuery == "" {
		return pair
	}

	parts := strings.Split(rawQuery, "&")
	out := parts[:0]
	set := false
	for _, p := range parts {
		k, _, _ := strings.Cut(p, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if k != Param {
			out = append(out, p)
			continue
		}
		if !set {
			out = append(out, pair)
			set = true
		}
	}
	if !set {
		out = append(out, pair)
	}
	return strings.Join(out, "&")
}

// originOf renders scheme://host:port with default ports made explicit so
// https://a.example and https://a.example:443 compare equal.
func originOf(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		switch scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}
