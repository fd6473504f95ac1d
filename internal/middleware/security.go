// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects these headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years + preload)
//   • Content-Security-Policy   –  self plus the commerce and CMS CDNs
//   • X-Frame-Options           –  only when no studio origin is configured
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from cross-origin Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • The CMS studio embeds the storefront in an iframe for visual editing,
//   so `frame-ancestors` lists the studio origin instead of 'none'.
//   X-Frame-Options has no allow-list form, so it is dropped in that case.
// • Headers are set before next runs; handlers may override them.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// Security returns a wrapper that sets security headers.  studioURL may be
// empty, in which case framing is denied outright.
func Security(studioURL string) func(http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains; preload"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	studio := Origin(studioURL)
	ancestors := "'none'"
	if studio != "" {
		ancestors = "'self' " + studio
	}
	csp := strings.Join([]string{
		"default-src 'self'",
		"img-src 'self' data: https://cdn.shopify.com https://cdn.sanity.io",
		"connect-src 'self' https://*.sanity.io https://monorail-edge.shopifysvc.com",
		"object-src 'none'",
		"base-uri 'self'",
		"frame-ancestors " + ancestors,
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Strict-Transport-Security", hsts)
			h.Set("Content-Security-Policy", csp)
			if studio == "" {
				h.Set("X-Frame-Options", "DENY")
			}
			h.Set("X-Content-Type-Options", nosn)
			h.Set("Referrer-Policy", refer)
			h.Set("Permissions-Policy", perm)
			next.ServeHTTP(w, r)
		})
	}
}

// Origin reduces a URL to scheme://host[:port], or "" when it is not
// absolute.
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
