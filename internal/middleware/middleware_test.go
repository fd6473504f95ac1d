package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://shop.example/cart?x=1", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "https://shop.example/cart?x=1", rec.Header().Get("Location"))

	for name, req := range map[string]*http.Request{
		"localhost": httptest.NewRequest(http.MethodGet, "http://localhost:3000/", nil),
		"loopback":  httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8080/", nil),
		"proxied": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "http://shop.example/", nil)
			r.Header.Set("X-Forwarded-Proto", "https")
			return r
		}(),
		"tls": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "https://shop.example/", nil)
			r.TLS = &tls.ConnectionState{}
			return r
		}(),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, name)
	}
}

func TestForceHTTPS_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	ForceHTTPS(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://shop.example/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecurity_AllowsStudioFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	Security("https://meditate-with-eve.sanity.studio/desk")(ok).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "frame-ancestors 'self' https://meditate-with-eve.sanity.studio")
	assert.Empty(t, rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSecurity_NoStudioDeniesFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	Security("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestPreviewCORS(t *testing.T) {
	h := PreviewCORS("https://meditate-with-eve.sanity.studio")(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/preview-mode/enable", nil)
	req.Header.Set("Origin", "https://meditate-with-eve.sanity.studio")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://meditate-with-eve.sanity.studio", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/preview-mode/enable", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreviewCORS_NoStudioAllowsNoOrigin(t *testing.T) {
	h := PreviewCORS("")(ok)

	req := httptest.NewRequest(http.MethodGet, "/api/preview-mode/enable", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRequestLog_OmitsQuery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	RequestLog(ok).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/preview-mode/enable?sanity-preview-secret=abc", nil))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "/api/preview-mode/enable", fields["path"])
		assert.EqualValues(t, http.StatusNoContent, fields["status"])
		for _, v := range fields {
			if s, isStr := v.(string); isStr {
				assert.NotContains(t, s, "abc")
			}
		}
	}
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "https://a.example:8443", Origin("https://a.example:8443/x?y"))
	assert.Empty(t, Origin("/relative"))
}
