package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/config"
	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/rootctx"
	"github.com/yanizio/storefront/internal/sanity"
	"github.com/yanizio/storefront/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Sanity: config.Sanity{
			ProjectID:  "sx997gpv",
			Dataset:    "production",
			APIVersion: "2025-02-19",
			StudioURL:  "https://studio.example",
			ReadToken:  "skReadTokenABCDEFGHIJ",
		},
		Session: config.Session{Secrets: []string{"test-secret"}},
	}
}

// harness wires the component behind the root context middleware, the same
// way cmd/web does.
type harness struct {
	router http.Handler
	store  *session.PreviewStore
	seen   *sanity.Config
	url    *string
}

func newHarness(t *testing.T, cfg *config.Config, v sanity.Validation, opts ...Option) *harness {
	t.Helper()
	h := &harness{seen: &sanity.Config{}, url: new(string)}

	validate := func(_ context.Context, q sanity.Querier, rawURL string) sanity.Validation {
		if c, ok := q.(*sanity.Client); ok {
			*h.seen = c.Config()
		}
		*h.url = rawURL
		return v
	}
	comp := New(append([]Option{WithValidator(validate)}, opts...)...)
	require.NoError(t, comp.Init(component.Deps{Config: cfg}))

	r := chi.NewRouter()
	r.Use(rootctx.NewBuilder(cfg).Middleware)
	r.Group(comp.Routes)
	h.router = r

	var err error
	if len(cfg.Session.Secrets) > 0 {
		h.store, err = session.NewPreviewStore(cfg.Session.Secrets)
		require.NoError(t, err)
	}
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) enabledCookie(t *testing.T, perspective string) *http.Cookie {
	t.Helper()
	raw, err := h.store.Commit(session.Record{PreviewMode: true, Perspective: perspective})
	require.NoError(t, err)
	c, err := http.ParseSetCookie(raw)
	require.NoError(t, err)
	return c
}

func (h *harness) recordFrom(t *testing.T, rec *httptest.ResponseRecorder) session.Record {
	t.Helper()
	sc := rec.Header().Get("Set-Cookie")
	require.NotEmpty(t, sc)
	c, err := http.ParseSetCookie(sc)
	require.NoError(t, err)
	return h.store.Load(c.Name + "=" + c.Value)
}

const enablePath = "/api/preview-mode/enable"

func TestEnable_InvalidSecret401NoCookie(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{IsValid: false})

	rec := h.do(httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=bad", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestEnable_Valid307WithCookie(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{IsValid: true, RedirectTo: "/studio"})

	req := httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=good", nil)
	req.Host = "shop.example"
	rec := h.do(req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/studio", rec.Header().Get("Location"))
	got := h.recordFrom(t, rec)
	assert.True(t, got.PreviewMode)
	assert.Equal(t, "drafts", got.Perspective)

	assert.Contains(t, rec.Header().Get("Set-Cookie"), "SameSite=None")
	assert.Equal(t, "http://shop.example"+enablePath+"?sanity-preview-secret=good", *h.url)
}

func TestEnable_ValidatorGetsPrivilegedClient(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{IsValid: true})
	h.do(httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=good", nil))

	assert.Equal(t, "skReadTokenABCDEFGHIJ", h.seen.Token)
	assert.False(t, h.seen.UseCDN)
	assert.False(t, h.seen.Stega)
	assert.Equal(t, []string{"raw"}, h.seen.Perspective)
}

func TestEnable_PerspectiveAndDefaultRedirect(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{IsValid: true, Perspective: "rSpring,drafts"})
	rec := h.do(httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=good", nil))

	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "rSpring,drafts", h.recordFrom(t, rec).Perspective)
}

func TestEnable_OffsiteRedirectCollapses(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{IsValid: true, RedirectTo: "//evil.example/x"})
	rec := h.do(httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=good", nil))
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestEnable_MissingReadToken500(t *testing.T) {
	cfg := testConfig()
	cfg.Sanity.ReadToken = ""
	h := newHarness(t, cfg, sanity.Validation{IsValid: true})

	rec := h.do(httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=good", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestEnable_MissingSessionSecret500(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Secrets = nil
	h := newHarness(t, cfg, sanity.Validation{IsValid: true})

	rec := h.do(httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=good", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type memLedger map[string]bool

func (m memLedger) Consume(_ context.Context, s string) (bool, error) {
	if m[s] {
		return false, nil
	}
	m[s] = true
	return true, nil
}

type brokenLedger struct{}

func (brokenLedger) Consume(context.Context, string) (bool, error) {
	return false, errors.New("db down")
}

func TestEnable_SingleUseRejectsReplay(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{IsValid: true}, WithLedger(memLedger{}))
	target := enablePath + "?sanity-preview-secret=once"

	first := h.do(httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusTemporaryRedirect, first.Code)

	again := h.do(httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusUnauthorized, again.Code)
	assert.Empty(t, again.Header().Values("Set-Cookie"))
}

func TestEnable_LedgerErrorFailsClosed(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{IsValid: true}, WithLedger(brokenLedger{}))
	rec := h.do(httptest.NewRequest(http.MethodGet, enablePath+"?sanity-preview-secret=x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func putPerspective(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPut, enablePath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPut_ChangesPerspectiveWhileEnabled(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{})
	req := putPerspective(url.Values{"perspective": {"published"}})
	req.AddCookie(h.enabledCookie(t, "drafts"))

	rec := h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	got := h.recordFrom(t, rec)
	assert.True(t, got.PreviewMode)
	assert.Equal(t, "published", got.Perspective)
}

func TestPut_AbsentFieldIsNoOp(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{})
	req := putPerspective(url.Values{})
	req.AddCookie(h.enabledCookie(t, "rSpring"))

	rec := h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.Record{PreviewMode: true, Perspective: "rSpring"}, h.recordFrom(t, rec))
}

func TestPut_RejectedWhenNotEnabled(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{})
	rec := h.do(putPerspective(url.Values{"perspective": {"drafts"}}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestPostAndDelete_ClearCookie(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{})
	for _, m := range []string{http.MethodPost, http.MethodDelete} {
		req := httptest.NewRequest(m, enablePath, nil)
		req.AddCookie(h.enabledCookie(t, "drafts"))
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code, m)
		sc := rec.Header().Get("Set-Cookie")
		assert.Contains(t, sc, "__sanity_preview=", m)
		assert.Contains(t, sc, "Max-Age=0", m)
	}
}

func TestDisable_RedirectsAndClears(t *testing.T) {
	h := newHarness(t, testConfig(), sanity.Validation{})

	cases := []struct{ target, want string }{
		{"/api/preview-mode/disable", "/"},
		{"/api/preview-mode/disable?redirect=%2Fproducts%2Fmat", "/products/mat"},
		{"/api/preview-mode/disable?redirect=https://evil.example", "/"},
	}
	for _, tc := range cases {
		rec := h.do(httptest.NewRequest(http.MethodGet, tc.target, nil))
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, tc.target)
		assert.Equal(t, tc.want, rec.Header().Get("Location"), tc.target)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0", tc.target)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestErrorCounter_OnlyCountsEnable(t *testing.T) {
	errs := metrics.PreviewEnableTotal.WithLabelValues("error")
	c := New()

	before := counterValue(t, errs)
	for _, h := range []http.HandlerFunc{c.clear, c.disable, c.changePerspective} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	assert.Equal(t, before, counterValue(t, errs))

	rec := httptest.NewRecorder()
	c.enable(rec, httptest.NewRequest(http.MethodGet, enablePath, nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, before+1, counterValue(t, errs))
}

func TestInit_SingleUseNeedsDB(t *testing.T) {
	cfg := testConfig()
	cfg.Preview.SingleUseSecrets = true
	err := New().Init(component.Deps{Config: cfg})
	assert.Error(t, err)
}

func TestLocalPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/studio", "/studio"},
		{"/a?b=c", "/a?b=c"},
		{"//evil.example", "/"},
		{"/\\evil.example", "/"},
		{"https://evil.example/", "/"},
		{"relative", "/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, localPath(tc.in), tc.in)
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "", prefix(""))
	assert.Equal(t, "...", prefix("short"))
	assert.Equal(t, "skReadTokenA...", prefix("skReadTokenABCDEFGHIJ"))
}
