// components/preview/preview.go
//
// Preview-mode component: the CMS studio's entry point into draft content.
//
// Routes
// ------
//
//	GET    /api/preview-mode/enable   – validate secret, set cookie, 307
//	PUT    /api/preview-mode/enable   – change perspective while enabled
//	POST   /api/preview-mode/enable   – clear cookie, 200
//	DELETE /api/preview-mode/enable   – clear cookie, 200
//	GET    /api/preview-mode/disable  – clear cookie, 307 to ?redirect
//
// State lives entirely in the signed `__sanity_preview` cookie.  A PUT is
// accepted only from a browser that already holds an enabled cookie; the
// signature is the authorisation.  With `preview.single_use_secrets` set,
// each secret is also consumed in the SQL ledger so a leaked preview URL
// cannot be replayed.
package preview

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/middleware"
	ledger "github.com/yanizio/storefront/internal/preview"
	"github.com/yanizio/storefront/internal/rootctx"
	"github.com/yanizio/storefront/internal/sanity"
	"github.com/yanizio/storefront/internal/session"
)

// compile-time assertions
var (
	_ component.Component   = (*Comp)(nil)
	_ component.Initializer = (*Comp)(nil)
)

// ValidateFunc checks a preview URL with an authenticated CMS client.
type ValidateFunc func(ctx context.Context, q sanity.Querier, rawURL string) sanity.Validation

// SecretLedger consumes preview secrets; *ledger.Ledger satisfies it.
type SecretLedger interface {
	Consume(ctx context.Context, secret string) (bool, error)
}

// Comp implements component.Component.
type Comp struct {
	validate  ValidateFunc
	ledger    SecretLedger
	studioURL string
}

// Option customises New.
type Option func(*Comp)

// WithValidator swaps the CMS validator.
func WithValidator(fn ValidateFunc) Option { return func(c *Comp) { c.validate = fn } }

// WithLedger enables single-use secrets with l.
func WithLedger(l SecretLedger) Option { return func(c *Comp) { c.ledger = l } }

// New returns the component with the real CMS validator.
func New(opts ...Option) *Comp {
	c := &Comp{validate: sanity.ValidatePreviewURL}
	for _, o := range opts {
		o(c)
	}
	return c
}

func init() { component.Register(New()) }

func (c *Comp) Name() string { return "preview" }

// Migrations returns the ledger table; cmd/web applies it only when a SQL
// pool is configured.
func (c *Comp) Migrations() []string { return []string{ledger.Schema} }

// Init wires the ledger when single-use secrets are on.
func (c *Comp) Init(d component.Deps) error {
	if d.Config == nil {
		return nil
	}
	c.studioURL = d.Config.Sanity.StudioURL
	if d.Config.Preview.SingleUseSecrets && c.ledger == nil {
		if d.DB == nil {
			return errors.New("preview: single-use secrets need a ledger database")
		}
		c.ledger = ledger.NewLedger(d.DB)
	}
	return nil
}

func (c *Comp) Routes(r chi.Router) {
	r.Route("/api/preview-mode", func(api chi.Router) {
		api.Use(middleware.PreviewCORS(c.studioURL))
		api.Get("/enable", c.enable)
		api.Put("/enable", c.changePerspective)
		api.Post("/enable", c.clear)
		api.Delete("/enable", c.clear)
		api.Get("/disable", c.disable)
	})
}

/*──────────────────────────────── handlers ──────────────────────────────*/

func (c *Comp) enable(w http.ResponseWriter, r *http.Request) {
	rc := rootctx.FromContext(r.Context())
	if rc == nil {
		enableError(w, r, errors.New("root context missing"))
		return
	}

	client, err := rc.ValidationClient()
	if err != nil {
		enableError(w, r, err)
		return
	}

	secret := r.URL.Query().Get(sanity.ParamSecret)
	cfg := client.Config()
	zap.S().Debugw("preview enable",
		"dataset", cfg.Dataset,
		"project_id", cfg.ProjectID,
		"has_token", cfg.Token != "",
		"token_prefix", prefix(cfg.Token),
		"has_secret", secret != "",
		"secret_prefix", prefix(secret),
	)

	v := c.validate(r.Context(), client, absoluteURL(r))
	zap.S().Debugw("preview secret checked",
		"valid", v.IsValid,
		"redirect_to", v.RedirectTo,
		"studio_url", v.StudioURL,
	)
	if !v.IsValid {
		metrics.PreviewEnableTotal.WithLabelValues("invalid").Inc()
		http.Error(w, "Invalid secret", http.StatusUnauthorized)
		return
	}

	if c.ledger != nil {
		first, err := c.ledger.Consume(r.Context(), secret)
		if err != nil {
			enableError(w, r, err)
			return
		}
		if !first {
			metrics.PreviewEnableTotal.WithLabelValues("replayed").Inc()
			http.Error(w, "Invalid secret", http.StatusUnauthorized)
			return
		}
	}

	rec := session.Record{PreviewMode: true, Perspective: v.Perspective}
	if rec.Perspective == "" {
		rec.Perspective = session.DefaultPerspective
	}
	cookie, err := rc.PreviewStore.Commit(rec)
	if err != nil {
		enableError(w, r, err)
		return
	}

	metrics.PreviewEnableTotal.WithLabelValues("enabled").Inc()
	w.Header().Add("Set-Cookie", cookie)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, localPath(v.RedirectTo), http.StatusTemporaryRedirect)
}

func (c *Comp) changePerspective(w http.ResponseWriter, r *http.Request) {
	rc := rootctx.FromContext(r.Context())
	if rc == nil {
		serverError(w, r, errors.New("root context missing"))
		return
	}
	if !rc.Preview.PreviewMode {
		http.Error(w, "Preview mode is not enabled", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form", http.StatusBadRequest)
		return
	}

	rec := rc.Preview
	if p := strings.TrimSpace(r.PostForm.Get("perspective")); p != "" {
		if err := rec.Set("perspective", p); err != nil {
			serverError(w, r, err)
			return
		}
		metrics.PreviewPerspectiveChangeTotal.Inc()
	}

	cookie, err := rc.PreviewStore.Commit(rec)
	if err != nil {
		serverError(w, r, err)
		return
	}
	w.Header().Add("Set-Cookie", cookie)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}

func (c *Comp) clear(w http.ResponseWriter, r *http.Request) {
	rc := rootctx.FromContext(r.Context())
	if rc == nil {
		serverError(w, r, errors.New("root context missing"))
		return
	}
	metrics.PreviewDisableTotal.Inc()
	w.Header().Add("Set-Cookie", rc.PreviewStore.Destroy())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}

func (c *Comp) disable(w http.ResponseWriter, r *http.Request) {
	rc := rootctx.FromContext(r.Context())
	if rc == nil {
		serverError(w, r, errors.New("root context missing"))
		return
	}
	metrics.PreviewDisableTotal.Inc()
	w.Header().Add("Set-Cookie", rc.PreviewStore.Destroy())
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, localPath(r.URL.Query().Get("redirect")), http.StatusTemporaryRedirect)
}

/*──────────────────────────────── helpers ───────────────────────────────*/

// enableError is serverError plus the enable outcome counter.
func enableError(w http.ResponseWriter, r *http.Request, err error) {
	metrics.PreviewEnableTotal.WithLabelValues("error").Inc()
	serverError(w, r, err)
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zap.S().Errorw("preview route", "path", r.URL.Path, "method", r.Method, "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// localPath returns target when it is a same-site absolute path, else "/".
func localPath(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return target
}

// absoluteURL rebuilds the public URL of r for the validator.
func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// prefix shows the first 12 characters of a secret for diagnostics.
// Anything that short is hidden entirely.
func prefix(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 12:
		return "..."
	}
	return s[:12] + "..."
}
