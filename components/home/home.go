// components/home/home.go
//
// Home component: renders "/" from the shared layout data, the CMS home
// page, the featured collection, and deferred product recommendations.
//
// Caching
// -------
// Preview responses are never stored.  Otherwise the page is marked
// "no-cache" when layout data must be revalidated (a mutation, or the same
// URL requested again) and given a one-second private lifetime when not.
package home

import (
	"embed"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/loader"
	"github.com/yanizio/storefront/internal/rootctx"
	"github.com/yanizio/storefront/internal/view"
)

//go:embed templates/*.html
var tplFS embed.FS

var _ component.Component = (*Comp)(nil)

// Comp implements component.Component; all state is per request.
type Comp struct{}

func init() { component.Register(&Comp{}) }

func (c *Comp) Name() string         { return "home" }
func (c *Comp) Migrations() []string { return nil }

func (c *Comp) Routes(r chi.Router) {
	r.Get("/", c.page)
}

func (c *Comp) page(w http.ResponseWriter, r *http.Request) {
	rc := rootctx.FromContext(r.Context())
	if rc == nil {
		fail(w, r, "root context missing", nil)
		return
	}

	root, err := loader.Root(r.Context(), rc)
	if err != nil {
		fail(w, r, "root loader", err)
		return
	}
	data, err := loader.Home(r.Context(), rc)
	if err != nil {
		fail(w, r, "home loader", err)
		return
	}

	p := view.NewPage(r, root, data)
	p.Head.SetTitle("Home")
	if data.HomePage != nil && data.HomePage.Title != "" {
		p.Head.SetDescription(data.HomePage.Title)
	}
	if rc.PreviewEnabled() {
		p.StudioURL = rc.Config.Sanity.StudioURL
	}

	w.Header().Set("Cache-Control", cacheControl(r, rc.PreviewEnabled()))
	if err := view.Render(w, "home", tplFS, "home", p); err != nil {
		fail(w, r, "render", err)
	}
}

func cacheControl(r *http.Request, preview bool) string {
	if preview {
		return "no-store"
	}
	current := ""
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" {
		current = ref.RequestURI()
	}
	if loader.ShouldRevalidate(r.Method, current, r.URL.RequestURI()) {
		return "no-cache"
	}
	return "private, max-age=1"
}

func fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	zap.S().Errorw("home", "stage", what, "path", r.URL.Path, "err", err)
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
