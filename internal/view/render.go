// internal/view/render.go
//
// Central view engine: embedded templates, func-map injection, and an LRU
// of parsed *template.Template* sets.
//
// Every page is rendered as the shared layout (view/templates/layout.html)
// plus the calling component's templates, parsed together so the layout can
// call {{ template "content" . }}.  Sets are parsed once per component and
// page name and then served from the cache.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/yanizio/storefront/internal/bypass"
	"github.com/yanizio/storefront/internal/cache"
	"github.com/yanizio/storefront/internal/head"
	"github.com/yanizio/storefront/internal/loader"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/ua"
)

//go:embed templates/*.html
var layoutFS embed.FS

// Parsed template sets; a handful of pages, so small is plenty.
var tmplLRU = cache.New("templates", 64)

// EnableVisualEditingPath is where the studio overlay posts perspective
// changes.
const EnableVisualEditingPath = "/api/preview-mode/enable"

// Page is the data every layout render receives.
type Page struct {
	Ctx  context.Context
	Head *head.Builder
	Root *loader.RootData
	UA   ua.Info

	// StudioURL is set while previewing so the overlay knows its parent.
	StudioURL string

	// Origin is the page's own scheme and host, used by AuthURL.
	Origin *url.URL

	// Data is the component's own payload.
	Data any
}

// VisualEditingAction is exposed to templates as a field-like method.
func (p Page) VisualEditingAction() string { return EnableVisualEditingPath }

// AuthURL carries the gateway bypass token onto same-origin links, so a
// visitor inside a cookie-blocked iframe can keep navigating:
//
//	<a href="{{ $.AuthURL .URL }}">
func (p Page) AuthURL(href string) string {
	if p.Root == nil {
		return href
	}
	return bypass.Link(href, p.Origin, p.Root.AuthBypassToken)
}

// NewPage seeds a Page from the request.
func NewPage(r *http.Request, root *loader.RootData, data any) Page {
	p := Page{Ctx: r.Context(), Head: head.New(), Root: root, Data: data, Origin: pageOrigin(r)}
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		p.UA = ri.UA
	}
	return p
}

// pageOrigin rebuilds scheme://host for r, honouring X-Forwarded-Proto.
func pageOrigin(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: r.Host, Path: "/"}
}

// Render executes comp's page template inside the layout and writes it to w.
// Output is buffered so a template error never leaves half a page behind.
func Render(w http.ResponseWriter, comp string, fsys fs.FS, name string, p Page) error {
	t, err := load(comp, fsys, name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s/%s: %w", comp, name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

// load parses layout + <name>.html from fsys, or returns the cached set.
func load(comp string, fsys fs.FS, name string) (*template.Template, error) {
	key := comp + "::" + name
	if v, ok := tmplLRU.Get(key); ok {
		return v.(*template.Template), nil
	}

	t, err := template.New("layout").Funcs(funcMap()).ParseFS(layoutFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if t, err = t.ParseFS(fsys, "templates/"+name+".html"); err != nil {
		return nil, fmt.Errorf("parse %s/%s: %w", comp, name, err)
	}

	tmplLRU.Add(key, t, 0)
	return t, nil
}

func funcMap() template.FuncMap {
	fm := template.FuncMap{"dict": dict}
	for k, v := range uaFuncMap() {
		fm[k] = v
	}
	return fm
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
