// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page's
// <head> element.  It is scoped to a single request.  Handlers push
// structured entries, and the layout emits them with one {{ .Head.HTML }}.
//
// Features
// --------
//   - SetTitle, SetDescription – single-value fields (last call wins).
//   - Meta, Link, Script       – structured tags, deduplicated, escaped on
//     output so CMS-sourced strings cannot break out of attributes.
//   - JSONLD                   – structured data blocks.
package head

import (
	"encoding/json"
	"html/template"
	"strings"
	"sync"
)

// TitleSuffix is appended to every page title.
const TitleSuffix = "Hydrogen"

// Builder is safe for use from the handler and its loaders concurrently.
type Builder struct {
	mu sync.Mutex

	title       string
	description string

	tags   []string // pre-rendered, escaped
	jsonLD []string

	seen map[string]struct{}
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// SetTitle overrides the page title.
func (b *Builder) SetTitle(t string) {
	b.mu.Lock()
	b.title = t
	b.mu.Unlock()
}

// SetDescription overrides the meta description.
func (b *Builder) SetDescription(d string) {
	b.mu.Lock()
	b.description = d
	b.mu.Unlock()
}

// Meta adds <meta name=… content=…>.
func (b *Builder) Meta(name, content string) {
	b.add("meta:"+name, `<meta name="`+esc(name)+`" content="`+esc(content)+`">`)
}

// Link adds <link rel=… href=…>.
func (b *Builder) Link(rel, href string) {
	b.add("link:"+rel+href, `<link rel="`+esc(rel)+`" href="`+esc(href)+`">`)
}

// Script adds an external deferred script.
func (b *Builder) Script(src string) {
	b.add("script:"+src, `<script defer src="`+esc(src)+`"></script>`)
}

// JSONLD adds a structured-data block.  Values that fail to marshal are
// dropped.
func (b *Builder) JSONLD(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.jsonLD = append(b.jsonLD, string(raw))
	b.mu.Unlock()
}

func (b *Builder) add(key, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	b.tags = append(b.tags, tag)
}

// Title returns "<title> | suffix", or the suffix alone.
func (b *Builder) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.title == "" {
		return TitleSuffix
	}
	return TitleSuffix + " | " + b.title
}

// HTML renders every collected entry for the layout.
func (b *Builder) HTML() template.HTML {
	title := b.Title()

	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("<title>" + esc(title) + "</title>")
	if b.description != "" {
		sb.WriteString(`<meta name="description" content="` + esc(b.description) + `">`)
	}
	for _, t := range b.tags {
		sb.WriteString(t)
	}
	for _, js := range b.jsonLD {
		// json.Marshal escapes <, >, and & so the payload cannot close the tag.
		sb.WriteString(`<script type="application/ld+json">` + js + `</script>`)
	}
	return template.HTML(sb.String())
}

func esc(s string) string { return template.HTMLEscapeString(s) }
