// internal/session/preview.go
//
// Preview-mode session.
//
// Context
//   The CMS studio embeds the storefront in a cross-origin iframe, so the
//   preview cookie must be `SameSite=None; Secure`.  The record holds two
//   fields: the preview flag and an optional perspective (comma-separated
//   when the studio asks for a release stack).
//
//   Perspective is meaningful only while PreviewMode is true.  Options()
//   enforces that for content queries.
//
//------------------------------------------------------------------------------

package session

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	// PreviewCookieName is the cookie the studio round-trips.
	PreviewCookieName = "__sanity_preview"

	// DefaultPerspective is used when preview is on and none was chosen.
	DefaultPerspective = "drafts"

	// PublishedPerspective is used whenever preview is off.
	PublishedPerspective = "published"
)

// Record is the preview session payload.
type Record struct {
	PreviewMode bool   `json:"previewMode"`
	Perspective string `json:"perspective,omitempty"`
}

// Set mutates one field by its wire name.
func (r *Record) Set(field string, value any) error {
	switch field {
	case "previewMode":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("session: previewMode wants bool, got %T", value)
		}
		r.PreviewMode = b
	case "perspective":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("session: perspective wants string, got %T", value)
		}
		r.Perspective = s
	default:
		return fmt.Errorf("session: unknown field %q", field)
	}
	return nil
}

// QueryOptions steer CMS content queries for one request.
type QueryOptions struct {
	Perspective []string
	Stega       bool
}

// Options derives query options.  Published content, no stega overlay,
// unless preview mode is on.
func (r Record) Options() QueryOptions {
	if !r.PreviewMode {
		return QueryOptions{Perspective: []string{PublishedPerspective}}
	}
	p := []string{DefaultPerspective}
	if r.Perspective != "" {
		p = strings.Split(r.Perspective, ",")
	}
	return QueryOptions{Perspective: p, Stega: true}
}

// PreviewStore wraps Store with the preview cookie's fixed attributes.
type PreviewStore struct {
	store *Store
}

// NewPreviewStore builds the `__sanity_preview` codec.
func NewPreviewStore(secrets []string) (*PreviewStore, error) {
	s, err := NewStore(CookieOptions{
		Name:     PreviewCookieName,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}, secrets)
	if err != nil {
		return nil, err
	}
	return &PreviewStore{store: s}, nil
}

// Load parses a `Cookie` header.  Anything unreadable yields the disabled
// record.
func (p *PreviewStore) Load(cookieHeader string) Record {
	var rec Record
	if !p.store.Decode(cookieHeader, &rec) {
		return Record{}
	}
	return rec
}

// LoadRequest is Load applied to r's Cookie header.
func (p *PreviewStore) LoadRequest(r *http.Request) Record {
	return p.Load(r.Header.Get("Cookie"))
}

// Commit returns the `Set-Cookie` value for rec.
func (p *PreviewStore) Commit(rec Record) (string, error) {
	return p.store.Encode(rec)
}

// Destroy returns the clearing `Set-Cookie` value.
func (p *PreviewStore) Destroy() string {
	return p.store.Clear()
}
