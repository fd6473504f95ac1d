package sanity

import (
	"context"
	"net/url"

	"go.uber.org/zap"
)

// Query parameters the studio appends to a preview URL.
const (
	ParamSecret      = "sanity-preview-secret"
	ParamPathname    = "sanity-preview-pathname"
	ParamPerspective = "sanity-preview-perspective"
)

// previewSecretQuery finds a secret document written within the last hour.
const previewSecretQuery = `*[_type == "sanity.previewUrlSecret" && secret == $secret && dateTime(_updatedAt) > dateTime(now()) - 3600][0]{_id, _updatedAt, secret, studioUrl}`

// Querier is the part of *Client the validator needs.
type Querier interface {
	Fetch(ctx context.Context, query string, params map[string]any, dst any) error
}

// Validation is the outcome of checking a preview URL.
type Validation struct {
	IsValid     bool
	RedirectTo  string
	Perspective string
	StudioURL   string
}

type secretDoc struct {
	ID        string `json:"_id"`
	UpdatedAt string `json:"_updatedAt"`
	Secret    string `json:"secret"`
	StudioURL string `json:"studioUrl"`
}

// ValidatePreviewURL checks the secret carried on rawURL against the CMS.
// The querier must be authenticated, bypass the CDN, and read the raw
// perspective so freshly written secret documents are visible.  Any failure
// yields an invalid result.
func ValidatePreviewURL(ctx context.Context, q Querier, rawURL string) Validation {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Validation{}
	}
	params := u.Query()
	secret := params.Get(ParamSecret)
	if secret == "" {
		return Validation{}
	}

	var doc secretDoc
	if err := q.Fetch(ctx, previewSecretQuery, map[string]any{"secret": secret}, &doc); err != nil {
		zap.S().Debugw("preview secret lookup failed", "err", err)
		return Validation{}
	}
	if doc.ID == "" || doc.Secret != secret {
		return Validation{}
	}

	return Validation{
		IsValid:     true,
		RedirectTo:  params.Get(ParamPathname),
		Perspective: params.Get(ParamPerspective),
		StudioURL:   doc.StudioURL,
	}
}
