// internal/rootctx/rootctx.go
//
// Per-request root context.
//
// Context
// -------
// Every page and API route needs the same handles: the shared query cache,
// the shopper's app session, the preview session, a CMS client configured
// for the current perspective, and a Storefront client localised for the
// visitor.  The Builder assembles them once per request, opening the cache
// and decoding both cookies concurrently, and the Middleware stores the
// result in the request context.
//
// A missing session secret fails every request with 500.  There is no
// development fallback secret.
package rootctx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/storefront/internal/bypass"
	"github.com/yanizio/storefront/internal/cache"
	"github.com/yanizio/storefront/internal/commerce"
	"github.com/yanizio/storefront/internal/config"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/sanity"
	"github.com/yanizio/storefront/internal/session"
)

// CacheName is the query cache handle shared by all requests.
const CacheName = "storefront"

// Context is what loaders and handlers receive.
type Context struct {
	Config *config.Config
	Cache  *cache.LRU

	Session session.AppRecord

	Preview      session.Record
	PreviewStore *session.PreviewStore

	Sanity     *sanity.Client
	Storefront *commerce.Client
	I18n       commerce.I18n

	AuthBypassToken string
}

// PreviewEnabled reports whether content should be read in preview.
func (c *Context) PreviewEnabled() bool { return c.Preview.PreviewMode }

// ValidationClient returns the CMS client used to check preview secrets:
// authenticated with the read token, off the CDN, reading the raw
// perspective, stega off.
func (c *Context) ValidationClient() (*sanity.Client, error) {
	if c.Config.Sanity.ReadToken == "" {
		return nil, config.ErrMissingReadToken
	}
	return c.Sanity.WithConfig(func(cfg *sanity.Config) {
		cfg.Token = c.Config.Sanity.ReadToken
		cfg.UseCDN = false
		cfg.Perspective = []string{sanity.PerspectiveRaw}
		cfg.Stega = false
	}), nil
}

/*──────────────────────────────── builder ───────────────────────────────*/

// Builder produces a Context per request.  Safe for concurrent use.
type Builder struct {
	cfg      *config.Config
	app      *session.AppStore
	preview  *session.PreviewStore
	storeErr error

	base         *sanity.Client
	commerceOpts []commerce.Option
	openCache    func(string) (*cache.LRU, error)
}

// Option customises NewBuilder.
type Option func(*builderOptions)

type builderOptions struct {
	sanityOpts   []sanity.Option
	commerceOpts []commerce.Option
	openCache    func(string) (*cache.LRU, error)
}

// WithSanityOptions forwards options to the CMS client.
func WithSanityOptions(opts ...sanity.Option) Option {
	return func(o *builderOptions) { o.sanityOpts = append(o.sanityOpts, opts...) }
}

// WithCommerceOptions forwards options to every Storefront client.
func WithCommerceOptions(opts ...commerce.Option) Option {
	return func(o *builderOptions) { o.commerceOpts = append(o.commerceOpts, opts...) }
}

// WithCacheOpener replaces cache.Open.
func WithCacheOpener(fn func(string) (*cache.LRU, error)) Option {
	return func(o *builderOptions) { o.openCache = fn }
}

// NewBuilder prepares the session codecs and base CMS client.  Codec
// construction errors are kept and reported by every Build call.
func NewBuilder(cfg *config.Config, opts ...Option) *Builder {
	o := builderOptions{openCache: cache.Open}
	for _, fn := range opts {
		fn(&o)
	}

	b := &Builder{
		cfg:          cfg,
		commerceOpts: o.commerceOpts,
		openCache:    o.openCache,
		base: sanity.New(sanity.Config{
			ProjectID:  cfg.Sanity.ProjectID,
			Dataset:    cfg.Sanity.Dataset,
			APIVersion: cfg.Sanity.APIVersion,
			UseCDN:     true,
			StudioURL:  cfg.Sanity.StudioURL,
		}, o.sanityOpts...),
	}

	var err error
	if b.app, err = session.NewAppStore(cfg.Session.Secrets, cfg.Session.MaxAge); err != nil {
		b.storeErr = codecErr(err)
		return b
	}
	if b.preview, err = session.NewPreviewStore(cfg.Session.Secrets); err != nil {
		b.storeErr = codecErr(err)
	}
	return b
}

func codecErr(err error) error {
	if errors.Is(err, session.ErrNoSecrets) {
		return config.ErrMissingSessionSecret
	}
	return fmt.Errorf("session codec: %w", err)
}

// Build assembles the Context for r.
func (b *Builder) Build(r *http.Request) (*Context, error) {
	if b.storeErr != nil {
		return nil, b.storeErr
	}

	var (
		lru     *cache.LRU
		appRec  session.AppRecord
		preview session.Record
	)
	g, _ := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		lru, err = b.openCache(CacheName)
		return err
	})
	g.Go(func() error {
		appRec = b.app.Load(r)
		return nil
	})
	g.Go(func() error {
		preview = b.preview.LoadRequest(r)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("root context: %w", err)
	}

	i18n := requestinfo.FromContext(r.Context()).I18n()
	opts := preview.Options()
	cms := b.base.WithConfig(func(c *sanity.Config) {
		c.Perspective = opts.Perspective
		c.Stega = opts.Stega
		if preview.PreviewMode {
			c.Token = b.cfg.Sanity.ReadToken
			c.UseCDN = false
		}
	})

	return &Context{
		Config:       b.cfg,
		Cache:        lru,
		Session:      appRec,
		Preview:      preview,
		PreviewStore: b.preview,
		Sanity:       cms,
		Storefront: commerce.New(commerce.Config{
			StoreDomain: b.cfg.Storefront.StoreDomain,
			APIToken:    b.cfg.Storefront.APIToken,
			APIVersion:  b.cfg.Storefront.APIVersion,
		}, i18n, lru, b.commerceOpts...),
		I18n:            i18n,
		AuthBypassToken: bypass.Token(r),
	}, nil
}

/*────────────────────────────── middleware ──────────────────────────────*/

type ctxKey struct{}

// Middleware builds the Context and stores it for FromContext.  Build
// failures end the request with 500.
func (b *Builder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := b.Build(r)
		if err != nil {
			zap.S().Errorw("root context", "err", err, "path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), rc)))
	})
}

// WithContext returns a copy of ctx carrying rc.
func WithContext(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the Context stored by Middleware, or nil.
func FromContext(ctx context.Context) *Context {
	rc, _ := ctx.Value(ctxKey{}).(*Context)
	return rc
}
