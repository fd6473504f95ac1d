package loader

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yanizio/storefront/internal/commerce"
	"github.com/yanizio/storefront/internal/rootctx"
)

// HomePageQuery selects the marketing page with slug "home".
const HomePageQuery = `*[_type == "marketingPage" && slug.current == "home"][0]{
  _id,
  title,
  "slug": slug.current,
  sections[]{
    _type,
    _key,
    title,
    headlineText
  }
}`

// Span is a run of text inside a portable-text block.
type Span struct {
	Text string `json:"text"`
}

// Block is one portable-text block.
type Block struct {
	Type     string `json:"_type"`
	Children []Span `json:"children"`
}

// Section is one marketing page section.
type Section struct {
	Type         string  `json:"_type"`
	Key          string  `json:"_key"`
	Title        string  `json:"title"`
	HeadlineText []Block `json:"headlineText"`
}

// Headline flattens HeadlineText into plain text.
func (s Section) Headline() string {
	var parts []string
	for _, b := range s.HeadlineText {
		for _, c := range b.Children {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// HomePage is the CMS document behind "/".
type HomePage struct {
	ID       string    `json:"_id"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug"`
	Sections []Section `json:"sections"`
}

// HomeData feeds the home template.
type HomeData struct {
	FeaturedCollection  *commerce.Collection
	HomePage            *HomePage
	RecommendedProducts *Deferred[[]commerce.Product]
}

// Home loads the featured collection and CMS home page concurrently and
// defers recommended products.
func Home(ctx context.Context, rc *rootctx.Context) (*HomeData, error) {
	out := &HomeData{
		RecommendedProducts: Defer(ctx, "recommended_products", rc.Storefront.RecommendedProducts),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		col, err := rc.Storefront.FeaturedCollection(gctx)
		out.FeaturedCollection = col
		return err
	})
	g.Go(func() error {
		var page HomePage
		if err := rc.Sanity.Fetch(gctx, HomePageQuery, nil, &page); err != nil {
			return err
		}
		if page.ID != "" {
			out.HomePage = &page
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
