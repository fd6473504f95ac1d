package commerce

import (
	"context"

	"github.com/yanizio/storefront/internal/cache"
)

// Menu handles requested by the layout.
const (
	HeaderMenuHandle = "main-menu"
	FooterMenuHandle = "footer"
)

const menuFragment = `
fragment MenuItem on MenuItem {
  id
  resourceId
  tags
  title
  type
  url
}
fragment ParentMenuItem on MenuItem {
  ...MenuItem
  items { ...MenuItem }
}
fragment Menu on Menu {
  id
  items { ...ParentMenuItem }
}`

// HeaderQuery fetches shop basics and the main navigation.
const HeaderQuery = `query Header($country: CountryCode, $headerMenuHandle: String!, $language: LanguageCode)
  @inContext(language: $language, country: $country) {
  shop {
    id
    name
    description
    primaryDomain { url }
    brand { logo { image { url } } }
  }
  menu(handle: $headerMenuHandle) { ...Menu }
}` + menuFragment

// FooterQuery fetches the footer navigation.
const FooterQuery = `query Footer($country: CountryCode, $footerMenuHandle: String!, $language: LanguageCode)
  @inContext(language: $language, country: $country) {
  menu(handle: $footerMenuHandle) { ...Menu }
}` + menuFragment

// FeaturedCollectionQuery fetches the most recently updated collection.
const FeaturedCollectionQuery = `query FeaturedCollection($country: CountryCode, $language: LanguageCode)
  @inContext(country: $country, language: $language) {
  collections(first: 1, sortKey: UPDATED_AT, reverse: true) {
    nodes {
      id
      title
      handle
      image { id url altText width height }
    }
  }
}`

// RecommendedProductsQuery fetches a handful of recently updated products.
const RecommendedProductsQuery = `query RecommendedProducts($country: CountryCode, $language: LanguageCode)
  @inContext(country: $country, language: $language) {
  products(first: 4, sortKey: UPDATED_AT, reverse: true) {
    nodes {
      id
      title
      handle
      priceRange { minVariantPrice { amount currencyCode } }
      featuredImage { id url altText width height }
    }
  }
}`

type Image struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type MenuItem struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resourceId"`
	Tags       []string   `json:"tags"`
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	URL        string     `json:"url"`
	Items      []MenuItem `json:"items"`
}

type Menu struct {
	ID    string     `json:"id"`
	Items []MenuItem `json:"items"`
}

type Shop struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PrimaryDomain struct {
		URL string `json:"url"`
	} `json:"primaryDomain"`
}

type Header struct {
	Shop Shop  `json:"shop"`
	Menu *Menu `json:"menu"`
}

type Footer struct {
	Menu *Menu `json:"menu"`
}

type Collection struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
	Image  *Image `json:"image"`
}

type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type Product struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Handle     string `json:"handle"`
	PriceRange struct {
		MinVariantPrice Money `json:"minVariantPrice"`
	} `json:"priceRange"`
	FeaturedImage *Image `json:"featuredImage"`
}

// Header loads shop info and the main menu (long-cached).
func (c *Client) Header(ctx context.Context) (*Header, error) {
	var out Header
	err := c.Query(ctx, "Header", HeaderQuery,
		map[string]any{"headerMenuHandle": HeaderMenuHandle}, cache.CacheLong, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Footer loads the footer menu (long-cached).
func (c *Client) Footer(ctx context.Context) (*Footer, error) {
	var out Footer
	err := c.Query(ctx, "Footer", FooterQuery,
		map[string]any{"footerMenuHandle": FooterMenuHandle}, cache.CacheLong, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FeaturedCollection returns the first collection, or nil when the shop has
// none.
func (c *Client) FeaturedCollection(ctx context.Context) (*Collection, error) {
	var out struct {
		Collections struct {
			Nodes []Collection `json:"nodes"`
		} `json:"collections"`
	}
	if err := c.Query(ctx, "FeaturedCollection", FeaturedCollectionQuery, nil, cache.CacheShort, &out); err != nil {
		return nil, err
	}
	if len(out.Collections.Nodes) == 0 {
		return nil, nil
	}
	return &out.Collections.Nodes[0], nil
}

// RecommendedProducts returns up to four recently updated products.
func (c *Client) RecommendedProducts(ctx context.Context) ([]Product, error) {
	var out struct {
		Products struct {
			Nodes []Product `json:"nodes"`
		} `json:"products"`
	}
	if err := c.Query(ctx, "RecommendedProducts", RecommendedProductsQuery, nil, cache.CacheShort, &out); err != nil {
		return nil, err
	}
	return out.Products.Nodes, nil
}
