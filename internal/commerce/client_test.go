package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/storefront/internal/cache"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeStorefront answers every request with body and records what it saw.
func fakeStorefront(t *testing.T, body string) (*httptest.Server, *int32, *gqlRequest) {
	t.Helper()
	var calls int32
	last := &gqlRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "pub-token", r.Header.Get(TokenHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(last))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, last
}

func newTestClient(srv *httptest.Server, c *cache.LRU, i18n I18n) *Client {
	return New(Config{StoreDomain: "shop.example", APIToken: "pub-token", APIVersion: "2025-07"},
		i18n, c, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
}

func TestNew_DerivesEndpointAndDefaults(t *testing.T) {
	c := New(Config{StoreDomain: "shop.example", APIVersion: "2025-07"}, I18n{}, nil)
	assert.Equal(t, "https://shop.example/api/2025-07/graphql.json", c.Endpoint())
	assert.Equal(t, DefaultI18n, c.I18n())
}

func TestHeader_SendsMenuHandleAndContext(t *testing.T) {
	srv, _, last := fakeStorefront(t,
		`{"data":{"shop":{"id":"gid://shopify/Shop/1","name":"Eve"},"menu":{"id":"m1","items":[{"id":"i1","title":"Shop","url":"/collections/all","items":[]}]}}}`)
	c := newTestClient(srv, nil, I18n{Country: "CA", Language: "FR"})

	h, err := c.Header(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Eve", h.Shop.Name)
	require.NotNil(t, h.Menu)
	assert.Equal(t, "Shop", h.Menu.Items[0].Title)

	assert.Equal(t, "main-menu", last.Variables["headerMenuHandle"])
	assert.Equal(t, "CA", last.Variables["country"])
	assert.Equal(t, "FR", last.Variables["language"])
	assert.Contains(t, last.Query, "@inContext")
}

func TestHeader_CachedLong(t *testing.T) {
	srv, calls, _ := fakeStorefront(t, `{"data":{"shop":{"name":"Eve"},"menu":null}}`)
	c := newTestClient(srv, cache.New("commerce-test", 16), DefaultI18n)

	for i := 0; i < 3; i++ {
		_, err := c.Header(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestCacheKey_SeparatesLocales(t *testing.T) {
	srv, calls, _ := fakeStorefront(t, `{"data":{"menu":null}}`)
	lru := cache.New("commerce-test", 16)

	_, err := newTestClient(srv, lru, I18n{Country: "US", Language: "EN"}).Footer(context.Background())
	require.NoError(t, err)
	_, err = newTestClient(srv, lru, I18n{Country: "DE", Language: "DE"}).Footer(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestFeaturedCollection(t *testing.T) {
	srv, _, _ := fakeStorefront(t,
		`{"data":{"collections":{"nodes":[{"id":"c1","title":"Mats","handle":"mats","image":{"url":"https://cdn/x.jpg"}}]}}}`)
	c := newTestClient(srv, nil, DefaultI18n)

	col, err := c.FeaturedCollection(context.Background())
	require.NoError(t, err)
	require.NotNil(t, col)
	assert.Equal(t, "mats", col.Handle)
	assert.Equal(t, "https://cdn/x.jpg", col.Image.URL)
}

func TestFeaturedCollection_Empty(t *testing.T) {
	srv, _, _ := fakeStorefront(t, `{"data":{"collections":{"nodes":[]}}}`)
	col, err := newTestClient(srv, nil, DefaultI18n).FeaturedCollection(context.Background())
	require.NoError(t, err)
	assert.Nil(t, col)
}

func TestRecommendedProducts(t *testing.T) {
	srv, _, _ := fakeStorefront(t,
		`{"data":{"products":{"nodes":[{"id":"p1","title":"Cushion","handle":"cushion","priceRange":{"minVariantPrice":{"amount":"25.0","currencyCode":"USD"}}}]}}}`)
	ps, err := newTestClient(srv, nil, DefaultI18n).RecommendedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "25.0", ps[0].PriceRange.MinVariantPrice.Amount)
}

func TestQuery_GraphQLErrorNotCached(t *testing.T) {
	srv, calls, _ := fakeStorefront(t, `{"errors":[{"message":"Throttled"}]}`)
	c := newTestClient(srv, cache.New("commerce-test", 16), DefaultI18n)

	_, err := c.Footer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttled")

	_, err = c.Footer(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}
