package sanity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		ProjectID:  "sx997gpv",
		Dataset:    "production",
		APIVersion: "2025-02-19",
		UseCDN:     true,
	}
}

func TestEndpoint_CDNOnlyWithoutToken(t *testing.T) {
	c := New(baseConfig())
	assert.Equal(t, "https://sx997gpv.apicdn.sanity.io/v2025-02-19/data/query/production", c.Endpoint())

	authed := c.WithConfig(func(cfg *Config) { cfg.Token = "sk" })
	assert.Equal(t, "https://sx997gpv.api.sanity.io/v2025-02-19/data/query/production", authed.Endpoint())

	live := c.WithConfig(func(cfg *Config) { cfg.UseCDN = false })
	assert.Contains(t, live.Endpoint(), ".api.sanity.io")
}

func TestWithConfig_DoesNotMutateReceiver(t *testing.T) {
	c := New(Config{Perspective: []string{"published"}})
	d := c.WithConfig(func(cfg *Config) {
		cfg.Token = "tok"
		cfg.Perspective[0] = "drafts"
	})

	assert.Empty(t, c.Config().Token)
	assert.Equal(t, []string{"published"}, c.Config().Perspective)
	assert.Equal(t, "tok", d.Config().Token)
	assert.Equal(t, []string{"drafts"}, d.Config().Perspective)
}

func TestFetch_SendsQueryAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2025-02-19/data/query/production", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `*[_type == "home"][0]{title}`, q.Get("query"))
		assert.Equal(t, `"home"`, q.Get("$id"))
		assert.Equal(t, "drafts,published", q.Get("perspective"))
		assert.Equal(t, "withKeyArraySelector", q.Get("resultSourceMap"))
		assert.Equal(t, "Bearer sk-read", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ms":3,"query":"…","result":{"title":"Breathe"}}`))
	}))
	defer srv.Close()

	cfg := baseConfig()
	cfg.Token = "sk-read"
	cfg.Perspective = []string{"drafts", "published"}
	cfg.Stega = true
	c := New(cfg, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	var out struct {
		Title string `json:"title"`
	}
	require.NoError(t, c.Fetch(context.Background(), `*[_type == "home"][0]{title}`,
		map[string]any{"id": "home"}, &out))
	assert.Equal(t, "Breathe", out.Title)
}

func TestFetch_NullResultLeavesDst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":null}`))
	}))
	defer srv.Close()

	c := New(baseConfig(), WithBaseURL(srv.URL))
	out := struct{ ID string }{ID: "keep"}
	require.NoError(t, c.Fetch(context.Background(), "*[0]", nil, &out))
	assert.Equal(t, "keep", out.ID)
}

func TestQuery_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"expected '}' following object body","type":"queryParseError"}}`))
	}))
	defer srv.Close()

	c := New(baseConfig(), WithBaseURL(srv.URL))
	_, err := c.Query(context.Background(), "*[", nil)
	require.ErrorIs(t, err, ErrQuery)
	assert.Contains(t, err.Error(), "expected '}'")
}

func TestQuery_NonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(baseConfig(), WithBaseURL(srv.URL)).Query(context.Background(), "*", nil)
	assert.ErrorIs(t, err, ErrQuery)
}
