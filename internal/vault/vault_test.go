package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapKV struct {
	data  map[string]map[string]any
	reads int
}

func (m *mapKV) Read(_ context.Context, mount, rel string) (map[string]any, error) {
	m.reads++
	d, ok := m.data[mount+"/"+rel]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("vault:secret/storefront#session_secret")
	require.NoError(t, err)
	assert.Equal(t, "secret/storefront", path)
	assert.Equal(t, "session_secret", key)

	for _, bad := range []string{"vault:secret/storefront", "vault:#k", "vault:nomount#k", "vault:secret/x#"} {
		_, _, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrBadRef, bad)
	}
}

func TestSplitMount(t *testing.T) {
	m, r := splitMount("secret/storefront/prod")
	assert.Equal(t, "secret", m)
	assert.Equal(t, "storefront/prod", r)

	m, r = splitMount("")
	assert.Empty(t, m)
	assert.Empty(t, r)
}

func TestResolveRef_ReadsAndCaches(t *testing.T) {
	kv := &mapKV{data: map[string]map[string]any{
		"secret/storefront": {"read_token": "skXYZ", "port": 8080},
	}}
	c := newClient(kv, time.Minute)

	v, err := c.ResolveRef(context.Background(), "vault:secret/storefront#read_token")
	require.NoError(t, err)
	assert.Equal(t, "skXYZ", v)

	_, err = c.ResolveRef(context.Background(), "vault:secret/storefront#read_token")
	require.NoError(t, err)
	assert.Equal(t, 1, kv.reads)

	_, err = c.ResolveRef(context.Background(), "vault:secret/storefront#missing")
	assert.ErrorContains(t, err, "not found")

	_, err = c.ResolveRef(context.Background(), "vault:secret/storefront#port")
	assert.ErrorContains(t, err, "not a string")

	_, err = c.ResolveRef(context.Background(), "vault:secret/other#k")
	assert.Error(t, err)
}

func TestIsRef(t *testing.T) {
	assert.True(t, IsRef("vault:secret/a#b"))
	assert.False(t, IsRef("plain-secret"))
}
