package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("_auth") != "gw-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPreviewCheck_AllPass(t *testing.T) {
	srv := gateway(t)
	var out bytes.Buffer
	cmd := newRootCmd(srv.Client())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--origin", srv.URL, "--token", "gw-token", "/", "/collections/mats"})

	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "200")
	assert.Contains(t, lines[2], "/collections/mats")
}

func TestPreviewCheck_FailureReported(t *testing.T) {
	srv := gateway(t)
	var out bytes.Buffer
	cmd := newRootCmd(srv.Client())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--origin", srv.URL, "--token", "gw-token", "/missing"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1")
	assert.Contains(t, err.Error(), srv.URL)
	assert.Contains(t, out.String(), "404")
}

func TestPreviewCheck_TokenFromEnv(t *testing.T) {
	srv := gateway(t)
	t.Setenv(tokenEnv, "gw-token")
	cmd := newRootCmd(srv.Client())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--origin", srv.URL})
	assert.NoError(t, cmd.Execute())
}

func TestPreviewCheck_RelativeOriginRejected(t *testing.T) {
	cmd := newRootCmd(http.DefaultClient)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--origin", "shop.example"})
	assert.Error(t, cmd.Execute())
}
