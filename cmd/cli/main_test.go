package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	color.NoColor = true
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &client{base: srv.URL, http: srv.Client()}
}

func TestClient_Create(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":200,"data":{"id":"p1","userId":"u1","status":"APPROVED"}}`))
	})
	require.NoError(t, c.create("u1"))
}

func TestClient_CreateProblem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`{"title":"Payment not approved","detail":"payment retries exhausted"}`))
	})
	err := c.create("u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment retries exhausted")
}

func TestClient_GetStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Accept"))
		assert.Equal(t, "a,b", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte("{\"id\":\"1\",\"userId\":\"a\",\"status\":\"PENDING\"}\n"))
	})
	require.NoError(t, c.get("a,b"))
}

func TestClient_IDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a,b"))
	})
	require.NoError(t, c.ids())
}
