package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onec-mcp/bridge/internal/channel"
)

func TestWithChannelBinding_BindsNewSession(t *testing.T) {
	registry := channel.NewRegistry()
	var sawChannel channel.ID

	handler := WithChannelBinding(registry, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawChannel = ChannelFromContext(r.Context())
		w.Header().Set(SessionHeader, "sess-1")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/mcp?channel=one", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if sawChannel != "one" {
		t.Fatalf("effective channel = %q, want one", sawChannel)
	}
	if got := registry.ChannelOf("sess-1"); got != "one" {
		t.Fatalf("registry bound channel = %q, want one", got)
	}
}

func TestWithChannelBinding_BoundSessionWinsOverNewQuery(t *testing.T) {
	registry := channel.NewRegistry()
	registry.Bind("sess-1", "one")

	var sawChannel channel.ID
	handler := WithChannelBinding(registry, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawChannel = ChannelFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/mcp?channel=two", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if sawChannel != "one" {
		t.Fatalf("effective channel = %q, want one (bound session must win)", sawChannel)
	}
}

func TestWithChannelBinding_NoRebindWhenSessionSupplied(t *testing.T) {
	registry := channel.NewRegistry()
	registry.Bind("sess-1", "one")

	handler := WithChannelBinding(registry, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A handler that (incorrectly, for this test) tries to mint a
		// "new" session id while one was already supplied must not cause a
		// rebind, since the request carried a session id.
		w.Header().Set(SessionHeader, "sess-1")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/mcp?channel=two", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := registry.ChannelOf("sess-1"); got != "one" {
		t.Fatalf("channel after request = %q, want one (unchanged)", got)
	}
}
