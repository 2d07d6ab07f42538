package transport

import (
	"net/http"
	"strings"
)

// mcpHeaders are the headers whose presence on an SSE-accepting GET marks a
// client as speaking the modern streaming transport rather than legacy SSE
// (spec §4.6).
var mcpHeaders = []string{SessionHeader, "mcp-protocol-version", "last-event-id"}

// Dispatch implements the Unified MCP Dispatcher's routing rule at /mcp: a
// GET with an event-stream Accept header and none of the modern-transport
// headers goes to legacy; everything else goes to modern.
func Dispatch(modern, legacy http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && acceptsEventStream(r) && !carriesModernHeaders(r) {
			legacy.ServeHTTP(w, r)
			return
		}
		modern.ServeHTTP(w, r)
	})
}

func acceptsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func carriesModernHeaders(r *http.Request) bool {
	for _, h := range mcpHeaders {
		if r.Header.Get(h) != "" {
			return true
		}
	}
	return false
}
