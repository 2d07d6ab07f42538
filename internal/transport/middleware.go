// Package transport implements the dual-transport MCP session layer: the
// Channel Binding Middleware (spec §4.4), the Unified MCP Dispatcher (spec
// §4.6), and the Legacy SSE Transport (spec §4.5). The modern streaming
// transport itself is the external MCP framing library
// (github.com/modelcontextprotocol/go-sdk/mcp); this package only wraps it
// with the channel-binding behavior the broker needs.
package transport

import (
	"context"
	"net/http"

	"github.com/onec-mcp/bridge/internal/channel"
)

// SessionHeader is the header MCP clients use to continue a session, and
// the header the server uses to advertise a freshly minted one.
const SessionHeader = "mcp-session-id"

type contextKey int

const channelContextKey contextKey = iota

// ChannelFromContext returns the effective channel bound to the current
// request by WithChannelBinding, or channel.Default if the middleware was
// never run.
func ChannelFromContext(ctx context.Context) channel.ID {
	if v, ok := ctx.Value(channelContextKey).(channel.ID); ok {
		return v
	}
	return channel.Default
}

// WithChannelBinding implements spec §4.4: it resolves the effective
// channel for this request (an already-bound session wins over a new query
// value), exposes it on the request context, and — only when the request
// carried no session id and the handler mints a fresh one — binds that new
// session to the effective channel. This is the only place new sessions are
// registered from the modern transport.
func WithChannelBinding(registry *channel.Registry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queryChannel := channel.Validate(r.URL.Query().Get("channel"))
		sessionID := r.Header.Get(SessionHeader)

		effective := queryChannel
		hadSession := sessionID != ""
		if hadSession && registry.IsBound(sessionID) {
			effective = registry.ChannelOf(sessionID)
		}

		ctx := context.WithValue(r.Context(), channelContextKey, effective)
		next.ServeHTTP(w, r.WithContext(ctx))

		if !hadSession {
			if minted := w.Header().Get(SessionHeader); minted != "" {
				registry.Bind(minted, string(effective))
			}
		}
	})
}
