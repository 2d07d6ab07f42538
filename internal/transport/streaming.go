package transport

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewModernHandler wraps the MCP framing library's streamable-HTTP handler.
// getServer is called per request/session by the library (mirroring how the
// teacher's internal/mcp/client.go drives the same mcp package from the
// client side); the broker never talks wire protocol itself here — it only
// supplies the *mcp.Server that handlers_mcp_tools.go built with the
// submit→await tools wired in.
func NewModernHandler(getServer func(*http.Request) *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(getServer, nil)
}
