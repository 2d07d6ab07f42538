package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/onec-mcp/bridge/internal/channel"
	"github.com/onec-mcp/bridge/internal/tools"
	"github.com/onec-mcp/bridge/internal/transport"
)

// newMCPServer builds one *mcp.Server per streamable-HTTP session (spec
// §4.6). The effective channel is resolved once, from the request that
// created the session, and closed over by every registered tool: the
// streaming transport detaches the context for the life of the session, so
// per-call context values cannot be relied on for anything bound at session
// creation.
func (s *Server) newMCPServer(r *http.Request) *mcp.Server {
	ch := transport.ChannelFromContext(r.Context())
	srv := mcp.NewServer(&mcp.Implementation{Name: "onec-mcp-bridge", Version: "1.0.0"}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        string(tools.Query),
		Description: "Submit a free-text query to the business client bound to this session's channel.",
	}, mcpHandler[tools.QueryParams](s, ch, tools.Query))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        string(tools.Navigate),
		Description: "Ask the business client to navigate to a URL.",
	}, mcpHandler[tools.NavigateParams](s, ch, tools.Navigate))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        string(tools.ExecuteScript),
		Description: "Ask the business client to execute a script.",
	}, mcpHandler[tools.ExecuteScriptParams](s, ch, tools.ExecuteScript))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        string(tools.GetMetadata),
		Description: "Describe a target, or everything if target is omitted.",
	}, mcpHandler[tools.GetMetadataParams](s, ch, tools.GetMetadata))

	return srv
}

// mcpHandler adapts the shared submit→await pattern to one tool's typed
// parameter shape. The SDK decodes the call arguments into P before this
// runs; dispatchTool re-validates the re-encoded params so MCP and REST
// calls go through the identical boundary (spec §4.7 step 2).
func mcpHandler[P any](s *Server, ch channel.ID, name tools.Name) func(context.Context, *mcp.CallToolRequest, P) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input P) (*mcp.CallToolResult, any, error) {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, nil, err
		}

		body, err := s.dispatchTool(ch, name, raw)
		if err != nil {
			if verrs, ok := err.(tools.ValidationErrors); ok {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: verrs.Error()}},
				}, nil, nil
			}
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
		}, nil, nil
	}
}
