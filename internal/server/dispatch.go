package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/onec-mcp/bridge/internal/channel"
	"github.com/onec-mcp/bridge/internal/queue"
	"github.com/onec-mcp/bridge/internal/tools"
)

// dispatchTool implements the shared ingress pattern from spec §4.7 steps
// 2-5: validate, submit, await, and shape the response. Both the MCP tool
// handlers and the REST mirror call this so the two surfaces can never
// drift in behavior.
func (s *Server) dispatchTool(ch channel.ID, name tools.Name, raw json.RawMessage) (json.RawMessage, error) {
	validated, err := tools.ParseAndValidate(name, raw)
	if err != nil {
		return nil, err
	}

	id := s.queue.Submit(ch, string(name), validated)
	result, err := s.queue.Await(id, s.cfg.AwaitTimeout)
	if err != nil {
		if errors.Is(err, queue.ErrTimeout) {
			// Transport succeeded; the tool did not (spec §7.4).
			return json.Marshal(map[string]any{
				"success": false,
				"error":   fmt.Sprintf("timeout on channel %s", ch),
			})
		}
		return nil, err
	}

	body := map[string]any{"success": result.Success}
	if result.Success {
		body["data"] = result.Data
	} else {
		body["error"] = result.Error
	}
	for k, v := range result.Meta {
		body[k] = v
	}
	return json.Marshal(body)
}
