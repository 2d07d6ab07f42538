package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/onec-mcp/bridge/internal/channel"
	"github.com/onec-mcp/bridge/internal/queue"
	"github.com/onec-mcp/bridge/internal/tools"
)

const maxResultBodyBytes = 1 << 20

// handlePoll serves the business-client long-poll endpoint (spec §4.7,
// §6): GET /1c/poll?channel=X&timeout=T.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	ch := channel.Validate(r.URL.Query().Get("channel"))
	timeout := s.cfg.PollTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			timeout = time.Duration(secs * float64(time.Second))
		}
	}

	cmd, ok := s.queue.Poll(ch, timeout)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     cmd.ID,
		"tool":   cmd.Tool,
		"params": cmd.Params,
	})
}

// handleResult serves the business-client result submission endpoint: POST
// /1c/result with body {id, success, data?, error?, ...passthrough meta}.
// Unknown fields are ignored except through the passthrough allow-list
// (spec §9 open question).
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxResultBodyBytes+1))
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json body")
		return
	}

	id, _ := payload["id"].(string)
	if id == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": tools.ValidationErrors{{Field: "id", Reason: "required"}},
		})
		return
	}
	success, _ := payload["success"].(bool)
	errMsg, _ := payload["error"].(string)

	meta := make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case "id", "success", "data", "error":
		default:
			meta[k] = v
		}
	}

	result := queue.Result{
		Success: success,
		Data:    payload["data"],
		Error:   errMsg,
		Meta:    tools.FilterResultMeta(meta, success),
	}

	if !s.queue.Complete(id, result) {
		writeError(w, http.StatusNotFound, "unknown command id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
