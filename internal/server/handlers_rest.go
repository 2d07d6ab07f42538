package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/onec-mcp/bridge/internal/channel"
	"github.com/onec-mcp/bridge/internal/tools"
)

const maxRESTBodyBytes = 1 << 20 // 1 MiB, generous for a tool call body

// handleAPI is the REST mirror of the MCP tools (spec §6 "/api/<tool>").
// get_metadata additionally accepts GET, since it has no side effects; every
// other tool requires POST with a JSON body.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	name := tools.Name(mux.Vars(r)["tool"])
	if !tools.KnownTool(name) {
		writeError(w, http.StatusNotFound, "unknown tool")
		return
	}

	if name == tools.GetMetadata && r.Method == http.MethodGet {
		raw, _ := json.Marshal(tools.GetMetadataParams{Target: r.URL.Query().Get("target")})
		s.serveToolJSON(w, r, name, raw)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "expected application/json")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRESTBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxRESTBodyBytes {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}

	s.serveToolJSON(w, r, name, body)
}

func (s *Server) serveToolJSON(w http.ResponseWriter, r *http.Request, name tools.Name, raw json.RawMessage) {
	ch := channel.Validate(r.URL.Query().Get("channel"))

	body, err := s.dispatchTool(ch, name, raw)
	if err != nil {
		if verrs, ok := err.(tools.ValidationErrors); ok {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
