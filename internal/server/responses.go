package server

import (
	"encoding/json"
	"net/http"
)

// writeJSON mirrors the teacher's writeJSON helper: set the content type,
// write the status, encode the body, swallow encode errors (the response
// has already started).
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError is the broker's error envelope: {success:false, error:"..."},
// generalized from the teacher's writeOpenAIError's {error:{...}} shape to
// the one this spec's error taxonomy calls for (spec §7).
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
