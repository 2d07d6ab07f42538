package server

import "net/http"

// handleHealth reports aggregate counts only by default; per-channel
// listings are gated behind cfg.HealthDetail so channel identifiers do not
// leak to unauthenticated probes (spec §4.7).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.queue.Stats()
	totalPending := 0
	for _, n := range stats {
		totalPending += n
	}

	activeSessions := 0
	for _, n := range s.registry.ActiveChannels() {
		activeSessions += n
	}

	body := map[string]any{
		"status":           "ok",
		"channels_pending": len(stats),
		"total_pending":    totalPending,
		"active_sessions":  activeSessions,
	}
	if s.cfg.HealthDetail {
		body["channels"] = stats
	}
	writeJSON(w, http.StatusOK, body)
}
