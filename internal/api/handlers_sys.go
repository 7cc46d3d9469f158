package api

import (
	"net/http"
)

// HealthHandler handles GET /v1/sys/health. The console itself is up
// whenever it answers; device reachability is reported, not enforced.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"connected":    s.c.Sync.Connected(),
		"scan_state":   s.c.Scan.State().String(),
		"device_url":   s.cfg.DeviceURL,
		"last_updated": nil,
	}
	if t := s.c.Sync.LastUpdated(); !t.IsZero() {
		body["last_updated"] = t.UTC()
	}
	if s.c.Scheduler != nil {
		if next := s.c.Scheduler.NextRun(); !next.IsZero() {
			body["next_sync"] = next.UTC()
		}
	}
	writeJSON(w, http.StatusOK, body)
}
