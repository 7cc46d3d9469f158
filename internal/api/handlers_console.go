package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/events"
	"github.com/org/rfidconsole/internal/journal"
	"github.com/org/rfidconsole/internal/view"
	"github.com/org/rfidconsole/pkg/models"
	"github.com/rs/zerolog/log"
)

type stateResponse struct {
	view.Snapshot
	ScanState string `json:"scan_state"`
}

type scanResponse struct {
	State      string          `json:"state"`
	Session    uint64          `json:"session,omitempty"`
	Enrollment view.Enrollment `json:"enrollment"`
}

func (s *Server) writeState(w http.ResponseWriter, code int) {
	writeJSON(w, code, map[string]any{"data": stateResponse{
		Snapshot:  s.c.View.Snapshot(),
		ScanState: s.c.Scan.State().String(),
	}})
}

func (s *Server) writeScan(w http.ResponseWriter) {
	resp := scanResponse{
		State:      console.ScanIdle.String(),
		Enrollment: s.c.View.Snapshot().Enrollment,
	}
	if sess := s.c.Scan.Session(); sess != nil {
		resp.State = console.ScanArmed.String()
		resp.Session = sess.ID()
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

// StateHandler handles GET /v1/console/state
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, http.StatusOK)
}

// SyncHandler handles POST /v1/console/sync. A superseded sync still
// answers with the state the newer one rendered. With wait=false the sync
// runs in the background and the request returns 202 at once.
func (s *Server) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "false" && s.c.Scheduler != nil {
		s.c.Scheduler.TriggerSync()
		writeJSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{"queued": true}})
		return
	}
	if err := s.c.Sync.Sync(r.Context()); err != nil && !errors.Is(err, console.ErrSuperseded) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeState(w, http.StatusOK)
}

// RefreshLogsHandler handles POST /v1/console/logs/refresh
func (s *Server) RefreshLogsHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.c.Sync.RefreshLogs(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.c.View.Snapshot().Logs})
}

// ScanToggleHandler handles POST /v1/console/scan. The session is bound to
// the server's lifetime, not the request's.
func (s *Server) ScanToggleHandler(w http.ResponseWriter, r *http.Request) {
	s.c.Scan.Toggle(s.ctx, s.c.View)
	s.writeScan(w)
}

// ScanStateHandler handles GET /v1/console/scan
func (s *Server) ScanStateHandler(w http.ResponseWriter, r *http.Request) {
	s.writeScan(w)
}

// ScanCancelHandler handles DELETE /v1/console/scan
func (s *Server) ScanCancelHandler(w http.ResponseWriter, r *http.Request) {
	s.c.Scan.Cancel()
	s.writeScan(w)
}

// CreateCardHandler handles POST /v1/console/cards
func (s *Server) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	var req models.NewCard
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.c.Gateway.CreateCard(r.Context(), req)
	switch {
	case errors.Is(err, models.ErrInvalidCard):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"uid": req.Normalize().UID}})
}

// DeleteCardHandler handles DELETE /v1/console/cards/{uid}?name=..&confirm=true
// Nothing reaches the device unless confirm=true.
func (s *Server) DeleteCardHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := url.PathUnescape(chi.URLParam(r, "uid"))
	if err != nil || uid == "" {
		writeError(w, http.StatusBadRequest, "invalid card uid")
		return
	}
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = uid
	}

	gw := s.c.Gateway.WithConfirmer(events.AnsweredConfirmer{
		Answer: q.Get("confirm") == "true",
		Out:    s.c.Events,
	})
	err = gw.DeleteCard(r.Context(), uid, name)
	switch {
	case errors.Is(err, console.ErrNotConfirmed):
		writeError(w, http.StatusConflict, "deletion requires confirm=true")
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	log.Info().Str("request_id", requestIDFromCtx(r.Context())).Str("uid", uid).Msg("card deleted via console")
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": uid}})
}

// NotificationsHandler handles GET /v1/console/notifications
func (s *Server) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := journal.Filter{
		Level: q.Get("level"),
		Limit: 50,
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = t
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.c.Journal.Query(filter)})
}
