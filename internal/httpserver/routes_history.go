// internal/httpserver/routes_history.go
//
// Match history and stats.
//   - GET /history?limit=&all=1 → the caller's recent matches (everyone's with all=1)
//   - GET /stats?all=1          → win/loss totals

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) mountHistory(r chi.Router) {
	r.Get("/history", s.handleHistory)
	r.Get("/stats", s.handleStats)
}

// scopedPlayer returns "" for all players, else the caller's ID.
func (s *Server) scopedPlayer(w http.ResponseWriter, r *http.Request) string {
	if r.URL.Query().Get("all") == "1" {
		return ""
	}
	return s.ensurePlayerID(w, r)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	matches, err := s.history.Recent(r.Context(), s.scopedPlayer(w, r), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	t, err := s.history.Totals(r.Context(), s.scopedPlayer(w, r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
