// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes two endpoints under /daily (POST /game/new {daily:true} is an alias
// of /daily/new):
//   - POST /daily/new         → start today's daily game (or resume it)
//   - GET  /daily/leaderboard → top results for today (or ?date=YYYY-MM-DD)
//
// Everyone faces the same bot fleet on a given UTC day (seed from
// daily.Seed). Each player may finish the daily once per day: a finished
// daily is recorded in history and a new one is refused until tomorrow.

package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shakiller/shiphexwar/internal/game"
	"github.com/shakiller/shiphexwar/internal/history"
	"github.com/shakiller/shiphexwar/internal/store"
)

// dailyServer tracks in-progress daily sessions so a player resumes the
// same game instead of redrawing.
type dailyServer struct {
	srv      *Server
	mu       sync.Mutex
	sessions map[string]string // player|date → session ID
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{srv: s, sessions: make(map[string]string)}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", func(w http.ResponseWriter, r *http.Request) {
			s.daily.start(w, r, s.ensurePlayerID(w, r))
		})
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

// start creates or resumes player's daily session for today.
func (d *dailyServer) start(w http.ResponseWriter, r *http.Request, player string) {
	s := d.srv
	date, seed := s.dailySeed()

	if s.history != nil {
		played, err := s.history.AlreadyPlayed(r.Context(), player, date)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if played {
			s.writeError(w, errAlreadyPlayed)
			return
		}
	}

	key := player + "|" + date
	if e := d.resume(r.Context(), key); e != nil {
		s.respondNew(w, e, date)
		return
	}

	e, err := s.newSession(r.Context(), player, seed, true, true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d.mu.Lock()
	d.sessions[key] = e.ID()
	d.mu.Unlock()
	s.log.Info().Str("player", player).Str("date", date).Str("session", e.ID()).Msg("daily started")
	s.respondNew(w, e, date)
}

// resume returns the live daily session stored under key, if any.
func (d *dailyServer) resume(ctx context.Context, key string) *store.Entry {
	d.mu.Lock()
	id, ok := d.sessions[key]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	e, err := d.srv.store.Get(ctx, id)
	if err != nil {
		d.mu.Lock()
		delete(d.sessions, key)
		d.mu.Unlock()
		return nil
	}
	var over bool
	if e.Do(func(g *game.Session) { over = g.Phase() == game.PhaseGameOver }) != nil || over {
		return nil
	}
	return e
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string          `json:"date"`
	Top  []history.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s := d.srv
	if s.history == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = s.dailySeed()
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.history.DailyLeaderboard(r.Context(), date, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
