// internal/httpserver/routes_game.go
//
// HTTP routes for local play against the bot.
//   - POST   /game/new                 → start a session {daily?, seed?}
//   - GET    /game/{id}                → snapshot
//   - POST   /game/{id}/ships          → place {row, col, typeIndex, instance, orientation?}
//   - DELETE /game/{id}/ships?row=&col= → lift the ship covering a cell
//   - POST   /game/{id}/ships/random   → auto-place the whole fleet
//   - POST   /game/{id}/rotate         → {delta}
//   - POST   /game/{id}/start          → leave setup
//   - POST   /game/{id}/fire           → {row, col}
//   - POST   /game/{id}/reset          → back to setup (refused for a daily in battle)
//   - POST   /game/{id}/forbidden      → {show}
//
// Every handler runs inside store.Entry.Do, so it never overlaps a delayed
// bot move on the same session. Responses carry the post-action snapshot.
// A session answers only to the player cookie that created it.

package httpserver

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/daily"
	"github.com/shakiller/shiphexwar/internal/game"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/history"
	"github.com/shakiller/shiphexwar/internal/store"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", s.handleSnapshot)
		r.Post("/ships", s.handlePlace)
		r.Delete("/ships", s.handleRemove)
		r.Post("/ships/random", s.handleRandomize)
		r.Post("/rotate", s.handleRotate)
		r.Post("/start", s.handleStart)
		r.Post("/fire", s.handleFire)
		r.Post("/reset", s.handleReset)
		r.Post("/forbidden", s.handleForbidden)
	})
}

// ---- session construction ----

// newSession builds a local session owned by playerID and stores it. Only
// the daily route passes daily; a fixed seed alone is a replay.
func (s *Server) newSession(ctx context.Context, playerID string, seed int64, fixed, daily bool) (*store.Entry, error) {
	return s.store.Create(ctx, playerID, func(sched game.Scheduler) *game.Session {
		return game.New(game.Options{
			Mode:       game.ModeLocal,
			Config:     s.cfg.Game,
			Seed:       seed,
			FixedSeed:  fixed,
			Daily:      daily,
			Scheduler:  sched,
			Logger:     s.log.With().Str("player", playerID).Logger(),
			OnGameOver: s.recordOutcome(playerID),
			Now:        s.now,
		})
	})
}

// recordOutcome persists finished matches. It runs under the session lock,
// either in a request or in a delayed bot move.
func (s *Server) recordOutcome(playerID string) func(game.Outcome) {
	return func(o game.Outcome) {
		if s.history == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.history.Record(ctx, history.FromOutcome(playerID, o)); err != nil {
			s.log.Warn().Err(err).Str("session", o.SessionID).Msg("record match")
		}
	}
}

// ---- payloads ----

type newGameReq struct {
	Daily bool   `json:"daily"`
	Seed  *int64 `json:"seed"` // optional fixed seed (testing, replays)
}

type newGameRes struct {
	GameID string        `json:"gameId"`
	Daily  bool          `json:"daily"`
	Date   string        `json:"date,omitempty"`
	State  game.Snapshot `json:"state"`
}

type cellReq struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c cellReq) coord() hexgrid.Coord { return hexgrid.C(c.Row, c.Col) }

type placeReq struct {
	cellReq
	TypeIndex   int  `json:"typeIndex"`
	Instance    int  `json:"instance"`
	Orientation *int `json:"orientation"` // defaults to the session's orientation
}

type shipRes struct {
	Ship  board.ShipRecord `json:"ship"`
	State game.Snapshot    `json:"state"`
}

type fireRes struct {
	Shot  game.ShotResult `json:"shot"`
	State game.Snapshot   `json:"state"`
}

type rotateReq struct {
	Delta int `json:"delta"`
}

type forbiddenReq struct {
	Show bool `json:"show"`
}

// ---- handlers ----

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decode(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	player := s.ensurePlayerID(w, r)
	if req.Daily {
		s.daily.start(w, r, player)
		return
	}

	seed := rand.Int63()
	fixed := false
	if req.Seed != nil {
		seed, fixed = *req.Seed, true
	}
	e, err := s.newSession(r.Context(), player, seed, fixed, false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondNew(w, e, "")
}

func (s *Server) respondNew(w http.ResponseWriter, e *store.Entry, date string) {
	res := newGameRes{GameID: e.ID(), Daily: date != "", Date: date}
	if err := e.Do(func(g *game.Session) { res.State = g.Snapshot() }); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// withSession looks up {id}, runs fn under the entry lock and writes its result.
// Sessions of other players are reported as missing.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(g *game.Session) (any, error)) {
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if e.Owner() != s.ensurePlayerID(w, r) {
		s.writeError(w, store.ErrNotFound)
		return
	}
	var (
		out  any
		ferr error
	)
	if err := e.Do(func(g *game.Session) { out, ferr = fn(g) }); err != nil {
		s.writeError(w, err)
		return
	}
	if ferr != nil {
		s.writeError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(g *game.Session) (any, error) {
		return g.Snapshot(), nil
	})
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeReq
	if err := decode(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	s.withSession(w, r, func(g *game.Session) (any, error) {
		d := g.Orientation()
		if req.Orientation != nil {
			d = hexgrid.Direction(*req.Orientation)
			if !d.Valid() {
				return nil, board.ErrInvalidPlacement
			}
		}
		rec, err := g.PlaceShipAt(req.coord(), board.ShipMeta{TypeIndex: req.TypeIndex, Instance: req.Instance}, d)
		if err != nil {
			return nil, err
		}
		return shipRes{Ship: rec, State: g.Snapshot()}, nil
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	row, errR := strconv.Atoi(r.URL.Query().Get("row"))
	col, errC := strconv.Atoi(r.URL.Query().Get("col"))
	if errR != nil || errC != nil {
		http.Error(w, `{"error":"bad_coordinates"}`, http.StatusBadRequest)
		return
	}
	s.withSession(w, r, func(g *game.Session) (any, error) {
		rec, err := g.RemoveShipAt(hexgrid.C(row, col))
		if err != nil {
			return nil, err
		}
		return shipRes{Ship: rec, State: g.Snapshot()}, nil
	})
}

func (s *Server) handleRandomize(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(g *game.Session) (any, error) {
		if err := g.RandomizeFleet(); err != nil {
			return nil, err
		}
		return g.Snapshot(), nil
	})
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	req := rotateReq{Delta: 1}
	if err := decode(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	s.withSession(w, r, func(g *game.Session) (any, error) {
		g.RotateOrientation(req.Delta)
		return g.Snapshot(), nil
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(g *game.Session) (any, error) {
		if err := g.StartBattle(); err != nil {
			return nil, err
		}
		return g.Snapshot(), nil
	})
}

func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	var req cellReq
	if err := decode(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	s.withSession(w, r, func(g *game.Session) (any, error) {
		res, err := g.FireAt(req.coord())
		if err != nil {
			return nil, err
		}
		return fireRes{Shot: res, State: g.Snapshot()}, nil
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(g *game.Session) (any, error) {
		if err := g.ResetGame(); err != nil {
			return nil, err
		}
		return g.Snapshot(), nil
	})
}

func (s *Server) handleForbidden(w http.ResponseWriter, r *http.Request) {
	var req forbiddenReq
	if err := decode(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	s.withSession(w, r, func(g *game.Session) (any, error) {
		g.SetShowForbidden(req.Show)
		return g.Snapshot(), nil
	})
}

// dailySeed is the bot seed for today's challenge.
func (s *Server) dailySeed() (string, int64) {
	now := s.now()
	return daily.DateKey(now), daily.Seed(now, s.cfg.DailySalt)
}
