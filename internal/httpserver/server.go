// internal/httpserver/server.go
//
// HTTP server wiring for the hex battleship backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access log).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: /game/* (local play against the bot), see routes_game.go.
//   - Daily challenge: /daily/*, see routes_daily.go.
//   - Match history and stats: /history, /stats, see routes_history.go.
//   - Relay rooms for networked play: /rooms/*, see routes_rooms.go.
//
// Notes:
//   - Players are identified by an anonymous cookie; there are no accounts.
//   - The websocket route is mounted outside the request timeout.
//   - Errors are JSON objects {"error": code, "detail": message}.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/config"
	"github.com/shakiller/shiphexwar/internal/game"
	"github.com/shakiller/shiphexwar/internal/history"
	"github.com/shakiller/shiphexwar/internal/lobby"
	"github.com/shakiller/shiphexwar/internal/store"
)

const playerCookieName = "shiphexwar_player"

// Deps are the collaborators a Server needs. History may be nil, in which
// case finished matches are not recorded and history routes answer 503.
type Deps struct {
	Config  config.Config
	Store   store.Store
	History *history.Store
	Rooms   *lobby.Rooms
	Logger  zerolog.Logger
}

// Server bundles router, session store, history and relay rooms.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	history *history.Store
	rooms   *lobby.Rooms
	daily   *dailyServer
	log     zerolog.Logger
	now     func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     d.Config,
		store:   d.Store,
		history: d.History,
		rooms:   d.Rooms,
		log:     d.Logger,
		now:     time.Now,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger(s.log))
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(cors(s.cfg.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"shiphexwar","endpoints":["/health","/game/*","/daily/*","/history","/stats","/rooms/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.store.Len(), "rooms": s.rooms.Len()})
	})

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		s.mountGame(r)
		s.mountDaily(r)
		s.mountHistory(r)
		s.mountRooms(r)
	})
	// Long-lived: no timeout.
	s.r.Get("/rooms/{id}/ws", s.handleRoomSocket)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one access-log line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info().
					Str("req_id", chimw.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("took", time.Since(start)).
					Msg("http")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ------------------------------ helpers ------------------------------------

// ensurePlayerID returns the anonymous player ID cookie, issuing one if needed.
func (s *Server) ensurePlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(180 * 24 * time.Hour),
	})
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorRes struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// errAlreadyPlayed refuses a second daily challenge on the same day.
var errAlreadyPlayed = errors.New("daily challenge already played today")

// errorStatus maps domain errors onto HTTP status codes and stable codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, lobby.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found"
	case errors.Is(err, board.ErrInvalidPlacement):
		return http.StatusUnprocessableEntity, "invalid_placement"
	case errors.Is(err, board.ErrOutOfBounds):
		return http.StatusUnprocessableEntity, "out_of_bounds"
	case errors.Is(err, board.ErrAlreadyShot):
		return http.StatusUnprocessableEntity, "already_shot"
	case errors.Is(err, board.ErrPlacementExhausted):
		return http.StatusUnprocessableEntity, "placement_exhausted"
	case errors.Is(err, game.ErrUnknownShip):
		return http.StatusUnprocessableEntity, "unknown_ship"
	case errors.Is(err, game.ErrFleetIncomplete):
		return http.StatusUnprocessableEntity, "fleet_incomplete"
	case errors.Is(err, game.ErrOutOfPhase):
		return http.StatusConflict, "out_of_phase"
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict, "not_your_turn"
	case errors.Is(err, board.ErrFleetLocked):
		return http.StatusConflict, "fleet_locked"
	case errors.Is(err, errAlreadyPlayed), errors.Is(err, history.ErrDuplicateDaily):
		return http.StatusConflict, "already_played"
	case errors.Is(err, lobby.ErrRoomFull):
		return http.StatusConflict, "room_full"
	case errors.Is(err, lobby.ErrBadPasscode):
		return http.StatusForbidden, "bad_passcode"
	case errors.Is(err, lobby.ErrBadToken):
		return http.StatusUnauthorized, "bad_token"
	case errors.Is(err, game.ErrNotConnected):
		return http.StatusServiceUnavailable, "not_connected"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
		writeJSON(w, status, errorRes{Error: code})
		return
	}
	writeJSON(w, status, errorRes{Error: code, Detail: err.Error()})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
