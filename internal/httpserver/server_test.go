package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shakiller/shiphexwar/assets"
	"github.com/shakiller/shiphexwar/internal/config"
	"github.com/shakiller/shiphexwar/internal/game"
	"github.com/shakiller/shiphexwar/internal/history"
	"github.com/shakiller/shiphexwar/internal/lobby"
	"github.com/shakiller/shiphexwar/internal/protocol"
	"github.com/shakiller/shiphexwar/internal/store"
	"github.com/shakiller/shiphexwar/internal/transport"
)

type harness struct {
	t      *testing.T
	srv    *Server
	ts     *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, history.Migrate(db, assets.Migrations))

	cfg := config.Config{ClientOrigin: "http://localhost:5173", DailySalt: "test", Game: game.DefaultConfig()}
	cfg.Game.BotDelay = time.Millisecond

	srv := New(Deps{
		Config:  cfg,
		Store:   store.NewMemoryStore(),
		History: history.NewStore(db),
		Rooms:   lobby.NewRooms([]byte("secret"), time.Hour, zerolog.Nop()),
		Logger:  zerolog.Nop(),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{t: t, srv: srv, ts: ts, client: &http.Client{Jar: jar}}
}

// do sends body as JSON and decodes the response into out (when non-nil).
func (h *harness) do(method, path string, body, out any) int {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, rd)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(h.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func (h *harness) playerID() string {
	u, _ := url.Parse(h.ts.URL)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == playerCookieName {
			return c.Value
		}
	}
	h.t.Fatal("no player cookie")
	return ""
}

func (h *harness) newGame() newGameRes {
	h.t.Helper()
	var res newGameRes
	require.Equal(h.t, http.StatusCreated, h.do(http.MethodPost, "/game/new", nil, &res))
	require.NotEmpty(h.t, res.GameID)
	return res
}

func (h *harness) randomFleet(id string) {
	h.t.Helper()
	for i := 0; i < 20; i++ {
		if h.do(http.MethodPost, "/game/"+id+"/ships/random", nil, nil) == http.StatusOK {
			return
		}
	}
	h.t.Fatal("could not place a fleet")
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	var body map[string]any
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", nil, &body))
	require.Equal(t, true, body["ok"])

	var nf errorRes
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/nope", nil, &nf))
	require.Equal(t, "not_found", nf.Error)
}

func TestSetupEndpoints(t *testing.T) {
	h := newHarness(t)
	g := h.newGame()
	require.Equal(t, game.PhaseSetup, g.State.Phase)
	require.Len(t, g.State.Remaining, 10)
	base := "/game/" + g.GameID

	var placed shipRes
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/ships",
		map[string]any{"row": 2, "col": 0, "typeIndex": 0, "instance": 0}, &placed))
	require.Equal(t, 4, placed.Ship.Size)
	require.Len(t, placed.State.Remaining, 9)

	var e errorRes
	require.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, base+"/ships",
		map[string]any{"row": 2, "col": 0, "typeIndex": 9, "instance": 0}, &e))
	require.Equal(t, "unknown_ship", e.Error)

	require.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, base+"/ships",
		map[string]any{"row": 3, "col": 1, "typeIndex": 3, "instance": 0}, &e))
	require.Equal(t, "invalid_placement", e.Error)

	var snap game.Snapshot
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/rotate", map[string]any{"delta": -1}, &snap))
	require.Equal(t, "↗", snap.Arrow)

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, base+"/ships?row=4&col=0", nil, &placed))
	require.Len(t, placed.State.Remaining, 10)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodDelete, base+"/ships?row=x", nil, nil))

	require.Equal(t, http.StatusConflict, h.do(http.MethodPost, base+"/fire", map[string]any{"row": 0, "col": 0}, &e))
	require.Equal(t, "out_of_phase", e.Error)
	require.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, base+"/start", nil, &e))
	require.Equal(t, "fleet_incomplete", e.Error)

	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/game/unknown", nil, &e))
	require.Equal(t, "session_not_found", e.Error)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, base+"/fire", "{", nil))
}

func TestBattleAgainstBot(t *testing.T) {
	h := newHarness(t)
	g := h.newGame()
	base := "/game/" + g.GameID
	h.randomFleet(g.GameID)

	var snap game.Snapshot
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/start", nil, &snap))
	require.Equal(t, game.PhaseBattle, snap.Phase)
	require.Equal(t, protocol.RoleHost, snap.ActiveRole)

	// Fire row-major until the first miss hands the turn to the bot.
	var missed bool
	for row := 0; row < snap.Opponent.Size && !missed; row++ {
		for col := 0; col < snap.Opponent.Size; col++ {
			var res fireRes
			require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/fire", map[string]any{"row": row, "col": col}, &res))
			if !res.Shot.Hit {
				missed = true
				break
			}
			var e errorRes
			require.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, base+"/fire", map[string]any{"row": row, "col": col}, &e))
			require.Equal(t, "already_shot", e.Error)
		}
	}
	require.True(t, missed)

	require.Eventually(t, func() bool {
		var s game.Snapshot
		h.do(http.MethodGet, base, nil, &s)
		return s.ActiveRole == protocol.RoleHost || s.Phase == game.PhaseGameOver
	}, 3*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/forbidden", map[string]any{"show": true}, &snap))
	require.True(t, snap.ShowForbidden)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/reset", nil, &snap))
	require.Equal(t, game.PhaseSetup, snap.Phase)
	require.Len(t, snap.Remaining, 10)
}

func TestDailyChallenge(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	h.srv.now = func() time.Time { return day }

	var first, again newGameRes
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/daily/new", nil, &first))
	require.True(t, first.Daily)
	require.Equal(t, "2026-10-15", first.Date)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/game/new", map[string]any{"daily": true}, &again))
	require.Equal(t, first.GameID, again.GameID, "an unfinished daily is resumed")

	h.srv.recordOutcome(h.playerID())(game.Outcome{
		Mode: game.ModeLocal, Daily: true, PlayerWon: true, Shots: 33, Hits: 20,
		Duration: 2 * time.Minute, FinishedAt: day,
	})

	var e errorRes
	require.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/daily/new", nil, &e))
	require.Equal(t, "already_played", e.Error)

	var lb lbRes
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/daily/leaderboard", nil, &lb))
	require.Equal(t, "2026-10-15", lb.Date)
	require.Len(t, lb.Top, 1)
	require.Equal(t, 33, lb.Top[0].Shots)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/daily/leaderboard?date=2026-10-14", nil, &lb))
	require.Empty(t, lb.Top)
}

// playOut fires row-major, waiting out bot turns, until the game ends.
func (h *harness) playOut(id string) game.Snapshot {
	h.t.Helper()
	base := "/game/" + id
	var snap game.Snapshot
	require.Equal(h.t, http.StatusOK, h.do(http.MethodGet, base, nil, &snap))
	for row := 0; row < snap.Opponent.Size; row++ {
		for col := 0; col < snap.Opponent.Size; col++ {
			require.Eventually(h.t, func() bool {
				h.do(http.MethodGet, base, nil, &snap)
				return snap.ActiveRole == protocol.RoleHost || snap.Phase == game.PhaseGameOver
			}, 3*time.Second, 5*time.Millisecond)
			if snap.Phase == game.PhaseGameOver {
				return snap
			}
			require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, base+"/fire", map[string]any{"row": row, "col": col}, nil))
		}
	}
	require.Equal(h.t, http.StatusOK, h.do(http.MethodGet, base, nil, &snap))
	require.Equal(h.t, game.PhaseGameOver, snap.Phase)
	return snap
}

func TestSeededGameIsNotDaily(t *testing.T) {
	h := newHarness(t)
	var g newGameRes
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/game/new", map[string]any{"seed": 42}, &g))
	require.False(t, g.Daily)
	h.randomFleet(g.GameID)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/game/"+g.GameID+"/start", nil, nil))
	h.playOut(g.GameID)

	var hist struct {
		Matches []history.Match `json:"matches"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/history", nil, &hist))
	require.Len(t, hist.Matches, 1)
	require.Empty(t, hist.Matches[0].DailyDate)
	require.Equal(t, int64(42), hist.Matches[0].Seed)

	date, _ := h.srv.dailySeed()
	played, err := h.srv.history.AlreadyPlayed(context.Background(), h.playerID(), date)
	require.NoError(t, err)
	require.False(t, played)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/daily/new", nil, nil))

	var lb lbRes
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/daily/leaderboard", nil, &lb))
	require.Empty(t, lb.Top)
}

func TestDailyCannotResetInBattle(t *testing.T) {
	h := newHarness(t)
	var g newGameRes
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/daily/new", nil, &g))
	base := "/game/" + g.GameID
	h.randomFleet(g.GameID)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/start", nil, nil))

	var e errorRes
	require.Equal(t, http.StatusConflict, h.do(http.MethodPost, base+"/reset", nil, &e))
	require.Equal(t, "out_of_phase", e.Error)

	snap := h.playOut(g.GameID)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/reset", nil, &snap))
	require.Equal(t, game.PhaseSetup, snap.Phase)

	var hist struct {
		Matches []history.Match `json:"matches"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/history", nil, &hist))
	require.Len(t, hist.Matches, 1)
	require.Equal(t, g.Date, hist.Matches[0].DailyDate)
}

func TestSessionsAnswerOnlyTheirOwner(t *testing.T) {
	h := newHarness(t)
	g := h.newGame()
	base := "/game/" + g.GameID

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	stranger := &harness{t: t, srv: h.srv, ts: h.ts, client: &http.Client{Jar: jar}}

	var e errorRes
	require.Equal(t, http.StatusNotFound, stranger.do(http.MethodGet, base, nil, &e))
	require.Equal(t, "session_not_found", e.Error)
	require.Equal(t, http.StatusNotFound, stranger.do(http.MethodPost, base+"/ships/random", nil, &e))

	var snap game.Snapshot
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, base, nil, &snap))
	require.Len(t, snap.Remaining, 10)
}

func TestHistoryAndStats(t *testing.T) {
	h := newHarness(t)
	h.newGame() // issues the player cookie
	me := h.playerID()
	now := time.Now().UTC()

	h.srv.recordOutcome(me)(game.Outcome{Mode: game.ModeLocal, PlayerWon: true, Shots: 40, FinishedAt: now})
	h.srv.recordOutcome(me)(game.Outcome{Mode: game.ModeLocal, PlayerWon: false, Shots: 60, FinishedAt: now.Add(time.Second)})
	h.srv.recordOutcome("someone-else")(game.Outcome{Mode: game.ModeLocal, PlayerWon: true, Shots: 30, FinishedAt: now})

	var hist struct {
		Matches []history.Match `json:"matches"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/history?limit=10", nil, &hist))
	require.Len(t, hist.Matches, 2)
	require.False(t, hist.Matches[0].Won)

	var tot history.Totals
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/stats", nil, &tot))
	require.Equal(t, history.Totals{Games: 2, Wins: 1, Losses: 1, AvgWinShots: 40}, tot)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/stats?all=1", nil, &tot))
	require.Equal(t, 3, tot.Games)
}

func TestRoomsRelayFrames(t *testing.T) {
	h := newHarness(t)

	var host roomRes
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/rooms", map[string]any{"passcode": "sea"}, &host))

	var e errorRes
	require.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/rooms/"+host.RoomID+"/join", map[string]any{"passcode": "land"}, &e))
	require.Equal(t, "bad_passcode", e.Error)

	var client roomRes
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/rooms/"+host.RoomID+"/join", map[string]any{"passcode": "sea"}, &client))
	require.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/rooms/"+host.RoomID+"/join", map[string]any{"passcode": "sea"}, &e))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsBase := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/rooms/" + host.RoomID + "/ws?token="

	_, err := transport.Dial(ctx, wsBase+"forged", zerolog.Nop())
	require.Error(t, err)

	hostLink, err := transport.Dial(ctx, wsBase+host.Token, zerolog.Nop())
	require.NoError(t, err)
	defer hostLink.Close()

	// Sent before the client is online: held by the relay.
	require.True(t, hostLink.Send(protocol.StartBattle(protocol.RoleHost)))

	clientLink, err := transport.Dial(ctx, wsBase+client.Token, zerolog.Nop())
	require.NoError(t, err)
	defer clientLink.Close()

	got := make(chan protocol.Message, 4)
	go func() { _ = clientLink.Run(ctx, func(m protocol.Message) { got <- m }) }()

	select {
	case m := <-got:
		require.Equal(t, protocol.KindStartBattle, m.Type)
		require.Equal(t, protocol.RoleHost, m.ActiveRole)
	case <-ctx.Done():
		t.Fatal("frame not relayed")
	}

	var info lobby.Info
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/rooms/"+host.RoomID, nil, &info))
	require.True(t, info.Locked)
	require.True(t, info.HostOnline)
	require.True(t, info.ClientOnline)
}
