// cmd/peer/main.go
//
// Headless networked peer.
// Responsibilities:
//   - Create (host) or join (client) a relay room over HTTP.
//   - Dial the room websocket and run a networked session over it.
//   - Drive the session from stdin commands, or play by itself with -auto.
//
// Notes:
//   - Stdin lines and inbound messages are funneled into one select loop, so
//     the session is only ever touched from the main goroutine.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shakiller/shiphexwar/internal/ai"
	"github.com/shakiller/shiphexwar/internal/game"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/protocol"
	"github.com/shakiller/shiphexwar/internal/transport"
)

type options struct {
	server   string
	room     string
	passcode string
	auto     bool
	seed     int64
	size     int
	verbose  bool
	pace     time.Duration
	out      io.Writer
}

func main() {
	var o options
	flag.StringVar(&o.server, "server", "http://localhost:5180", "server base URL")
	flag.StringVar(&o.room, "room", "", "room ID to join")
	flag.StringVar(&o.passcode, "passcode", "", "room passcode")
	flag.BoolVar(&o.auto, "auto", false, "place, ready and fire automatically")
	flag.Int64Var(&o.seed, "seed", 0, "random seed (0 = time based)")
	flag.IntVar(&o.size, "board", 0, "board size (must match the peer)")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.DurationVar(&o.pace, "pace", 300*time.Millisecond, "delay between automatic moves")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: peer [flags] host|join\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	if !o.verbose {
		log = log.Level(zerolog.InfoLevel)
	}

	var role protocol.Role
	switch flag.Arg(0) {
	case "host":
		role = protocol.RoleHost
	case "join":
		role = protocol.RoleClient
		if o.room == "" {
			log.Fatal().Msg("join needs -room")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}
	o.out = os.Stdout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, o, role, log); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("peer stopped")
	}
}

// ---- lobby ----

type seat struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
}

// claimSeat creates or joins a room and returns the seat token.
func claimSeat(ctx context.Context, base string, role protocol.Role, room, passcode string) (seat, error) {
	path := "/rooms"
	if role == protocol.RoleClient {
		path = "/rooms/" + url.PathEscape(room) + "/join"
	}
	body, _ := json.Marshal(map[string]string{"passcode": passcode})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+path, bytes.NewReader(body))
	if err != nil {
		return seat{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return seat{}, err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&e)
		return seat{}, fmt.Errorf("%s %s: %s %s", req.Method, path, res.Status, e.Error)
	}
	var st seat
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		return seat{}, fmt.Errorf("decode seat: %w", err)
	}
	return st, nil
}

// socketURL turns the HTTP base URL into the room's websocket URL.
func socketURL(base string, st seat) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/rooms/" + url.PathEscape(st.RoomID) + "/ws"
	u.RawQuery = url.Values{"token": {st.Token}}.Encode()
	return u.String(), nil
}

// ---- play loop ----

func run(ctx context.Context, o options, role protocol.Role, log zerolog.Logger) error {
	st, err := claimSeat(ctx, o.server, role, o.room, o.passcode)
	if err != nil {
		return err
	}
	if role == protocol.RoleHost {
		fmt.Fprintf(o.out, "room %s created; the other player runs: peer -room %s join\n", st.RoomID, st.RoomID)
	}
	return play(ctx, o, role, st, log)
}

// play runs one networked game on a claimed seat until it is over.
func play(ctx context.Context, o options, role protocol.Role, st seat, log zerolog.Logger) error {
	wsURL, err := socketURL(o.server, st)
	if err != nil {
		return err
	}
	link, err := transport.Dial(ctx, wsURL, log)
	if err != nil {
		return err
	}
	defer link.Close()

	cfg := game.DefaultConfig()
	if o.size > 0 {
		cfg.BoardSize = o.size
	}
	sess := game.New(game.Options{
		Mode:      game.ModeNetworked,
		Role:      role,
		Config:    cfg,
		Seed:      o.seed,
		Transport: link,
		Logger:    log,
	})

	inbox := make(chan protocol.Message, 16)
	linkDone := make(chan error, 1)
	go func() { linkDone <- link.Run(ctx, func(m protocol.Message) { inbox <- m }) }()

	lines := make(chan string)
	if !o.auto {
		go readLines(lines)
		fmt.Fprint(o.out, helpText)
	}

	sess.Connected()
	var pilot *autopilot
	if o.auto {
		pilot = newAutopilot(sess, cfg, o.seed)
	}
	pace := o.pace
	if pace <= 0 {
		pace = 300 * time.Millisecond
	}
	tick := time.NewTicker(pace)
	defer tick.Stop()

	render(o.out, sess.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-linkDone:
			if err == nil {
				err = errors.New("peer link closed")
			}
			return err
		case m := <-inbox:
			before := sess.Phase()
			sess.HandleMessage(m)
			if m.Type != protocol.KindRequestState || before != sess.Phase() {
				render(o.out, sess.Snapshot())
			}
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			msg, err := execute(sess, line)
			if errors.Is(err, errQuit) {
				return err
			}
			if err != nil {
				fmt.Fprintln(o.out, "error:", err)
				continue
			}
			render(o.out, sess.Snapshot())
			if msg != "" {
				fmt.Fprintln(o.out, msg)
			}
		case <-tick.C:
			if pilot == nil {
				continue
			}
			if msg, acted := pilot.step(); acted {
				render(o.out, sess.Snapshot())
				fmt.Fprintln(o.out, msg)
			}
		}
		if sess.Phase() == game.PhaseGameOver {
			return nil
		}
	}
}

func readLines(out chan<- string) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		out <- sc.Text()
	}
	close(out)
}

// ---- autopilot ----

// autopilot plays a networked session with the same opponent logic the
// server's bot uses. Shots are recorded from the local resolution, which
// the peer's shot_result confirms.
type autopilot struct {
	s     *game.Session
	brain *ai.Opponent
	ready bool
}

func newAutopilot(s *game.Session, cfg game.Config, seed int64) *autopilot {
	rng := rand.New(rand.NewSource(seed))
	return &autopilot{s: s, brain: ai.New(hexgrid.NewGrid(cfg.BoardSize), cfg.AI, rng)}
}

// step performs at most one action and reports what it did.
func (a *autopilot) step() (string, bool) {
	switch a.s.Phase() {
	case game.PhaseSetup:
		if a.ready {
			return "", false
		}
		if err := a.s.RandomizeFleet(); err != nil {
			return "placement retry: " + err.Error(), true
		}
		if err := a.s.StartBattle(); err != nil {
			return "ready failed: " + err.Error(), true
		}
		a.ready = true
		return "fleet locked", true
	case game.PhaseBattle:
		if !a.s.MyTurn() {
			return "", false
		}
		c, ok := a.brain.SelectTarget(a.s.Target())
		if !ok {
			return "", false
		}
		res, err := a.s.FireAt(c)
		if err != nil {
			return "fire failed: " + err.Error(), true
		}
		var sunk []hexgrid.Coord
		if res.Sunk != nil {
			sunk = res.Sunk.Positions
		}
		a.brain.RecordShot(res.Coord, res.Hit, sunk)
		return describeShot(res), true
	}
	return "", false
}
