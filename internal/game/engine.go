// internal/game/engine.go
//
// Game session engine.
// Responsibilities:
//   - Phase transitions: setup → battle → gameover, and back via ResetGame.
//   - Turn ownership: a hit keeps the turn, a miss passes it.
//   - Input surface used by the HTTP layer and the peer CLI.
//   - Bot play in local mode, paced through the Scheduler.
//
// Notes:
//   - A Session is not safe for concurrent use. Callers serialize access
//     (store.Entry does this for the HTTP server).
//   - Every scheduled bot move carries the epoch it was scheduled in;
//     ResetGame bumps the epoch so stale moves do nothing.
//   - Networked message handling lives in network.go.

package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shakiller/shiphexwar/internal/ai"
	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/protocol"
)

// botFleetRetries bounds how many fresh layouts are tried for the bot.
const botFleetRetries = 50

type Session struct {
	id   string
	mode Mode
	role protocol.Role
	cfg  Config

	phase  Phase
	active protocol.Role
	winner protocol.Role

	self *board.Board // our ships, the opponent fires here
	opp  *board.Board // opponent ships, we fire here

	bot             *ai.Opponent
	playerForbidden hexgrid.CoordSet
	showForbidden   bool
	orientation     hexgrid.Direction

	seed      int64
	fixedSeed bool
	daily     bool
	rng       *rand.Rand

	transport  Transport
	schedule   Scheduler
	epoch      uint64
	localReady bool
	peerReady  bool
	lastShot   *hexgrid.Coord

	startedAt  time.Time
	now        func() time.Time
	onGameOver func(Outcome)
	log        zerolog.Logger
}

// New constructs a session in the setup phase.
func New(opts Options) *Session {
	cfg := opts.Config
	if cfg.BoardSize <= 0 {
		cfg.BoardSize = hexgrid.DefaultSize
	}
	if len(cfg.Fleet) == 0 {
		cfg.Fleet = board.DefaultFleet()
	}
	if cfg.Limits.PerShip <= 0 || cfg.Limits.Total <= 0 {
		cfg.Limits = board.DefaultLimits()
	}

	s := &Session{
		id:         opts.ID,
		mode:       opts.Mode,
		role:       opts.Role,
		cfg:        cfg,
		self:       board.New(cfg.BoardSize),
		opp:        board.New(cfg.BoardSize),
		seed:       opts.Seed,
		fixedSeed:  opts.FixedSeed || opts.Daily,
		daily:      opts.Daily,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		transport:  opts.Transport,
		schedule:   opts.Scheduler,
		now:        opts.Now,
		onGameOver: opts.OnGameOver,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.mode == "" {
		s.mode = ModeLocal
	}
	if s.mode == ModeLocal || !s.role.Valid() {
		s.role = protocol.RoleHost
	}
	if s.schedule == nil {
		s.schedule = Immediate
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = opts.Logger.With().Str("session", s.id).Str("mode", string(s.mode)).Str("role", string(s.role)).Logger()
	s.bot = ai.New(s.self.Grid(), cfg.AI, s.rng)
	s.playerForbidden = hexgrid.NewCoordSet()
	s.reset()
	return s
}

func (s *Session) reset() {
	s.epoch++
	s.phase = PhaseSetup
	s.active = protocol.RoleHost
	s.winner = ""
	s.self.Clear()
	s.opp.Clear()
	s.bot.Reset()
	s.playerForbidden.Clear()
	s.orientation = hexgrid.South
	s.localReady, s.peerReady = false, false
	s.lastShot = nil
	s.startedAt = time.Time{}
}

// ---- accessors ----

func (s *Session) ID() string { return s.id }
func (s *Session) Mode() Mode { return s.mode }
func (s *Session) Role() protocol.Role { return s.role }
func (s *Session) Phase() Phase { return s.phase }
func (s *Session) ActiveRole() protocol.Role { return s.active }
func (s *Session) Winner() protocol.Role { return s.winner }
func (s *Session) Orientation() hexgrid.Direction { return s.orientation }
func (s *Session) Config() Config { return s.cfg }
func (s *Session) Seed() int64 { return s.seed }

// MyTurn reports whether the local player may fire now.
func (s *Session) MyTurn() bool { return s.phase == PhaseBattle && s.active == s.role }

// Target exposes the board we fire at, without its ship layout.
func (s *Session) Target() ai.Scoreboard { return s.opp }

// Scores returns the number of ships still afloat on each side.
func (s *Session) Scores() Scores {
	return Scores{Own: s.self.AliveShips(), Opponent: s.opp.AliveShips()}
}

// ---- setup ----

// PlaceShipAt places ship instance meta with its bow at c, pointing d.
func (s *Session) PlaceShipAt(c hexgrid.Coord, meta board.ShipMeta, d hexgrid.Direction) (board.ShipRecord, error) {
	if err := s.requireEditableFleet(); err != nil {
		return board.ShipRecord{}, err
	}
	if !s.cfg.Fleet.Contains(meta) {
		return board.ShipRecord{}, fmt.Errorf("ship %+v: %w", meta, ErrUnknownShip)
	}
	shape, ok := board.ComputeShape(s.self.Grid(), c, s.cfg.Fleet.SizeOf(meta), d)
	if !ok {
		return board.ShipRecord{}, fmt.Errorf("ship %+v at %v %v leaves the board: %w", meta, c, d, board.ErrInvalidPlacement)
	}
	ship, err := s.self.Place(shape, meta)
	if err != nil {
		return board.ShipRecord{}, err
	}
	return ship.Record(), nil
}

// RemoveShipAt lifts the ship covering c back into the palette.
func (s *Session) RemoveShipAt(c hexgrid.Coord) (board.ShipRecord, error) {
	if err := s.requireEditableFleet(); err != nil {
		return board.ShipRecord{}, err
	}
	ship, ok := s.self.Remove(c)
	if !ok {
		return board.ShipRecord{}, fmt.Errorf("no ship at %v: %w", c, ErrUnknownShip)
	}
	return ship.Record(), nil
}

// RandomizeFleet clears our board and auto-places the whole fleet. On
// board.ErrPlacementExhausted the board keeps every ship that did fit.
func (s *Session) RandomizeFleet() error {
	if err := s.requireEditableFleet(); err != nil {
		return err
	}
	s.self.Clear()
	err := s.self.Randomize(s.cfg.Fleet, s.rng, s.cfg.Limits)
	var pe *board.PlacementExhaustedError
	if errors.As(err, &pe) {
		s.log.Warn().Int("unplaced", len(pe.Unplaced)).Msg("random placement exhausted")
	}
	return err
}

// RotateOrientation turns the placement orientation by delta steps and
// returns the new one.
func (s *Session) RotateOrientation(delta int) hexgrid.Direction {
	s.orientation = s.orientation.Rotate(delta)
	return s.orientation
}

func (s *Session) requireEditableFleet() error {
	if s.phase != PhaseSetup || s.localReady {
		return fmt.Errorf("edit fleet in %s: %w", s.phase, ErrOutOfPhase)
	}
	return nil
}

// StartBattle leaves setup. In local mode the bot fleet is drawn and the
// battle begins at once with the player to move. In networked mode our fleet
// is sent to the peer and the host opens the battle once both sides are ready.
func (s *Session) StartBattle() error {
	if s.phase != PhaseSetup {
		return fmt.Errorf("start battle in %s: %w", s.phase, ErrOutOfPhase)
	}
	if !s.self.AllShipsPlaced(s.cfg.Fleet) {
		return fmt.Errorf("%d of %d ships placed: %w", len(s.self.Ships()), s.cfg.Fleet.Total(), ErrFleetIncomplete)
	}

	if s.mode == ModeNetworked {
		if s.localReady {
			return nil
		}
		if !s.send(protocol.Ready(s.self.Records())) {
			return fmt.Errorf("send ready: %w", ErrNotConnected)
		}
		s.localReady = true
		s.maybeOpenBattle()
		return nil
	}

	if err := s.placeBotFleet(); err != nil {
		return err
	}
	s.localReady, s.peerReady = true, true
	s.beginBattle(s.role)
	return nil
}

func (s *Session) placeBotFleet() error {
	fleetRng := rand.New(rand.NewSource(s.seed))
	var err error
	for i := 0; i < botFleetRetries; i++ {
		s.opp.Clear()
		if err = s.opp.Randomize(s.cfg.Fleet, fleetRng, s.cfg.Limits); err == nil {
			return nil
		}
	}
	s.opp.Clear()
	return fmt.Errorf("bot fleet: %w", err)
}

func (s *Session) beginBattle(first protocol.Role) {
	s.phase = PhaseBattle
	s.active = first
	s.startedAt = s.now()
	s.log.Info().Str("first", string(first)).Msg("battle started")
}

// ---- battle ----

// FireAt shoots at c on the opponent board.
func (s *Session) FireAt(c hexgrid.Coord) (ShotResult, error) {
	if s.phase != PhaseBattle {
		return ShotResult{}, fmt.Errorf("fire in %s: %w", s.phase, ErrOutOfPhase)
	}
	if s.active != s.role {
		return ShotResult{}, fmt.Errorf("fire at %v: %w", c, ErrNotYourTurn)
	}
	if s.mode == ModeNetworked {
		return s.fireNetworked(c)
	}

	out, err := s.opp.ResolveShot(c)
	if err != nil {
		return ShotResult{}, err
	}
	s.notePlayerSink(out.Sunk)
	switch {
	case defeated(s.opp):
		s.finish(s.role)
	case !out.Hit:
		s.active = s.role.Other()
		s.scheduleBot()
	}
	return s.shotResult(out.Coord, out.Hit, out.Sunk), nil
}

func (s *Session) shotResult(c hexgrid.Coord, hit bool, sunk *board.Ship) ShotResult {
	r := ShotResult{Coord: c, Hit: hit, Phase: s.phase, ActiveRole: s.active, GameOver: s.phase == PhaseGameOver}
	if sunk != nil {
		rec := sunk.Record()
		r.Sunk = &rec
	}
	return r
}

// notePlayerSink marks a ship we sank, and its halo, as advisory forbidden cells.
func (s *Session) notePlayerSink(sunk *board.Ship) {
	if sunk == nil {
		return
	}
	s.playerForbidden.AddAll(s.opp.Grid().Halo(sunk.Positions))
}

func (s *Session) scheduleBot() {
	epoch := s.epoch
	s.schedule(s.cfg.BotDelay, func() {
		if s.epoch != epoch {
			return
		}
		s.botStep()
	})
}

// botStep fires one bot shot and schedules the next one while the bot keeps hitting.
func (s *Session) botStep() {
	botRole := s.role.Other()
	if s.phase != PhaseBattle || s.active != botRole {
		return
	}
	c, ok := s.bot.SelectTarget(s.self)
	if !ok {
		s.log.Warn().Msg("bot has no legal target")
		return
	}
	out, err := s.self.ResolveShot(c)
	if err != nil {
		s.log.Error().Err(err).Str("coord", c.String()).Msg("bot shot rejected")
		return
	}
	s.bot.Record(out)
	s.log.Debug().Str("coord", c.String()).Bool("hit", out.Hit).Bool("sunk", out.Sunk != nil).Msg("bot fired")

	switch {
	case defeated(s.self):
		s.finish(botRole)
	case out.Hit:
		s.scheduleBot()
	default:
		s.active = s.role
	}
}

// defeated reports whether b holds a fleet and all of it is sunk.
func defeated(b *board.Board) bool {
	return len(b.Ships()) > 0 && b.IsGameOver()
}

func (s *Session) finish(winner protocol.Role) {
	if s.phase != PhaseBattle {
		return
	}
	s.phase = PhaseGameOver
	s.winner = winner
	s.log.Info().Str("winner", string(winner)).Int("shots", s.opp.ShotCount()).Msg("game over")
	if s.onGameOver != nil {
		s.onGameOver(s.outcome())
	}
}

func (s *Session) outcome() Outcome {
	end := s.now()
	return Outcome{
		SessionID:     s.id,
		Mode:          s.mode,
		Winner:        s.winner,
		PlayerWon:     s.winner == s.role,
		Shots:         s.opp.ShotCount(),
		Hits:          s.opp.HitCount(),
		OpponentShots: s.self.ShotCount(),
		Duration:      end.Sub(s.startedAt),
		Seed:          s.seed,
		Daily:         s.daily,
		FinishedAt:    end,
	}
}

// ---- misc input ----

// ResetGame abandons the current game and returns to setup. Pending bot moves
// are invalidated. Without a fixed seed the next bot fleet is redrawn.
// A daily game in battle cannot be reset.
func (s *Session) ResetGame() error {
	if s.daily && s.phase == PhaseBattle {
		return fmt.Errorf("reset daily in battle: %w", ErrOutOfPhase)
	}
	if !s.fixedSeed {
		s.seed = s.rng.Int63()
	}
	s.reset()
	s.log.Info().Msg("game reset")
	return nil
}

// SetShowForbidden toggles the advisory overlay in snapshots.
func (s *Session) SetShowForbidden(show bool) { s.showForbidden = show }

// Snapshot returns everything a renderer needs. The opponent fleet is only
// revealed once the game is over.
func (s *Session) Snapshot() Snapshot {
	var overlay hexgrid.CoordSet
	if s.showForbidden {
		overlay = s.playerForbidden
	}
	return Snapshot{
		ID:            s.id,
		Mode:          s.mode,
		Role:          s.role,
		Phase:         s.phase,
		ActiveRole:    s.active,
		Orientation:   int(s.orientation),
		Arrow:         s.orientation.Arrow(),
		Own:           s.self.View(true, hexgrid.CoordSet{}),
		Opponent:      s.opp.View(s.phase == PhaseGameOver, overlay),
		Scores:        s.Scores(),
		ShowForbidden: s.showForbidden,
		Remaining:     s.remaining(),
		LocalReady:    s.localReady,
		PeerReady:     s.peerReady,
		Winner:        s.winner,
	}
}

func (s *Session) remaining() []board.ShipMeta {
	out := []board.ShipMeta{}
	for _, m := range s.cfg.Fleet.Instances() {
		if !s.self.HasShip(m) {
			out = append(out, m)
		}
	}
	return out
}
