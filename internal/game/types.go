// internal/game/types.go
//
// Core type definitions for a hex battleship session.
// Defines:
//   - Phase and Mode enums.
//   - Errors returned by the input surface.
//   - Config, Options and the collaborator interfaces (Transport, Scheduler).
//   - ShotResult, Outcome, Scores and Snapshot returned to callers.

package game

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shakiller/shiphexwar/internal/ai"
	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/protocol"
)

// Phase is the lifecycle stage of a session.
//   - "setup":    ships are being placed, no shots allowed.
//   - "battle":   shots allowed, turns alternate.
//   - "gameover": terminal; nothing mutates until ResetGame.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseBattle   Phase = "battle"
	PhaseGameOver Phase = "gameover"
)

// Mode selects who the opponent is.
type Mode string

const (
	ModeLocal     Mode = "local"     // against the built-in bot
	ModeNetworked Mode = "networked" // against a peer over a Transport
)

var (
	ErrOutOfPhase      = errors.New("action not allowed in this phase")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNotConnected    = errors.New("not connected")
	ErrUnknownShip     = errors.New("unknown ship")
	ErrFleetIncomplete = errors.New("fleet incomplete")
)

// Transport carries messages to the peer. Send reports false when no link is open.
type Transport interface {
	Send(m protocol.Message) bool
}

// Scheduler runs fn after delay. Bot pacing goes through it.
type Scheduler func(delay time.Duration, fn func())

// Immediate runs fn synchronously, ignoring the delay.
func Immediate(_ time.Duration, fn func()) { fn() }

// Config holds the ruleset knobs shared by every session of a server.
type Config struct {
	BoardSize int
	Fleet     board.Fleet
	AI        ai.Config
	Limits    board.Limits
	BotDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BoardSize: hexgrid.DefaultSize,
		Fleet:     board.DefaultFleet(),
		AI:        ai.DefaultConfig(),
		Limits:    board.DefaultLimits(),
		BotDelay:  800 * time.Millisecond,
	}
}

// Options configure one session.
type Options struct {
	ID     string        // generated when empty
	Mode   Mode          // defaults to ModeLocal
	Role   protocol.Role // local seat in networked mode; ignored in local mode
	Config Config

	// Seed drives every random choice. With FixedSeed the bot fleet is the
	// same after every ResetGame (replays, daily challenge).
	Seed      int64
	FixedSeed bool

	// Daily marks a daily challenge: outcomes are reported as daily results
	// and the game cannot be reset once the battle has started.
	Daily bool

	Transport  Transport
	Scheduler  Scheduler
	Logger     zerolog.Logger
	OnGameOver func(Outcome)
	Now        func() time.Time
}

// ShotResult is what FireAt reports back to the input layer.
type ShotResult struct {
	Coord      hexgrid.Coord     `json:"coord"`
	Hit        bool              `json:"hit"`
	Sunk       *board.ShipRecord `json:"sunk,omitempty"`
	Phase      Phase             `json:"phase"`
	ActiveRole protocol.Role     `json:"activeRole"`
	GameOver   bool              `json:"gameOver"`
}

// Outcome summarizes a finished game.
type Outcome struct {
	SessionID     string        `json:"sessionId"`
	Mode          Mode          `json:"mode"`
	Winner        protocol.Role `json:"winner"`
	PlayerWon     bool          `json:"playerWon"`
	Shots         int           `json:"shots"`
	Hits          int           `json:"hits"`
	OpponentShots int           `json:"opponentShots"`
	Duration      time.Duration `json:"duration"`
	Seed          int64         `json:"seed"`
	Daily         bool          `json:"daily"`
	FinishedAt    time.Time     `json:"finishedAt"`
}

// Scores counts ships still afloat on each side.
type Scores struct {
	Own      int `json:"own"`
	Opponent int `json:"opponent"`
}

// Snapshot is the renderer-facing view of a session.
type Snapshot struct {
	ID            string           `json:"id"`
	Mode          Mode             `json:"mode"`
	Role          protocol.Role    `json:"role"`
	Phase         Phase            `json:"phase"`
	ActiveRole    protocol.Role    `json:"activeRole"`
	Orientation   int              `json:"orientation"`
	Arrow         string           `json:"arrow"`
	Own           board.View       `json:"own"`
	Opponent      board.View       `json:"opponent"`
	Scores        Scores           `json:"scores"`
	ShowForbidden bool             `json:"showForbidden"`
	Remaining     []board.ShipMeta `json:"remaining"`
	LocalReady    bool             `json:"localReady"`
	PeerReady     bool             `json:"peerReady"`
	Winner        protocol.Role    `json:"winner,omitempty"`
}
