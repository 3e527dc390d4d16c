// internal/protocol/protocol.go
//
// Peer-to-peer message vocabulary.
// Responsibilities:
//   - Role (host / client) and the me/opponent perspective derived from it.
//   - Message: one flat tagged record for every kind exchanged by peers.
//   - Encode / Decode with validation of the fields each kind cannot do without.
//
// Notes:
//   - Optional fields (sunkShip, reason, ships) may be absent on the wire.
//   - The relay never decodes these; only peers do.

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
)

var ErrMalformed = errors.New("malformed message")

// ---- roles ----

type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

func (r Role) Valid() bool { return r == RoleHost || r == RoleClient }

// Other returns the opposite seat.
func (r Role) Other() Role {
	if r == RoleHost {
		return RoleClient
	}
	return RoleHost
}

// Side is a role seen from one peer.
type Side int

const (
	Me Side = iota
	Opponent
)

func (s Side) String() string {
	if s == Me {
		return "me"
	}
	return "opponent"
}

// Perspective maps a role carried by a message onto the local peer's view.
func Perspective(local, r Role) Side {
	if r == local {
		return Me
	}
	return Opponent
}

// ---- messages ----

type Kind string

const (
	KindReady        Kind = "ready"
	KindGameState    Kind = "game_state"
	KindStartBattle  Kind = "start_battle"
	KindShot         Kind = "shot"
	KindShotResult   Kind = "shot_result"
	KindRequestState Kind = "request_state"
)

func (k Kind) Known() bool {
	switch k {
	case KindReady, KindGameState, KindStartBattle, KindShot, KindShotResult, KindRequestState:
		return true
	}
	return false
}

// Message is the tagged record exchanged by peers. Which fields are
// meaningful depends on Type.
type Message struct {
	Type       Kind               `json:"type"`
	Ships      []board.ShipRecord `json:"ships,omitempty"`
	GamePhase  string             `json:"gamePhase,omitempty"`
	ActiveRole Role               `json:"activeRole,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Row        *int               `json:"row,omitempty"`
	Col        *int               `json:"col,omitempty"`
	Hit        bool               `json:"hit,omitempty"`
	SunkShip   *board.ShipRecord  `json:"sunkShip,omitempty"`
	NextRole   Role               `json:"nextRole,omitempty"`
}

// Coord returns the target of a shot or shot_result.
func (m Message) Coord() (hexgrid.Coord, bool) {
	if m.Row == nil || m.Col == nil {
		return hexgrid.Coord{}, false
	}
	return hexgrid.C(*m.Row, *m.Col), true
}

func Ready(ships []board.ShipRecord) Message {
	return Message{Type: KindReady, Ships: ships}
}

func GameState(ships []board.ShipRecord, phase string, active Role, reason string) Message {
	return Message{Type: KindGameState, Ships: ships, GamePhase: phase, ActiveRole: active, Reason: reason}
}

func StartBattle(active Role) Message {
	return Message{Type: KindStartBattle, ActiveRole: active}
}

func Shot(c hexgrid.Coord, hit bool, sunk *board.ShipRecord, next Role) Message {
	return shotLike(KindShot, c, hit, sunk, next)
}

func ShotResult(c hexgrid.Coord, hit bool, sunk *board.ShipRecord, next Role) Message {
	return shotLike(KindShotResult, c, hit, sunk, next)
}

func RequestState(reason string) Message {
	return Message{Type: KindRequestState, Reason: reason}
}

func shotLike(k Kind, c hexgrid.Coord, hit bool, sunk *board.ShipRecord, next Role) Message {
	row, col := c.Row, c.Col
	return Message{Type: k, Row: &row, Col: &col, Hit: hit, SunkShip: sunk, NextRole: next}
}

// Validate checks the fields a kind cannot be handled without.
func (m Message) Validate() error {
	if !m.Type.Known() {
		return fmt.Errorf("type %q: %w", m.Type, ErrMalformed)
	}
	switch m.Type {
	case KindShot, KindShotResult:
		if _, ok := m.Coord(); !ok {
			return fmt.Errorf("%s without coordinates: %w", m.Type, ErrMalformed)
		}
		if m.NextRole != "" && !m.NextRole.Valid() {
			return fmt.Errorf("%s next role %q: %w", m.Type, m.NextRole, ErrMalformed)
		}
	case KindStartBattle:
		if !m.ActiveRole.Valid() {
			return fmt.Errorf("start_battle active role %q: %w", m.ActiveRole, ErrMalformed)
		}
	}
	return nil
}

func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode: %v: %w", err, ErrMalformed)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
