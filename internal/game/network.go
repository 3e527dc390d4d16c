// internal/game/network.go
//
// Networked play between two peers.
// Responsibilities:
//   - Ready handshake: each side sends its final fleet; the host opens the
//     battle once both fleets are known.
//   - Shots: the shooter predicts the outcome from the peer's fleet, sends
//     `shot`, and the target answers with the authoritative `shot_result`.
//   - State sync: `request_state` is answered with `game_state`.
//
// Notes:
//   - HandleMessage must be called by a single consumer in arrival order.
//   - Every handler checks current state before mutating, so duplicate
//     deliveries leave the session unchanged.

package game

import (
	"fmt"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/protocol"
)

func (s *Session) send(m protocol.Message) bool {
	if s.transport == nil {
		s.log.Debug().Str("type", string(m.Type)).Msg("send without transport")
		return false
	}
	if !s.transport.Send(m) {
		s.log.Warn().Str("type", string(m.Type)).Msg("send failed: not connected")
		return false
	}
	return true
}

// Connected is called when the link to the peer opens. The client asks the
// host for its state.
func (s *Session) Connected() bool {
	if s.mode != ModeNetworked || s.role != protocol.RoleClient {
		return true
	}
	return s.send(protocol.RequestState("connected"))
}

// maybeOpenBattle is the host's half of the handshake.
func (s *Session) maybeOpenBattle() {
	if s.role != protocol.RoleHost || s.phase != PhaseSetup || !s.localReady || !s.peerReady {
		return
	}
	if !s.send(protocol.StartBattle(protocol.RoleHost)) {
		return
	}
	s.beginBattle(protocol.RoleHost)
}

// ownFleet is what we are willing to reveal in game_state: nothing until ready.
func (s *Session) ownFleet() []board.ShipRecord {
	if !s.localReady {
		return nil
	}
	return s.self.Records()
}

func (s *Session) fireNetworked(c hexgrid.Coord) (ShotResult, error) {
	hit, sunk, err := s.opp.Probe(c)
	if err != nil {
		return ShotResult{}, err
	}
	next := s.role
	if !hit {
		next = s.role.Other()
	}
	if !s.send(protocol.Shot(c, hit, sunk, next)) {
		return ShotResult{}, fmt.Errorf("send shot: %w", ErrNotConnected)
	}

	out, err := s.opp.ResolveShot(c)
	if err != nil {
		return ShotResult{}, err
	}
	shot := c
	s.lastShot = &shot
	s.notePlayerSink(out.Sunk)
	if defeated(s.opp) {
		s.finish(s.role)
	} else {
		s.active = next
	}
	return s.shotResult(c, out.Hit, out.Sunk), nil
}

// HandleMessage applies one inbound peer message.
func (s *Session) HandleMessage(m protocol.Message) {
	if s.mode != ModeNetworked {
		s.log.Debug().Str("type", string(m.Type)).Msg("message ignored in local mode")
		return
	}
	if err := m.Validate(); err != nil {
		s.log.Warn().Err(err).Msg("dropping message")
		return
	}
	switch m.Type {
	case protocol.KindReady:
		s.onReady(m)
	case protocol.KindGameState:
		s.onGameState(m)
	case protocol.KindStartBattle:
		s.onStartBattle(m)
	case protocol.KindShot:
		s.onShot(m)
	case protocol.KindShotResult:
		s.onShotResult(m)
	case protocol.KindRequestState:
		s.send(protocol.GameState(s.ownFleet(), string(s.phase), s.active, "sync"))
	}
}

func (s *Session) importPeerFleet(ships []board.ShipRecord) bool {
	if err := s.opp.ImportFleet(s.cfg.Fleet, ships); err != nil {
		s.log.Warn().Err(err).Msg("peer fleet rejected")
		return false
	}
	s.peerReady = true
	return true
}

func (s *Session) onReady(m protocol.Message) {
	if s.phase != PhaseSetup {
		s.log.Debug().Str("phase", string(s.phase)).Msg("ready ignored")
		return
	}
	if !s.importPeerFleet(m.Ships) {
		return
	}
	if s.role == protocol.RoleHost {
		s.send(protocol.GameState(s.ownFleet(), string(s.phase), s.active, "ready_ack"))
		s.maybeOpenBattle()
	}
}

func (s *Session) onGameState(m protocol.Message) {
	if len(m.Ships) > 0 && s.phase == PhaseSetup {
		s.importPeerFleet(m.Ships)
	}
	if Phase(m.GamePhase) == PhaseBattle && s.phase == PhaseSetup && m.ActiveRole.Valid() && s.peerReady {
		s.beginBattle(m.ActiveRole)
	}
	if s.role == protocol.RoleHost {
		s.maybeOpenBattle()
	}
}

func (s *Session) onStartBattle(m protocol.Message) {
	if s.phase != PhaseSetup {
		s.log.Debug().Str("phase", string(s.phase)).Msg("start_battle ignored")
		return
	}
	s.beginBattle(m.ActiveRole)
}

// onShot resolves a peer's shot on our board and answers with shot_result.
// A repeated shot is answered again from the board without re-resolving.
func (s *Session) onShot(m protocol.Message) {
	c, _ := m.Coord()
	shooter := s.role.Other()
	if s.phase == PhaseSetup || !s.self.InBounds(c) {
		s.log.Warn().Str("coord", c.String()).Str("phase", string(s.phase)).Msg("shot ignored")
		return
	}

	if s.self.Shot(c) {
		hit := s.self.IsHit(c)
		var sunk *board.ShipRecord
		if ship, ok := s.self.ShipAt(c); ok && ship.Sunk() {
			rec := ship.Record()
			sunk = &rec
		}
		next := s.active
		s.log.Debug().Str("coord", c.String()).Msg("duplicate shot answered")
		s.send(protocol.ShotResult(c, hit, sunk, next))
		return
	}
	if s.phase != PhaseBattle {
		return
	}
	if s.active != shooter {
		s.log.Warn().Str("coord", c.String()).Str("active", string(s.active)).Msg("shot out of turn ignored")
		return
	}

	out, err := s.self.ResolveShot(c)
	if err != nil {
		s.log.Warn().Err(err).Msg("peer shot rejected")
		return
	}
	next := shooter
	if !out.Hit {
		next = s.role
	}
	if m.NextRole != "" && m.NextRole != next {
		s.log.Warn().Str("claimed", string(m.NextRole)).Str("resolved", string(next)).Msg("peer disagrees on turn")
	}
	var sunk *board.ShipRecord
	if out.Sunk != nil {
		rec := out.Sunk.Record()
		sunk = &rec
	}
	s.send(protocol.ShotResult(c, out.Hit, sunk, next))

	if defeated(s.self) {
		s.finish(shooter)
		return
	}
	s.active = next
}

// onShotResult applies the peer's authoritative answer to our last shot.
func (s *Session) onShotResult(m protocol.Message) {
	c, _ := m.Coord()
	fresh := s.opp.ApplyRemoteShot(c, m.Hit, m.SunkShip)
	if m.SunkShip != nil {
		s.playerForbidden.AddAll(s.opp.Grid().Halo(m.SunkShip.Positions))
	}
	if !fresh {
		s.log.Debug().Str("coord", c.String()).Msg("shot_result for a known shot")
	}

	if s.phase != PhaseBattle {
		return
	}
	if defeated(s.opp) {
		s.finish(s.role)
		return
	}
	// Only the first answer to our latest shot may move the turn.
	if s.lastShot != nil && *s.lastShot == c && m.NextRole.Valid() {
		s.active = m.NextRole
		s.lastShot = nil
	}
}
