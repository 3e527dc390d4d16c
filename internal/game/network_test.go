package game

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/protocol"
)

// wire queues messages between two sessions and delivers them in order when
// pumped, round-tripping each one through the codec.
type wire struct {
	queue []delivery
}

type delivery struct {
	to *Session
	m  protocol.Message
}

type endpoint struct {
	w    *wire
	peer *Session
	down bool
}

func (e *endpoint) Send(m protocol.Message) bool {
	if e.down {
		return false
	}
	data, err := protocol.Encode(m)
	if err != nil {
		return false
	}
	dm, err := protocol.Decode(data)
	if err != nil {
		return false
	}
	e.w.queue = append(e.w.queue, delivery{to: e.peer, m: dm})
	return true
}

func (w *wire) pump() {
	for len(w.queue) > 0 {
		d := w.queue[0]
		w.queue = w.queue[1:]
		d.to.HandleMessage(d.m)
	}
}

type pair struct {
	w              *wire
	host, client   *Session
	hostEnd, clEnd *endpoint
	outcomes       map[protocol.Role]Outcome
}

func newPair(t *testing.T) *pair {
	t.Helper()
	p := &pair{w: &wire{}, outcomes: map[protocol.Role]Outcome{}}
	p.hostEnd = &endpoint{w: p.w}
	p.clEnd = &endpoint{w: p.w}
	mk := func(role protocol.Role, seed int64, tr Transport) *Session {
		return New(Options{
			Mode:       ModeNetworked,
			Role:       role,
			Seed:       seed,
			Transport:  tr,
			Logger:     zerolog.Nop(),
			OnGameOver: func(o Outcome) { p.outcomes[role] = o },
		})
	}
	p.host = mk(protocol.RoleHost, 1, p.hostEnd)
	p.client = mk(protocol.RoleClient, 2, p.clEnd)
	p.hostEnd.peer = p.client
	p.clEnd.peer = p.host
	return p
}

// ready brings both sides through the handshake into battle.
func (p *pair) ready(t *testing.T) {
	t.Helper()
	require.True(t, p.client.Connected())
	p.w.pump()

	fillFleet(t, p.host)
	fillFleet(t, p.client)

	require.NoError(t, p.host.StartBattle())
	p.w.pump()
	require.Equal(t, PhaseSetup, p.host.Phase())
	require.Equal(t, PhaseSetup, p.client.Phase())
	require.True(t, p.client.Snapshot().PeerReady)

	require.NoError(t, p.client.StartBattle())
	p.w.pump()
}

func shipCell(t *testing.T, b *board.Board, minSize int) hexgrid.Coord {
	t.Helper()
	for _, s := range b.Ships() {
		if s.Size() >= minSize {
			for i, c := range s.Positions {
				if !s.Hits[i] {
					return c
				}
			}
		}
	}
	t.Fatal("no matching ship cell")
	return hexgrid.Coord{}
}

func TestNetworkedHandshake(t *testing.T) {
	p := newPair(t)
	p.ready(t)

	for _, s := range []*Session{p.host, p.client} {
		require.Equal(t, PhaseBattle, s.Phase())
		require.Equal(t, protocol.RoleHost, s.ActiveRole())
		require.Len(t, s.opp.Ships(), 10)
	}
	require.Equal(t, p.host.self.Records(), p.client.opp.Records())
	require.Equal(t, p.client.self.Records(), p.host.opp.Records())

	_, err := p.client.FireAt(hexgrid.C(0, 0))
	require.ErrorIs(t, err, ErrNotYourTurn)
}

func TestNetworkedTurnsAndDuplicates(t *testing.T) {
	p := newPair(t)
	p.ready(t)

	// Host hits: it keeps the turn on both sides.
	hitAt := shipCell(t, p.client.self, 2)
	res, err := p.host.FireAt(hitAt)
	require.NoError(t, err)
	require.True(t, res.Hit)
	p.w.pump()
	require.True(t, p.client.self.Shot(hitAt))
	require.Equal(t, protocol.RoleHost, p.host.ActiveRole())
	require.Equal(t, protocol.RoleHost, p.client.ActiveRole())

	// Host misses: the turn passes once.
	missAt := missCell(t, p.client.self)
	res, err = p.host.FireAt(missAt)
	require.NoError(t, err)
	require.False(t, res.Hit)
	p.w.pump()
	require.Equal(t, protocol.RoleClient, p.host.ActiveRole())
	require.Equal(t, protocol.RoleClient, p.client.ActiveRole())

	// A replayed shot_result changes nothing.
	hits, shots := p.host.opp.HitCount(), p.host.opp.ShotCount()
	p.host.HandleMessage(protocol.ShotResult(hitAt, true, nil, protocol.RoleHost))
	require.Equal(t, hits, p.host.opp.HitCount())
	require.Equal(t, shots, p.host.opp.ShotCount())
	require.Equal(t, protocol.RoleClient, p.host.ActiveRole())

	// A replayed shot is answered again but not re-resolved.
	received := p.client.self.ShotCount()
	p.client.HandleMessage(protocol.Shot(hitAt, true, nil, protocol.RoleHost))
	require.Equal(t, received, p.client.self.ShotCount())
	require.Len(t, p.w.queue, 1)
	require.Equal(t, protocol.KindShotResult, p.w.queue[0].m.Type)
	p.w.pump()
	require.Equal(t, hits, p.host.opp.HitCount())
	require.Equal(t, protocol.RoleClient, p.host.ActiveRole())
	require.Equal(t, protocol.RoleClient, p.client.ActiveRole())

	// Client misses back.
	_, err = p.client.FireAt(missCell(t, p.client.opp))
	require.NoError(t, err)
	p.w.pump()
	require.Equal(t, protocol.RoleHost, p.host.ActiveRole())
	require.Equal(t, protocol.RoleHost, p.client.ActiveRole())
}

func TestShotOutOfTurnIgnored(t *testing.T) {
	p := newPair(t)
	p.ready(t)
	require.Equal(t, protocol.RoleHost, p.host.ActiveRole())

	// The host holds the turn; a client shot must not land or steal it.
	target := shipCell(t, p.host.self, 1)
	p.host.HandleMessage(protocol.Shot(target, true, nil, protocol.RoleClient))
	require.Zero(t, p.host.self.ShotCount())
	require.False(t, p.host.self.Shot(target))
	require.Equal(t, protocol.RoleHost, p.host.ActiveRole())
	require.Empty(t, p.w.queue)

	// The host can still fire normally.
	_, err := p.host.FireAt(missCell(t, p.host.opp))
	require.NoError(t, err)
	p.w.pump()
	require.Equal(t, protocol.RoleClient, p.host.ActiveRole())
}

func TestNetworkedGameOver(t *testing.T) {
	p := newPair(t)
	p.ready(t)

	for _, ship := range p.client.self.Ships() {
		for _, c := range ship.Positions {
			_, err := p.host.FireAt(c)
			require.NoError(t, err)
			p.w.pump()
		}
	}

	for _, s := range []*Session{p.host, p.client} {
		require.Equal(t, PhaseGameOver, s.Phase())
		require.Equal(t, protocol.RoleHost, s.Winner())
	}
	require.True(t, p.outcomes[protocol.RoleHost].PlayerWon)
	require.False(t, p.outcomes[protocol.RoleClient].PlayerWon)
	require.Equal(t, 20, p.outcomes[protocol.RoleHost].Hits)

	_, err := p.client.FireAt(hexgrid.C(0, 0))
	require.ErrorIs(t, err, ErrOutOfPhase)
}

func TestSunkShipMarksPlayerForbidden(t *testing.T) {
	p := newPair(t)
	p.ready(t)

	var boat *board.Ship
	for _, s := range p.client.self.Ships() {
		if s.Size() == 1 {
			boat = s
			break
		}
	}
	require.NotNil(t, boat)

	res, err := p.host.FireAt(boat.Positions[0])
	require.NoError(t, err)
	require.NotNil(t, res.Sunk)
	p.w.pump()

	p.host.SetShowForbidden(true)
	snap := p.host.Snapshot()
	for _, c := range p.host.opp.Grid().Halo(boat.Positions) {
		require.True(t, snap.Opponent.IsForbidden(c))
	}
}

func TestNotConnected(t *testing.T) {
	p := newPair(t)
	fillFleet(t, p.host)

	p.hostEnd.down = true
	require.ErrorIs(t, p.host.StartBattle(), ErrNotConnected)
	require.False(t, p.host.Snapshot().LocalReady)
	_, err := p.host.RemoveShipAt(p.host.self.Ships()[0].Positions[0])
	require.NoError(t, err, "fleet stays editable")

	p.hostEnd.down = false
	p.ready(t)

	p.hostEnd.down = true
	target := shipCell(t, p.client.self, 1)
	_, err = p.host.FireAt(target)
	require.ErrorIs(t, err, ErrNotConnected)
	require.False(t, p.host.opp.Shot(target))
	require.Equal(t, protocol.RoleHost, p.host.ActiveRole())
}

func TestReadyLocksFleet(t *testing.T) {
	p := newPair(t)
	fillFleet(t, p.host)
	require.NoError(t, p.host.StartBattle())
	require.NoError(t, p.host.StartBattle(), "repeated ready is a no-op")
	require.Len(t, p.w.queue, 1)

	_, err := p.host.RemoveShipAt(p.host.self.Ships()[0].Positions[0])
	require.ErrorIs(t, err, ErrOutOfPhase)
}

func TestRequestStateReportsPhase(t *testing.T) {
	p := newPair(t)
	p.ready(t)

	p.host.HandleMessage(protocol.RequestState("resync"))
	require.Len(t, p.w.queue, 1)
	m := p.w.queue[0].m
	require.Equal(t, protocol.KindGameState, m.Type)
	require.Equal(t, string(PhaseBattle), m.GamePhase)
	require.Equal(t, protocol.RoleHost, m.ActiveRole)
	require.Len(t, m.Ships, 10)
	p.w.pump()
	require.Equal(t, PhaseBattle, p.client.Phase())
}
