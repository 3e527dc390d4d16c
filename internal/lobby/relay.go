// internal/lobby/relay.go
//
// Frame relay between the two seats of a room.
// Frames are forwarded verbatim. A frame addressed to an absent seat is held
// (up to maxPending) and flushed in order when that seat attaches, so a peer
// that readies before its opponent connects is not lost.

package lobby

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shakiller/shiphexwar/internal/protocol"
)

const maxPending = 64

// Seat is the write side of an attached connection.
type Seat interface {
	WriteFrame(data []byte) error
}

type Room struct {
	ID        string
	CreatedAt time.Time

	passHash []byte

	mu           sync.Mutex
	clientJoined bool
	seats        map[protocol.Role]Seat
	pending      map[protocol.Role][][]byte
	lastActive   time.Time
	now          func() time.Time
	log          zerolog.Logger
}

// Info is the public view of a room.
type Info struct {
	ID           string    `json:"id"`
	Locked       bool      `json:"locked"`
	ClientJoined bool      `json:"clientJoined"`
	HostOnline   bool      `json:"hostOnline"`
	ClientOnline bool      `json:"clientOnline"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newRoom(id string, now func() time.Time, log zerolog.Logger) *Room {
	t := now()
	return &Room{
		ID:         id,
		CreatedAt:  t,
		seats:      make(map[protocol.Role]Seat),
		pending:    make(map[protocol.Role][][]byte),
		lastActive: t,
		now:        now,
		log:        log.With().Str("room", id).Logger(),
	}
}

func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		ID:           r.ID,
		Locked:       r.passHash != nil,
		ClientJoined: r.clientJoined,
		HostOnline:   r.seats[protocol.RoleHost] != nil,
		ClientOnline: r.seats[protocol.RoleClient] != nil,
		CreatedAt:    r.CreatedAt,
	}
}

func (r *Room) claimClient() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clientJoined {
		return false
	}
	r.clientJoined = true
	return true
}

// Attach puts seat into role, replacing any previous connection, and flushes
// frames held for it. If the flush fails the seat is detached again and the
// unsent frames stay held.
func (r *Room) Attach(role protocol.Role, seat Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats[role] = seat
	r.lastActive = r.now()
	held := r.pending[role]
	delete(r.pending, role)
	for i, f := range held {
		if err := seat.WriteFrame(f); err != nil {
			r.log.Warn().Err(err).Str("role", string(role)).Int("held", len(held)-i).Msg("flush failed, seat detached")
			delete(r.seats, role)
			r.pending[role] = held[i:]
			return
		}
	}
	r.log.Info().Str("role", string(role)).Int("flushed", len(held)).Msg("seat attached")
}

// Detach empties role if seat still occupies it.
func (r *Room) Detach(role protocol.Role, seat Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seats[role] == seat {
		delete(r.seats, role)
		r.lastActive = r.now()
		r.log.Info().Str("role", string(role)).Msg("seat detached")
	}
}

// Relay forwards frame from one seat to the other. It reports whether the
// frame was written now; otherwise it was held or, with a full queue, dropped.
func (r *Room) Relay(from protocol.Role, frame []byte) bool {
	to := from.Other()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = r.now()

	if seat := r.seats[to]; seat != nil {
		if err := seat.WriteFrame(frame); err == nil {
			return true
		}
		r.log.Debug().Str("to", string(to)).Msg("write failed, holding frame")
		delete(r.seats, to)
	}
	if len(r.pending[to]) >= maxPending {
		r.log.Warn().Str("to", string(to)).Msg("pending queue full, frame dropped")
		return false
	}
	r.pending[to] = append(r.pending[to], append([]byte(nil), frame...))
	return false
}

func (r *Room) idle(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seats) == 0 && r.lastActive.Before(cutoff)
}
