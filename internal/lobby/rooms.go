// internal/lobby/rooms.go
//
// Relay rooms for networked play.
// Responsibilities:
//   - Room registry: create, join, look up, sweep idle rooms.
//   - Seat tokens: HS256 JWTs binding a websocket to (room, role).
//   - Optional passcodes, stored as bcrypt hashes.
//
// Notes:
//   - A room has exactly two seats. The creator is the host; the first
//     successful Join takes the client seat and later joins are refused.
//   - The relay never decodes frames (see relay.go).

package lobby

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shakiller/shiphexwar/internal/protocol"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room full")
	ErrBadPasscode  = errors.New("wrong passcode")
	ErrBadToken     = errors.New("invalid seat token")
)

// SeatClaims is the payload of a seat token.
type SeatClaims struct {
	Room string        `json:"room"`
	Role protocol.Role `json:"role"`
	jwt.RegisteredClaims
}

type Rooms struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	log    zerolog.Logger
}

// NewRooms creates a registry. Tokens are signed with secret and expire
// after ttl, which is also the idle timeout of a room.
func NewRooms(secret []byte, ttl time.Duration, log zerolog.Logger) *Rooms {
	return &Rooms{
		rooms:  make(map[string]*Room),
		secret: secret,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		log:    log,
	}
}

// Create opens a room and returns it with the host's seat token. An empty
// passcode leaves the room open.
func (rs *Rooms) Create(passcode string) (*Room, string, error) {
	r := newRoom(uuid.NewString(), rs.now, rs.log)
	if passcode != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(passcode), rs.cost)
		if err != nil {
			return nil, "", fmt.Errorf("hash passcode: %w", err)
		}
		r.passHash = h
	}
	token, err := rs.sign(r.ID, protocol.RoleHost)
	if err != nil {
		return nil, "", err
	}

	rs.mu.Lock()
	rs.rooms[r.ID] = r
	rs.mu.Unlock()
	rs.log.Info().Str("room", r.ID).Bool("locked", r.passHash != nil).Msg("room created")
	return r, token, nil
}

// Join claims the client seat of room id.
func (rs *Rooms) Join(id, passcode string) (string, error) {
	r, ok := rs.Get(id)
	if !ok {
		return "", ErrRoomNotFound
	}
	if r.passHash != nil && bcrypt.CompareHashAndPassword(r.passHash, []byte(passcode)) != nil {
		return "", ErrBadPasscode
	}
	if !r.claimClient() {
		return "", ErrRoomFull
	}
	token, err := rs.sign(r.ID, protocol.RoleClient)
	if err != nil {
		return "", err
	}
	rs.log.Info().Str("room", r.ID).Msg("client joined")
	return token, nil
}

func (rs *Rooms) Get(id string) (*Room, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.rooms[id]
	return r, ok
}

// Verify checks a seat token and returns its room and role.
func (rs *Rooms) Verify(token string) (*Room, protocol.Role, error) {
	claims := &SeatClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return rs.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(rs.now))
	if err != nil || !parsed.Valid {
		return nil, "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if !claims.Role.Valid() {
		return nil, "", ErrBadToken
	}
	r, ok := rs.Get(claims.Room)
	if !ok {
		return nil, "", ErrRoomNotFound
	}
	return r, claims.Role, nil
}

func (rs *Rooms) sign(room string, role protocol.Role) (string, error) {
	now := rs.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, SeatClaims{
		Room: room,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(rs.ttl)),
		},
	})
	ss, err := tok.SignedString(rs.secret)
	if err != nil {
		return "", fmt.Errorf("sign seat token: %w", err)
	}
	return ss, nil
}

// Sweep removes rooms with no attached seat and no traffic for ttl.
func (rs *Rooms) Sweep() int {
	cutoff := rs.now().Add(-rs.ttl)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	n := 0
	for id, r := range rs.rooms {
		if r.idle(cutoff) {
			delete(rs.rooms, id)
			n++
		}
	}
	if n > 0 {
		rs.log.Info().Int("swept", n).Int("live", len(rs.rooms)).Msg("idle rooms removed")
	}
	return n
}

func (rs *Rooms) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.rooms)
}
