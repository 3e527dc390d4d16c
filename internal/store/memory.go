// internal/store/memory.go
//
// In-memory session store.
// Sessions are ephemeral: state is lost when the process restarts, and idle
// sessions are swept after a TTL.
//
// Characteristics:
//   - Entries are keyed by session ID in a map guarded by an RWMutex.
//   - Each Entry carries its own mutex; Entry.Do is the only way to touch a
//     session, so HTTP handlers and delayed bot moves never overlap.
//   - Deleted or swept entries are closed: pending bot moves become no-ops.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shakiller/shiphexwar/internal/game"
)

var ErrNotFound = errors.New("session not found")

// Store defines the persistence interface for game sessions.
type Store interface {
	// Create builds a session owned by owner through build and stores it.
	// build receives a Scheduler whose callbacks run under the new entry's lock.
	Create(ctx context.Context, owner string, build func(game.Scheduler) *game.Session) (*Entry, error)

	// Get retrieves an entry by session ID.
	Get(ctx context.Context, id string) (*Entry, error)

	Delete(ctx context.Context, id string) error

	// Sweep removes entries idle for longer than idle and reports how many.
	Sweep(ctx context.Context, idle time.Duration) int

	Len() int
}

// Entry owns one session.
type Entry struct {
	owner string

	mu      sync.Mutex
	session *game.Session
	closed  bool
	touched time.Time
	now     func() time.Time
}

// ID returns the session ID. Safe without the lock: IDs never change.
func (e *Entry) ID() string { return e.session.ID() }

// Owner returns the player that created the session.
func (e *Entry) Owner() string { return e.owner }

// Do runs fn with exclusive access to the session.
func (e *Entry) Do(fn func(s *game.Session)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrNotFound
	}
	fn(e.session)
	e.touched = e.now()
	return nil
}

// after is the Scheduler handed to sessions of this entry.
func (e *Entry) after(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		_ = e.Do(func(*game.Session) { fn() })
	})
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.touched
}

func (e *Entry) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// ---- memory implementation ----

type memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return newMemory(time.Now)
}

func newMemory(now func() time.Time) *memory {
	return &memory{entries: make(map[string]*Entry), now: now}
}

func (m *memory) Create(_ context.Context, owner string, build func(game.Scheduler) *game.Session) (*Entry, error) {
	e := &Entry{owner: owner, now: m.now, touched: m.now()}
	e.session = build(e.after)
	if e.session == nil {
		return nil, errors.New("store: build returned no session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.session.ID()] = e
	return e, nil
}

func (m *memory) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.close()
	return nil
}

func (m *memory) Sweep(_ context.Context, idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.RLock()
	var stale []*Entry
	for _, e := range m.entries {
		if e.idleSince().Before(cutoff) {
			stale = append(stale, e)
		}
	}
	m.mu.RUnlock()

	m.mu.Lock()
	for _, e := range stale {
		delete(m.entries, e.ID())
	}
	m.mu.Unlock()
	for _, e := range stale {
		e.close()
	}
	return len(stale)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RunJanitor sweeps st every interval until ctx is done.
func RunJanitor(ctx context.Context, st Store, every, idle time.Duration, log zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.Sweep(ctx, idle); n > 0 {
				log.Info().Int("swept", n).Int("live", st.Len()).Msg("idle sessions removed")
			}
		}
	}
}
