// internal/ai/ai.go
//
// Computer opponent.
// Responsibilities:
//   - Hunt mode: rank every legal target and pick randomly among the best.
//   - Target mode: walk the line of a located ship until it sinks.
//   - Forbidden tracking: a sunk ship and its halo are never fired upon again.
//
// Notes:
//   - The opponent sees a board only through Scoreboard, so it cannot peek
//     at unhit ship cells.
//   - Ships never touch, so every hit made while in target mode belongs to
//     the ship being pursued.

package ai

import (
	"math/rand"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
)

// Scoreboard is what the opponent may know about the board it fires at.
type Scoreboard interface {
	InBounds(c hexgrid.Coord) bool
	Shot(c hexgrid.Coord) bool
	IsHit(c hexgrid.Coord) bool
}

// Config tunes hunt-mode ranking. A zero PriorityDefault leaves cells outside
// the promising zone unranked; they are then only reached by the fallback.
type Config struct {
	PromisingMargin     int
	PriorityAdjacentHit int
	PriorityPromising   int
	PriorityDefault     int
}

func DefaultConfig() Config {
	return Config{
		PromisingMargin:     2,
		PriorityAdjacentHit: 3,
		PriorityPromising:   2,
		PriorityDefault:     1,
	}
}

// State is the pursuit memory of an Opponent.
type State struct {
	Hunt        bool               `json:"hunt"`
	LastHit     *hexgrid.Coord     `json:"lastHit,omitempty"`
	Direction   *hexgrid.Direction `json:"direction,omitempty"`
	HitSequence []hexgrid.Coord    `json:"hitSequence"`
	Forbidden   []hexgrid.Coord    `json:"forbidden"`
}

type Opponent struct {
	grid hexgrid.Grid
	cfg  Config
	rng  *rand.Rand

	hunt      bool
	lastHit   hexgrid.Coord
	dir       hexgrid.Direction
	hasDir    bool
	sequence  []hexgrid.Coord
	forbidden hexgrid.CoordSet
}

// New returns an opponent in hunt mode for boards of grid's size.
func New(grid hexgrid.Grid, cfg Config, rng *rand.Rand) *Opponent {
	o := &Opponent{grid: grid, cfg: cfg, rng: rng, forbidden: hexgrid.NewCoordSet()}
	o.Reset()
	return o
}

// Reset forgets everything, including forbidden cells. Used for a new game.
func (o *Opponent) Reset() {
	o.abandon()
	o.forbidden.Clear()
}

// abandon drops the current pursuit and returns to hunt mode.
func (o *Opponent) abandon() {
	o.hunt = true
	o.lastHit = hexgrid.Coord{}
	o.hasDir = false
	o.sequence = o.sequence[:0]
}

// Hunting reports whether no ship is currently being pursued.
func (o *Opponent) Hunting() bool { return o.hunt }

// Forbidden reports whether c was ruled out by an earlier sink.
func (o *Opponent) Forbidden(c hexgrid.Coord) bool { return o.forbidden.Has(c) }

// State returns a copy of the pursuit memory.
func (o *Opponent) State() State {
	st := State{
		Hunt:        o.hunt,
		HitSequence: append([]hexgrid.Coord(nil), o.sequence...),
		Forbidden:   o.forbidden.Slice(),
	}
	if !o.hunt {
		last := o.lastHit
		st.LastHit = &last
	}
	if o.hasDir {
		d := o.dir
		st.Direction = &d
	}
	return st
}

func (o *Opponent) valid(b Scoreboard, c hexgrid.Coord) bool {
	return b.InBounds(c) && !b.Shot(c) && !o.forbidden.Has(c)
}

// SelectTarget picks the next cell to fire at. It reports false only when no
// legal cell remains.
func (o *Opponent) SelectTarget(b Scoreboard) (hexgrid.Coord, bool) {
	if c, ok := o.pursue(b); ok {
		return c, true
	}
	return o.scan(b)
}

func (o *Opponent) pursue(b Scoreboard) (hexgrid.Coord, bool) {
	if o.hunt || len(o.sequence) == 0 {
		return hexgrid.Coord{}, false
	}

	if o.hasDir {
		if c, ok := o.grid.Neighbor(o.lastHit, o.dir); ok && o.valid(b, c) {
			return c, true
		}
		back := o.dir.Opposite()
		if c, ok := o.grid.Neighbor(o.sequence[0], back); ok && o.valid(b, c) {
			o.dir = back
			return c, true
		}
	}

	for _, i := range o.rng.Perm(hexgrid.NumDirections) {
		d := hexgrid.Directions[i]
		if c, ok := o.grid.Neighbor(o.lastHit, d); ok && o.valid(b, c) {
			o.dir, o.hasDir = d, true
			return c, true
		}
	}

	o.abandon()
	return hexgrid.Coord{}, false
}

// scan is hunt mode. When no legal cell carries a positive priority it picks
// among all legal cells.
func (o *Opponent) scan(b Scoreboard) (hexgrid.Coord, bool) {
	var (
		best  int
		top   []hexgrid.Coord
		legal []hexgrid.Coord
	)
	for _, c := range o.grid.Cells() {
		if !o.valid(b, c) {
			continue
		}
		legal = append(legal, c)
		p := o.priority(b, c)
		if p <= 0 {
			continue
		}
		switch {
		case p > best:
			best = p
			top = append(top[:0], c)
		case p == best:
			top = append(top, c)
		}
	}
	if len(top) > 0 {
		return top[o.rng.Intn(len(top))], true
	}
	if len(legal) > 0 {
		return legal[o.rng.Intn(len(legal))], true
	}
	return hexgrid.Coord{}, false
}

func (o *Opponent) priority(b Scoreboard, c hexgrid.Coord) int {
	for _, n := range o.grid.Neighbors(c) {
		if b.IsHit(n) {
			return o.cfg.PriorityAdjacentHit
		}
	}
	if o.grid.EdgeDistance(c) >= o.cfg.PromisingMargin {
		return o.cfg.PriorityPromising
	}
	return o.cfg.PriorityDefault
}

// Record feeds back the outcome of a shot chosen by SelectTarget.
func (o *Opponent) Record(out board.Outcome) {
	var sunk []hexgrid.Coord
	if out.Sunk != nil {
		sunk = out.Sunk.Positions
	}
	o.RecordShot(out.Coord, out.Hit, sunk)
}

// RecordShot is Record for callers that only know the sunk ship's positions,
// such as a peer applying a remote result.
func (o *Opponent) RecordShot(c hexgrid.Coord, hit bool, sunk []hexgrid.Coord) {
	if len(sunk) > 0 {
		o.forbidden.AddAll(o.grid.Halo(sunk))
		o.abandon()
		return
	}
	if !hit {
		return
	}
	if o.hunt {
		o.hunt = false
		o.hasDir = false
		o.sequence = append(o.sequence[:0], c)
	} else {
		o.sequence = append(o.sequence, c)
	}
	o.lastHit = c
}
