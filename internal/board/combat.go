// internal/board/combat.go
//
// Shot resolution against a board's ships.

package board

import (
	"fmt"

	"github.com/shakiller/shiphexwar/internal/hexgrid"
)

// Outcome is the result of resolving one shot.
type Outcome struct {
	Coord hexgrid.Coord
	Hit   bool
	Sunk  *Ship // set when this shot completed a ship
}

// ResolveShot fires at c. A second shot at the same coordinate fails with
// ErrAlreadyShot and leaves the board untouched.
func (b *Board) ResolveShot(c hexgrid.Coord) (Outcome, error) {
	if !b.grid.InBounds(c) {
		return Outcome{}, fmt.Errorf("shot %v: %w", c, ErrOutOfBounds)
	}
	if b.shots.Has(c) {
		return Outcome{}, fmt.Errorf("shot %v: %w", c, ErrAlreadyShot)
	}
	b.shots.Add(c)

	s, ok := b.occ[c]
	if !ok {
		b.set(c, CellMiss)
		return Outcome{Coord: c}, nil
	}
	s.Hits[s.IndexOf(c)] = true
	b.set(c, CellHit)
	out := Outcome{Coord: c, Hit: true}
	if s.Sunk() {
		out.Sunk = s
	}
	return out, nil
}

// IsGameOver reports whether every ship on the board is fully hit.
func (b *Board) IsGameOver() bool {
	for _, s := range b.ships {
		if !s.Sunk() {
			return false
		}
	}
	return true
}

// ApplyRemoteShot records an outcome resolved by a peer. It checks the current
// cell first: an already-shot coordinate is never counted twice; only a sunk
// record's hit flags are re-synced. It reports whether the shot was new.
func (b *Board) ApplyRemoteShot(c hexgrid.Coord, hit bool, sunk *ShipRecord) bool {
	if !b.grid.InBounds(c) {
		return false
	}
	fresh := !b.shots.Has(c)
	if fresh {
		b.shots.Add(c)
		s, occupied := b.occ[c]
		switch {
		case hit && occupied:
			s.Hits[s.IndexOf(c)] = true
			b.set(c, CellHit)
		case hit:
			b.set(c, CellHit)
		default:
			b.set(c, CellMiss)
		}
	}
	if sunk != nil {
		b.syncSunk(*sunk)
	}
	return fresh
}

func (b *Board) syncSunk(r ShipRecord) {
	s := b.shipByMeta(r.Meta())
	if s == nil || len(r.Hits) != len(s.Hits) {
		return
	}
	for i, h := range r.Hits {
		if !h || s.Hits[i] {
			continue
		}
		s.Hits[i] = true
		b.shots.Add(s.Positions[i])
		b.set(s.Positions[i], CellHit)
	}
}

// Probe predicts the outcome of a shot at c without recording it. sunk is set
// when the shot would complete a ship; its hit flags include c.
func (b *Board) Probe(c hexgrid.Coord) (hit bool, sunk *ShipRecord, err error) {
	if !b.grid.InBounds(c) {
		return false, nil, fmt.Errorf("probe %v: %w", c, ErrOutOfBounds)
	}
	if b.shots.Has(c) {
		return false, nil, fmt.Errorf("probe %v: %w", c, ErrAlreadyShot)
	}
	s, ok := b.occ[c]
	if !ok {
		return false, nil, nil
	}
	r := s.Record()
	r.Hits[s.IndexOf(c)] = true
	for _, h := range r.Hits {
		if !h {
			return true, nil, nil
		}
	}
	return true, &r, nil
}
