// internal/board/placement.go
//
// Ship placement engine.
// Responsibilities:
//   - ComputeShape: the only legal ship shape is a straight hex line.
//   - CanPlace: in-bounds, unoccupied, and no hex neighbor held by another ship.
//   - Place / Remove: commit or lift a ship.
//   - Randomize: bounded-retry auto placement that never commits a partial ship.

package board

import (
	"fmt"
	"math/rand"

	"github.com/shakiller/shiphexwar/internal/hexgrid"
)

// Default attempt budgets for Randomize.
const (
	DefaultAttemptsPerShip = 500
	DefaultAttemptsTotal   = 5000
)

// ComputeShape returns origin followed by size-1 successive steps in d, or
// false if any cell leaves the board.
func ComputeShape(g hexgrid.Grid, origin hexgrid.Coord, size int, d hexgrid.Direction) ([]hexgrid.Coord, bool) {
	return g.Line(origin, d, size)
}

// CanPlace reports whether shape may be committed to b under the no-touch rule.
func (b *Board) CanPlace(shape []hexgrid.Coord) bool {
	if len(shape) == 0 {
		return false
	}
	for _, c := range shape {
		if !b.grid.InBounds(c) || b.cells[c.Row][c.Col] != CellEmpty {
			return false
		}
		if _, ok := b.occ[c]; ok {
			return false
		}
	}
	for _, c := range shape {
		for _, n := range b.grid.Neighbors(c) {
			if _, ok := b.occ[n]; ok {
				return false
			}
		}
	}
	return true
}

// Place commits shape as the ship instance meta.
func (b *Board) Place(shape []hexgrid.Coord, meta ShipMeta) (*Ship, error) {
	if !b.CanPlace(shape) {
		return nil, fmt.Errorf("place %v at %v: %w", meta, shape, ErrInvalidPlacement)
	}
	if b.HasShip(meta) {
		return nil, fmt.Errorf("place %v: instance already on board: %w", meta, ErrInvalidPlacement)
	}
	s := newShip(shape, meta)
	for _, c := range s.Positions {
		b.set(c, CellShip)
		b.occ[c] = s
	}
	b.ships = append(b.ships, s)
	return s, nil
}

// Remove lifts the ship occupying c. It is a no-op when c is empty.
func (b *Board) Remove(c hexgrid.Coord) (*Ship, bool) {
	s, ok := b.occ[c]
	if !ok {
		return nil, false
	}
	for _, p := range s.Positions {
		b.set(p, CellEmpty)
		delete(b.occ, p)
	}
	for i, other := range b.ships {
		if other == s {
			b.ships = append(b.ships[:i], b.ships[i+1:]...)
			break
		}
	}
	return s, true
}

// PlacementExhaustedError reports the ship instances Randomize could not seat.
type PlacementExhaustedError struct {
	Unplaced []ShipMeta
}

func (e *PlacementExhaustedError) Error() string {
	return fmt.Sprintf("placement exhausted: %d ship(s) unplaced", len(e.Unplaced))
}

func (e *PlacementExhaustedError) Is(target error) bool { return target == ErrPlacementExhausted }

// Limits bounds the attempts Randomize may spend.
type Limits struct {
	PerShip int
	Total   int
}

// DefaultLimits returns the standard attempt budgets.
func DefaultLimits() Limits {
	return Limits{PerShip: DefaultAttemptsPerShip, Total: DefaultAttemptsTotal}
}

// Randomize seats every instance of fleet that is not yet on b, trying random
// (origin, direction) pairs. Ships that cannot be seated within the budgets
// are reported in a *PlacementExhaustedError; seated ships stay committed.
func (b *Board) Randomize(fleet Fleet, rng *rand.Rand, lim Limits) error {
	if lim.PerShip <= 0 {
		lim.PerShip = DefaultAttemptsPerShip
	}
	if lim.Total <= 0 {
		lim.Total = DefaultAttemptsTotal
	}
	var unplaced []ShipMeta
	total := 0
	for _, meta := range fleet.Instances() {
		if b.HasShip(meta) {
			continue
		}
		size := fleet[meta.TypeIndex].Size
		placed := false
		for attempt := 0; attempt < lim.PerShip && total < lim.Total; attempt++ {
			total++
			origin := hexgrid.C(rng.Intn(b.grid.Size), rng.Intn(b.grid.Size))
			d := hexgrid.Direction(rng.Intn(hexgrid.NumDirections))
			shape, ok := ComputeShape(b.grid, origin, size, d)
			if !ok || !b.CanPlace(shape) {
				continue
			}
			if _, err := b.Place(shape, meta); err == nil {
				placed = true
				break
			}
		}
		if !placed {
			unplaced = append(unplaced, meta)
		}
	}
	if len(unplaced) > 0 {
		return &PlacementExhaustedError{Unplaced: unplaced}
	}
	return nil
}

// AllShipsPlaced reports whether b holds exactly fleet.Total() ships.
func (b *Board) AllShipsPlaced(fleet Fleet) bool {
	return len(b.ships) == fleet.Total()
}

// IsLine reports whether cells form a straight hex line in a single direction.
func IsLine(g hexgrid.Grid, cells []hexgrid.Coord) bool {
	if len(cells) == 0 {
		return false
	}
	if len(cells) == 1 {
		return g.InBounds(cells[0])
	}
	for _, d := range hexgrid.Directions {
		line, ok := g.Line(cells[0], d, len(cells))
		if !ok {
			continue
		}
		match := true
		for i := range line {
			if line[i] != cells[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// ImportFleet replaces the fleet with ships received from a peer. Every
// record is validated with the same rules as local placement. The board
// must not have received any shot yet.
func (b *Board) ImportFleet(fleet Fleet, records []ShipRecord) error {
	if b.shots.Len() > 0 {
		return ErrFleetLocked
	}
	staged := New(b.grid.Size)
	for _, r := range records {
		if fleet != nil && (!fleet.Contains(r.Meta()) || fleet.SizeOf(r.Meta()) != len(r.Positions)) {
			return fmt.Errorf("import %v: not in fleet: %w", r.Meta(), ErrInvalidPlacement)
		}
		if !IsLine(staged.grid, r.Positions) {
			return fmt.Errorf("import %v: not a straight line: %w", r.Meta(), ErrInvalidPlacement)
		}
		if _, err := staged.Place(r.Positions, r.Meta()); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	*b = *staged
	return nil
}
