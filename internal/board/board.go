// internal/board/board.go
//
// Per-player board state.
// Responsibilities:
//   - Size×Size grid of CellState.
//   - Registry of placed ships and a cell → ship index.
//   - Set of coordinates that have been shot.
//
// Invariants:
//   - A cell is CellShip iff a ship occupies it and it has not been shot.
//   - A shot cell is CellHit if occupied, CellMiss otherwise.
//   - Board state is only changed by placement.go and combat.go.

package board

import (
	"errors"

	"github.com/shakiller/shiphexwar/internal/hexgrid"
)

var (
	// ErrInvalidPlacement: shape leaves the board, overlaps, or touches another ship.
	ErrInvalidPlacement = errors.New("invalid placement")
	// ErrAlreadyShot: the coordinate was fired upon before.
	ErrAlreadyShot = errors.New("already shot")
	// ErrOutOfBounds: the coordinate is not on the board.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrPlacementExhausted: random placement ran out of attempts.
	ErrPlacementExhausted = errors.New("placement exhausted")
	// ErrFleetLocked: a fleet cannot be replaced once shots were recorded.
	ErrFleetLocked = errors.New("fleet locked")
)

// Board is one player's grid.
type Board struct {
	grid  hexgrid.Grid
	cells [][]CellState
	ships []*Ship
	occ   map[hexgrid.Coord]*Ship
	shots hexgrid.CoordSet
}

// New returns an empty board of the given size.
func New(size int) *Board {
	b := &Board{grid: hexgrid.NewGrid(size)}
	b.Clear()
	return b
}

// Clear drops every ship and shot.
func (b *Board) Clear() {
	b.cells = make([][]CellState, b.grid.Size)
	for r := range b.cells {
		b.cells[r] = make([]CellState, b.grid.Size)
	}
	b.ships = nil
	b.occ = make(map[hexgrid.Coord]*Ship)
	b.shots = hexgrid.NewCoordSet()
}

// Grid returns the board's coordinate system.
func (b *Board) Grid() hexgrid.Grid { return b.grid }

// Size is the side length of the board.
func (b *Board) Size() int { return b.grid.Size }

// InBounds reports whether c is on the board.
func (b *Board) InBounds(c hexgrid.Coord) bool { return b.grid.InBounds(c) }

// Cell returns the stored state of c; off-board cells read as empty.
func (b *Board) Cell(c hexgrid.Coord) CellState {
	if !b.grid.InBounds(c) {
		return CellEmpty
	}
	return b.cells[c.Row][c.Col]
}

// Ships returns the placed ships in placement order.
func (b *Board) Ships() []*Ship { return b.ships }

// ShipAt returns the ship occupying c, if any.
func (b *Board) ShipAt(c hexgrid.Coord) (*Ship, bool) {
	s, ok := b.occ[c]
	return s, ok
}

// HasShip reports whether the instance m is on the board.
func (b *Board) HasShip(m ShipMeta) bool {
	return b.shipByMeta(m) != nil
}

func (b *Board) shipByMeta(m ShipMeta) *Ship {
	for _, s := range b.ships {
		if s.ShipMeta == m {
			return s
		}
	}
	return nil
}

// Shot reports whether c has been fired upon.
func (b *Board) Shot(c hexgrid.Coord) bool { return b.shots.Has(c) }

// IsHit reports whether c was shot and found a ship.
func (b *Board) IsHit(c hexgrid.Coord) bool { return b.Cell(c) == CellHit }

// Shots returns every shot coordinate in row-major order.
func (b *Board) Shots() []hexgrid.Coord { return b.shots.Slice() }

// ShotCount is the number of shots received.
func (b *Board) ShotCount() int { return b.shots.Len() }

// HitCount is the number of shots that found a ship.
func (b *Board) HitCount() int {
	n := 0
	for _, row := range b.cells {
		for _, s := range row {
			if s == CellHit {
				n++
			}
		}
	}
	return n
}

// AliveShips counts ships with at least one unhit position.
func (b *Board) AliveShips() int {
	n := 0
	for _, s := range b.ships {
		if !s.Sunk() {
			n++
		}
	}
	return n
}

// SunkAt reports whether c belongs to a sunk ship.
func (b *Board) SunkAt(c hexgrid.Coord) bool {
	s, ok := b.occ[c]
	return ok && s.Sunk()
}

// Records returns the fleet as plain data.
func (b *Board) Records() []ShipRecord { return Records(b.ships) }

func (b *Board) set(c hexgrid.Coord, s CellState) { b.cells[c.Row][c.Col] = s }
