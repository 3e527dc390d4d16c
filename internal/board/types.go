// internal/board/types.go
//
// Core type definitions for a player's board.
// Defines:
//   - CellState: stored state of a cell (empty/ship/hit/miss).
//   - ShipSpec / Fleet: the ship catalog of a ruleset.
//   - Ship: one placed ship instance with its per-position hit flags.
//   - ShipRecord: the plain-data shape of a Ship exchanged with peers.

package board

import (
	"errors"
	"fmt"

	"github.com/shakiller/shiphexwar/internal/hexgrid"
)

// CellState is what a board stores per cell. "Sunk" is not stored; it is
// derived from the ship occupying a hit cell.
type CellState int

const (
	CellEmpty CellState = iota
	CellShip
	CellHit
	CellMiss
)

func (s CellState) String() string {
	switch s {
	case CellEmpty:
		return "empty"
	case CellShip:
		return "ship"
	case CellHit:
		return "hit"
	case CellMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name for JSON views.
func (s CellState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *CellState) UnmarshalText(b []byte) error {
	for _, c := range []CellState{CellEmpty, CellShip, CellHit, CellMiss} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown cell state %q", b)
}

// ShipSpec is a class of ship and how many instances a fleet holds.
type ShipSpec struct {
	Size  int    `json:"size"`
	Count int    `json:"count"`
	Name  string `json:"name"`
}

// Fleet is the fixed ship catalog of a ruleset.
type Fleet []ShipSpec

// DefaultFleet returns the standard catalog: one 4, two 3s, three 2s, four 1s.
func DefaultFleet() Fleet {
	return Fleet{
		{Size: 4, Count: 1, Name: "Battleship"},
		{Size: 3, Count: 2, Name: "Cruiser"},
		{Size: 2, Count: 3, Name: "Destroyer"},
		{Size: 1, Count: 4, Name: "Boat"},
	}
}

// Total is the number of ship instances in the fleet.
func (f Fleet) Total() int {
	n := 0
	for _, s := range f {
		n += s.Count
	}
	return n
}

// Validate checks that every spec has a positive size and count.
func (f Fleet) Validate() error {
	if len(f) == 0 {
		return errors.New("fleet: empty catalog")
	}
	for i, s := range f {
		if s.Size <= 0 || s.Count <= 0 {
			return fmt.Errorf("fleet: spec %d (%q) needs positive size and count", i, s.Name)
		}
	}
	return nil
}

// Instances enumerates every (type, instance) pair of the fleet in catalog order.
func (f Fleet) Instances() []ShipMeta {
	out := make([]ShipMeta, 0, f.Total())
	for ti, s := range f {
		for i := 0; i < s.Count; i++ {
			out = append(out, ShipMeta{TypeIndex: ti, Instance: i})
		}
	}
	return out
}

// Contains reports whether m names an instance of the fleet.
func (f Fleet) Contains(m ShipMeta) bool {
	return m.TypeIndex >= 0 && m.TypeIndex < len(f) && m.Instance >= 0 && m.Instance < f[m.TypeIndex].Count
}

// SizeOf returns the size of m's ship class, or 0 if m is not in the fleet.
func (f Fleet) SizeOf(m ShipMeta) int {
	if !f.Contains(m) {
		return 0
	}
	return f[m.TypeIndex].Size
}

// ShipMeta identifies one ship instance of a fleet.
type ShipMeta struct {
	TypeIndex int `json:"typeIndex"`
	Instance  int `json:"instance"`
}

// Ship is a placed ship. Positions form a straight hex line; Hits is parallel to Positions.
type Ship struct {
	Positions []hexgrid.Coord
	Hits      []bool
	ShipMeta
}

func newShip(shape []hexgrid.Coord, meta ShipMeta) *Ship {
	pos := make([]hexgrid.Coord, len(shape))
	copy(pos, shape)
	return &Ship{Positions: pos, Hits: make([]bool, len(shape)), ShipMeta: meta}
}

// Size is the number of cells the ship occupies.
func (s *Ship) Size() int { return len(s.Positions) }

// Sunk reports whether every position has been hit.
func (s *Ship) Sunk() bool {
	for _, h := range s.Hits {
		if !h {
			return false
		}
	}
	return true
}

// HitCount counts hit positions.
func (s *Ship) HitCount() int {
	n := 0
	for _, h := range s.Hits {
		if h {
			n++
		}
	}
	return n
}

// IndexOf returns the index of c in Positions, or -1.
func (s *Ship) IndexOf(c hexgrid.Coord) int {
	for i, p := range s.Positions {
		if p == c {
			return i
		}
	}
	return -1
}

// Record converts the ship into its wire shape.
func (s *Ship) Record() ShipRecord {
	pos := make([]hexgrid.Coord, len(s.Positions))
	copy(pos, s.Positions)
	hits := make([]bool, len(s.Hits))
	copy(hits, s.Hits)
	return ShipRecord{Positions: pos, Hits: hits, Size: len(pos), TypeIndex: s.TypeIndex, Instance: s.Instance}
}

// ShipRecord is a Ship as plain data.
type ShipRecord struct {
	Positions []hexgrid.Coord `json:"positions"`
	Hits      []bool          `json:"hits"`
	Size      int             `json:"size"`
	TypeIndex int             `json:"typeIndex"`
	Instance  int             `json:"instance"`
}

// Meta returns the record's instance identity.
func (r ShipRecord) Meta() ShipMeta { return ShipMeta{TypeIndex: r.TypeIndex, Instance: r.Instance} }

// Records converts ships into their wire shape.
func Records(ships []*Ship) []ShipRecord {
	out := make([]ShipRecord, 0, len(ships))
	for _, s := range ships {
		out = append(out, s.Record())
	}
	return out
}
