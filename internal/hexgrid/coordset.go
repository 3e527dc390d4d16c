package hexgrid

import (
	"sort"

	"github.com/dolthub/swiss"
)

// CoordSet is a set of cells keyed on the (row, col) pair.
// The zero value is not usable; call NewCoordSet.
type CoordSet struct {
	m *swiss.Map[Coord, struct{}]
}

// NewCoordSet returns a set holding the given cells.
func NewCoordSet(cells ...Coord) CoordSet {
	s := CoordSet{m: swiss.NewMap[Coord, struct{}](uint32(max(len(cells), 8)))}
	for _, c := range cells {
		s.Add(c)
	}
	return s
}

// Add inserts c. Adding an existing member is a no-op.
func (s CoordSet) Add(c Coord) { s.m.Put(c, struct{}{}) }

// AddAll inserts every cell in cells.
func (s CoordSet) AddAll(cells []Coord) {
	for _, c := range cells {
		s.m.Put(c, struct{}{})
	}
}

// Has reports membership. It is safe on the zero value.
func (s CoordSet) Has(c Coord) bool { return s.m != nil && s.m.Has(c) }

func (s CoordSet) Remove(c Coord) { s.m.Delete(c) }

func (s CoordSet) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Count()
}

func (s CoordSet) Clear() { s.m.Clear() }

// Slice returns the members in row-major order.
func (s CoordSet) Slice() []Coord {
	if s.m == nil {
		return nil
	}
	out := make([]Coord, 0, s.m.Count())
	s.m.Iter(func(c Coord, _ struct{}) bool {
		out = append(out, c)
		return false
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Clone returns an independent copy of s.
func (s CoordSet) Clone() CoordSet {
	out := NewCoordSet()
	if s.m == nil {
		return out
	}
	s.m.Iter(func(c Coord, _ struct{}) bool {
		out.Add(c)
		return false
	})
	return out
}
