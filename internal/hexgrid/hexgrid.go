// internal/hexgrid/hexgrid.go
//
// Coordinate system for the hexagonal board.
// Responsibilities:
//   - Coord (row, col) addressing of an odd-q offset hex layout.
//   - Direction enum with a pure (direction, column parity) → offset table.
//   - Bounds checks, neighbor sets and straight-line projection.
//
// Notes:
//   - Offsets depend on the parity of the column the step starts from, so a
//     projection recomputes the offset after every step.
//   - Direction d and d+3 (mod 6) are opposites.

package hexgrid

import "fmt"

// DefaultSize is the side of the square board used by the standard ruleset.
const DefaultSize = 8

// Coord addresses one cell. Validity beyond bounds is contextual.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// C is shorthand for Coord{Row: row, Col: col}.
func C(row, col int) Coord { return Coord{Row: row, Col: col} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Direction is one of the six hex directions, 0..5.
type Direction int

const (
	South     Direction = iota // ↓
	SouthEast                  // ↘
	SouthWest                  // ↙
	North                      // ↑
	NorthWest                  // ↖
	NorthEast                  // ↗
)

// NumDirections is the number of neighbors of an interior cell.
const NumDirections = 6

// Directions lists every direction in index order.
var Directions = [NumDirections]Direction{South, SouthEast, SouthWest, North, NorthWest, NorthEast}

var arrows = [NumDirections]string{"↓", "↘", "↙", "↑", "↖", "↗"}

// offsets[d][p] is the (Δrow, Δcol) step in direction d from a column of parity p.
var offsets = [NumDirections][2]Coord{
	South:     {{Row: 1, Col: 0}, {Row: 1, Col: 0}},
	SouthEast: {{Row: 0, Col: 1}, {Row: 1, Col: 1}},
	SouthWest: {{Row: -1, Col: 1}, {Row: 0, Col: 1}},
	North:     {{Row: -1, Col: 0}, {Row: -1, Col: 0}},
	NorthWest: {{Row: -1, Col: -1}, {Row: 0, Col: -1}},
	NorthEast: {{Row: 0, Col: -1}, {Row: 1, Col: -1}},
}

// Valid reports whether d is one of the six directions.
func (d Direction) Valid() bool { return d >= 0 && d < NumDirections }

// Opposite returns (d + 3) mod 6.
func (d Direction) Opposite() Direction { return (d + 3) % NumDirections }

// Rotate turns d by delta steps; negative deltas rotate the other way.
func (d Direction) Rotate(delta int) Direction {
	return Direction(((int(d)+delta)%NumDirections + NumDirections) % NumDirections)
}

// Arrow returns the glyph used by renderers for d.
func (d Direction) Arrow() string {
	if !d.Valid() {
		return "?"
	}
	return arrows[d]
}

func (d Direction) String() string { return d.Arrow() }

// Offset returns the step taken in direction d from a cell in column col.
func Offset(d Direction, col int) Coord {
	return offsets[d][parity(col)]
}

func parity(col int) int {
	if col%2 == 0 {
		return 0
	}
	return 1
}

// Step moves c one cell in direction d without any bounds check.
func Step(c Coord, d Direction) Coord {
	o := Offset(d, c.Col)
	return Coord{Row: c.Row + o.Row, Col: c.Col + o.Col}
}

// Grid is a square board of Size×Size cells.
type Grid struct {
	Size int
}

// NewGrid returns a grid of the given size, falling back to DefaultSize for size <= 0.
func NewGrid(size int) Grid {
	if size <= 0 {
		size = DefaultSize
	}
	return Grid{Size: size}
}

// InBounds reports whether c lies on the board.
func (g Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.Size && c.Col >= 0 && c.Col < g.Size
}

// Neighbor returns the cell one step from c in direction d, if it is on the board.
func (g Grid) Neighbor(c Coord, d Direction) (Coord, bool) {
	n := Step(c, d)
	return n, g.InBounds(n)
}

// Neighbors returns the in-bounds neighbors of c in direction order.
func (g Grid) Neighbors(c Coord) []Coord {
	out := make([]Coord, 0, NumDirections)
	for _, d := range Directions {
		if n, ok := g.Neighbor(c, d); ok {
			out = append(out, n)
		}
	}
	return out
}

// Project walks steps cells from c in direction d. It fails if any
// intermediate cell leaves the board.
func (g Grid) Project(c Coord, d Direction, steps int) (Coord, bool) {
	if !g.InBounds(c) || !d.Valid() || steps < 0 {
		return Coord{}, false
	}
	cur := c
	for i := 0; i < steps; i++ {
		next, ok := g.Neighbor(cur, d)
		if !ok {
			return Coord{}, false
		}
		cur = next
	}
	return cur, true
}

// Line returns c followed by length-1 successive steps in direction d, or
// false if the line does not fit on the board.
func (g Grid) Line(c Coord, d Direction, length int) ([]Coord, bool) {
	if length <= 0 || !g.InBounds(c) || !d.Valid() {
		return nil, false
	}
	out := make([]Coord, 0, length)
	out = append(out, c)
	cur := c
	for i := 1; i < length; i++ {
		next, ok := g.Neighbor(cur, d)
		if !ok {
			return nil, false
		}
		out = append(out, next)
		cur = next
	}
	return out, true
}

// Cells returns every cell in row-major order.
func (g Grid) Cells() []Coord {
	out := make([]Coord, 0, g.Size*g.Size)
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			out = append(out, Coord{Row: r, Col: c})
		}
	}
	return out
}

// EdgeDistance is the number of cells between c and the nearest board edge.
func (g Grid) EdgeDistance(c Coord) int {
	return min(c.Row, c.Col, g.Size-1-c.Row, g.Size-1-c.Col)
}

// Adjacent reports whether a and b are hex neighbors.
func Adjacent(a, b Coord) bool {
	for _, d := range Directions {
		if Step(a, d) == b {
			return true
		}
	}
	return false
}

// Halo returns cells together with every in-bounds neighbor of them, without
// duplicates, in first-seen order.
func (g Grid) Halo(cells []Coord) []Coord {
	seen := make(map[Coord]struct{}, len(cells)*4)
	out := make([]Coord, 0, len(cells)*4)
	add := func(c Coord) {
		if _, ok := seen[c]; ok || !g.InBounds(c) {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range cells {
		add(c)
	}
	for _, c := range cells {
		for _, n := range g.Neighbors(c) {
			add(n)
		}
	}
	return out
}
