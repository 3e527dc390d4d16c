package board

import "github.com/shakiller/shiphexwar/internal/hexgrid"

// CellView is what a renderer may know about one cell.
type CellView struct {
	State     CellState `json:"state"`
	Sunk      bool      `json:"sunk,omitempty"`
	Forbidden bool      `json:"forbidden,omitempty"`
}

// View is a read-only snapshot of a board for renderers.
type View struct {
	Size  int          `json:"size"`
	Cells [][]CellView `json:"cells"`
}

// View snapshots b. With reveal false, unshot ship cells read as empty.
// forbidden marks cells from an advisory set; a zero CoordSet marks none.
func (b *Board) View(reveal bool, forbidden hexgrid.CoordSet) View {
	v := View{Size: b.grid.Size, Cells: make([][]CellView, b.grid.Size)}
	for r := 0; r < b.grid.Size; r++ {
		v.Cells[r] = make([]CellView, b.grid.Size)
		for c := 0; c < b.grid.Size; c++ {
			at := hexgrid.C(r, c)
			st := b.cells[r][c]
			if st == CellShip && !reveal {
				st = CellEmpty
			}
			v.Cells[r][c] = CellView{
				State:     st,
				Sunk:      st == CellHit && b.SunkAt(at),
				Forbidden: forbidden.Has(at),
			}
		}
	}
	return v
}

func (v View) at(c hexgrid.Coord) CellView {
	if c.Row < 0 || c.Row >= v.Size || c.Col < 0 || c.Col >= v.Size {
		return CellView{}
	}
	return v.Cells[c.Row][c.Col]
}

// CellState returns the visible state of c.
func (v View) CellState(c hexgrid.Coord) CellState { return v.at(c).State }

// IsSunk reports whether c renders as part of a sunk ship.
func (v View) IsSunk(c hexgrid.Coord) bool { return v.at(c).Sunk }

// IsForbidden reports whether c is in the advisory forbidden set.
func (v View) IsForbidden(c hexgrid.Coord) bool { return v.at(c).Forbidden }
