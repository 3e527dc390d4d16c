// cmd/peer/render.go
//
// Plain-text rendering of a session snapshot. Odd columns sit half a row
// lower on the hex grid; the text view marks them with a leading space on
// the column header only.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/game"
)

// glyph picks the character for one cell.
func glyph(c board.CellView) byte {
	switch {
	case c.State == board.CellHit && c.Sunk:
		return '*'
	case c.State == board.CellHit:
		return 'X'
	case c.State == board.CellMiss:
		return 'o'
	case c.State == board.CellShip:
		return '#'
	case c.Forbidden:
		return '-'
	default:
		return '.'
	}
}

func renderBoard(b *strings.Builder, title string, v board.View) {
	fmt.Fprintf(b, "%s\n   ", title)
	for c := 0; c < v.Size; c++ {
		fmt.Fprintf(b, "%2d", c)
	}
	b.WriteByte('\n')
	for r, row := range v.Cells {
		fmt.Fprintf(b, "%2d ", r)
		for _, cell := range row {
			b.WriteByte(' ')
			b.WriteByte(glyph(cell))
		}
		b.WriteByte('\n')
	}
}

// render writes both boards and a status line.
func render(w io.Writer, s game.Snapshot) {
	var b strings.Builder
	renderBoard(&b, "your fleet", s.Own)
	b.WriteByte('\n')
	renderBoard(&b, "enemy waters", s.Opponent)
	fmt.Fprintf(&b, "\nphase=%s turn=%s you=%s ships %d:%d orientation=%s\n",
		s.Phase, s.ActiveRole, s.Role, s.Scores.Own, s.Scores.Opponent, s.Arrow)
	if s.Phase == game.PhaseSetup {
		fmt.Fprintf(&b, "to place: %d ships, ready=%t peer ready=%t\n", len(s.Remaining), s.LocalReady, s.PeerReady)
	}
	if s.Phase == game.PhaseGameOver {
		if s.Winner == s.Role {
			b.WriteString("you won\n")
		} else {
			b.WriteString("you lost\n")
		}
	}
	_, _ = io.WriteString(w, b.String())
}
