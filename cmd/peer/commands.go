// cmd/peer/commands.go
//
// Stdin command parsing and execution against a session.

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/game"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  place ROW COL TYPE INSTANCE [DIR]   place a ship (DIR 0-5, default current orientation)
  remove ROW COL                      lift a ship back into the palette
  random                              auto-place the whole fleet
  rotate [N]                          turn the orientation by N steps (default 1)
  ready                               lock the fleet and wait for the peer
  fire ROW COL                        shoot at the enemy board
  forbid on|off                       show cells next to sunk ships
  show                                redraw
  quit
`

func ints(args []string, n int) ([]int, error) {
	if len(args) < n {
		return nil, fmt.Errorf("need %d numbers", n)
	}
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		out[i] = v
	}
	return out, nil
}

// execute runs one command line. It returns a message for the user.
func execute(s *game.Session, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		return helpText, nil
	case "quit", "exit":
		return "", errQuit
	case "show":
		return "", nil
	case "place":
		n, err := ints(args, 4)
		if err != nil {
			return "", err
		}
		d := s.Orientation()
		if len(n) > 4 {
			d = hexgrid.Direction(n[4])
		}
		rec, err := s.PlaceShipAt(hexgrid.C(n[0], n[1]), board.ShipMeta{TypeIndex: n[2], Instance: n[3]}, d)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("placed size %d at %v", rec.Size, rec.Positions), nil
	case "remove":
		n, err := ints(args, 2)
		if err != nil {
			return "", err
		}
		rec, err := s.RemoveShipAt(hexgrid.C(n[0], n[1]))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("removed size %d", rec.Size), nil
	case "random":
		return "fleet placed", s.RandomizeFleet()
	case "rotate":
		delta := 1
		if len(args) > 0 {
			n, err := ints(args, 1)
			if err != nil {
				return "", err
			}
			delta = n[0]
		}
		return "orientation " + s.RotateOrientation(delta).Arrow(), nil
	case "ready":
		if err := s.StartBattle(); err != nil {
			return "", err
		}
		return "fleet locked", nil
	case "fire":
		n, err := ints(args, 2)
		if err != nil {
			return "", err
		}
		res, err := s.FireAt(hexgrid.C(n[0], n[1]))
		if err != nil {
			return "", err
		}
		return describeShot(res), nil
	case "forbid":
		on := len(args) > 0 && args[0] == "on"
		s.SetShowForbidden(on)
		return fmt.Sprintf("forbidden overlay %t", on), nil
	default:
		return "", fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func describeShot(r game.ShotResult) string {
	switch {
	case r.Sunk != nil:
		return fmt.Sprintf("%v: hit, sunk a size %d ship", r.Coord, r.Sunk.Size)
	case r.Hit:
		return fmt.Sprintf("%v: hit", r.Coord)
	default:
		return fmt.Sprintf("%v: miss", r.Coord)
	}
}
