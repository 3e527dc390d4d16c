package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shakiller/shiphexwar/internal/board"
	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/protocol"
)

func TestRoles(t *testing.T) {
	require.Equal(t, protocol.RoleClient, protocol.RoleHost.Other())
	require.Equal(t, protocol.RoleHost, protocol.RoleClient.Other())
	require.False(t, protocol.Role("spectator").Valid())

	require.Equal(t, protocol.Me, protocol.Perspective(protocol.RoleHost, protocol.RoleHost))
	require.Equal(t, protocol.Opponent, protocol.Perspective(protocol.RoleClient, protocol.RoleHost))
}

func TestShotWireShape(t *testing.T) {
	sunk := &board.ShipRecord{
		Positions: []hexgrid.Coord{hexgrid.C(0, 0)},
		Hits:      []bool{true},
		Size:      1,
		TypeIndex: 3,
		Instance:  2,
	}
	data, err := protocol.Encode(protocol.ShotResult(hexgrid.C(0, 0), true, sunk, protocol.RoleClient))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "shot_result",
		"row": 0, "col": 0, "hit": true, "nextRole": "client",
		"sunkShip": {"positions":[{"row":0,"col":0}],"hits":[true],"size":1,"typeIndex":3,"instance":2}
	}`, string(data))
}

func TestDecodeToleratesMissingOptionalFields(t *testing.T) {
	m, err := protocol.Decode([]byte(`{"type":"shot","row":3,"col":4}`))
	require.NoError(t, err)
	c, ok := m.Coord()
	require.True(t, ok)
	require.Equal(t, hexgrid.C(3, 4), c)
	require.False(t, m.Hit)
	require.Nil(t, m.SunkShip)
	require.Empty(t, m.NextRole)

	m, err = protocol.Decode([]byte(`{"type":"request_state"}`))
	require.NoError(t, err)
	require.Equal(t, protocol.KindRequestState, m.Type)

	m, err = protocol.Decode([]byte(`{"type":"game_state","gamePhase":"battle","extra":1}`))
	require.NoError(t, err)
	require.Empty(t, m.Ships)
	require.Equal(t, "battle", m.GamePhase)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"unknown kind":        `{"type":"chat","text":"hi"}`,
		"no kind":             `{"row":1,"col":1}`,
		"shot without col":    `{"type":"shot","row":1}`,
		"result without row":  `{"type":"shot_result","col":1,"hit":true}`,
		"start without role":  `{"type":"start_battle"}`,
		"start bad role":      `{"type":"start_battle","activeRole":"ref"}`,
		"not json":            `shot 1 1`,
		"wrong field type":    `{"type":"shot","row":"a","col":1}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := protocol.Decode([]byte(raw))
			require.ErrorIs(t, err, protocol.ErrMalformed)
		})
	}
}

func TestEncodeValidates(t *testing.T) {
	_, err := protocol.Encode(protocol.Message{Type: protocol.KindShot})
	require.ErrorIs(t, err, protocol.ErrMalformed)

	data, err := protocol.Encode(protocol.Ready(nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"ready"}`, string(data))
}
