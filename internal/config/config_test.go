package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "BOARD_SIZE", "BOT_DELAY_MS", "SESSION_TTL", "PRIORITY_DEFAULT"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	require.Equal(t, "5180", c.Port)
	require.Equal(t, 8, c.Game.BoardSize)
	require.Equal(t, 800*time.Millisecond, c.Game.BotDelay)
	require.Equal(t, 2*time.Hour, c.SessionTTL)
	require.Equal(t, 1, c.Game.AI.PriorityDefault)
}

func TestOverridesAndBadValues(t *testing.T) {
	t.Setenv("BOARD_SIZE", "10")
	t.Setenv("BOT_DELAY_MS", "5")
	t.Setenv("PRIORITY_DEFAULT", "0")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("PROMISING_MARGIN", "two")

	c := FromEnv()
	require.Equal(t, 10, c.Game.BoardSize)
	require.Equal(t, 5*time.Millisecond, c.Game.BotDelay)
	require.Zero(t, c.Game.AI.PriorityDefault)
	require.Equal(t, 2*time.Hour, c.SessionTTL)
	require.Equal(t, 2, c.Game.AI.PromisingMargin)
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("ROOM_TTL", "") // restores the original value after the test
	require.NoError(t, os.Unsetenv("ROOM_TTL"))
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ROOM_TTL=15m\n"), 0o600))

	c := Load(path)
	require.Equal(t, 15*time.Minute, c.RoomTTL)
}
