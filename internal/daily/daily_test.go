package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateKeyUsesUTC(t *testing.T) {
	east := time.FixedZone("UTC+10", 10*60*60)
	require.Equal(t, "2026-10-14", DateKey(time.Date(2026, 10, 15, 8, 0, 0, 0, east)))
	require.Equal(t, "2026-10-15", DateKey(time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)))
}

func TestSeed(t *testing.T) {
	morning := time.Date(2026, 10, 15, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 10, 15, 22, 0, 0, 0, time.UTC)
	tomorrow := morning.Add(24 * time.Hour)

	tests := []struct {
		name string
		a, b int64
		same bool
	}{
		{"same day", Seed(morning, "pepper"), Seed(evening, "pepper"), true},
		{"next day", Seed(morning, "pepper"), Seed(tomorrow, "pepper"), false},
		{"other salt", Seed(morning, "pepper"), Seed(morning, "salt"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				require.Equal(t, tt.a, tt.b)
			} else {
				require.NotEqual(t, tt.a, tt.b)
			}
			require.GreaterOrEqual(t, tt.a, int64(0))
		})
	}
}
