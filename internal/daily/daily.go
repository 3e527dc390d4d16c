// internal/daily/daily.go
//
// Daily challenge seeding.
// Everyone who starts a daily game on the same UTC day faces the same bot
// fleet: the seed is HMAC-SHA256(salt, YYYY-MM-DD), so it cannot be guessed
// without the server's salt.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the deterministic bot seed for the day containing t.
// The first 8 bytes of the MAC are read big-endian; the sign bit is cleared
// so the seed is never negative.
func Seed(t time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	n := binary.BigEndian.Uint64(sum[:8])
	return int64(n &^ (1 << 63))
}
