// internal/config/config.go
//
// Process configuration.
// Responsibilities:
//   - Load .env (when present) and read settings from the environment.
//   - Provide defaults for every key so a bare `go run .` works in development.
//   - Translate ruleset keys into game.Config.
//
// Notes:
//   - Malformed numbers and durations fall back to the default with a warning;
//     they never stop the server.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/shakiller/shiphexwar/internal/game"
)

type Config struct {
	Port         string
	LogLevel     string
	DBPath       string
	JWTSecret    string
	ClientOrigin string
	DailySalt    string

	SessionTTL time.Duration
	RoomTTL    time.Duration

	Game game.Config
}

// Load reads .env files (if any) and then the environment.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	g := game.DefaultConfig()
	g.BoardSize = envInt("BOARD_SIZE", g.BoardSize)
	g.BotDelay = time.Duration(envInt("BOT_DELAY_MS", int(g.BotDelay/time.Millisecond))) * time.Millisecond
	g.AI.PromisingMargin = envInt("PROMISING_MARGIN", g.AI.PromisingMargin)
	g.AI.PriorityAdjacentHit = envInt("PRIORITY_ADJACENT_HIT", g.AI.PriorityAdjacentHit)
	g.AI.PriorityPromising = envInt("PRIORITY_PROMISING", g.AI.PriorityPromising)
	g.AI.PriorityDefault = envInt("PRIORITY_DEFAULT", g.AI.PriorityDefault)
	g.Limits.PerShip = envInt("PLACEMENT_ATTEMPTS_PER_SHIP", g.Limits.PerShip)
	g.Limits.Total = envInt("PLACEMENT_ATTEMPTS_TOTAL", g.Limits.Total)

	return Config{
		Port:         getEnv("PORT", "5180"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DBPath:       getEnv("DB_PATH", "./data/shiphexwar.db"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DailySalt:    getEnv("DAILY_SALT", "shiphexwar"),
		SessionTTL:   envDuration("SESSION_TTL", 2*time.Hour),
		RoomTTL:      envDuration("ROOM_TTL", time.Hour),
		Game:         g,
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a duration, using default")
		return def
	}
	return d
}
