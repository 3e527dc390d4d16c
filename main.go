// main.go
//
// Entry point of the hex battleship server.
// Wires configuration, logging, match history, the session store, relay
// rooms and the HTTP router, then serves until interrupted.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shakiller/shiphexwar/assets"
	"github.com/shakiller/shiphexwar/internal/config"
	"github.com/shakiller/shiphexwar/internal/history"
	"github.com/shakiller/shiphexwar/internal/httpserver"
	"github.com/shakiller/shiphexwar/internal/lobby"
	"github.com/shakiller/shiphexwar/internal/store"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if err := cfg.Game.Fleet.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid fleet")
	}

	db, err := history.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()
	if err := history.Migrate(db, assets.Migrations); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	rooms := lobby.NewRooms([]byte(cfg.JWTSecret), cfg.RoomTTL, log.Logger)
	go store.RunJanitor(ctx, mem, time.Minute, cfg.SessionTTL, log.Logger)
	go sweepRooms(ctx, rooms)

	srv := httpserver.New(httpserver.Deps{
		Config:  cfg,
		Store:   mem,
		History: history.NewStore(db),
		Rooms:   rooms,
		Logger:  log.Logger,
	})
	log.Info().Str("port", cfg.Port).Int("board", cfg.Game.BoardSize).Msg("starting shiphexwar")
	if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shut down")
}

func sweepRooms(ctx context.Context, rooms *lobby.Rooms) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rooms.Sweep()
		}
	}
}
