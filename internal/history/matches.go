// internal/history/matches.go
//
// Match history and the daily leaderboard.
// Only finished-match results are stored; sessions live in memory.

package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shakiller/shiphexwar/internal/daily"
	"github.com/shakiller/shiphexwar/internal/game"
)

// ErrDuplicateDaily is returned when a player records a second daily match
// for the same day.
var ErrDuplicateDaily = errors.New("daily challenge already recorded")

// Match is one finished game as seen by the player who started it.
type Match struct {
	ID            string    `db:"id" json:"id"`
	PlayerID      string    `db:"player_id" json:"playerId"`
	Mode          string    `db:"mode" json:"mode"`
	Won           bool      `db:"won" json:"won"`
	Shots         int       `db:"shots" json:"shots"`
	Hits          int       `db:"hits" json:"hits"`
	OpponentShots int       `db:"opponent_shots" json:"opponentShots"`
	DurationMs    int64     `db:"duration_ms" json:"durationMs"`
	Seed          int64     `db:"seed" json:"seed"`
	DailyDate     string    `db:"daily_date" json:"dailyDate,omitempty"`
	FinishedAt    time.Time `db:"finished_at" json:"finishedAt"`
}

// FromOutcome converts a session outcome into a row for playerID.
func FromOutcome(playerID string, o game.Outcome) Match {
	m := Match{
		ID:            uuid.NewString(),
		PlayerID:      playerID,
		Mode:          string(o.Mode),
		Won:           o.PlayerWon,
		Shots:         o.Shots,
		Hits:          o.Hits,
		OpponentShots: o.OpponentShots,
		DurationMs:    o.Duration.Milliseconds(),
		Seed:          o.Seed,
		FinishedAt:    o.FinishedAt.UTC(),
	}
	if o.Daily {
		m.DailyDate = daily.DateKey(o.FinishedAt)
	}
	return m
}

// Totals aggregates a player's (or everyone's) record.
type Totals struct {
	Games       int     `db:"games" json:"games"`
	Wins        int     `db:"wins" json:"wins"`
	Losses      int     `db:"losses" json:"losses"`
	AvgWinShots float64 `db:"avg_win_shots" json:"avgWinShots"`
}

// LBRow is one leaderboard line.
type LBRow struct {
	PlayerID   string `db:"player_id" json:"playerId"`
	Shots      int    `db:"shots" json:"shots"`
	DurationMs int64  `db:"duration_ms" json:"durationMs"`
}

type Store struct{ db *sqlx.DB }

func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// Record inserts a finished match.
func (s *Store) Record(ctx context.Context, m Match) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.DailyDate != "" {
		played, err := s.AlreadyPlayed(ctx, m.PlayerID, m.DailyDate)
		if err != nil {
			return err
		}
		if played {
			return fmt.Errorf("player %s on %s: %w", m.PlayerID, m.DailyDate, ErrDuplicateDaily)
		}
	}
	_, err := s.db.NamedExecContext(ctx, `
        INSERT INTO matches
            (id, player_id, mode, won, shots, hits, opponent_shots, duration_ms, seed, daily_date, finished_at)
        VALUES
            (:id, :player_id, :mode, :won, :shots, :hits, :opponent_shots, :duration_ms, :seed, :daily_date, :finished_at)`,
		m)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// Recent returns the newest matches first. An empty playerID means everyone.
func (s *Store) Recent(ctx context.Context, playerID string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []Match{}
	err := s.db.SelectContext(ctx, &out, `
        SELECT id, player_id, mode, won, shots, hits, opponent_shots, duration_ms, seed, daily_date, finished_at
        FROM matches
        WHERE (? = '' OR player_id = ?)
        ORDER BY finished_at DESC
        LIMIT ?`, playerID, playerID, limit)
	return out, err
}

// Totals aggregates wins and losses. An empty playerID means everyone.
func (s *Store) Totals(ctx context.Context, playerID string) (Totals, error) {
	var t Totals
	err := s.db.GetContext(ctx, &t, `
        SELECT COUNT(1)                                         AS games,
               COALESCE(SUM(won), 0)                            AS wins,
               COUNT(1) - COALESCE(SUM(won), 0)                 AS losses,
               COALESCE(AVG(CASE WHEN won = 1 THEN shots END), 0) AS avg_win_shots
        FROM matches
        WHERE (? = '' OR player_id = ?)`, playerID, playerID)
	return t, err
}

// AlreadyPlayed reports whether playerID has a daily match on date.
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, date string) (bool, error) {
	var cnt int
	err := s.db.GetContext(ctx, &cnt,
		`SELECT COUNT(1) FROM matches WHERE player_id=? AND daily_date=?`, playerID, date)
	return cnt > 0, err
}

// DailyLeaderboard ranks the day's wins by fewest shots, then fastest.
func (s *Store) DailyLeaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	out := make([]LBRow, 0, limit)
	err := s.db.SelectContext(ctx, &out, `
        SELECT player_id, shots, duration_ms
        FROM matches
        WHERE daily_date = ? AND won = 1
        ORDER BY shots ASC, duration_ms ASC, finished_at ASC
        LIMIT ?`, date, limit)
	return out, err
}
