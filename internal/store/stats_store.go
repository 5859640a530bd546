package store

import (
	"context"
	"fmt"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type StatsStore struct {
	db *sqlx.DB
}

func NewStatsStore(db *sqlx.DB) *StatsStore {
	return &StatsStore{db: db}
}

// StatsDelta is applied as a single atomic increment, never a read-modify-write.
type StatsDelta struct {
	MatchesPlayed int
	MatchesWon    int
	PointsScored  int
}

func (s *StatsStore) CreateStats(ctx context.Context, tx *sqlx.Tx, playerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO player_stats (player_id) VALUES (?)", playerID)
	return err
}

// IncrementStats applies the delta to an existing stats row. A player without
// a row is an error, not a silent no-op, so the caller can report the missed
// update.
func (s *StatsStore) IncrementStats(ctx context.Context, playerID uuid.UUID, delta StatsDelta) error {
	res, err := s.db.ExecContext(ctx, `UPDATE player_stats SET
		matches_played = matches_played + ?,
		matches_won = matches_won + ?,
		total_points_scored = total_points_scored + ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE player_id = ?`,
		delta.MatchesPlayed, delta.MatchesWon, delta.PointsScored, playerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no stats row for player %s", playerID)
	}
	return nil
}

func (s *StatsStore) GetStats(ctx context.Context, playerID uuid.UUID) (*pingpong.PlayerStats, error) {
	var stats pingpong.PlayerStats
	err := s.db.GetContext(ctx, &stats, "SELECT * FROM player_stats WHERE player_id = ?", playerID)
	return &stats, err
}
