package store

import (
	"context"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) CreateMatch(ctx context.Context, match *pingpong.Match) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, round, position, player1_id, player2_id, player1_score, player2_score, status, winner_id, is_bye)
		VALUES (:id, :tournament_id, :round, :position, :player1_id, :player2_id, :player1_score, :player2_score, :status, :winner_id, :is_bye)`, match)
	return err
}

func (s *MatchStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []pingpong.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, round, position, player1_id, player2_id, player1_score, player2_score, status, winner_id, is_bye)
		VALUES (:id, :tournament_id, :round, :position, :player1_id, :player2_id, :player1_score, :player2_score, :status, :winner_id, :is_bye)`, matches)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, id uuid.UUID) (*pingpong.Match, error) {
	var match pingpong.Match
	err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	return &match, err
}

func (s *MatchStore) ListMatches(ctx context.Context) ([]pingpong.Match, error) {
	var matches []pingpong.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches ORDER BY created_at DESC")
	return matches, err
}

func (s *MatchStore) GetTournamentMatches(ctx context.Context, tournamentID uuid.UUID) ([]pingpong.Match, error) {
	var matches []pingpong.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round ASC, position ASC", tournamentID)
	return matches, err
}

func (s *MatchStore) CountTournamentMatches(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM matches WHERE tournament_id = ?", tournamentID)
	return count, err
}

// ActivateMatch flips a pending match to active. The status guard makes the
// transition idempotent: re-opening an active or completed match changes
// nothing.
func (s *MatchStore) ActivateMatch(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE matches SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		pingpong.MatchActive, id, pingpong.MatchPending)
	return err
}

// AdjustScore applies a server-side atomic increment to one score column so
// concurrent +1 clicks from separate sessions each land. The guard rejects a
// decrement below zero; the caller checks the affected row count.
func (s *MatchStore) AdjustScore(ctx context.Context, id uuid.UUID, slot, delta int) (bool, error) {
	column := "player1_score"
	if slot == 2 {
		column = "player2_score"
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE matches SET "+column+" = "+column+" + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND "+column+" + ? >= 0",
		delta, id, delta)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *MatchStore) SetScores(ctx context.Context, id uuid.UUID, score1, score2 int, status pingpong.MatchStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE matches SET player1_score = ?, player2_score = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		score1, score2, status, id)
	return err
}

func (s *MatchStore) CompleteMatch(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, winnerID *uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE matches SET status = ?, winner_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		pingpong.MatchCompleted, winnerID, id)
	return err
}

// GetBracketMatch reads the match at the given bracket coordinates inside the
// caller's transaction.
func (s *MatchStore) GetBracketMatch(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, round, position int) (*pingpong.Match, error) {
	var match pingpong.Match
	err := tx.GetContext(ctx, &match,
		"SELECT * FROM matches WHERE tournament_id = ? AND round = ? AND position = ?",
		tournamentID, round, position)
	return &match, err
}

// FillBracketSlot places a player into one slot of the match at the given
// bracket coordinates. Used to advance winners into the next round.
func (s *MatchStore) FillBracketSlot(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, round, position, slot int, playerID uuid.UUID) error {
	column := "player1_id"
	if slot == 2 {
		column = "player2_id"
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE matches SET "+column+" = ?, updated_at = CURRENT_TIMESTAMP WHERE tournament_id = ? AND round = ? AND position = ?",
		playerID, tournamentID, round, position)
	return err
}
