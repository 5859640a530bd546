package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/SilkePilon/PingPong/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Broadcaster pushes the latest persisted match state to live viewers.
// Delivery is best-effort; the database stays the source of truth.
type Broadcaster interface {
	BroadcastMatch(match *pingpong.Match)
}

type MatchService struct {
	db      *sqlx.DB
	matches *store.MatchStore
	players *store.PlayerStore
	stats   *store.StatsStore
	live    Broadcaster
}

func NewMatchService(db *sqlx.DB, matches *store.MatchStore, players *store.PlayerStore, stats *store.StatsStore, live Broadcaster) *MatchService {
	return &MatchService{db: db, matches: matches, players: players, stats: stats, live: live}
}

type MatchData struct {
	Match   *pingpong.Match  `json:"match"`
	Player1 *pingpong.Player `json:"player1"`
	Player2 *pingpong.Player `json:"player2"`
}

// Create makes a standalone match between two players, outside any
// tournament bracket.
func (s *MatchService) Create(ctx context.Context, player1ID, player2ID uuid.UUID) (*pingpong.Match, error) {
	if player1ID == player2ID {
		return nil, fmt.Errorf("%w: a player cannot play themselves", ErrInvalidOperation)
	}

	for _, id := range []uuid.UUID{player1ID, player2ID} {
		if _, err := s.players.GetPlayer(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to get player %s: %w", id, notFound(err))
		}
	}

	match := &pingpong.Match{
		ID:        uuid.New(),
		Round:     1,
		Position:  0,
		Player1ID: &player1ID,
		Player2ID: &player2ID,
		Status:    pingpong.MatchPending,
	}
	if err := s.matches.CreateMatch(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

// Open loads a match for viewing. The first open moves a pending match to
// active; opening it again is a no-op transition-wise.
func (s *MatchService) Open(ctx context.Context, id uuid.UUID) (*MatchData, error) {
	match, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	if match.Status == pingpong.MatchPending {
		if err := s.matches.ActivateMatch(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to activate match: %w", err)
		}
		match.Status = pingpong.MatchActive
		s.broadcast(match)
	}

	return s.resolve(ctx, match)
}

// AdjustScore moves one slot's score by ±1. The decrement is rejected rather
// than clamped when the score is already zero. Two viewers clicking +1 at
// once both land thanks to the store's atomic increment.
func (s *MatchService) AdjustScore(ctx context.Context, id uuid.UUID, slot, delta int) (*pingpong.Match, error) {
	if slot != 1 && slot != 2 {
		return nil, fmt.Errorf("%w: slot must be 1 or 2", ErrInvalidOperation)
	}
	if delta != 1 && delta != -1 {
		return nil, fmt.Errorf("%w: delta must be +1 or -1", ErrInvalidOperation)
	}

	match, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if match.Status == pingpong.MatchCompleted {
		return nil, fmt.Errorf("%w: match is already completed", ErrInvalidOperation)
	}
	if match.IsBye {
		return nil, fmt.Errorf("%w: a bye is not played", ErrInvalidOperation)
	}

	score := match.Player1Score
	if slot == 2 {
		score = match.Player2Score
	}
	if score+delta < 0 {
		return nil, fmt.Errorf("%w: score cannot go negative", ErrInvalidOperation)
	}

	applied, err := s.matches.AdjustScore(ctx, id, slot, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust score: %w", err)
	}
	if !applied {
		// A concurrent decrement got there first and the guard refused to go
		// below zero.
		return nil, fmt.Errorf("%w: score cannot go negative", ErrInvalidOperation)
	}

	updated, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	s.broadcast(updated)
	return updated, nil
}

// SetScore is the administrative bulk edit. Status is re-derived from the
// submitted scores: a decided game (11+, win by 2) completes the match,
// anything else leaves it active.
func (s *MatchService) SetScore(ctx context.Context, id uuid.UUID, score1, score2 int) (*pingpong.Match, error) {
	if score1 < 0 || score2 < 0 {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrInvalidOperation)
	}

	match, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if match.IsBye {
		return nil, fmt.Errorf("%w: a bye is not played", ErrInvalidOperation)
	}

	status := pingpong.MatchActive
	if pingpong.IsWin(score1, score2) {
		status = pingpong.MatchCompleted
	}

	if err := s.matches.SetScores(ctx, id, score1, score2, status); err != nil {
		return nil, fmt.Errorf("failed to set scores: %w", err)
	}

	updated, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	s.broadcast(updated)
	return updated, nil
}

// End completes a match: the higher score wins, equal scores are a tie with
// no winner. The winner of a tournament match advances into the next round's
// slot. Stats increments happen after the completion commits; a failed
// increment surfaces as an ErrStatsUpdate wrap but never rolls the
// completion back.
func (s *MatchService) End(ctx context.Context, id uuid.UUID) (*pingpong.Match, error) {
	match, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if match.Status == pingpong.MatchCompleted {
		return nil, fmt.Errorf("%w: match is already completed", ErrInvalidOperation)
	}
	if match.IsBye {
		return nil, fmt.Errorf("%w: a bye is not played", ErrInvalidOperation)
	}

	var winnerID *uuid.UUID
	switch {
	case match.Player1Score > match.Player2Score:
		winnerID = match.Player1ID
	case match.Player2Score > match.Player1Score:
		winnerID = match.Player2ID
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.matches.CompleteMatch(ctx, tx, id, winnerID); err != nil {
		return nil, fmt.Errorf("failed to complete match: %w", err)
	}

	if match.TournamentID != nil && winnerID != nil {
		if err := s.advanceWinner(ctx, tx, *match.TournamentID, match.Round, match.Position, *winnerID); err != nil {
			return nil, fmt.Errorf("failed to advance winner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match completion: %w", err)
	}

	statsErr := s.recordStats(ctx, match, winnerID)

	completed, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	s.broadcast(completed)

	if statsErr != nil {
		return completed, fmt.Errorf("%w: %w", ErrStatsUpdate, statsErr)
	}
	return completed, nil
}

// advanceWinner moves the winner of match (round, position) up the tree:
// (r, p) feeds (r+1, p/2), odd positions into slot 2. The final has no
// parent, so the loop stops there. When the target is a bye placeholder, an
// unpaired slot left by the truncated first round, the arriving player wins
// it on the spot and keeps climbing.
func (s *MatchService) advanceWinner(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, round, position int, winnerID uuid.UUID) error {
	for {
		nextRound, nextPosition := round+1, position/2

		next, err := s.matches.GetBracketMatch(ctx, tx, tournamentID, nextRound, nextPosition)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		slot := 1
		if position%2 != 0 {
			slot = 2
		}
		if err := s.matches.FillBracketSlot(ctx, tx, tournamentID, nextRound, nextPosition, slot, winnerID); err != nil {
			return err
		}

		if !next.IsBye || next.Status == pingpong.MatchCompleted {
			return nil
		}
		if err := s.matches.CompleteMatch(ctx, tx, next.ID, &winnerID); err != nil {
			return err
		}
		round, position = nextRound, nextPosition
	}
}

// recordStats applies exactly one increment per participant. The winner gets
// the win; on a tie both players just record the game and their own points.
func (s *MatchService) recordStats(ctx context.Context, match *pingpong.Match, winnerID *uuid.UUID) error {
	var firstErr error
	for slot := 1; slot <= 2; slot++ {
		player := match.Slot(slot)
		if !player.Filled {
			continue
		}

		score := match.Player1Score
		if slot == 2 {
			score = match.Player2Score
		}

		delta := store.StatsDelta{MatchesPlayed: 1, PointsScored: score}
		if winnerID != nil && *winnerID == player.PlayerID {
			delta.MatchesWon = 1
		}

		if err := s.stats.IncrementStats(ctx, player.PlayerID, delta); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("player %s: %w", player.PlayerID, err)
		}
	}
	return firstErr
}

func (s *MatchService) List(ctx context.Context) ([]MatchData, error) {
	matches, err := s.matches.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	players, err := s.players.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	byID := make(map[uuid.UUID]*pingpong.Player, len(players))
	for i := range players {
		byID[players[i].ID] = &players[i]
	}

	data := make([]MatchData, 0, len(matches))
	for i := range matches {
		d := MatchData{Match: &matches[i]}
		if matches[i].Player1ID != nil {
			d.Player1 = byID[*matches[i].Player1ID]
		}
		if matches[i].Player2ID != nil {
			d.Player2 = byID[*matches[i].Player2ID]
		}
		data = append(data, d)
	}
	return data, nil
}

func (s *MatchService) resolve(ctx context.Context, match *pingpong.Match) (*MatchData, error) {
	data := &MatchData{Match: match}

	if match.Player1ID != nil {
		p, err := s.players.GetPlayer(ctx, *match.Player1ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get player 1: %w", err)
		}
		data.Player1 = p
	}
	if match.Player2ID != nil {
		p, err := s.players.GetPlayer(ctx, *match.Player2ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get player 2: %w", err)
		}
		data.Player2 = p
	}
	return data, nil
}

func (s *MatchService) broadcast(match *pingpong.Match) {
	if s.live != nil {
		s.live.BroadcastMatch(match)
	}
}
