package service

import (
	"context"
	"testing"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/SilkePilon/PingPong/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatchService(db *sqlx.DB) *MatchService {
	return NewMatchService(db, store.NewMatchStore(db), store.NewPlayerStore(db), store.NewStatsStore(db), nil)
}

func createTestMatch(t *testing.T, db *sqlx.DB) (*pingpong.Match, []pingpong.Player) {
	t.Helper()

	players := createTestPlayers(t, db, 2)
	matchService := newTestMatchService(db)
	match, err := matchService.Create(context.Background(), players[0].ID, players[1].ID)
	require.NoError(t, err)
	return match, players
}

func TestCreateMatch_SamePlayer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	players := createTestPlayers(t, db, 1)
	matchService := newTestMatchService(db)

	_, err := matchService.Create(context.Background(), players[0].ID, players[0].ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestCreateMatch_UnknownPlayer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	players := createTestPlayers(t, db, 1)
	matchService := newTestMatchService(db)

	_, err := matchService.Create(context.Background(), players[0].ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenMatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, players := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	// First open activates the pending match
	data, err := matchService.Open(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, pingpong.MatchActive, data.Match.Status)
	require.NotNil(t, data.Player1)
	require.NotNil(t, data.Player2)
	assert.Equal(t, players[0].ID, data.Player1.ID)
	assert.Equal(t, players[1].ID, data.Player2.ID)

	// Re-opening does not revert or error
	data, err = matchService.Open(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, pingpong.MatchActive, data.Match.Status)
}

func TestOpenMatch_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	matchService := newTestMatchService(db)

	_, err := matchService.Open(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustScore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, _ := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	updated, err := matchService.AdjustScore(ctx, match.ID, 1, +1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Player1Score)
	assert.Equal(t, 0, updated.Player2Score)

	updated, err = matchService.AdjustScore(ctx, match.ID, 2, +1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Player2Score)

	updated, err = matchService.AdjustScore(ctx, match.ID, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Player1Score)
}

func TestAdjustScore_NeverNegative(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, _ := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	_, err := matchService.AdjustScore(ctx, match.ID, 1, -1)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	// State unchanged
	stored, err := store.NewMatchStore(db).GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Player1Score)
}

func TestAdjustScore_Validation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, _ := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	_, err := matchService.AdjustScore(ctx, match.ID, 3, +1)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = matchService.AdjustScore(ctx, match.ID, 1, +2)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = matchService.AdjustScore(ctx, uuid.New(), 1, +1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetScore(t *testing.T) {
	testCases := []struct {
		name           string
		score1, score2 int
		expectedStatus pingpong.MatchStatus
	}{
		{"decided at 11-9", 11, 9, pingpong.MatchCompleted},
		{"margin below 2 stays active", 11, 10, pingpong.MatchActive},
		{"below 11 stays active", 10, 8, pingpong.MatchActive},
		{"deuce decided at 13-11", 13, 11, pingpong.MatchCompleted},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			match, _ := createTestMatch(t, db)
			matchService := newTestMatchService(db)

			updated, err := matchService.SetScore(context.Background(), match.ID, tc.score1, tc.score2)
			require.NoError(t, err)
			assert.Equal(t, tc.score1, updated.Player1Score)
			assert.Equal(t, tc.score2, updated.Player2Score)
			assert.Equal(t, tc.expectedStatus, updated.Status)
		})
	}
}

func TestSetScore_NegativeRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, _ := createTestMatch(t, db)
	matchService := newTestMatchService(db)

	_, err := matchService.SetScore(context.Background(), match.ID, -1, 5)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = matchService.SetScore(context.Background(), match.ID, 5, -1)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestEndMatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, players := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	statsStore := store.NewStatsStore(db)
	ctx := context.Background()

	_, err := db.Exec("UPDATE matches SET player1_score = 11, player2_score = 7, status = 'active' WHERE id = ?", match.ID)
	require.NoError(t, err)

	completed, err := matchService.End(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, pingpong.MatchCompleted, completed.Status)
	require.NotNil(t, completed.WinnerID)
	assert.Equal(t, players[0].ID, *completed.WinnerID)

	winnerStats, err := statsStore.GetStats(ctx, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, winnerStats.MatchesPlayed)
	assert.Equal(t, 1, winnerStats.MatchesWon)
	assert.Equal(t, 11, winnerStats.TotalPointsScored)

	loserStats, err := statsStore.GetStats(ctx, players[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loserStats.MatchesPlayed)
	assert.Equal(t, 0, loserStats.MatchesWon)
	assert.Equal(t, 7, loserStats.TotalPointsScored)
}

func TestEndMatch_Tie(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, players := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	statsStore := store.NewStatsStore(db)
	ctx := context.Background()

	_, err := db.Exec("UPDATE matches SET player1_score = 10, player2_score = 10, status = 'active' WHERE id = ?", match.ID)
	require.NoError(t, err)

	completed, err := matchService.End(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, pingpong.MatchCompleted, completed.Status)
	assert.Nil(t, completed.WinnerID)
	assert.True(t, completed.IsTie())

	for _, p := range players {
		stats, err := statsStore.GetStats(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MatchesPlayed)
		assert.Equal(t, 0, stats.MatchesWon)
		assert.Equal(t, 10, stats.TotalPointsScored)
	}
}

func TestEndMatch_AlreadyCompleted(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, _ := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	_, err := matchService.End(ctx, match.ID)
	require.NoError(t, err)

	// No transition out of completed, and no double stats
	_, err = matchService.End(ctx, match.ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestEndMatch_AdvancesWinner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	matchStore := store.NewMatchStore(db)
	bracketService := NewBracketService(db, matchStore)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	tournamentID := createTestTournament(t, db)
	players := createTestPlayers(t, db, 4)

	matches, err := bracketService.Generate(ctx, tournamentID, players)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	var first *pingpong.Match
	for i := range matches {
		if matches[i].Round == 1 && matches[i].Position == 0 {
			first = &matches[i]
		}
	}
	require.NotNil(t, first)

	_, err = db.Exec("UPDATE matches SET player1_score = 11, player2_score = 4, status = 'active' WHERE id = ?", first.ID)
	require.NoError(t, err)

	completed, err := matchService.End(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.WinnerID)

	// Winner of (round 1, position 0) lands in slot 1 of (round 2, position 0)
	stored, err := matchStore.GetTournamentMatches(ctx, tournamentID)
	require.NoError(t, err)
	for _, m := range stored {
		if m.Round == 2 {
			require.NotNil(t, m.Player1ID)
			assert.Equal(t, *completed.WinnerID, *m.Player1ID)
			assert.Nil(t, m.Player2ID)
		}
	}
}

// endWithScores drives a match to completion through the service, setting the
// scores directly first.
func endWithScores(t *testing.T, db *sqlx.DB, matchService *MatchService, id uuid.UUID, score1, score2 int) *pingpong.Match {
	t.Helper()

	_, err := db.Exec("UPDATE matches SET player1_score = ?, player2_score = ?, status = 'active' WHERE id = ?", score1, score2, id)
	require.NoError(t, err)

	completed, err := matchService.End(context.Background(), id)
	require.NoError(t, err)
	return completed
}

func TestEndMatch_AdvancesThroughUnpairedSlot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	matchStore := store.NewMatchStore(db)
	bracketService := NewBracketService(db, matchStore)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	tournamentID := createTestTournament(t, db)
	players := createTestPlayers(t, db, 6)

	_, err := bracketService.Generate(ctx, tournamentID, players)
	require.NoError(t, err)

	at := func(round, position int) *pingpong.Match {
		t.Helper()
		stored, err := matchStore.GetTournamentMatches(ctx, tournamentID)
		require.NoError(t, err)
		for i := range stored {
			if stored[i].Round == round && stored[i].Position == position {
				return &stored[i]
			}
		}
		t.Fatalf("no match at round %d position %d", round, position)
		return nil
	}

	// (2, 1) has a single feeder, so ending (1, 2) must carry its winner
	// straight through into the final instead of leaving the bracket stuck
	// on a match that can never fill.
	thirdPair := at(1, 2)
	completed := endWithScores(t, db, matchService, thirdPair.ID, 11, 5)
	require.NotNil(t, completed.WinnerID)
	winner := *completed.WinnerID

	unpaired := at(2, 1)
	assert.True(t, unpaired.IsBye)
	assert.Equal(t, pingpong.MatchCompleted, unpaired.Status)
	require.NotNil(t, unpaired.WinnerID)
	assert.Equal(t, winner, *unpaired.WinnerID)

	final := at(3, 0)
	require.NotNil(t, final.Player2ID)
	assert.Equal(t, winner, *final.Player2ID)

	// Play out the rest: the final fills and the bracket finishes.
	endWithScores(t, db, matchService, at(1, 0).ID, 11, 3)
	endWithScores(t, db, matchService, at(1, 1).ID, 11, 6)
	semi := at(2, 0)
	require.NotNil(t, semi.Player1ID)
	require.NotNil(t, semi.Player2ID)
	endWithScores(t, db, matchService, semi.ID, 11, 9)

	final = at(3, 0)
	require.NotNil(t, final.Player1ID)
	require.NotNil(t, final.Player2ID)
	champion := endWithScores(t, db, matchService, final.ID, 12, 10)
	assert.Equal(t, pingpong.MatchCompleted, champion.Status)
	require.NotNil(t, champion.WinnerID)
}

func TestEndMatch_ByeNotPlayable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	matchStore := store.NewMatchStore(db)
	bracketService := NewBracketService(db, matchStore)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	tournamentID := createTestTournament(t, db)
	players := createTestPlayers(t, db, 6)

	matches, err := bracketService.Generate(ctx, tournamentID, players)
	require.NoError(t, err)

	var unpaired *pingpong.Match
	for i := range matches {
		if matches[i].Round == 2 && matches[i].Position == 1 {
			unpaired = &matches[i]
		}
	}
	require.NotNil(t, unpaired)
	require.True(t, unpaired.IsBye)

	// A bye is decided by the bracket, never by scoring it
	_, err = matchService.End(ctx, unpaired.ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = matchService.AdjustScore(ctx, unpaired.ID, 1, +1)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = matchService.SetScore(ctx, unpaired.ID, 11, 0)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestEndMatch_StatsFailureStillCompletes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	match, _ := createTestMatch(t, db)
	matchService := newTestMatchService(db)
	ctx := context.Background()

	_, err := db.Exec("UPDATE matches SET player1_score = 11, player2_score = 7, status = 'active' WHERE id = ?", match.ID)
	require.NoError(t, err)

	// Wipe the stats rows so every increment misses
	_, err = db.Exec("DELETE FROM player_stats")
	require.NoError(t, err)

	completed, err := matchService.End(ctx, match.ID)
	assert.ErrorIs(t, err, ErrStatsUpdate)

	// The completion itself is not rolled back
	require.NotNil(t, completed)
	assert.Equal(t, pingpong.MatchCompleted, completed.Status)

	stored, err := store.NewMatchStore(db).GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, pingpong.MatchCompleted, stored.Status)
	require.NotNil(t, stored.WinnerID)
}
