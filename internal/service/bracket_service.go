package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/SilkePilon/PingPong/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketService struct {
	db      *sqlx.DB
	matches *store.MatchStore
}

func NewBracketService(db *sqlx.DB, matches *store.MatchStore) *BracketService {
	return &BracketService{db: db, matches: matches}
}

// Number of elimination rounds needed for count players, so 5 players need 3
// rounds and so on
func calcNumRounds(count int) int {
	if count < 2 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(count))))
}

// Generate shuffles the roster into a single-elimination bracket and persists
// every match of the tree in one batch. Round 1 pairs consecutive shuffled
// players; later rounds are placeholders filled as winners advance. The whole
// bracket is committed atomically, so a failed insert leaves no partial tree.
func (s *BracketService) Generate(ctx context.Context, tournamentID uuid.UUID, players []pingpong.Player) ([]pingpong.Match, error) {
	if tournamentID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing tournament id", ErrInvalidOperation)
	}
	if len(players) < 2 {
		return nil, ErrInsufficientPlayers
	}

	existing, err := s.matches.CountTournamentMatches(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing matches: %w", err)
	}
	if existing > 0 {
		return nil, ErrGenerationConflict
	}

	matches := buildBracket(tournamentID, players)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.matches.CreateMatches(ctx, tx, matches); err != nil {
		// The unique bracket-slot index catches a generation that raced past
		// the existence check above.
		if isConstraintViolation(err) {
			return nil, ErrGenerationConflict
		}
		return nil, fmt.Errorf("failed to insert bracket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket: %w", err)
	}

	return matches, nil
}

func buildBracket(tournamentID uuid.UUID, players []pingpong.Player) []pingpong.Match {
	shuffled := make([]pingpong.Player, len(players))
	copy(shuffled, players)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	numRounds := calcNumRounds(len(shuffled))

	// Round 1 is truncated to the roster, later rounds follow the
	// power-of-two schedule.
	counts := make([]int, numRounds+1)
	counts[1] = (len(shuffled) + 1) / 2
	total := counts[1]
	for r := 2; r <= numRounds; r++ {
		counts[r] = 1 << (numRounds - r)
		total += counts[r]
	}

	// Round 1: consecutive pairs. An odd roster leaves the last match with an
	// empty second slot (a bye).
	matches := make([]pingpong.Match, 0, total)
	for i := 0; i < len(shuffled); i += 2 {
		m := pingpong.Match{
			ID:           uuid.New(),
			TournamentID: &tournamentID,
			Round:        1,
			Position:     i / 2,
			Player1ID:    &shuffled[i].ID,
			Status:       pingpong.MatchPending,
		}
		if i+1 < len(shuffled) {
			m.Player2ID = &shuffled[i+1].ID
		}
		matches = append(matches, m)
	}

	// Rounds 2..numRounds: placeholders with both slots empty, count halving
	// each round.
	for round := 2; round <= numRounds; round++ {
		for position := 0; position < counts[round]; position++ {
			matches = append(matches, pingpong.Match{
				ID:           uuid.New(),
				TournamentID: &tournamentID,
				Round:        round,
				Position:     position,
				Status:       pingpong.MatchPending,
			})
		}
	}

	rounds := make([][]*pingpong.Match, numRounds+1)
	for i := range matches {
		rounds[matches[i].Round] = append(rounds[matches[i].Round], &matches[i])
	}

	// The truncated round 1 can leave a later-round slot without any feeder
	// match: placeholder (r, p) is fed by (r-1, 2p) and (r-1, 2p+1), and the
	// tail positions of a round may not exist. A placeholder with only one
	// live feeder is itself a bye: its lone arrival wins it on the spot. A
	// placeholder with no live feeder at all can never be played and is
	// closed immediately.
	winnable := make([][]bool, numRounds+1)
	winnable[1] = make([]bool, counts[1])
	for p := range winnable[1] {
		winnable[1][p] = true
	}
	for r := 2; r <= numRounds; r++ {
		winnable[r] = make([]bool, counts[r])
		for p := 0; p < counts[r]; p++ {
			slot1 := 2*p < counts[r-1] && winnable[r-1][2*p]
			slot2 := 2*p+1 < counts[r-1] && winnable[r-1][2*p+1]
			winnable[r][p] = slot1 || slot2

			switch {
			case slot1 && slot2:
			case slot1 || slot2:
				rounds[r][p].IsBye = true
			default:
				rounds[r][p].IsBye = true
				rounds[r][p].Status = pingpong.MatchCompleted
			}
		}
	}

	// A bye has no opponent to play: complete it immediately with its sole
	// player as winner (no score, no stats) and advance that player up the
	// tree, winning any bye placeholders along the way.
	var advance func(round, position int, playerID *uuid.UUID)
	advance = func(round, position int, playerID *uuid.UUID) {
		if round+1 > numRounds {
			return
		}
		next := rounds[round+1][position/2]
		if position%2 == 0 {
			next.Player1ID = playerID
		} else {
			next.Player2ID = playerID
		}
		if next.IsBye && next.Status != pingpong.MatchCompleted {
			next.Status = pingpong.MatchCompleted
			next.WinnerID = playerID
			advance(next.Round, next.Position, playerID)
		}
	}

	for _, m := range rounds[1] {
		if m.Player2ID != nil {
			continue
		}
		m.Status = pingpong.MatchCompleted
		m.WinnerID = m.Player1ID
		m.IsBye = true
		advance(1, m.Position, m.Player1ID)
	}

	return matches
}
