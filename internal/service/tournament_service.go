package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/SilkePilon/PingPong/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	players     *store.PlayerStore
	matches     *store.MatchStore
}

func NewTournamentService(db *sqlx.DB, tournaments *store.TournamentStore, players *store.PlayerStore, matches *store.MatchStore) *TournamentService {
	return &TournamentService{db: db, tournaments: tournaments, players: players, matches: matches}
}

type TournamentData struct {
	Tournament *pingpong.Tournament     `json:"tournament"`
	Players    []pingpong.Player        `json:"players"`
	Matches    []pingpong.Match         `json:"matches"`
	Rounds     map[int][]pingpong.Match `json:"rounds"`
	RoundNums  []int                    `json:"round_nums"`
}

func (s *TournamentService) Create(ctx context.Context, name, description string, startDate, endDate *time.Time) (*pingpong.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrInvalidOperation)
	}

	tournament := &pingpong.Tournament{
		ID:          uuid.New(),
		Name:        name,
		Description: stringOrNil(description),
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      pingpong.TournamentUpcoming,
	}
	if err := s.tournaments.CreateTournament(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *TournamentService) List(ctx context.Context) ([]pingpong.Tournament, error) {
	return s.tournaments.ListTournaments(ctx)
}

// Data loads a tournament with its roster and matches, the latter grouped by
// round for rendering order.
func (s *TournamentService) Data(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	tournament, err := s.tournaments.GetTournament(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	players, err := s.players.GetTournamentPlayers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament players: %w", err)
	}

	matches, err := s.matches.GetTournamentMatches(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament matches: %w", err)
	}

	rounds := make(map[int][]pingpong.Match)
	var roundNums []int
	for _, m := range matches {
		if _, exists := rounds[m.Round]; !exists {
			roundNums = append(roundNums, m.Round)
		}
		rounds[m.Round] = append(rounds[m.Round], m)
	}
	sort.Ints(roundNums)

	return &TournamentData{
		Tournament: tournament,
		Players:    players,
		Matches:    matches,
		Rounds:     rounds,
		RoundNums:  roundNums,
	}, nil
}

func (s *TournamentService) AddPlayer(ctx context.Context, tournamentID, playerID uuid.UUID) error {
	if _, err := s.tournaments.GetTournament(ctx, tournamentID); err != nil {
		return notFound(err)
	}
	if _, err := s.players.GetPlayer(ctx, playerID); err != nil {
		return notFound(err)
	}

	if err := s.players.AddToTournament(ctx, tournamentID, playerID); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: player is already in the tournament", ErrInvalidOperation)
		}
		return fmt.Errorf("failed to add player to tournament: %w", err)
	}
	return nil
}

func (s *TournamentService) UpdateStatus(ctx context.Context, id uuid.UUID, status pingpong.TournamentStatus) error {
	switch status {
	case pingpong.TournamentUpcoming, pingpong.TournamentActive, pingpong.TournamentCompleted:
	default:
		return fmt.Errorf("%w: unknown tournament status %q", ErrInvalidOperation, status)
	}

	if _, err := s.tournaments.GetTournament(ctx, id); err != nil {
		return notFound(err)
	}
	return s.tournaments.UpdateTournamentStatus(ctx, id, status)
}
