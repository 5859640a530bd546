package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/SilkePilon/PingPong/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PlayerService struct {
	db      *sqlx.DB
	players *store.PlayerStore
	stats   *store.StatsStore
}

func NewPlayerService(db *sqlx.DB, players *store.PlayerStore, stats *store.StatsStore) *PlayerService {
	return &PlayerService{db: db, players: players, stats: stats}
}

type PlayerData struct {
	Player pingpong.Player       `json:"player"`
	Stats  *pingpong.PlayerStats `json:"stats"`
}

// Create inserts the player together with their zeroed stats row. The stats
// row exists from day one so match completion only ever increments.
func (s *PlayerService) Create(ctx context.Context, name, email, profileImageURL string) (*pingpong.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidOperation)
	}

	player := &pingpong.Player{
		ID:              uuid.New(),
		Name:            name,
		Email:           stringOrNil(email),
		ProfileImageURL: stringOrNil(profileImageURL),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.players.CreatePlayer(ctx, tx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	if err := s.stats.CreateStats(ctx, tx, player.ID); err != nil {
		return nil, fmt.Errorf("failed to create player stats: %w", err)
	}

	return player, tx.Commit()
}

func (s *PlayerService) Get(ctx context.Context, id uuid.UUID) (*PlayerData, error) {
	player, err := s.players.GetPlayer(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	stats, err := s.stats.GetStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	return &PlayerData{Player: *player, Stats: stats}, nil
}

func (s *PlayerService) List(ctx context.Context) ([]PlayerData, error) {
	players, err := s.players.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	data := make([]PlayerData, 0, len(players))
	for _, p := range players {
		stats, err := s.stats.GetStats(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get stats for player %s: %w", p.ID, err)
		}
		data = append(data, PlayerData{Player: p, Stats: stats})
	}
	return data, nil
}

// Returns nil on an empty or all whitespace string
func stringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
