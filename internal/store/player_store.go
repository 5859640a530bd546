package store

import (
	"context"

	"github.com/SilkePilon/PingPong/internal/pingpong"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PlayerStore struct {
	db *sqlx.DB
}

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) CreatePlayer(ctx context.Context, tx *sqlx.Tx, player *pingpong.Player) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO players (id, name, email, profile_image_url)
		VALUES (:id, :name, :email, :profile_image_url)`, player)
	return err
}

func (s *PlayerStore) GetPlayer(ctx context.Context, id uuid.UUID) (*pingpong.Player, error) {
	var player pingpong.Player
	err := s.db.GetContext(ctx, &player, "SELECT * FROM players WHERE id = ?", id)
	return &player, err
}

func (s *PlayerStore) ListPlayers(ctx context.Context) ([]pingpong.Player, error) {
	var players []pingpong.Player
	err := s.db.SelectContext(ctx, &players, "SELECT * FROM players ORDER BY name ASC")
	return players, err
}

func (s *PlayerStore) AddToTournament(ctx context.Context, tournamentID, playerID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tournament_players (tournament_id, player_id) VALUES (?, ?)",
		tournamentID, playerID)
	return err
}

func (s *PlayerStore) GetTournamentPlayers(ctx context.Context, tournamentID uuid.UUID) ([]pingpong.Player, error) {
	var players []pingpong.Player
	err := s.db.SelectContext(ctx, &players, `SELECT p.* FROM players p
		JOIN tournament_players tp ON tp.player_id = p.id
		WHERE tp.tournament_id = ? ORDER BY p.name ASC`, tournamentID)
	return players, err
}
