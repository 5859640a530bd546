package pingpong

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Email           *string   `db:"email" json:"email"`
	ProfileImageURL *string   `db:"profile_image_url" json:"profile_image_url"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PlayerStats are monotonically increasing aggregate counters, created
// alongside the player and mutated only on match completion.
type PlayerStats struct {
	PlayerID          uuid.UUID `db:"player_id" json:"player_id"`
	MatchesPlayed     int       `db:"matches_played" json:"matches_played"`
	MatchesWon        int       `db:"matches_won" json:"matches_won"`
	TotalPointsScored int       `db:"total_points_scored" json:"total_points_scored"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
