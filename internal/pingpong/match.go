package pingpong

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
)

// Slot is one of the two player positions in a match. A bracket slot may be
// unfilled (a bye, or a later-round pairing not yet decided), so checking
// Filled before using PlayerID keeps slot handling exhaustive.
type Slot struct {
	PlayerID uuid.UUID
	Filled   bool
}

type Match struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TournamentID *uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// Position in the bracket for reconstructing the view. Round 1 is the
	// first elimination round, position is the 0-based slot within a round.
	Round    int `db:"round" json:"round"`
	Position int `db:"position" json:"position"`

	Player1ID *uuid.UUID `db:"player1_id" json:"player1_id"`
	Player2ID *uuid.UUID `db:"player2_id" json:"player2_id"`

	Player1Score int         `db:"player1_score" json:"player1_score"`
	Player2Score int         `db:"player2_score" json:"player2_score"`
	Status       MatchStatus `db:"status" json:"status"`

	WinnerID *uuid.UUID `db:"winner_id" json:"winner_id"`
	IsBye    bool       `db:"is_bye" json:"is_bye"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (m *Match) Slot(n int) Slot {
	var id *uuid.UUID
	switch n {
	case 1:
		id = m.Player1ID
	case 2:
		id = m.Player2ID
	}
	if id == nil {
		return Slot{}
	}
	return Slot{PlayerID: *id, Filled: true}
}

// Winner returns the winning slot of a completed match. A completed match
// with equal scores is a tie and has no winner.
func (m *Match) Winner() Slot {
	if m.Status != MatchCompleted || m.WinnerID == nil {
		return Slot{}
	}
	return Slot{PlayerID: *m.WinnerID, Filled: true}
}

func (m *Match) IsTie() bool {
	return m.Status == MatchCompleted && m.WinnerID == nil
}
