package service

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrInsufficientPlayers is returned when a bracket is requested for
	// fewer than two players.
	ErrInsufficientPlayers = errors.New("at least 2 players are required to generate a bracket")

	// ErrInvalidOperation covers validation failures caught before any
	// persistence attempt: negative scores, malformed slots, transitions out
	// of a completed match.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotFound is returned when the referenced match, player or
	// tournament does not exist.
	ErrNotFound = errors.New("not found")

	// ErrGenerationConflict is returned when a tournament already has a
	// bracket. The unique (tournament_id, round, position) index raises it
	// even when two generations race past the existence check.
	ErrGenerationConflict = errors.New("tournament already has a bracket")

	// ErrStatsUpdate marks a partial failure: the match completed and was
	// committed, but a stats increment did not land. Callers should surface
	// a warning rather than roll back.
	ErrStatsUpdate = errors.New("player stats update failed")
)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
