// Package store is the SQL implementation of the persistence ports used by
// identity resolution, admission, launch, grade sync and the scheduled jobs.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

// Store works on any database/sql handle opened by db.Open. Queries use
// $n placeholders, understood by both pgx and modernc sqlite.
type Store struct{ DB *sql.DB }

func New(db *sql.DB) *Store { return &Store{DB: db} }

// notFound maps sql.ErrNoRows to host.ErrNotFound.
func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, host.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

type scanner interface {
	Scan(dest ...any) error
}
