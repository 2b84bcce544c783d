// Package store provides the data access layer for the pulse pipeline:
// dataset records, the append-only snapshot log, grid pointer propagation,
// and the refresh attempt log.
package store

import (
	"database/sql"
	"errors"

	"github.com/hazyhaar/worldpulse/idgen"
)

// ErrUnknownDataset marks lookups for slugs that do not exist. Trigger
// handlers map it to 404.
var ErrUnknownDataset = errors.New("store: unknown dataset")

// Store wraps the pulse database.
type Store struct {
	DB    *sql.DB
	newID idgen.Generator
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, newID: idgen.Default}
}

// WithIDGenerator overrides the ID generator (tests use deterministic IDs).
func (s *Store) WithIDGenerator(gen idgen.Generator) *Store {
	s.newID = gen
	return s
}
