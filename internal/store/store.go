// Package store is the persistence gateway: raw SQL over the opened
// database, one file per entity. Queries are written with ? placeholders
// and rebound to $n when the dialect is PostgreSQL.
package store

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fiber-cms-pg/internal/db"
)

// ErrNotFound is returned when a row lookup matches nothing. Callers
// attach the entity name when surfacing it.
var ErrNotFound = errors.New("not found")

// Store executes all CMS queries against one database handle.
type Store struct {
	db *db.DB
}

func New(d *db.DB) *Store {
	return &Store{db: d}
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.db.Dialect != db.DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// IsUniqueViolation reports whether err came from a unique constraint,
// in either dialect's wording.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
