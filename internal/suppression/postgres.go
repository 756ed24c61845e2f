package suppression

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store against the campaigns table of the
// suppression database. Connections come from the pool per lookup and are
// released when the query returns, so peak pool usage tracks in-flight
// lookups, not in-flight uploads.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to the suppression database. The connection is lazy;
// failures surface as ErrStoreUnavailable on the first lookup.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing handle. Used by tests.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Find(ctx context.Context, key3, key4, clientScope string) (*Record, error) {
	query := `SELECT date_ FROM campaigns WHERE left_3 = $1 AND left_4 = $2`
	args := []any{key3, key4}
	if clientScope != "" {
		query += ` AND client = $3`
		args = append(args, clientScope)
	}
	query += ` LIMIT 1`

	rec := Record{Key3: key3, Key4: key4, Client: clientScope}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&rec.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &rec, nil
}
