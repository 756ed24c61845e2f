// Package suppression reads the external suppression registry: previously
// contacted or excluded identities, keyed by fingerprint and client code.
// The registry is owned by a separate ingestion process; this package never
// writes to it.
package suppression

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps any connection or query failure against the
// store. It aborts a run: an unreachable store must never look like
// "no match".
var ErrStoreUnavailable = errors.New("suppression store unavailable")

// Record is one row of the registry.
type Record struct {
	Key3   string
	Key4   string
	Client string
	Date   time.Time
}

// Store is the read-only lookup surface. Find returns the record matching
// both keys, restricted to clientScope when it is non-empty, or nil when
// nothing matches. Existence and date come from the same fetched row, so a
// single call is internally consistent even against concurrent writers.
type Store interface {
	Find(ctx context.Context, key3, key4, clientScope string) (*Record, error)
}
