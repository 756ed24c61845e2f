package suppression

import (
	"context"
	"time"

	"leadscreen/internal"
)

// Client performs fingerprint lookups for one run. Scope and recency window
// are fixed at construction and held for every row of the run.
type Client struct {
	store         Store
	clientScope   string
	recencyMonths int
	now           func() time.Time
}

// NewClient builds a lookup client. recencyMonths <= 0 disables date
// classification; clientScope "" disables the client predicate.
func NewClient(store Store, clientScope string, recencyMonths int) *Client {
	return &Client{
		store:         store,
		clientScope:   clientScope,
		recencyMonths: recencyMonths,
		now:           time.Now,
	}
}

// Lookup resolves one fingerprint against the store.
//
// With a recency window N the cutoff is now minus N calendar months; a
// matched record strictly older than the cutoff is "Suppression Cleared",
// anything at or after it is "Still Suppressed", and no match at all is
// "Fresh Lead GTG". Without a window only the existence flag is populated.
func (c *Client) Lookup(ctx context.Context, fp internal.Fingerprint) (internal.MatchResult, error) {
	rec, err := c.store.Find(ctx, fp.Key3, fp.Key4, c.clientScope)
	if err != nil {
		return internal.MatchResult{}, err
	}

	if rec == nil {
		result := internal.MatchResult{Exists: false}
		if c.recencyMonths > 0 {
			result.DateStatus = internal.DateStatusFresh
		}
		return result, nil
	}

	date := rec.Date
	result := internal.MatchResult{Exists: true, MatchedAt: &date}
	if c.recencyMonths > 0 {
		cutoff := c.now().AddDate(0, -c.recencyMonths, 0)
		if date.Before(cutoff) {
			result.DateStatus = internal.DateStatusCleared
		} else {
			result.DateStatus = internal.DateStatusSuppressed
		}
	}
	return result, nil
}
