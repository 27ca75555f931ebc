// Package ident generates the identifiers attached to every scheduled
// deadline. IDs are ULIDs, so they sort by creation time and can be correlated
// across log lines and metrics without any coordination.
package ident

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID string that identifies one scheduled deadline.
type ID string

func (id ID) String() string { return string(id) }

// Time returns the creation time encoded in the ID.
// The zero time is returned for a malformed ID.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// monoEntropy is shared across all calls so IDs created within the same
// millisecond still sort in creation order.
var (
	monoMu      sync.Mutex
	monoEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// generate creates a new time-ordered ULID from the shared entropy source.
func generate(now time.Time) (ID, error) {
	monoMu.Lock()
	defer monoMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), monoEntropy)
	if err != nil {
		return "", err
	}
	return ID(id.String()), nil
}

// New returns a fresh ID.
//
// The monotonic source only fails when more than 2^80 IDs are requested in
// one millisecond; New then falls back to a non-monotonic ULID.
func New() ID {
	now := time.Now()
	id, err := generate(now)
	if err != nil {
		return ID(ulid.MustNew(ulid.Timestamp(now), rand.Reader).String())
	}
	return id
}
