// Package tokenstore keeps revocation markers, family version counters and
// generic expiring counters in a shared key/value backend.
package tokenstore

import (
	"context"
	"net/http"
	"time"

	"github.com/KOMKZ/go-yogan-auth/errcode"
)

// ErrUnavailable is returned whenever the backend cannot answer. Callers
// must fail the request; it never means "not revoked" or "allowed".
var ErrUnavailable = errcode.Register(errcode.New(errcode.ModuleStore, 1, "store",
	"error.store.unavailable", "Service temporarily unavailable", http.StatusServiceUnavailable))

// Store is safe for concurrent use by any number of processes sharing the backend.
type Store interface {
	// MarkConsumed records jti as used. first is true for exactly one caller
	// among any number racing on the same jti.
	MarkConsumed(ctx context.Context, jti string, ttl time.Duration) (first bool, err error)

	IsConsumed(ctx context.Context, jti string) (bool, error)

	// BumpFamily increments the user's family version and returns the new value.
	BumpFamily(ctx context.Context, userID string) (int64, error)

	// GetFamily returns the current version, 0 when never set.
	GetFamily(ctx context.Context, userID string) (int64, error)

	// LookupFamily is GetFamily that also reports whether the counter exists.
	LookupFamily(ctx context.Context, userID string) (version int64, found bool, err error)

	// SeedFamily raises the version to at least floor and returns the effective value.
	SeedFamily(ctx context.Context, userID string, floor int64) (int64, error)

	// IncrementWithExpiry adds one to key and makes sure it expires within ttl.
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

const (
	revokedSegment = "revoked:"
	familySegment  = "family:"
)

// minMarkerTTL keeps a marker alive even when the token is about to expire.
const minMarkerTTL = time.Second

func markerTTL(ttl time.Duration) time.Duration {
	if ttl < minMarkerTTL {
		return minMarkerTTL
	}
	return ttl
}
