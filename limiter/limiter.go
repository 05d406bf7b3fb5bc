// Package limiter implements fixed-window request counting on top of a
// shared atomic counter.
//
// Time is cut into disjoint buckets of Interval seconds. Each request
// increments the counter for its bucket; the request is denied when the
// bucket already held Limit hits. Two adjacent buckets can therefore admit
// up to 2*Limit requests around their boundary.
package limiter

import (
	"context"
	"time"
)

// Counter is the atomic primitive the limiter needs. tokenstore.Store satisfies it.
type Counter interface {
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Response describes one limiter decision.
type Response struct {
	Allowed bool

	// RetryAfter is the time left in the current bucket. Set on every response.
	RetryAfter time.Duration

	// Count is the bucket counter after this request.
	Count int64

	Limit int64

	// Remaining is how many more requests the bucket admits.
	Remaining int64

	ResetAt time.Time
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds for the Retry-After header.
func (r *Response) RetryAfterSeconds() int64 {
	secs := int64(r.RetryAfter / time.Second)
	if r.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
