package tokenstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/KOMKZ/go-yogan-auth/logger"
	"github.com/KOMKZ/go-yogan-auth/testutil"
)

// backend bundles a Store with a way to move its clock forward.
type backend struct {
	store   Store
	advance func(time.Duration)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func backends() map[string]func(t *testing.T) backend {
	return map[string]func(t *testing.T) backend{
		"redis": func(t *testing.T) backend {
			mr, client := testutil.NewRedis(t)
			return backend{
				store:   NewRedisStore(client, "auth:", logger.NewNop("tokenstore")),
				advance: mr.FastForward,
			}
		},
		"memory": func(t *testing.T) backend {
			clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			return backend{
				store:   NewMemoryStore("auth:", WithClock(clock.Now)),
				advance: clock.Advance,
			}
		},
	}
}

func TestStore_MarkConsumed(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)

			consumed, err := b.store.IsConsumed(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, consumed)

			first, err := b.store.MarkConsumed(ctx, "jti-1", time.Minute)
			require.NoError(t, err)
			assert.True(t, first)

			first, err = b.store.MarkConsumed(ctx, "jti-1", time.Minute)
			require.NoError(t, err)
			assert.False(t, first, "second mark must lose")

			consumed, err = b.store.IsConsumed(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, consumed)

			other, err := b.store.IsConsumed(ctx, "jti-2")
			require.NoError(t, err)
			assert.False(t, other)
		})
	}
}

func TestStore_MarkerExpiresWithToken(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)

			_, err := b.store.MarkConsumed(ctx, "jti", 10*time.Second)
			require.NoError(t, err)

			b.advance(9 * time.Second)
			consumed, err := b.store.IsConsumed(ctx, "jti")
			require.NoError(t, err)
			assert.True(t, consumed)

			b.advance(2 * time.Second)
			consumed, err = b.store.IsConsumed(ctx, "jti")
			require.NoError(t, err)
			assert.False(t, consumed)
		})
	}
}

func TestStore_MarkConsumedNonPositiveTTL(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)

			first, err := b.store.MarkConsumed(ctx, "late", 0)
			require.NoError(t, err)
			assert.True(t, first)

			consumed, err := b.store.IsConsumed(ctx, "late")
			require.NoError(t, err)
			assert.True(t, consumed)
		})
	}
}

func TestStore_Family(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)

			v, err := b.store.GetFamily(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(0), v)

			v, err = b.store.BumpFamily(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(1), v)

			v, err = b.store.BumpFamily(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(2), v)

			v, err = b.store.GetFamily(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(2), v)

			other, err := b.store.GetFamily(ctx, "u2")
			require.NoError(t, err)
			assert.Equal(t, int64(0), other)

			_, found, err := b.store.LookupFamily(ctx, "u2")
			require.NoError(t, err)
			assert.False(t, found)

			_, err = b.store.SeedFamily(ctx, "u2", 0)
			require.NoError(t, err)
			v, found, err = b.store.LookupFamily(ctx, "u2")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, int64(0), v)
		})
	}
}

func TestStore_SeedFamily(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)

			v, err := b.store.SeedFamily(ctx, "u1", 3)
			require.NoError(t, err)
			assert.Equal(t, int64(3), v)

			// a lower floor never lowers the counter
			v, err = b.store.SeedFamily(ctx, "u1", 1)
			require.NoError(t, err)
			assert.Equal(t, int64(3), v)

			v, err = b.store.BumpFamily(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(4), v)
		})
	}
}

func TestStore_IncrementWithExpiry(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)

			for i := int64(1); i <= 3; i++ {
				n, err := b.store.IncrementWithExpiry(ctx, "rl:1.2.3.4:0", 61*time.Second)
				require.NoError(t, err)
				assert.Equal(t, i, n)
			}

			// later increments do not extend the window
			b.advance(60 * time.Second)
			n, err := b.store.IncrementWithExpiry(ctx, "rl:1.2.3.4:0", 61*time.Second)
			require.NoError(t, err)
			assert.Equal(t, int64(4), n)

			b.advance(2 * time.Second)
			n, err = b.store.IncrementWithExpiry(ctx, "rl:1.2.3.4:0", 61*time.Second)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestStore_ConcurrentMarkConsumed(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)

			var winners atomic.Int32
			var g errgroup.Group
			for i := 0; i < 32; i++ {
				g.Go(func() error {
					first, err := b.store.MarkConsumed(ctx, "race", time.Minute)
					if first {
						winners.Add(1)
					}
					return err
				})
			}
			require.NoError(t, g.Wait())
			assert.Equal(t, int32(1), winners.Load())
		})
	}
}

func TestRedisStore_Keys(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	s := NewRedisStore(client, "auth:", nil)

	_, err := s.MarkConsumed(ctx, "abc", time.Minute)
	require.NoError(t, err)
	_, err = s.BumpFamily(ctx, "u1")
	require.NoError(t, err)

	assert.True(t, mr.Exists("auth:revoked:abc"))
	assert.Equal(t, time.Minute, mr.TTL("auth:revoked:abc"))
	got, err := mr.Get("auth:family:u1")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, time.Duration(0), mr.TTL("auth:family:u1"), "family counters never expire")
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	s := NewRedisStore(client, "auth:", logger.NewNop("tokenstore"))
	mr.Close()

	_, err := s.MarkConsumed(ctx, "jti", time.Minute)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.IsConsumed(ctx, "jti")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.BumpFamily(ctx, "u1")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.GetFamily(ctx, "u1")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, _, err = s.LookupFamily(ctx, "u1")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.SeedFamily(ctx, "u1", 1)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.IncrementWithExpiry(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMemoryStore_SweepsExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := NewMemoryStore("", WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		_, err := s.IncrementWithExpiry(ctx, string(rune('a'+i)), time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, s.Len())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 0, s.Len())
}
