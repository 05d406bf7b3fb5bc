package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

// INCR and set the expiry in one round trip; a key without TTL gets one.
var incrWithExpiry = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// Raise a counter to ARGV[1] unless it is already higher.
var seedFloor = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local floor = tonumber(ARGV[1])
if cur and tonumber(cur) >= floor then
	return tonumber(cur)
end
redis.call('SET', KEYS[1], floor)
return floor
`)

// RedisStore is the production Store.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *logger.CtxZapLogger
}

// NewRedisStore prefixes revocation and family keys with keyPrefix, e.g. "auth:".
// IncrementWithExpiry keys are used verbatim.
func NewRedisStore(client redis.UniversalClient, keyPrefix string, log *logger.CtxZapLogger) *RedisStore {
	if log == nil {
		log = logger.GetLogger("tokenstore")
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, logger: log}
}

func (s *RedisStore) MarkConsumed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	key := s.revokedKey(jti)
	ok, err := s.client.SetNX(ctx, key, 1, markerTTL(ttl)).Result()
	if err != nil {
		return false, s.unavailable(ctx, "mark consumed", key, err)
	}
	return ok, nil
}

func (s *RedisStore) IsConsumed(ctx context.Context, jti string) (bool, error) {
	key := s.revokedKey(jti)
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, s.unavailable(ctx, "check consumed", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) BumpFamily(ctx context.Context, userID string) (int64, error) {
	key := s.familyKey(userID)
	v, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, s.unavailable(ctx, "bump family", key, err)
	}
	s.logger.DebugCtx(ctx, "family version bumped", zap.String("user_id", userID), zap.Int64("version", v))
	return v, nil
}

func (s *RedisStore) GetFamily(ctx context.Context, userID string) (int64, error) {
	v, _, err := s.LookupFamily(ctx, userID)
	return v, err
}

func (s *RedisStore) LookupFamily(ctx context.Context, userID string) (int64, bool, error) {
	key := s.familyKey(userID)
	v, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, s.unavailable(ctx, "get family", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) SeedFamily(ctx context.Context, userID string, floor int64) (int64, error) {
	key := s.familyKey(userID)
	v, err := seedFloor.Run(ctx, s.client, []string{key}, floor).Int64()
	if err != nil {
		return 0, s.unavailable(ctx, "seed family", key, err)
	}
	return v, nil
}

func (s *RedisStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrWithExpiry.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, s.unavailable(ctx, "increment", key, err)
	}
	return n, nil
}

func (s *RedisStore) revokedKey(jti string) string {
	return s.keyPrefix + revokedSegment + jti
}

func (s *RedisStore) familyKey(userID string) string {
	return s.keyPrefix + familySegment + userID
}

func (s *RedisStore) unavailable(ctx context.Context, op, key string, err error) error {
	s.logger.ErrorCtx(ctx, "token store operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
	return ErrUnavailable.Wrap(fmt.Errorf("%s %s: %w", op, key, err))
}
