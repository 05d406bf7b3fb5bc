// Package token issues, rotates, revokes and validates access/refresh pairs.
//
// Each token carries a unique jti and the user's family version at issuance.
// Revoking one token writes a marker for its jti; revoking all tokens of a
// user bumps the family version so every earlier token becomes stale.
package token

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/errcode"
	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/logger"
	"github.com/KOMKZ/go-yogan-auth/tokenstore"
)

// FamilyMirror persists family versions next to the user record so the
// store counter can be restored after data loss. FamilyVersion returns 0 for
// an unknown user.
type FamilyMirror interface {
	FamilyVersion(ctx context.Context, userID string) (int64, error)
	SetFamilyVersion(ctx context.Context, userID string, version int64) error
}

// Service owns the token lifecycle. It is safe for concurrent use; all
// shared state lives in the store.
type Service struct {
	config  Config
	codec   *Codec
	store   tokenstore.Store
	history history.Appender
	mirror  FamilyMirror
	metrics *Metrics
	logger  *logger.CtxZapLogger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records login, refresh and logout events on h.
func WithHistory(h history.Appender) Option {
	return func(s *Service) { s.history = h }
}

// WithFamilyMirror enables restoring lost family counters from m.
func WithFamilyMirror(m FamilyMirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithMetrics records issuance, refresh and validation outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger overrides the "token" module logger.
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for signing, parsing and marker TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService validates cfg and builds the signing codec.
func NewService(cfg Config, store tokenstore.Store, opts ...Option) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		config:  cfg,
		store:   store,
		history: history.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger("token")
	}

	codec, err := NewCodec(cfg, s.now)
	if err != nil {
		return nil, err
	}
	s.codec = codec
	return s, nil
}

// Issue mints a pair for a user who just proved their credentials.
func (s *Service) Issue(ctx context.Context, p Principal) (*Pair, error) {
	fv, err := s.store.SeedFamily(ctx, p.UserID, p.FamilyVersion)
	if err != nil {
		return nil, err
	}

	pair, err := s.mint(ctx, p.UserID, fv)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordIssued(ctx, "login")
	s.record(ctx, p.UserID, history.ActionLogin)
	return pair, nil
}

// Refresh consumes a refresh token and returns its successor pair.
// Among concurrent calls presenting the same token exactly one succeeds.
func (s *Service) Refresh(ctx context.Context, raw string) (*Pair, error) {
	claims, err := s.Validate(ctx, raw, TypeRefresh)
	if err != nil {
		s.metrics.RecordRefreshed(ctx, resultOf(err))
		return nil, err
	}

	first, err := s.store.MarkConsumed(ctx, claims.JTI, s.markerTTL(claims))
	if err != nil {
		return nil, err
	}
	if !first {
		s.logger.WarnCtx(ctx, "refresh token replayed",
			zap.String("user_id", claims.Subject),
			zap.String("jti", claims.JTI))
		s.metrics.RecordRefreshed(ctx, ReasonRevoked)
		return nil, ErrTokenRevoked
	}

	// a concurrent RevokeAll may have landed after validation
	fv, err := s.currentFamily(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if fv != claims.FamilyVersion {
		s.metrics.RecordRefreshed(ctx, ReasonFamilyStale)
		return nil, ErrFamilyStale
	}

	pair, err := s.mint(ctx, claims.Subject, fv)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRefreshed(ctx, "ok")
	s.metrics.RecordIssued(ctx, "refresh")
	s.record(ctx, claims.Subject, history.ActionRefresh)
	return pair, nil
}

// Revoke invalidates the presented token only. Other tokens from the same
// issuance stay valid.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.Validate(ctx, raw, "")
	if err != nil {
		return err
	}

	first, err := s.store.MarkConsumed(ctx, claims.JTI, s.markerTTL(claims))
	if err != nil {
		return err
	}
	if !first {
		return ErrTokenRevoked
	}

	s.metrics.RecordRevoked(ctx, "token")
	s.logger.InfoCtx(ctx, "token revoked",
		zap.String("user_id", claims.Subject),
		zap.String("jti", claims.JTI),
		zap.String("type", string(claims.Type)))
	s.record(ctx, claims.Subject, history.ActionLogout)
	return nil
}

// RevokeAll invalidates every token issued to userID so far and returns a
// fresh pair for the caller.
func (s *Service) RevokeAll(ctx context.Context, userID string) (*Pair, error) {
	// restore a lost counter first, or the bump could land on an old version
	if _, err := s.currentFamily(ctx, userID); err != nil {
		return nil, err
	}

	fv, err := s.store.BumpFamily(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.mirror != nil {
		if err := s.mirror.SetFamilyVersion(ctx, userID, fv); err != nil {
			s.logger.ErrorCtx(ctx, "failed to persist family version",
				zap.String("user_id", userID),
				zap.Int64("version", fv),
				zap.Error(err))
			return nil, err
		}
	}

	pair, err := s.mint(ctx, userID, fv)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRevoked(ctx, "family")
	s.metrics.RecordIssued(ctx, "revoke_all")
	s.logger.InfoCtx(ctx, "all tokens revoked",
		zap.String("user_id", userID),
		zap.Int64("version", fv))
	s.record(ctx, userID, history.ActionLogoutEverywhere)
	return pair, nil
}

// Validate checks raw and returns its claims. expected may be empty to accept
// either type. Checks run in order: signature and expiry, type, revocation
// marker, family version.
func (s *Service) Validate(ctx context.Context, raw string, expected Type) (*Claims, error) {
	start := time.Now()
	claims, err := s.validate(ctx, raw, expected)
	s.metrics.RecordValidated(ctx, resultOf(err), time.Since(start))
	if err != nil {
		if le, ok := errcode.As(err); ok && le.HTTPStatus() < 500 {
			s.logger.DebugCtx(ctx, "token rejected", zap.String("reason", le.Reason()))
		}
		return nil, err
	}
	return claims, nil
}

func (s *Service) validate(ctx context.Context, raw string, expected Type) (*Claims, error) {
	claims, err := s.codec.Parse(raw)
	if err != nil {
		return nil, err
	}
	if expected != "" && claims.Type != expected {
		return nil, ErrWrongType.WithMsgf("%s token required", expected)
	}

	consumed, err := s.store.IsConsumed(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if consumed {
		return nil, ErrTokenRevoked
	}

	fv, err := s.currentFamily(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if fv != claims.FamilyVersion {
		return nil, ErrFamilyStale
	}
	return claims, nil
}

// currentFamily reads the store counter. A missing counter is restored from
// the mirror when one is configured.
func (s *Service) currentFamily(ctx context.Context, userID string) (int64, error) {
	fv, found, err := s.store.LookupFamily(ctx, userID)
	if err != nil || found || s.mirror == nil {
		return fv, err
	}

	persisted, err := s.mirror.FamilyVersion(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.WarnCtx(ctx, "family version restored from database",
		zap.String("user_id", userID),
		zap.Int64("version", persisted))
	return s.store.SeedFamily(ctx, userID, persisted)
}

// markerTTL keeps a marker alive for as long as the parser would still
// accept the token, leeway included.
func (s *Service) markerTTL(claims *Claims) time.Duration {
	return claims.TTL(s.now().Add(-s.config.Leeway))
}

func (s *Service) mint(ctx context.Context, userID string, fv int64) (*Pair, error) {
	now := s.now().UTC().Truncate(time.Second)

	access := Claims{
		JTI:           uuid.NewString(),
		Type:          TypeAccess,
		Subject:       userID,
		FamilyVersion: fv,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.config.AccessTokenTTL),
	}
	refresh := Claims{
		JTI:           uuid.NewString(),
		Type:          TypeRefresh,
		Subject:       userID,
		FamilyVersion: fv,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.config.RefreshTokenTTL),
	}

	accessToken, err := s.codec.Sign(access)
	if err != nil {
		s.logger.ErrorCtx(ctx, "failed to sign access token", zap.String("user_id", userID), zap.Error(err))
		return nil, errcode.ErrInternal.Wrap(err)
	}
	refreshToken, err := s.codec.Sign(refresh)
	if err != nil {
		s.logger.ErrorCtx(ctx, "failed to sign refresh token", zap.String("user_id", userID), zap.Error(err))
		return nil, errcode.ErrInternal.Wrap(err)
	}

	s.logger.DebugCtx(ctx, "token pair minted",
		zap.String("user_id", userID),
		zap.Int64("family_version", fv))
	return &Pair{
		AccessToken:      accessToken,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// record never fails the operation; history is an audit trail.
func (s *Service) record(ctx context.Context, userID string, action history.Action) {
	if err := s.history.Append(ctx, userID, action, s.now().UTC()); err != nil {
		s.logger.WarnCtx(ctx, "failed to append history",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	if le, ok := errcode.As(err); ok && le.Reason() != "" {
		return le.Reason()
	}
	return "error"
}
