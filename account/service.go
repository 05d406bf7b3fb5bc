package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/logger"
	"github.com/KOMKZ/go-yogan-auth/token"
)

// Tokens is the part of token.Service the account flows need.
type Tokens interface {
	Issue(ctx context.Context, p token.Principal) (*token.Pair, error)
	RevokeAll(ctx context.Context, userID string) (*token.Pair, error)
}

// Service runs the signup, login and credential flows on top of the user
// repository and the token service.
type Service struct {
	repo    *Repository
	hasher  *PasswordHasher
	tokens  Tokens
	history history.Appender
	logger  *logger.CtxZapLogger
	now     func() time.Time
}

// NewService wires the account flows. hist and log may be nil.
func NewService(repo *Repository, hasher *PasswordHasher, tokens Tokens, hist history.Appender, log *logger.CtxZapLogger) *Service {
	if hist == nil {
		hist = history.Nop{}
	}
	if log == nil {
		log = logger.GetLogger("account")
	}
	return &Service{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		history: hist,
		logger:  log,
		now:     time.Now,
	}
}

// NormalizeEmail is applied before every lookup and write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user and logs them in.
func (s *Service) Signup(ctx context.Context, email, password string) (*token.Pair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.logger.InfoCtx(ctx, "signup with registered email")
		}
		return nil, err
	}

	s.logger.InfoCtx(ctx, "user created", zap.String("user_id", u.ID))
	return s.tokens.Issue(ctx, u.Principal())
}

// Login checks credentials. Unknown email and wrong password look the same
// to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*token.Pair, error) {
	u, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		s.hasher.CheckMissing(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Check(password, u.PasswordHash) {
		s.logger.InfoCtx(ctx, "login with wrong password", zap.String("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}
	return s.tokens.Issue(ctx, u.Principal())
}

// Me returns the user behind a validated access token.
func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// ChangeCredentials revokes every session of the user, then stores the new
// email and/or password and returns a fresh pair for the caller. A failure
// after the revocation leaves the user logged out with the old credentials.
func (s *Service) ChangeCredentials(ctx context.Context, userID, email, password string) (*token.Pair, error) {
	email = NormalizeEmail(email)
	if email == "" && password == "" {
		return nil, ErrNothingToChange
	}
	if email != "" {
		owner, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != userID:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, ErrUserNotFound):
			return nil, err
		}
	}

	var hash string
	if password != "" {
		var err error
		if hash, err = s.hasher.Hash(password); err != nil {
			return nil, err
		}
	}

	// old sessions must never outlive the old credentials
	pair, err := s.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCredentials(ctx, userID, email, hash); err != nil {
		s.logger.ErrorCtx(ctx, "sessions revoked but credentials not changed",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	s.logger.InfoCtx(ctx, "credentials changed",
		zap.String("user_id", userID),
		zap.Bool("email", email != ""),
		zap.Bool("password", password != ""))

	if err := s.history.Append(ctx, userID, history.ActionCredentialsChanged, s.now().UTC()); err != nil {
		s.logger.WarnCtx(ctx, "failed to append history", zap.Error(err))
	}
	return pair, nil
}

// LogoutEverywhere revokes every session of the user.
func (s *Service) LogoutEverywhere(ctx context.Context, userID string) (*token.Pair, error) {
	return s.tokens.RevokeAll(ctx, userID)
}
