package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/KOMKZ/go-yogan-auth/errcode"
	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/testutil"
	"github.com/KOMKZ/go-yogan-auth/token"
	"github.com/KOMKZ/go-yogan-auth/tokenstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	repo    *Repository
	tokens  *token.Service
	store   *tokenstore.RedisStore
	history *history.GormLog
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLite(t, &User{}, &history.Event{})
	_, client := testutil.NewRedis(t)

	repo := NewRepository(db)
	hist := history.NewGormLog(db, nil)
	store := tokenstore.NewRedisStore(client, "auth:", nil)

	tokens, err := token.NewService(token.Config{Secret: testSecret}, store,
		token.WithHistory(hist),
		token.WithFamilyMirror(repo))
	require.NoError(t, err)

	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	return &fixture{
		repo:    repo,
		tokens:  tokens,
		store:   store,
		history: hist,
		svc:     NewService(repo, hasher, tokens, hist, nil),
	}
}

func (f *fixture) actions(t *testing.T, userID string) []history.Action {
	t.Helper()
	events, _, err := f.history.List(context.Background(), userID, 1, 100)
	require.NoError(t, err)
	out := make([]history.Action, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func subject(t *testing.T, f *fixture, pair *token.Pair) string {
	t.Helper()
	claims, err := f.tokens.Validate(context.Background(), pair.AccessToken, token.TypeAccess)
	require.NoError(t, err)
	return claims.Subject
}

func TestPasswordHasher(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, h.Check("correct horse", hash))
	assert.False(t, h.Check("wrong horse", hash))

	_, err = h.Hash(string(make([]byte, 73)))
	assert.ErrorIs(t, err, errcode.ErrValidation)

	_, err = NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Signup(ctx, "  Alice@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	userID := subject(t, f, pair)

	u, err := f.svc.Me(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)

	pair, err = f.svc.Login(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, userID, subject(t, f, pair))

	assert.Equal(t, []history.Action{history.ActionLogin, history.ActionLogin}, f.actions(t, userID))
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, "bob@example.com", "password-1")
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, "BOB@example.com", "password-2")
	assert.ErrorIs(t, err, ErrEmailTaken)
	le, ok := errcode.As(err)
	require.True(t, ok)
	assert.Equal(t, 409, le.HTTPStatus())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, "carol@example.com", "right-password")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "carol@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", "right-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestChangeCredentialsRevokesEverySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Signup(ctx, "dave@example.com", "old-password")
	require.NoError(t, err)
	userID := subject(t, f, first)
	second, err := f.svc.Login(ctx, "dave@example.com", "old-password")
	require.NoError(t, err)

	fresh, err := f.svc.ChangeCredentials(ctx, userID, "", "new-password")
	require.NoError(t, err)

	for _, stale := range []*token.Pair{first, second} {
		_, err = f.tokens.Validate(ctx, stale.AccessToken, token.TypeAccess)
		assert.ErrorIs(t, err, token.ErrFamilyStale)
		_, err = f.tokens.Refresh(ctx, stale.RefreshToken)
		assert.ErrorIs(t, err, token.ErrFamilyStale)
	}
	assert.Equal(t, userID, subject(t, f, fresh))

	_, err = f.svc.Login(ctx, "dave@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "dave@example.com", "new-password")
	require.NoError(t, err)

	actions := f.actions(t, userID)
	assert.Contains(t, actions, history.ActionCredentialsChanged)
	assert.Contains(t, actions, history.ActionLogoutEverywhere)
}

func TestChangeCredentialsEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Signup(ctx, "erin@example.com", "password-1")
	require.NoError(t, err)
	userID := subject(t, f, pair)
	_, err = f.svc.Signup(ctx, "taken@example.com", "password-2")
	require.NoError(t, err)

	_, err = f.svc.ChangeCredentials(ctx, userID, "taken@example.com", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = f.tokens.Validate(ctx, pair.AccessToken, token.TypeAccess)
	assert.NoError(t, err, "rejected change keeps sessions")

	_, err = f.svc.ChangeCredentials(ctx, userID, "", "")
	assert.ErrorIs(t, err, ErrNothingToChange)

	_, err = f.svc.ChangeCredentials(ctx, userID, "Erin.New@example.com", "")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "erin.new@example.com", "password-1")
	require.NoError(t, err)
}

type failingTokens struct {
	Tokens
	err error
}

func (f failingTokens) RevokeAll(context.Context, string) (*token.Pair, error) {
	return nil, f.err
}

func TestChangeCredentialsStoreDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Signup(ctx, "frank@example.com", "old-password")
	require.NoError(t, err)
	userID := subject(t, f, pair)

	svc := NewService(f.repo, f.svc.hasher, failingTokens{Tokens: f.tokens, err: tokenstore.ErrUnavailable}, f.history, nil)
	_, err = svc.ChangeCredentials(ctx, userID, "frank.new@example.com", "new-password")
	assert.ErrorIs(t, err, tokenstore.ErrUnavailable)

	_, err = f.svc.Login(ctx, "frank@example.com", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "frank.new@example.com", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "frank@example.com", "old-password")
	require.NoError(t, err)
	assert.NotContains(t, f.actions(t, userID), history.ActionCredentialsChanged)
}

func TestFamilyVersionPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Signup(ctx, "frank@example.com", "password-1")
	require.NoError(t, err)
	userID := subject(t, f, pair)

	_, err = f.svc.LogoutEverywhere(ctx, userID)
	require.NoError(t, err)
	_, err = f.svc.LogoutEverywhere(ctx, userID)
	require.NoError(t, err)

	v, err := f.repo.FamilyVersion(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	u, err := f.repo.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.Principal().FamilyVersion)
}

func TestRepositoryFamilyVersion(t *testing.T) {
	db := testutil.NewSQLite(t, &User{})
	repo := NewRepository(db)
	ctx := context.Background()

	v, err := repo.FamilyVersion(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, repo.Create(ctx, &User{ID: "u1", Email: "u1@example.com", PasswordHash: "x",
		CreatedAt: time.Now(), UpdatedAt: time.Now()}))

	require.NoError(t, repo.SetFamilyVersion(ctx, "u1", 5))
	require.NoError(t, repo.SetFamilyVersion(ctx, "u1", 3))
	v, err = repo.FamilyVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	err = repo.UpdateCredentials(ctx, "missing", "a@b.c", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestConfig(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Equal(t, bcrypt.DefaultCost, c.BcryptCost)
	assert.NoError(t, c.Validate())

	c.BcryptCost = 1
	assert.Error(t, c.Validate())
}
