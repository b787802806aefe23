package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotenko/auth-service/internal/token"
	"github.com/dkotenko/auth-service/internal/user"
)

// fakeStore is an in-memory UserStore with the repository's error contract.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*user.User)}
}

func (f *fakeStore) Create(_ context.Context, email, passwordHash string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return nil, user.ErrEmailTaken
		}
	}
	f.nextID++
	u := &user.User{ID: f.nextID, Email: email, PasswordHash: passwordHash}
	f.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (f *fakeStore) ByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeStore) ByID(_ context.Context, id int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) IncrementTokenVersion(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func (f *fakeStore) List(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, *u)
	}
	return users, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, opts ...Option) (*Service, *fakeStore, *token.Service) {
	t.Helper()
	store := newFakeStore()
	tokens := token.NewService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	return NewService(store, tokens, discardLogger(), opts...), store, tokens
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))

	pair, err := svc.Login(ctx, "a@b.c", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := tokens.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))

	_, wrongPassword := svc.Login(ctx, "a@b.c", "wrong")
	_, unknownEmail := svc.Login(ctx, "ghost@b.c", "hunter2")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))
	err := svc.Register(ctx, "a@b.c", "other")
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestRegisterPolicyHooks(t *testing.T) {
	svc, _, _ := newTestService(t,
		WithPasswordPolicy(func(p string) error {
			if len(p) < 8 {
				return ErrValidation
			}
			return nil
		}),
	)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Register(ctx, "a@b.c", "short"), ErrValidation)
	assert.ErrorIs(t, svc.Register(ctx, "not-an-email", "longenough"), ErrValidation)
	assert.NoError(t, svc.Register(ctx, "a@b.c", "longenough"))
}

func TestRefreshRotation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))
	pair, err := svc.Login(ctx, "a@b.c", "hunter2")
	require.NoError(t, err)

	res := svc.Refresh(ctx, pair.RefreshToken)
	require.True(t, res.OK)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, pair.RefreshToken, res.RefreshToken, "rotation must mint a new refresh token")
}

func TestRefreshDeniesUniformly(t *testing.T) {
	svc, store, tokens := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))

	// A structurally valid refresh token for a user that does not exist.
	orphan, err := tokens.IssueRefreshToken(&user.User{ID: 999})
	require.NoError(t, err)

	// A token that expired the instant it was issued.
	expiredIssuer := token.NewService("access-secret", "refresh-secret", 15*time.Minute, 0)
	u, err := store.ByID(ctx, 1)
	require.NoError(t, err)
	expired, err := expiredIssuer.IssueRefreshToken(u)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"absent":       "",
		"garbage":      "not-a-token",
		"unknown user": orphan,
		"expired":      expired,
	} {
		res := svc.Refresh(ctx, raw)
		assert.Equal(t, RefreshResult{}, res, "case %q must deny with the zero result", name)
	}
}

func TestRevokeAllInvalidatesOutstandingRefreshTokens(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))
	pair, err := svc.Login(ctx, "a@b.c", "hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, 1))

	res := svc.Refresh(ctx, pair.RefreshToken)
	assert.False(t, res.OK, "token minted before revocation must be dead")
	assert.Empty(t, res.AccessToken)

	// A fresh login picks up the new version and works again.
	pair, err = svc.Login(ctx, "a@b.c", "hunter2")
	require.NoError(t, err)
	assert.True(t, svc.Refresh(ctx, pair.RefreshToken).OK)
}

func TestDoubleRevokeKeepsShrinkingTheWindow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))

	require.NoError(t, svc.RevokeAll(ctx, 1))
	pairAtV1, err := svc.Login(ctx, "a@b.c", "hunter2")
	require.NoError(t, err)
	require.NoError(t, svc.RevokeAll(ctx, 1))

	assert.False(t, svc.Refresh(ctx, pairAtV1.RefreshToken).OK,
		"token snapshotting version 1 must be dead at version 2")

	pairAtV2, err := svc.Login(ctx, "a@b.c", "hunter2")
	require.NoError(t, err)
	assert.True(t, svc.Refresh(ctx, pairAtV2.RefreshToken).OK,
		"only a snapshot matching the current version may pass")
}

// Guards against comparing anything but the claim's real version field: a
// token carrying the current version must pass, one carrying any other value
// must fail.
func TestRefreshVersionComparisonUsesClaimField(t *testing.T) {
	svc, store, tokens := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))
	u, err := store.ByID(ctx, 1)
	require.NoError(t, err)

	current, err := tokens.IssueRefreshToken(u)
	require.NoError(t, err)
	stale, err := tokens.IssueRefreshToken(&user.User{ID: u.ID, TokenVersion: u.TokenVersion + 7})
	require.NoError(t, err)

	assert.True(t, svc.Refresh(ctx, current).OK)
	assert.False(t, svc.Refresh(ctx, stale).OK)
}

func TestRevokeDoesNotTouchAccessTokens(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))
	pair, err := svc.Login(ctx, "a@b.c", "hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, 1))

	// Access tokens are limited by expiry only; revocation must not affect
	// an unexpired one.
	claims, err := tokens.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
}

func TestRevokeUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.RevokeAll(context.Background(), 999)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestRegisterStoresNoPlaintextPassword(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@b.c", "hunter2"))
	u, err := store.ByID(ctx, 1)
	require.NoError(t, err)

	assert.NotContains(t, u.PasswordHash, "hunter2")
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$2"), "expected a bcrypt hash")
}

var _ UserStore = (*fakeStore)(nil)
