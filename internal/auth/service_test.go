package auth_test

import (
	"context"
	"testing"
	"time"

	"moviebooking/internal/auth"
	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/shared/config"
	"moviebooking/internal/shared/constants"
	"moviebooking/internal/storage/memory"
	"moviebooking/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedReset struct {
	to, token string
	ttl       time.Duration
}

type captureNotifier struct {
	sent []capturedReset
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, to, _ string, token string, ttl time.Duration) error {
	n.sent = append(n.sent, capturedReset{to: to, token: token, ttl: ttl})
	return nil
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.JWTExpiresIn = time.Hour
	cfg.JWT.ResetTokenTTL = 30 * time.Minute
	return cfg
}

func newService(t *testing.T) (auth.Service, auth.Repository, *captureNotifier) {
	t.Helper()
	repo := memory.NewUserRepository(memory.NewDB())
	service := auth.NewService(repo, testConfig())
	notifier := &captureNotifier{}
	service.SetResetNotifier(notifier)
	return service, repo, notifier
}

func register(t *testing.T, service auth.Service, login, email string) *auth.AuthResponse {
	t.Helper()
	resp, err := service.Register(context.Background(), &auth.RegisterRequest{
		LoginName: login,
		FirstName: "Alice",
		LastName:  "Liddell",
		Email:     email,
		Password:  "wonderland",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister_AlwaysCreatesUser(t *testing.T) {
	service, _, _ := newService(t)

	resp := register(t, service, "alice", "Alice@Example.com")
	assert.Equal(t, "USER", resp.User.Role)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.LoginName)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestRegister_Duplicates(t *testing.T) {
	service, _, _ := newService(t)
	register(t, service, "alice", "alice@example.com")

	_, err := service.Register(context.Background(), &auth.RegisterRequest{
		LoginName: "alice", FirstName: "A", LastName: "B", Email: "other@example.com", Password: "secret1",
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = service.Register(context.Background(), &auth.RegisterRequest{
		LoginName: "alice2", FirstName: "A", LastName: "B", Email: "ALICE@example.com", Password: "secret1",
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestLogin_ByLoginNameOrEmail(t *testing.T) {
	service, _, _ := newService(t)
	register(t, service, "alice", "alice@example.com")

	for _, identifier := range []string{"alice", "alice@example.com", "ALICE@EXAMPLE.COM"} {
		resp, err := service.Login(context.Background(), &auth.LoginRequest{Identifier: identifier, Password: "wonderland"})
		require.NoError(t, err, identifier)
		assert.Equal(t, "alice", resp.User.LoginName)
	}

	_, err := service.Login(context.Background(), &auth.LoginRequest{Identifier: "alice", Password: "nope"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = service.Login(context.Background(), &auth.LoginRequest{Identifier: "nobody", Password: "wonderland"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestValidateToken_Rejects(t *testing.T) {
	service, _, _ := newService(t)
	resp := register(t, service, "alice", "alice@example.com")

	other := auth.NewService(memory.NewUserRepository(memory.NewDB()), func() *config.Config {
		cfg := testConfig()
		cfg.JWT.Secret = "another-secret"
		return cfg
	}())
	_, err := other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = service.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	service, _, _ := newService(t)
	resp := register(t, service, "alice", "alice@example.com")
	userID := resp.User.ID

	err := service.ChangePassword(context.Background(), userID, &auth.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "looking-glass"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	require.NoError(t, service.ChangePassword(context.Background(), userID, &auth.ChangePasswordRequest{CurrentPassword: "wonderland", NewPassword: "looking-glass"}))

	_, err = service.Login(context.Background(), &auth.LoginRequest{Identifier: "alice", Password: "looking-glass"})
	assert.NoError(t, err)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	service, _, notifier := newService(t)

	require.NoError(t, service.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, notifier.sent)
}

func TestResetPassword_TokenIsSingleUse(t *testing.T) {
	service, _, notifier := newService(t)
	register(t, service, "alice", "alice@example.com")

	require.NoError(t, service.ForgotPassword(context.Background(), " Alice@example.com "))
	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, "alice@example.com", sent.to)
	assert.Equal(t, 30*time.Minute, sent.ttl)

	require.NoError(t, service.ResetPassword(context.Background(), &auth.ResetPasswordRequest{Token: sent.token, NewPassword: "rabbit-hole"}))

	_, err := service.Login(context.Background(), &auth.LoginRequest{Identifier: "alice", Password: "rabbit-hole"})
	require.NoError(t, err)

	err = service.ResetPassword(context.Background(), &auth.ResetPasswordRequest{Token: sent.token, NewPassword: "again-again"})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestIdentityResolver(t *testing.T) {
	mr := miniredis.RunT(t)
	cacheService := cache.NewService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	service, repo, _ := newService(t)
	service.SetCacheService(cacheService)
	resp := register(t, service, "alice", "alice@example.com")

	resolver := auth.NewIdentityResolver(repo)
	resolver.SetCacheService(cacheService)

	byName, err := resolver.Resolve(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, byName.ID.String())
	assert.False(t, byName.IsAdmin)
	assert.True(t, mr.Exists(constants.BuildIdentityByLoginKey("alice")))

	byID, err := resolver.Resolve(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.LoginName)
	assert.Equal(t, "alice@example.com", byID.Email)

	// a password write drops both cached entries
	require.NoError(t, service.ChangePassword(context.Background(), resp.User.ID, &auth.ChangePasswordRequest{CurrentPassword: "wonderland", NewPassword: "looking-glass"}))
	assert.False(t, mr.Exists(constants.BuildIdentityByLoginKey("alice")))
	assert.False(t, mr.Exists(constants.BuildIdentityByIDKey(resp.User.ID)))

	_, err = resolver.Resolve(context.Background(), "nobody")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
