package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/repository"
)

func newAuth(t *testing.T, f *fixture) *AuthService {
	t.Helper()
	return NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          f.store.Users(),
		PasswordResetRepo: f.store.PasswordResets(),
		Dispatcher:        f.dispatcher,
		Logger:            zaptest.NewLogger(t),
	})
}

func register(t *testing.T, svc *AuthService) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     " Ada Obi ",
		Email:    "Ada@Example.org",
		Password: "correct horse",
		Location: domain.Location{State: " Lagos "},
	})
	require.NoError(t, err)
	return result
}

func TestRegisterCreatesCitizen(t *testing.T) {
	f := newFixture(t)
	svc := newAuth(t, f)

	result := register(t, svc)
	assert.Equal(t, domain.RoleCitizen, result.User.Role)
	assert.Equal(t, "ada@example.org", result.User.Email)
	assert.Equal(t, "Ada Obi", result.User.Name)
	assert.Equal(t, "Lagos", result.User.Location.State)
	assert.False(t, result.User.IsEmailVerified)
	assert.NotEmpty(t, result.Token)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.Hex(), claims.Subject)
	assert.Equal(t, domain.RoleCitizen, claims.Role)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Dup", Email: "ADA@example.org", Password: "another pass"})
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	svc := newAuth(t, f)
	ctx := context.Background()
	registered := register(t, svc)

	result, err := svc.Login(ctx, "ada@example.org", "correct horse")
	require.NoError(t, err)
	require.NotNil(t, result.User.LastLoginAt)

	_, err = svc.Login(ctx, "ada@example.org", "wrong")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	_, err = svc.Login(ctx, "nobody@example.org", "correct horse")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	users := NewUserService(testConfig(), UserDependencies{UserRepo: f.store.Users()})
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	_, err = users.SetActive(ctx, admin.ID, registered.User.ID, false)
	require.NoError(t, err)
	_, err = svc.Login(ctx, "ada@example.org", "correct horse")
	assert.Equal(t, http.StatusForbidden, statusOf(err))
}

// interleavedUsers runs afterRead once, between a lookup and whatever the caller writes next.
type interleavedUsers struct {
	repository.UserRepository
	afterRead func()
}

func (u *interleavedUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := u.UserRepository.GetByEmail(ctx, email)
	if hook := u.afterRead; hook != nil {
		u.afterRead = nil
		hook()
	}
	return user, err
}

func TestLoginDoesNotUndoConcurrentDeactivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := register(t, newAuth(t, f))
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	users := NewUserService(testConfig(), UserDependencies{UserRepo: f.store.Users()})

	racing := &interleavedUsers{UserRepository: f.store.Users()}
	racing.afterRead = func() {
		_, err := users.SetActive(ctx, admin.ID, registered.User.ID, false)
		require.NoError(t, err)
	}
	svc := NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          racing,
		PasswordResetRepo: f.store.PasswordResets(),
		Dispatcher:        f.dispatcher,
		Logger:            zaptest.NewLogger(t),
	})

	_, err := svc.Login(ctx, "ada@example.org", "correct horse")
	require.NoError(t, err)

	stored, err := f.store.Users().GetByID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = svc.Login(ctx, "ada@example.org", "correct horse")
	assert.Equal(t, http.StatusForbidden, statusOf(err))
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	svc := newAuth(t, f)
	ctx := context.Background()
	register(t, svc)

	emitted := f.recorded.ofType(events.EventUserRegistered)
	require.Len(t, emitted, 1)
	token := emitted[0].Payload.(events.UserRegisteredPayload).VerificationToken
	require.NotEmpty(t, token)

	_, err := svc.VerifyEmail(ctx, "bogus")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	user, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.IsEmailVerified)

	_, err = svc.VerifyEmail(ctx, token)
	assert.Equal(t, http.StatusBadRequest, statusOf(err), "token is single use")
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	svc := newAuth(t, f)
	ctx := context.Background()
	register(t, svc)

	require.NoError(t, svc.RequestPasswordReset(ctx, "unknown@example.org"))
	assert.Empty(t, f.recorded.ofType(events.EventPasswordResetRequested))

	require.NoError(t, svc.RequestPasswordReset(ctx, "ADA@example.org"))
	requested := f.recorded.ofType(events.EventPasswordResetRequested)
	require.Len(t, requested, 1)
	token := requested[0].Payload.(events.PasswordResetRequestedPayload).Token

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token, "brand new secret"))
	assert.Equal(t, http.StatusBadRequest, statusOf(svc.ConfirmPasswordReset(ctx, token, "second attempt")))

	_, err := svc.Login(ctx, "ada@example.org", "correct horse")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	_, err = svc.Login(ctx, "ada@example.org", "brand new secret")
	assert.NoError(t, err)
}

func TestProfileAndPasswordChange(t *testing.T) {
	f := newFixture(t)
	svc := newAuth(t, f)
	ctx := context.Background()
	id := register(t, svc).User.ID

	name := "Ada O."
	user, err := svc.UpdateProfile(ctx, id, ProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada O.", user.Name)
	assert.Equal(t, "Lagos", user.Location.State)

	assert.Equal(t, http.StatusBadRequest, statusOf(svc.ChangePassword(ctx, id, "wrong", "whatever123")))
	require.NoError(t, svc.ChangePassword(ctx, id, "correct horse", "whatever123"))
	_, err = svc.Login(ctx, "ada@example.org", "whatever123")
	assert.NoError(t, err)

	me, err := svc.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada O.", me.Name)
}
