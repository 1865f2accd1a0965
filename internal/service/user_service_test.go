package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrity-watch/report-service/internal/domain"
)

func TestCreateUserRequiresBadgeForPolice(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(testConfig(), UserDependencies{UserRepo: f.store.Users()})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Name: "Officer", Email: "o@example.org", Password: "password1", Role: domain.RolePolice})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	officer, err := svc.Create(ctx, CreateUserInput{
		Name: "Officer", Email: "o@example.org", Password: "password1",
		Role: domain.RolePolice, BadgeNumber: " B-17 ", Location: domain.Location{State: "Oyo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "B-17", officer.BadgeNumber)
	assert.True(t, officer.IsVerified)
	assert.True(t, officer.IsEmailVerified)

	_, err = svc.Create(ctx, CreateUserInput{Name: "Again", Email: "O@example.org", Password: "password1", Role: domain.RoleCitizen})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	_, err = svc.Create(ctx, CreateUserInput{Name: "Guest", Email: "g@example.org", Password: "password1", Role: "guest"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestAdminCannotLockThemselvesOut(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(testConfig(), UserDependencies{UserRepo: f.store.Users()})
	ctx := context.Background()
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	citizen := f.addUser(t, domain.RoleCitizen, "", false)

	_, err := svc.UpdateRole(ctx, admin.ID, admin.ID, domain.RoleCitizen)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
	_, err = svc.SetActive(ctx, admin.ID, admin.ID, false)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	promoted, err := svc.UpdateRole(ctx, admin.ID, citizen.ID, domain.RolePolice)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePolice, promoted.Role)

	disabled, err := svc.SetActive(ctx, admin.ID, citizen.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.IsActive)
}

func TestVerifyAndListOfficers(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(testConfig(), UserDependencies{UserRepo: f.store.Users()})
	ctx := context.Background()
	pending := f.addUser(t, domain.RolePolice, "Lagos", false)
	f.addUser(t, domain.RolePolice, "Kano", true)
	citizen := f.addUser(t, domain.RoleCitizen, "Lagos", false)

	_, err := svc.Verify(ctx, citizen.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	officers, err := svc.ListOfficers(ctx, "Lagos")
	require.NoError(t, err)
	assert.Empty(t, officers)

	_, err = svc.Verify(ctx, pending.ID)
	require.NoError(t, err)

	officers, err = svc.ListOfficers(ctx, "lagos")
	require.NoError(t, err)
	require.Len(t, officers, 1)
	assert.Equal(t, pending.ID, officers[0].ID)

	page, err := svc.List(ctx, UserQuery{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Page)
}
