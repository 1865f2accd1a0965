package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/integrity-watch/report-service/internal/domain"
)

func TestUserPatchSetsOnlyNamedFields(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	inactive := false
	role := domain.RolePolice

	tests := []struct {
		name  string
		patch UserPatch
		want  bson.M
	}{
		{
			name:  "last login",
			patch: UserPatch{LastLoginAt: &now},
			want:  bson.M{"updatedAt": now, "lastLoginAt": now},
		},
		{
			name:  "admin fields",
			patch: UserPatch{IsActive: &inactive, Role: &role},
			want:  bson.M{"updatedAt": now, "isActive": false, "role": domain.RolePolice},
		},
		{
			name:  "empty",
			patch: UserPatch{ClearEmailVerification: true},
			want:  bson.M{"updatedAt": now},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.patch.Set(now))
		})
	}
}

func TestUserPatchApply(t *testing.T) {
	now := time.Now().UTC()
	name := "Ada Obi"
	user := &domain.User{
		Name:              "Ada",
		Role:              domain.RoleCitizen,
		IsActive:          false,
		EmailVerification: &domain.TokenDigest{Hash: "abc"},
	}

	UserPatch{Name: &name, ClearEmailVerification: true}.Apply(user, now)

	assert.Equal(t, "Ada Obi", user.Name)
	assert.False(t, user.IsActive)
	assert.Equal(t, domain.RoleCitizen, user.Role)
	assert.Nil(t, user.EmailVerification)
	assert.Equal(t, now, user.UpdatedAt)
}
