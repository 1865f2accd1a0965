package domain

import "time"

// Role determines authorization scope.
type Role string

const (
	RoleCitizen Role = "citizen"
	RolePolice  Role = "police"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RolePolice, RoleAdmin:
		return true
	}
	return false
}

// PasswordReset is a single-use reset token record.
type PasswordReset struct {
	ID        string     `bson:"_id,omitempty"`
	UserID    string     `bson:"userId"`
	TokenHash string     `bson:"tokenHash"`
	ExpiresAt time.Time  `bson:"expiresAt"`
	UsedAt    *time.Time `bson:"usedAt,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
}
