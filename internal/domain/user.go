package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is a coarse place used for jurisdiction and room scoping.
type Location struct {
	City  string `bson:"city,omitempty" json:"city,omitempty"`
	State string `bson:"state,omitempty" json:"state,omitempty"`
}

// TokenDigest stores a hashed one-time token with its expiry.
type TokenDigest struct {
	Hash      string    `bson:"hash" json:"-"`
	ExpiresAt time.Time `bson:"expiresAt" json:"-"`
}

// User is a citizen, police officer or administrator account.
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	Email             string             `bson:"email" json:"email"`
	PasswordHash      string             `bson:"passwordHash" json:"-"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role              Role               `bson:"role" json:"role"`
	Location          Location           `bson:"location" json:"location"`
	BadgeNumber       string             `bson:"badgeNumber,omitempty" json:"badgeNumber,omitempty"`
	IsActive          bool               `bson:"isActive" json:"isActive"`
	IsEmailVerified   bool               `bson:"isEmailVerified" json:"isEmailVerified"`
	IsVerified        bool               `bson:"isVerified" json:"isVerified"`
	EmailVerification *TokenDigest       `bson:"emailVerification,omitempty" json:"-"`
	LastLoginAt       *time.Time         `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CanActAsPolice reports whether the account may perform officer-only actions.
func (u *User) CanActAsPolice() bool {
	if u == nil || !u.IsActive {
		return false
	}
	switch u.Role {
	case RoleAdmin:
		return true
	case RolePolice:
		return u.IsVerified
	default:
		return false
	}
}
