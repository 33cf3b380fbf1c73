package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role distinguishes regular members from staff accounts.
type Role string

const (
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
)

// User is an account that can log activities, own a profile and join teams.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"` // unique
	Email        string             `bson:"email" json:"email"`       // unique
	FirstName    string             `bson:"firstName,omitempty" json:"first_name"`
	LastName     string             `bson:"lastName,omitempty" json:"last_name"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsStaff reports whether the user may see and manage every record.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff
}
