package domain

import (
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleCustomer   = "customer"
	RolePharmacist = "pharmacist"
	RoleAdmin      = "admin"
)

// User represents a platform account (customer or staff)
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Phone        string    `json:"phone" db:"phone"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsStaff reports whether the user may access staff endpoints
func (u *User) IsStaff() bool {
	return u.Role == RolePharmacist || u.Role == RoleAdmin
}

// RefreshToken represents a persisted refresh token
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
