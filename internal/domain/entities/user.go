package entities

import (
	"time"
)

// Role is the caller's role as asserted by the identity provider
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// IsStaff reports whether the role may act on behalf of doctors
func (r Role) IsStaff() bool {
	return r == RoleManager || r == RoleAdmin
}

// User represents a user in the system
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"fullName" db:"full_name"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Doctor is the practitioner profile attached to a doctor user
type Doctor struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	FullName  string    `json:"fullName" db:"full_name"`
	Specialty string    `json:"specialty,omitempty" db:"specialty"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
