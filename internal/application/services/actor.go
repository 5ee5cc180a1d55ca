package services

import "github.com/zatekoja/telemedbooking/internal/domain/entities"

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID string
	Role   entities.Role
}

// IsStaff reports whether the actor may act on behalf of doctors
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}
