package repositories

import (
	"context"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)
}

// DoctorRepository defines the interface for doctor profile lookups
type DoctorRepository interface {
	// GetByID retrieves a doctor by ID
	GetByID(ctx context.Context, id string) (*entities.Doctor, error)

	// GetByUserID retrieves the doctor profile linked to a user account
	GetByUserID(ctx context.Context, userID string) (*entities.Doctor, error)
}
