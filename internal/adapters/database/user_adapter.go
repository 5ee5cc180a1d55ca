package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// UserAdapter implements UserRepository and DoctorRepository
type UserAdapter struct {
	q queryer
}

var (
	_ repositories.UserRepository   = (*UserAdapter)(nil)
	_ repositories.DoctorRepository = (*DoctorAdapter)(nil)
)

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) *UserAdapter {
	return &UserAdapter{q: client.DB()}
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query, args, err := dialect.From("users").Prepared(true).
		Select("id", "email", "full_name", "phone", "role", "created_at", "updated_at").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user := &entities.User{}
	var phone sql.NullString
	err = a.q.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.FullName, &phone, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}
	if err != nil {
		return nil, dbError("failed to get user", err)
	}
	user.Phone = phone.String
	return user, nil
}

// DoctorAdapter implements DoctorRepository
type DoctorAdapter struct {
	q queryer
}

// NewDoctorAdapter creates a new doctor adapter
func NewDoctorAdapter(client *postgres.Client) *DoctorAdapter {
	return &DoctorAdapter{q: client.DB()}
}

// GetByID retrieves a doctor by ID
func (a *DoctorAdapter) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	return a.get(ctx, goqu.Ex{"id": id}, fmt.Sprintf("doctor with id %s not found", id))
}

// GetByUserID retrieves the doctor profile of a user
func (a *DoctorAdapter) GetByUserID(ctx context.Context, userID string) (*entities.Doctor, error) {
	return a.get(ctx, goqu.Ex{"user_id": userID}, "doctor profile not found for current user")
}

func (a *DoctorAdapter) get(ctx context.Context, where goqu.Ex, notFound string) (*entities.Doctor, error) {
	query, args, err := dialect.From("doctors").Prepared(true).
		Select("id", "user_id", "full_name", "specialty", "is_active", "created_at", "updated_at").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	doctor := &entities.Doctor{}
	var specialty sql.NullString
	err = a.q.QueryRowContext(ctx, query, args...).Scan(
		&doctor.ID, &doctor.UserID, &doctor.FullName, &specialty, &doctor.IsActive, &doctor.CreatedAt, &doctor.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, dbError("failed to get doctor", err)
	}
	doctor.Specialty = specialty.String
	return doctor, nil
}
