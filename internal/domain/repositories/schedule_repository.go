package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

// DoctorScheduleRepository defines the interface for recurring weekly schedules
type DoctorScheduleRepository interface {
	Create(ctx context.Context, schedule *entities.DoctorSchedule) error
	GetByID(ctx context.Context, id string) (*entities.DoctorSchedule, error)
	Update(ctx context.Context, schedule *entities.DoctorSchedule) error
	Delete(ctx context.Context, id string) error

	// ListByDoctor retrieves every recurring row of the doctor ordered by day and start time
	ListByDoctor(ctx context.Context, doctorID string) ([]*entities.DoctorSchedule, error)
}

// ScheduleOverrideRepository defines the interface for date-specific schedule overrides
type ScheduleOverrideRepository interface {
	Create(ctx context.Context, override *entities.DoctorScheduleOverride) error
	GetByID(ctx context.Context, id string) (*entities.DoctorScheduleOverride, error)
	Update(ctx context.Context, override *entities.DoctorScheduleOverride) error
	Delete(ctx context.Context, id string) error

	// ListByDoctorAndDate retrieves the overrides of one calendar date
	ListByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]*entities.DoctorScheduleOverride, error)

	// ListByDoctor retrieves overrides with override_date in [from, to]; nil bounds are open
	ListByDoctor(ctx context.Context, doctorID string, from, to *time.Time) ([]*entities.DoctorScheduleOverride, error)
}
