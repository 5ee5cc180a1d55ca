package repositories

import "context"

// UnitOfWork exposes repositories bound to a single database transaction
type UnitOfWork interface {
	Appointments() AppointmentRepository
	Wallets() WalletRepository
	Schedules() DoctorScheduleRepository
	Overrides() ScheduleOverrideRepository

	// LockDoctor serialises check-then-write sequences for one doctor until the transaction ends
	LockDoctor(ctx context.Context, doctorID string) error
}

// Transactor runs fn inside a transaction. A returned error rolls back every write made through uow.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
