package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// Transactor implements repositories.Transactor on a PostgreSQL transaction
type Transactor struct {
	client  *postgres.Client
	metrics *observability.Metrics
}

var _ repositories.Transactor = (*Transactor)(nil)

// NewTransactor creates a new transactor. metrics may be nil.
func NewTransactor(client *postgres.Client, metrics *observability.Metrics) *Transactor {
	return &Transactor{client: client, metrics: metrics}
}

// WithinTransaction runs fn in a READ COMMITTED transaction and commits when it returns nil
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow repositories.UnitOfWork) error) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, t.metrics, "transaction", time.Since(start))
	}()

	tx, err := t.client.BeginTx(ctx)
	if err != nil {
		return dbError("failed to begin transaction", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			log.Warn().Err(rbErr).Msg("Failed to roll back transaction")
		}
	}()

	if err := fn(ctx, newTxUnitOfWork(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if isExclusionViolation(err) {
			return apperrors.NewSlotConflictError()
		}
		return dbError("failed to commit transaction", err)
	}
	committed = true
	return nil
}

type txUnitOfWork struct {
	tx           *sql.Tx
	appointments *AppointmentAdapter
	wallets      *WalletAdapter
	schedules    *DoctorScheduleAdapter
	overrides    *ScheduleOverrideAdapter
}

func newTxUnitOfWork(tx *sql.Tx) *txUnitOfWork {
	return &txUnitOfWork{
		tx:           tx,
		appointments: &AppointmentAdapter{q: tx},
		wallets:      &WalletAdapter{q: tx},
		schedules:    &DoctorScheduleAdapter{q: tx},
		overrides:    &ScheduleOverrideAdapter{q: tx},
	}
}

func (u *txUnitOfWork) Appointments() repositories.AppointmentRepository { return u.appointments }
func (u *txUnitOfWork) Wallets() repositories.WalletRepository           { return u.wallets }
func (u *txUnitOfWork) Schedules() repositories.DoctorScheduleRepository { return u.schedules }
func (u *txUnitOfWork) Overrides() repositories.ScheduleOverrideRepository {
	return u.overrides
}

// LockDoctor takes a transaction-scoped advisory lock keyed by the doctor id
func (u *txUnitOfWork) LockDoctor(ctx context.Context, doctorID string) error {
	if _, err := u.tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", doctorID); err != nil {
		return dbError(fmt.Sprintf("failed to lock doctor %s", doctorID), err)
	}
	return nil
}
