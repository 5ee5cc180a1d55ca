package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

type appointmentRepository struct {
	s    *Store
	held bool
}

var _ repositories.AppointmentRepository = (*appointmentRepository)(nil)

// conflicts mirrors the database exclusion constraint on blocking appointments
func conflicts(d *state, a *entities.Appointment) bool {
	if !a.BlocksSlot() {
		return false
	}
	interval := a.Interval()
	for id, other := range d.appointments {
		if id == a.ID || other.DoctorID != a.DoctorID || !other.BlocksSlot() {
			continue
		}
		if other.Interval().Overlaps(interval) {
			return true
		}
	}
	return false
}

func (r *appointmentRepository) Create(ctx context.Context, a *entities.Appointment) error {
	return r.s.view(r.held, func(d *state) error {
		if _, exists := d.appointments[a.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("appointment %s already exists", a.ID))
		}
		if !a.AppointmentEndTime.After(a.AppointmentStartTime) {
			return apperrors.NewValidationError("appointment end must be after start")
		}
		if conflicts(d, a) {
			return apperrors.NewSlotConflictError()
		}
		now := r.s.now()
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
		d.appointments[a.ID] = *a
		return nil
	})
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	var out *entities.Appointment
	err := r.s.view(r.held, func(d *state) error {
		a, ok := d.appointments[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *appointmentRepository) Update(ctx context.Context, a *entities.Appointment) error {
	return r.s.view(r.held, func(d *state) error {
		existing, ok := d.appointments[a.ID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", a.ID))
		}
		if conflicts(d, a) {
			return apperrors.NewSlotConflictError()
		}
		a.CreatedAt = existing.CreatedAt
		a.UpdatedAt = r.s.now()
		d.appointments[a.ID] = *a
		return nil
	})
}

func (r *appointmentRepository) Delete(ctx context.Context, id string) error {
	return r.s.view(r.held, func(d *state) error {
		if _, ok := d.appointments[id]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
		}
		delete(d.appointments, id)
		return nil
	})
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return r.list(func(a *entities.Appointment) bool { return a.DoctorID == doctorID }, filter, false)
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return r.list(func(a *entities.Appointment) bool { return a.PatientID == patientID }, filter, true)
}

func matchesFilter(a *entities.Appointment, filter repositories.AppointmentFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if a.StatusCode == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.From != nil && a.AppointmentStartTime.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !a.AppointmentStartTime.Before(*filter.To) {
		return false
	}
	if filter.PaidOnly && a.TransactionID == nil {
		return false
	}
	return true
}

func (r *appointmentRepository) list(owner func(*entities.Appointment) bool, filter repositories.AppointmentFilter, desc bool) ([]*entities.Appointment, error) {
	out := make([]*entities.Appointment, 0)
	err := r.s.view(r.held, func(d *state) error {
		for _, a := range d.appointments {
			a := a
			if owner(&a) && matchesFilter(&a, filter) {
				out = append(out, &a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].AppointmentStartTime.After(out[j].AppointmentStartTime)
		}
		return out[i].AppointmentStartTime.Before(out[j].AppointmentStartTime)
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *appointmentRepository) HasOverlap(ctx context.Context, doctorID string, start, end time.Time, ignoreID string) (bool, error) {
	found := false
	candidate := entities.NewInterval(start, end)
	err := r.s.view(r.held, func(d *state) error {
		for id, a := range d.appointments {
			if id == ignoreID || a.DoctorID != doctorID || !a.BlocksSlot() {
				continue
			}
			if a.Interval().Overlaps(candidate) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *appointmentRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*entities.Appointment, error) {
	out := make([]*entities.Appointment, 0)
	err := r.s.view(r.held, func(d *state) error {
		for _, a := range d.appointments {
			a := a
			if a.StatusCode == entities.AppointmentStatusOnProgressing &&
				!a.AppointmentStartTime.Before(from) && a.AppointmentStartTime.Before(to) {
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentStartTime.Before(out[j].AppointmentStartTime) })
	return out, err
}

type walletRepository struct {
	s    *Store
	held bool
}

var _ repositories.WalletRepository = (*walletRepository)(nil)

func (r *walletRepository) Create(ctx context.Context, w *entities.Wallet) error {
	return r.s.view(r.held, func(d *state) error {
		for _, existing := range d.wallets {
			if existing.UserID == w.UserID {
				return apperrors.NewConflictError("user already has a wallet")
			}
		}
		if w.Balance < 0 {
			return apperrors.NewValidationError("wallet balance cannot be negative")
		}
		now := r.s.now()
		w.CreatedAt = now
		w.UpdatedAt = now
		d.wallets[w.ID] = *w
		return nil
	})
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*entities.Wallet, error) {
	var out *entities.Wallet
	err := r.s.view(r.held, func(d *state) error {
		for _, w := range d.wallets {
			if w.UserID == userID {
				w := w
				out = &w
				return nil
			}
		}
		return apperrors.NewNotFoundError(fmt.Sprintf("wallet for user %s not found", userID))
	})
	return out, err
}

func (r *walletRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*entities.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *walletRepository) Debit(ctx context.Context, walletID string, amount int64) (int64, error) {
	var balance int64
	err := r.s.view(r.held, func(d *state) error {
		w, ok := d.wallets[walletID]
		if !ok || !w.IsActive || w.Balance < amount {
			return apperrors.NewInsufficientFundsError()
		}
		w.Balance -= amount
		w.UpdatedAt = r.s.now()
		d.wallets[walletID] = w
		balance = w.Balance
		return nil
	})
	return balance, err
}

func (r *walletRepository) Credit(ctx context.Context, walletID string, amount int64) (int64, error) {
	var balance int64
	err := r.s.view(r.held, func(d *state) error {
		w, ok := d.wallets[walletID]
		if !ok || !w.IsActive {
			return apperrors.NewNotFoundError(fmt.Sprintf("active wallet %s not found", walletID))
		}
		w.Balance += amount
		w.UpdatedAt = r.s.now()
		d.wallets[walletID] = w
		balance = w.Balance
		return nil
	})
	return balance, err
}

func (r *walletRepository) AppendTransaction(ctx context.Context, tx *entities.WalletTransaction) error {
	return r.s.view(r.held, func(d *state) error {
		if _, exists := d.ledger[tx.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("wallet transaction %s already exists", tx.ID))
		}
		if tx.Amount <= 0 {
			return apperrors.NewValidationError("ledger amount must be positive")
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = r.s.now()
		}
		d.ledger[tx.ID] = *tx
		return nil
	})
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID string, limit, offset int) ([]*entities.WalletTransaction, error) {
	out := make([]*entities.WalletTransaction, 0)
	err := r.s.view(r.held, func(d *state) error {
		for _, tx := range d.ledger {
			tx := tx
			if tx.WalletID == walletID {
				out = append(out, &tx)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

type scheduleRepository struct {
	s    *Store
	held bool
}

var _ repositories.DoctorScheduleRepository = (*scheduleRepository)(nil)

func (r *scheduleRepository) Create(ctx context.Context, sch *entities.DoctorSchedule) error {
	return r.s.view(r.held, func(d *state) error {
		if _, ok := d.doctors[sch.DoctorID]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", sch.DoctorID))
		}
		now := r.s.now()
		sch.CreatedAt = now
		sch.UpdatedAt = now
		d.schedules[sch.ID] = *sch
		return nil
	})
}

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*entities.DoctorSchedule, error) {
	var out *entities.DoctorSchedule
	err := r.s.view(r.held, func(d *state) error {
		sch, ok := d.schedules[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("schedule with id %s not found", id))
		}
		out = &sch
		return nil
	})
	return out, err
}

func (r *scheduleRepository) Update(ctx context.Context, sch *entities.DoctorSchedule) error {
	return r.s.view(r.held, func(d *state) error {
		existing, ok := d.schedules[sch.ID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("schedule with id %s not found", sch.ID))
		}
		sch.CreatedAt = existing.CreatedAt
		sch.UpdatedAt = r.s.now()
		d.schedules[sch.ID] = *sch
		return nil
	})
}

func (r *scheduleRepository) Delete(ctx context.Context, id string) error {
	return r.s.view(r.held, func(d *state) error {
		if _, ok := d.schedules[id]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("schedule with id %s not found", id))
		}
		delete(d.schedules, id)
		return nil
	})
}

func (r *scheduleRepository) ListByDoctor(ctx context.Context, doctorID string) ([]*entities.DoctorSchedule, error) {
	out := make([]*entities.DoctorSchedule, 0)
	err := r.s.view(r.held, func(d *state) error {
		for _, sch := range d.schedules {
			sch := sch
			if sch.DoctorID == doctorID {
				out = append(out, &sch)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, err
}

type overrideRepository struct {
	s    *Store
	held bool
}

var _ repositories.ScheduleOverrideRepository = (*overrideRepository)(nil)

func (r *overrideRepository) Create(ctx context.Context, o *entities.DoctorScheduleOverride) error {
	return r.s.view(r.held, func(d *state) error {
		if _, ok := d.doctors[o.DoctorID]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", o.DoctorID))
		}
		now := r.s.now()
		o.CreatedAt = now
		o.UpdatedAt = now
		d.overrides[o.ID] = *o
		return nil
	})
}

func (r *overrideRepository) GetByID(ctx context.Context, id string) (*entities.DoctorScheduleOverride, error) {
	var out *entities.DoctorScheduleOverride
	err := r.s.view(r.held, func(d *state) error {
		o, ok := d.overrides[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("schedule override with id %s not found", id))
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *overrideRepository) Update(ctx context.Context, o *entities.DoctorScheduleOverride) error {
	return r.s.view(r.held, func(d *state) error {
		existing, ok := d.overrides[o.ID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("schedule override with id %s not found", o.ID))
		}
		o.CreatedAt = existing.CreatedAt
		o.UpdatedAt = r.s.now()
		d.overrides[o.ID] = *o
		return nil
	})
}

func (r *overrideRepository) Delete(ctx context.Context, id string) error {
	return r.s.view(r.held, func(d *state) error {
		if _, ok := d.overrides[id]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("schedule override with id %s not found", id))
		}
		delete(d.overrides, id)
		return nil
	})
}

func (r *overrideRepository) ListByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]*entities.DoctorScheduleOverride, error) {
	return r.list(doctorID, func(o *entities.DoctorScheduleOverride) bool {
		return entities.SameDate(o.OverrideDate, date)
	})
}

func (r *overrideRepository) ListByDoctor(ctx context.Context, doctorID string, from, to *time.Time) ([]*entities.DoctorScheduleOverride, error) {
	return r.list(doctorID, func(o *entities.DoctorScheduleOverride) bool {
		if from != nil && o.OverrideDate.Before(dateOnly(*from)) {
			return false
		}
		if to != nil && o.OverrideDate.After(dateOnly(*to)) {
			return false
		}
		return true
	})
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *overrideRepository) list(doctorID string, keep func(*entities.DoctorScheduleOverride) bool) ([]*entities.DoctorScheduleOverride, error) {
	out := make([]*entities.DoctorScheduleOverride, 0)
	err := r.s.view(r.held, func(d *state) error {
		for _, o := range d.overrides {
			o := o
			if o.DoctorID == doctorID && keep(&o) {
				out = append(out, &o)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OverrideDate.Equal(out[j].OverrideDate) {
			return out[i].OverrideDate.Before(out[j].OverrideDate)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, err
}
