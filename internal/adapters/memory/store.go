// Package memory holds process-local implementations of the booking repositories.
// A single mutex guards all state; transactions hold it for their whole duration and
// restore a snapshot when they fail.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

type state struct {
	users         map[string]entities.User
	doctors       map[string]entities.Doctor
	schedules     map[string]entities.DoctorSchedule
	overrides     map[string]entities.DoctorScheduleOverride
	wallets       map[string]entities.Wallet
	ledger        map[string]entities.WalletTransaction
	appointments  map[string]entities.Appointment
	notifications map[string]entities.AppointmentNotification
}

func newState() *state {
	return &state{
		users:         make(map[string]entities.User),
		doctors:       make(map[string]entities.Doctor),
		schedules:     make(map[string]entities.DoctorSchedule),
		overrides:     make(map[string]entities.DoctorScheduleOverride),
		wallets:       make(map[string]entities.Wallet),
		ledger:        make(map[string]entities.WalletTransaction),
		appointments:  make(map[string]entities.Appointment),
		notifications: make(map[string]entities.AppointmentNotification),
	}
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		users:         cloneMap(s.users),
		doctors:       cloneMap(s.doctors),
		schedules:     cloneMap(s.schedules),
		overrides:     cloneMap(s.overrides),
		wallets:       cloneMap(s.wallets),
		ledger:        cloneMap(s.ledger),
		appointments:  cloneMap(s.appointments),
		notifications: cloneMap(s.notifications),
	}
}

// Store is an in-memory database
type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// view runs fn under the store lock unless the caller already holds it
func (s *Store) view(held bool, fn func(d *state) error) error {
	if !held {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

// AddUser inserts or replaces a user
func (s *Store) AddUser(u *entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.UpdatedAt = s.now()
	s.data.users[u.ID] = *u
}

// AddDoctor inserts or replaces a doctor profile
func (s *Store) AddDoctor(d *entities.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	d.UpdatedAt = s.now()
	s.data.doctors[d.ID] = *d
}

// Users returns the user repository
func (s *Store) Users() repositories.UserRepository { return &userRepository{s: s} }

// Doctors returns the doctor repository
func (s *Store) Doctors() repositories.DoctorRepository { return &doctorRepository{s: s} }

// Appointments returns a non-transactional appointment repository
func (s *Store) Appointments() repositories.AppointmentRepository {
	return &appointmentRepository{s: s}
}

// Wallets returns a non-transactional wallet repository
func (s *Store) Wallets() repositories.WalletRepository { return &walletRepository{s: s} }

// Schedules returns a non-transactional recurring schedule repository
func (s *Store) Schedules() repositories.DoctorScheduleRepository {
	return &scheduleRepository{s: s}
}

// Overrides returns a non-transactional override repository
func (s *Store) Overrides() repositories.ScheduleOverrideRepository {
	return &overrideRepository{s: s}
}

// Notifications returns the notification log repository
func (s *Store) Notifications() repositories.NotificationLogRepository {
	return &notificationRepository{s: s}
}

// WithinTransaction runs fn with exclusive access to the store and restores the prior state if fn fails
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow repositories.UnitOfWork) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if r := recover(); r != nil {
			s.data = snapshot
			panic(r)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return apperrors.NewInternalError("transaction aborted", err)
	}
	return fn(ctx, &unitOfWork{s: s})
}

var _ repositories.Transactor = (*Store)(nil)

type unitOfWork struct {
	s *Store
}

func (u *unitOfWork) Appointments() repositories.AppointmentRepository {
	return &appointmentRepository{s: u.s, held: true}
}

func (u *unitOfWork) Wallets() repositories.WalletRepository {
	return &walletRepository{s: u.s, held: true}
}

func (u *unitOfWork) Schedules() repositories.DoctorScheduleRepository {
	return &scheduleRepository{s: u.s, held: true}
}

func (u *unitOfWork) Overrides() repositories.ScheduleOverrideRepository {
	return &overrideRepository{s: u.s, held: true}
}

// LockDoctor is satisfied by the store-wide lock the transaction already holds
func (u *unitOfWork) LockDoctor(ctx context.Context, doctorID string) error {
	return nil
}

type userRepository struct {
	s *Store
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	var out *entities.User
	err := r.s.view(false, func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
		}
		out = &u
		return nil
	})
	return out, err
}

type doctorRepository struct {
	s *Store
}

func (r *doctorRepository) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	var out *entities.Doctor
	err := r.s.view(false, func(d *state) error {
		doc, ok := d.doctors[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID string) (*entities.Doctor, error) {
	var out *entities.Doctor
	err := r.s.view(false, func(d *state) error {
		for _, doc := range d.doctors {
			if doc.UserID == userID {
				doc := doc
				out = &doc
				return nil
			}
		}
		return apperrors.NewNotFoundError(fmt.Sprintf("doctor for user %s not found", userID))
	})
	return out, err
}

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Create(ctx context.Context, n *entities.AppointmentNotification) error {
	return r.s.view(false, func(d *state) error {
		now := r.s.now()
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.UpdatedAt = now
		d.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepository) HasSent(ctx context.Context, appointmentID string, notificationType entities.NotificationType) (bool, error) {
	sent := false
	err := r.s.view(false, func(d *state) error {
		for _, n := range d.notifications {
			if n.AppointmentID == appointmentID && n.NotificationType == notificationType && n.Status == entities.NotificationStatusSent {
				sent = true
				return nil
			}
		}
		return nil
	})
	return sent, err
}

func (r *notificationRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentNotification, error) {
	out := make([]*entities.AppointmentNotification, 0)
	err := r.s.view(false, func(d *state) error {
		for _, n := range d.notifications {
			if n.AppointmentID == appointmentID {
				n := n
				out = append(out, &n)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}
