package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zatekoja/telemedbooking/internal/adapters/memory"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/pkg/config"
)

const (
	doctorID      = "doc-1"
	doctorUserID  = "user-doc-1"
	patientID     = "user-pat-1"
	otherPatient  = "user-pat-2"
	managerID     = "user-mgr-1"
	openingFunds  = int64(500000)
	bookingAmount = int64(200000)
)

var (
	// 2030-06-03 is a Monday
	monday   = time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)
	fixedNow = time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)

	patientActor = Actor{UserID: patientID, Role: entities.RolePatient}
	doctorActor  = Actor{UserID: doctorUserID, Role: entities.RoleDoctor}
	managerActor = Actor{UserID: managerID, Role: entities.RoleManager}
)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type recordingBus struct {
	mu     sync.Mutex
	events []*entities.BookingEvent
}

func (b *recordingBus) Publish(ctx context.Context, channel string, event *entities.BookingEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.BookingEvent, error) {
	ch := make(chan *entities.BookingEvent)
	close(ch)
	return ch, nil
}

func (b *recordingBus) Unsubscribe(ctx context.Context, channel string) error { return nil }
func (b *recordingBus) Close() error                                          { return nil }

func (b *recordingBus) types() []entities.BookingEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]entities.BookingEventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	store        *memory.Store
	bus          *recordingBus
	booking      *BookingService
	availability *AvailabilityService
	schedules    *ScheduleService
	wallets      *WalletService
}

// newFixture seeds a doctor working Mondays 09:00-17:00 and a patient holding 500,000
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	store.AddUser(&entities.User{ID: doctorUserID, Email: "ada@example.com", FullName: "Dr Ada", Role: entities.RoleDoctor})
	store.AddUser(&entities.User{ID: patientID, Email: "pat@example.com", FullName: "Pat", Phone: "+2348000000001", Role: entities.RolePatient})
	store.AddUser(&entities.User{ID: otherPatient, Email: "sam@example.com", FullName: "Sam", Role: entities.RolePatient})
	store.AddDoctor(&entities.Doctor{ID: doctorID, UserID: doctorUserID, FullName: "Dr Ada", IsActive: true})

	require.NoError(t, store.Schedules().Create(ctx, &entities.DoctorSchedule{
		ID:          "sched-mon",
		DoctorID:    doctorID,
		DayOfWeek:   time.Monday,
		StartTime:   entities.MustParseClockTime("09:00"),
		EndTime:     entities.MustParseClockTime("17:00"),
		IsAvailable: true,
	}))

	bus := &recordingBus{}
	cfg := &config.BookingConfig{EnforceAvailability: true, Timezone: "UTC"}

	booking := NewBookingService(store, store.Appointments(), store.Doctors(), bus, nil, cfg)
	booking.now = func() time.Time { return fixedNow }

	wallets := NewWalletService(store, store.Wallets(), nil)
	_, err := wallets.OpenWallet(ctx, patientID, openingFunds)
	require.NoError(t, err)

	return &fixture{
		store:        store,
		bus:          bus,
		booking:      booking,
		availability: NewAvailabilityService(store.Schedules(), store.Overrides(), store.Appointments(), time.UTC),
		schedules:    NewScheduleService(store, store.Schedules(), store.Overrides(), store.Doctors(), bus, time.UTC),
		wallets:      wallets,
	}
}

func (f *fixture) book(t *testing.T, patient string, start time.Time, d time.Duration) (*entities.Appointment, error) {
	t.Helper()
	return f.booking.CreateAppointment(context.Background(), CreateAppointmentInput{
		PatientID: patient,
		DoctorID:  doctorID,
		Start:     start,
		End:       start.Add(d),
		Amount:    bookingAmount,
	})
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	wallet, err := f.store.Wallets().GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return wallet.Balance
}
