package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, recipient, body string) (string, error) {
	args := m.Called(ctx, recipient, body)
	return args.String(0), args.Error(1)
}

func (m *mockSender) Channel() entities.NotificationChannel {
	return entities.ChannelWhatsApp
}

func newNotificationService(f *fixture, sender *mockSender) *NotificationService {
	svc := NewNotificationService(f.store.Users(), f.store.Doctors(), f.store.Appointments(), f.store.Notifications(), sender, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestNotificationService_HandleBookedEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := &mockSender{}
	svc := newNotificationService(f, sender)

	appointment, err := f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)

	sender.On("Send", mock.Anything, "+2348000000001",
		"Hello Pat, your appointment with Dr Ada is confirmed for Monday, June 3, 2030 at 10:00 AM.").
		Return("wamid.1", nil).Once()

	err = svc.HandleEvent(ctx, entities.NewAppointmentEvent(entities.BookingEventTypeBooked, appointment))
	require.NoError(t, err)
	sender.AssertExpectations(t)

	logged, err := f.store.Notifications().ListByAppointment(ctx, appointment.ID)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, entities.NotificationStatusSent, logged[0].Status)
	assert.Equal(t, entities.ChannelWhatsApp, logged[0].Channel)
	require.NotNil(t, logged[0].MessageID)
	assert.Equal(t, "wamid.1", *logged[0].MessageID)
}

func TestNotificationService_IgnoresUnmappedEvents(t *testing.T) {
	f := newFixture(t)
	sender := &mockSender{}
	svc := newNotificationService(f, sender)

	err := svc.HandleEvent(context.Background(), entities.NewScheduleEvent(doctorID))
	assert.NoError(t, err)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_SkipsPatientWithoutPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := &mockSender{}
	svc := newNotificationService(f, sender)

	err := svc.Notify(ctx, &entities.Appointment{
		ID:                   "appt-1",
		DoctorID:             doctorID,
		PatientID:            otherPatient,
		AppointmentStartTime: at(monday, 10, 0),
	}, entities.NotificationBookingConfirmation)
	assert.NoError(t, err)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_RecordsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := &mockSender{}
	svc := newNotificationService(f, sender)

	appointment, err := f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)

	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited")).Once()

	err = svc.Notify(ctx, appointment, entities.NotificationCancellation)
	assert.Error(t, err)

	logged, err := f.store.Notifications().ListByAppointment(ctx, appointment.ID)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, entities.NotificationStatusFailed, logged[0].Status)
	require.NotNil(t, logged[0].ErrorMessage)
	assert.Equal(t, "rate limited", *logged[0].ErrorMessage)
}

func TestNotificationService_SendReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := &mockSender{}
	svc := newNotificationService(f, sender)

	soon, err := f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)
	_, err = f.book(t, patientID, at(monday.AddDate(0, 0, 7), 10, 0), time.Hour)
	require.NoError(t, err)

	sender.On("Send", mock.Anything, "+2348000000001", mock.MatchedBy(func(body string) bool {
		return len(body) > 0 && body[:9] == "Reminder:"
	})).Return("wamid.2", nil).Once()

	sent, err := svc.SendReminders(ctx, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// already reminded
	sent, err = svc.SendReminders(ctx, 72*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)

	sender.AssertExpectations(t)

	logged, err := f.store.Notifications().ListByAppointment(ctx, soon.ID)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, entities.NotificationReminder24h, logged[0].NotificationType)
}

func TestNotificationService_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	svc := newNotificationService(f, &mockSender{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the recording bus hands out a closed channel
	assert.NoError(t, svc.Run(ctx, f.bus))
}

func TestReminderScheduler_InvalidSpec(t *testing.T) {
	f := newFixture(t)
	_, err := NewReminderScheduler(newNotificationService(f, &mockSender{}), "not a cron spec", time.Hour)
	assert.Error(t, err)

	s, err := NewReminderScheduler(newNotificationService(f, &mockSender{}), "@every 1h", time.Hour)
	require.NoError(t, err)
	s.Start()
	<-s.Stop().Done()
}
