package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
)

var notificationTemplates = map[entities.NotificationType]string{
	entities.NotificationBookingConfirmation: "Hello {{patient_name}}, your appointment with {{doctor_name}} is confirmed for {{scheduled_date}} at {{scheduled_time}}.",
	entities.NotificationReminder24h:         "Reminder: {{patient_name}}, you have an appointment with {{doctor_name}} on {{scheduled_date}} at {{scheduled_time}}.",
	entities.NotificationCancellation:        "Hello {{patient_name}}, your appointment with {{doctor_name}} on {{scheduled_date}} at {{scheduled_time}} was cancelled.",
	entities.NotificationRescheduled:         "Hello {{patient_name}}, your appointment with {{doctor_name}} has moved to {{scheduled_date}} at {{scheduled_time}}.",
}

var eventNotifications = map[entities.BookingEventType]entities.NotificationType{
	entities.BookingEventTypeBooked:    entities.NotificationBookingConfirmation,
	entities.BookingEventTypeCancelled: entities.NotificationCancellation,
	entities.BookingEventTypeUpdated:   entities.NotificationRescheduled,
}

// NotificationContext contains all data needed for notification rendering
type NotificationContext struct {
	AppointmentID string
	PatientName   string
	PatientPhone  string
	DoctorName    string
	ScheduledDate string
	ScheduledTime string
}

// NotificationService delivers patient notifications for booking events and upcoming appointments
type NotificationService struct {
	users        repositories.UserRepository
	doctors      repositories.DoctorRepository
	appointments repositories.AppointmentRepository
	log          repositories.NotificationLogRepository
	sender       providers.NotificationSender
	loc          *time.Location
	now          func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	users repositories.UserRepository,
	doctors repositories.DoctorRepository,
	appointments repositories.AppointmentRepository,
	log repositories.NotificationLogRepository,
	sender providers.NotificationSender,
	loc *time.Location,
) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		users:        users,
		doctors:      doctors,
		appointments: appointments,
		log:          log,
		sender:       sender,
		loc:          loc,
		now:          time.Now,
	}
}

// Run consumes booking events until ctx is cancelled or the subscription closes
func (n *NotificationService) Run(ctx context.Context, bus providers.EventBus) error {
	events, err := bus.Subscribe(ctx, providers.EventChannelBookings)
	if err != nil {
		return err
	}

	logger := observability.LoggerFromContext(ctx)
	logger.Info().Msg("Notification subscriber started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := n.HandleEvent(ctx, event); err != nil {
				logger.Warn().Err(err).Str("event_id", event.ID).Str("event_type", string(event.EventType)).Msg("Failed to handle booking event")
			}
		}
	}
}

// HandleEvent sends the notification matching a booking event, if any
func (n *NotificationService) HandleEvent(ctx context.Context, event *entities.BookingEvent) error {
	notifType, ok := eventNotifications[event.EventType]
	if !ok || event.AppointmentID == "" {
		return nil
	}

	appointment := &entities.Appointment{
		ID:                   event.AppointmentID,
		DoctorID:             event.DoctorID,
		PatientID:            event.PatientID,
		AppointmentStartTime: event.StartTime,
		AppointmentEndTime:   event.EndTime,
	}
	return n.Notify(ctx, appointment, notifType)
}

// SendReminders notifies patients of appointments starting within window. It returns the number sent.
func (n *NotificationService) SendReminders(ctx context.Context, window time.Duration) (int, error) {
	from := n.now().UTC()
	upcoming, err := n.appointments.ListStartingBetween(ctx, from, from.Add(window))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, appointment := range upcoming {
		already, err := n.log.HasSent(ctx, appointment.ID, entities.NotificationReminder24h)
		if err != nil {
			return sent, err
		}
		if already {
			continue
		}
		if err := n.Notify(ctx, appointment, entities.NotificationReminder24h); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("appointment_id", appointment.ID).Msg("Failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// Notify renders and delivers one notification and records the attempt
func (n *NotificationService) Notify(ctx context.Context, appointment *entities.Appointment, notifType entities.NotificationType) error {
	patient, err := n.users.GetByID(ctx, appointment.PatientID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(patient.Phone) == "" {
		observability.LoggerFromContext(ctx).Debug().Str("appointment_id", appointment.ID).Msg("Patient has no phone, skipping notification")
		return nil
	}

	doctorName := "your doctor"
	if doctor, err := n.doctors.GetByID(ctx, appointment.DoctorID); err == nil {
		doctorName = doctor.FullName
	}

	start := appointment.AppointmentStartTime.In(n.loc)
	notifCtx := &NotificationContext{
		AppointmentID: appointment.ID,
		PatientName:   patient.FullName,
		PatientPhone:  patient.Phone,
		DoctorName:    doctorName,
		ScheduledDate: start.Format("Monday, January 2, 2006"),
		ScheduledTime: start.Format("3:04 PM"),
	}
	body := n.renderTemplate(notificationTemplates[notifType], notifCtx)

	now := n.now().UTC()
	notification := &entities.AppointmentNotification{
		ID:               uuid.NewString(),
		AppointmentID:    appointment.ID,
		NotificationType: notifType,
		Channel:          n.sender.Channel(),
		Recipient:        patient.Phone,
		Status:           entities.NotificationStatusPending,
	}

	messageID, sendErr := n.sender.Send(ctx, patient.Phone, body)
	if sendErr != nil {
		errMsg := sendErr.Error()
		notification.Status = entities.NotificationStatusFailed
		notification.FailedAt = &now
		notification.ErrorMessage = &errMsg
	} else {
		notification.Status = entities.NotificationStatusSent
		notification.MessageID = &messageID
		notification.SentAt = &now
	}

	if err := n.log.Create(ctx, notification); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("appointment_id", appointment.ID).Msg("Failed to record notification")
	}
	return sendErr
}

// renderTemplate replaces placeholders in template
func (n *NotificationService) renderTemplate(template string, ctx *NotificationContext) string {
	replacements := map[string]string{
		"{{patient_name}}":   ctx.PatientName,
		"{{doctor_name}}":    ctx.DoctorName,
		"{{scheduled_date}}": ctx.ScheduledDate,
		"{{scheduled_time}}": ctx.ScheduledTime,
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}
