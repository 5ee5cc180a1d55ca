package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const reminderRunTimeout = 5 * time.Minute

// ReminderScheduler periodically sends reminders for upcoming appointments
type ReminderScheduler struct {
	cron    *cron.Cron
	service *NotificationService
	window  time.Duration
}

// NewReminderScheduler registers the reminder job under the given cron spec
func NewReminderScheduler(service *NotificationService, spec string, window time.Duration) (*ReminderScheduler, error) {
	s := &ReminderScheduler{
		cron:    cron.New(),
		service: service,
		window:  window,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ReminderScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), reminderRunTimeout)
	defer cancel()

	sent, err := s.service.SendReminders(ctx, s.window)
	if err != nil {
		log.Warn().Err(err).Msg("Reminder run failed")
		return
	}
	log.Info().Int("sent", sent).Msg("Reminder run finished")
}

// Start runs the scheduler in its own goroutine
func (s *ReminderScheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and returns a context done when running jobs finish
func (s *ReminderScheduler) Stop() context.Context {
	return s.cron.Stop()
}
