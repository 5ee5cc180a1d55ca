package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/telemedbooking/internal/api/handlers"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
)

// MockEventBus for testing
type MockEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *entities.BookingEvent
	published   []*entities.BookingEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.BookingEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.BookingEvent) error {
	m.mu.Lock()
	m.published = append(m.published, event)
	channels := append([]chan *entities.BookingEvent(nil), m.subscribers[channel]...)
	m.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.BookingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.BookingEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	subs := m.subscribers
	m.subscribers = make(map[string][]chan *entities.BookingEvent)
	m.mu.Unlock()
	for _, channels := range subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	return nil
}

func streamRequest(ctx context.Context, doctorID string) *http.Request {
	req := httptest.NewRequest("GET", "/api/doctors/"+doctorID+"/events", nil)
	req.SetPathValue("doctorId", doctorID)
	return req.WithContext(ctx)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after cancel")
	}
}

func TestSSEHandler_StreamDoctorEvents(t *testing.T) {
	eventBus := NewMockEventBus()
	handler := handlers.NewSSEHandler(eventBus)

	t.Run("establishes the stream", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := httptest.NewRecorder()
		done := make(chan struct{})
		go func() {
			handler.StreamDoctorEvents(w, streamRequest(ctx, "d0c00000-0000-4000-8000-000000000001"))
			close(done)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()
		waitDone(t, done)

		result := w.Result()
		assert.Equal(t, "text/event-stream", result.Header.Get("Content-Type"))
		assert.Equal(t, "no-cache", result.Header.Get("Cache-Control"))
		assert.Contains(t, w.Body.String(), "event: connected")
	})

	t.Run("forwards slot changes without patient details", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := httptest.NewRecorder()
		done := make(chan struct{})
		go func() {
			handler.StreamDoctorEvents(w, streamRequest(ctx, "d0c00000-0000-4000-8000-000000000002"))
			close(done)
		}()
		time.Sleep(100 * time.Millisecond)

		start := time.Date(2030, 6, 3, 10, 0, 0, 0, time.UTC)
		event := entities.NewAppointmentEvent(entities.BookingEventTypeBooked, &entities.Appointment{
			ID:                   "a9900000-0000-4000-8000-000000000001",
			DoctorID:             "d0c00000-0000-4000-8000-000000000002",
			PatientID:            "a1ba7000-0000-4000-8000-000000000001",
			AppointmentStartTime: start,
			AppointmentEndTime:   start.Add(time.Hour),
			StatusCode:           entities.AppointmentStatusOnProgressing,
			TotalAmount:          200000,
		})
		_ = eventBus.Publish(context.Background(), providers.GetDoctorChannel("d0c00000-0000-4000-8000-000000000002"), event)

		time.Sleep(200 * time.Millisecond)
		cancel()
		waitDone(t, done)

		body := w.Body.String()
		assert.Contains(t, body, "event: appointment.booked")
		assert.Contains(t, body, `"doctorId":"d0c00000-0000-4000-8000-000000000002"`)
		assert.NotContains(t, body, "a1ba7000-0000-4000-8000-000000000001")
		assert.NotContains(t, body, "200000")
	})

	t.Run("ignores other doctors", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := httptest.NewRecorder()
		done := make(chan struct{})
		go func() {
			handler.StreamDoctorEvents(w, streamRequest(ctx, "d0c00000-0000-4000-8000-000000000003"))
			close(done)
		}()
		time.Sleep(100 * time.Millisecond)

		other := &entities.BookingEvent{EventType: entities.BookingEventTypeCancelled, DoctorID: "d0c00000-0000-4000-8000-000000000004"}
		_ = eventBus.Publish(context.Background(), providers.GetDoctorChannel("d0c00000-0000-4000-8000-000000000004"), other)

		time.Sleep(100 * time.Millisecond)
		cancel()
		waitDone(t, done)

		assert.NotContains(t, w.Body.String(), "appointment.cancelled")
	})

	t.Run("requires a doctor id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.StreamDoctorEvents(w, httptest.NewRequest("GET", "/api/doctors//events", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSSEHandler_ClientCount(t *testing.T) {
	handler := handlers.NewSSEHandler(NewMockEventBus())
	assert.Equal(t, 0, handler.GetClientCount())

	ctx, cancel := context.WithCancel(context.Background())
	go handler.StreamDoctorEvents(httptest.NewRecorder(), streamRequest(ctx, "d0c00000-0000-4000-8000-000000000001"))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, handler.GetClientCount())

	cancel()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, handler.GetClientCount())
}
