package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/telemedbooking/internal/api/handlers"
	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) ListSchedules(ctx context.Context, doctorID string) ([]*entities.DoctorSchedule, error) {
	args := m.Called(ctx, doctorID)
	return args.Get(0).([]*entities.DoctorSchedule), args.Error(1)
}

func (m *MockScheduleService) ListMySchedules(ctx context.Context, actor services.Actor) ([]*entities.DoctorSchedule, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]*entities.DoctorSchedule), args.Error(1)
}

func (m *MockScheduleService) CreateSchedule(ctx context.Context, actor services.Actor, in services.ScheduleInput) (*entities.DoctorSchedule, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DoctorSchedule), args.Error(1)
}

func (m *MockScheduleService) UpdateSchedule(ctx context.Context, actor services.Actor, id string, in services.ScheduleInput) (*entities.DoctorSchedule, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DoctorSchedule), args.Error(1)
}

func (m *MockScheduleService) DeleteSchedule(ctx context.Context, actor services.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockScheduleService) ListOverrides(ctx context.Context, actor services.Actor, doctorID string, from, to *time.Time) ([]*entities.DoctorScheduleOverride, error) {
	args := m.Called(ctx, actor, doctorID, from, to)
	return args.Get(0).([]*entities.DoctorScheduleOverride), args.Error(1)
}

func (m *MockScheduleService) CreateOverride(ctx context.Context, actor services.Actor, doctorID string, in services.OverrideInput) (*entities.DoctorScheduleOverride, error) {
	args := m.Called(ctx, actor, doctorID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DoctorScheduleOverride), args.Error(1)
}

func (m *MockScheduleService) UpdateOverride(ctx context.Context, actor services.Actor, id string, in services.OverrideInput) (*entities.DoctorScheduleOverride, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DoctorScheduleOverride), args.Error(1)
}

func (m *MockScheduleService) DeleteOverride(ctx context.Context, actor services.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

var doctor = services.Actor{UserID: "a1d0c000-0000-4000-8000-000000000001", Role: entities.RoleDoctor}

const overrideBody = `{"overrideDate":"2030-06-03","startTime":"09:00","endTime":"12:00","isAvailable":false,"overrideType":"block","reason":"conference"}`

func TestScheduleHandler_CreateOverride(t *testing.T) {
	t.Run("creates override", func(t *testing.T) {
		mockService := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(mockService)

		mockService.On("CreateOverride", mock.Anything, doctor, "", mock.MatchedBy(func(in services.OverrideInput) bool {
			return in.Date.Equal(time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)) &&
				in.StartTime == entities.NewClockTime(9, 0, 0) &&
				!in.IsAvailable &&
				in.OverrideType == entities.OverrideTypeBlock
		})).Return(&entities.DoctorScheduleOverride{ID: "0e000000-0000-4000-8000-000000000001"}, nil)

		req := authed(httptest.NewRequest("POST", "/api/doctor-schedule-overrides/my", bytes.NewBufferString(overrideBody)), doctor)
		w := httptest.NewRecorder()
		handler.CreateMyOverride(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("conflicting appointments", func(t *testing.T) {
		mockService := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(mockService)

		mockService.On("CreateOverride", mock.Anything, doctor, "", mock.Anything).
			Return(nil, apperrors.NewConflictError("conflicting appointments exist").WithCode(apperrors.CodeHasConflictingAppointments))

		req := authed(httptest.NewRequest("POST", "/api/doctor-schedule-overrides/my", bytes.NewBufferString(overrideBody)), doctor)
		w := httptest.NewRecorder()
		handler.CreateMyOverride(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, apperrors.CodeHasConflictingAppointments, resp["code"])
		assert.Equal(t, "conflicting appointments exist", resp["error"])
	})

	t.Run("rejects unknown override type", func(t *testing.T) {
		handler := handlers.NewScheduleHandler(new(MockScheduleService))

		body := `{"overrideDate":"2030-06-03","startTime":"09:00","endTime":"12:00","isAvailable":false,"overrideType":"holiday"}`
		req := authed(httptest.NewRequest("POST", "/api/doctor-schedule-overrides/my", bytes.NewBufferString(body)), doctor)
		w := httptest.NewRecorder()
		handler.CreateMyOverride(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w)["fields"], "overrideType")
	})

	t.Run("manager on behalf", func(t *testing.T) {
		mockService := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(mockService)

		mockService.On("CreateOverride", mock.Anything, manager, "d0c00000-0000-4000-8000-000000000001", mock.Anything).
			Return(&entities.DoctorScheduleOverride{ID: "0e000000-0000-4000-8000-000000000001", DoctorID: "d0c00000-0000-4000-8000-000000000001"}, nil)

		req := authed(httptest.NewRequest("POST", "/api/doctor-schedule-overrides/doctor/d0c00000-0000-4000-8000-000000000001", bytes.NewBufferString(overrideBody)), manager)
		req.SetPathValue("doctorId", "d0c00000-0000-4000-8000-000000000001")
		w := httptest.NewRecorder()
		handler.CreateOverrideForDoctor(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestScheduleHandler_ListMyOverrides(t *testing.T) {
	mockService := new(MockScheduleService)
	handler := handlers.NewScheduleHandler(mockService)

	mockService.On("ListOverrides", mock.Anything, doctor, "", mock.MatchedBy(func(from *time.Time) bool {
		return from != nil && from.Equal(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	}), (*time.Time)(nil)).Return([]*entities.DoctorScheduleOverride{}, nil)

	req := authed(httptest.NewRequest("GET", "/api/doctor-schedule-overrides/my?from=2030-06-01", nil), doctor)
	w := httptest.NewRecorder()
	handler.ListMyOverrides(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)

	req = authed(httptest.NewRequest("GET", "/api/doctor-schedule-overrides/my?from=June", nil), doctor)
	w = httptest.NewRecorder()
	handler.ListMyOverrides(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandler_RecurringSchedules(t *testing.T) {
	mockService := new(MockScheduleService)
	handler := handlers.NewScheduleHandler(mockService)

	mockService.On("CreateSchedule", mock.Anything, doctor, services.ScheduleInput{
		DayOfWeek:   time.Monday,
		StartTime:   entities.NewClockTime(9, 0, 0),
		EndTime:     entities.NewClockTime(17, 0, 0),
		IsAvailable: true,
	}).Return(&entities.DoctorSchedule{ID: "5c0ed000-0000-4000-8000-000000000001"}, nil)
	mockService.On("DeleteSchedule", mock.Anything, doctor, "5c0ed000-0000-4000-8000-000000000009").Return(apperrors.NewNotFoundError("schedule with id 5c0ed000-0000-4000-8000-000000000009 not found"))
	mockService.On("ListSchedules", mock.Anything, "d0c00000-0000-4000-8000-000000000001").Return([]*entities.DoctorSchedule{{ID: "5c0ed000-0000-4000-8000-000000000001"}}, nil)

	req := authed(httptest.NewRequest("POST", "/api/doctor-schedules/me", bytes.NewBufferString(`{"dayOfWeek":1,"startTime":"09:00","endTime":"17:00"}`)), doctor)
	w := httptest.NewRecorder()
	handler.CreateSchedule(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = authed(httptest.NewRequest("POST", "/api/doctor-schedules/me", bytes.NewBufferString(`{"dayOfWeek":9,"startTime":"09:00","endTime":"17:00"}`)), doctor)
	w = httptest.NewRecorder()
	handler.CreateSchedule(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w)["fields"], "dayOfWeek")

	req = authed(httptest.NewRequest("DELETE", "/api/doctor-schedules/me/5c0ed000-0000-4000-8000-000000000009", nil), doctor)
	req.SetPathValue("id", "5c0ed000-0000-4000-8000-000000000009")
	w = httptest.NewRecorder()
	handler.DeleteSchedule(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest("GET", "/api/doctor-schedules/doctor/d0c00000-0000-4000-8000-000000000001", nil)
	req.SetPathValue("doctorId", "d0c00000-0000-4000-8000-000000000001")
	w = httptest.NewRecorder()
	handler.ListDoctorSchedules(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	mockService.AssertExpectations(t)
}
