package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/telemedbooking/internal/api/handlers"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) ResolveAvailability(ctx context.Context, doctorID string, date time.Time, at entities.ClockTime) (entities.Availability, error) {
	args := m.Called(ctx, doctorID, date, at)
	return args.Get(0).(entities.Availability), args.Error(1)
}

func (m *MockAvailabilityService) IsDoctorBusy(ctx context.Context, doctorID string, start, end time.Time, ignoreAppointmentID string) (bool, error) {
	args := m.Called(ctx, doctorID, start, end, ignoreAppointmentID)
	return args.Bool(0), args.Error(1)
}

func TestAvailabilityHandler_GetAvailability(t *testing.T) {
	mockService := new(MockAvailabilityService)
	handler := handlers.NewAvailabilityHandler(mockService)

	date := time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)
	mockService.On("ResolveAvailability", mock.Anything, "d0c00000-0000-4000-8000-000000000001", date, entities.NewClockTime(9, 30, 0)).
		Return(entities.Availability{Available: false, Source: entities.AvailabilitySourceOverride}, nil)

	req := httptest.NewRequest("GET", "/api/doctors/d0c00000-0000-4000-8000-000000000001/availability?date=2030-06-03&time=09:30", nil)
	req.SetPathValue("doctorId", "d0c00000-0000-4000-8000-000000000001")
	w := httptest.NewRecorder()
	handler.GetAvailability(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"doctorId":"d0c00000-0000-4000-8000-000000000001","date":"2030-06-03","time":"09:30:00","available":false,"source":"Override"}`, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestAvailabilityHandler_GetAvailabilityValidation(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{name: "missing date", query: "time=09:00", field: "date"},
		{name: "bad date", query: "date=03/06/2030&time=09:00", field: "date"},
		{name: "missing time", query: "date=2030-06-03", field: "time"},
		{name: "bad time", query: "date=2030-06-03&time=25:00", field: "time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAvailabilityService)
			handler := handlers.NewAvailabilityHandler(mockService)

			req := httptest.NewRequest("GET", "/api/doctors/d0c00000-0000-4000-8000-000000000001/availability?"+tt.query, nil)
			req.SetPathValue("doctorId", "d0c00000-0000-4000-8000-000000000001")
			w := httptest.NewRecorder()
			handler.GetAvailability(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeError(t, w)["fields"], tt.field)
			mockService.AssertNotCalled(t, "ResolveAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAvailabilityHandler_IsBusy(t *testing.T) {
	mockService := new(MockAvailabilityService)
	handler := handlers.NewAvailabilityHandler(mockService)

	start := time.Date(2030, 6, 3, 10, 0, 0, 0, time.UTC)
	mockService.On("IsDoctorBusy", mock.Anything, "d0c00000-0000-4000-8000-000000000001", start, start.Add(time.Hour), "a9900000-0000-4000-8000-000000000001").Return(true, nil)

	req := httptest.NewRequest("GET", "/api/doctors/d0c00000-0000-4000-8000-000000000001/busy?start=2030-06-03T10:00:00Z&end=2030-06-03T11:00:00Z&ignoreAppointmentId=a9900000-0000-4000-8000-000000000001", nil)
	req.SetPathValue("doctorId", "d0c00000-0000-4000-8000-000000000001")
	w := httptest.NewRecorder()
	handler.IsBusy(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"busy":true`)
	mockService.AssertExpectations(t)

	req = httptest.NewRequest("GET", "/api/doctors/d0c00000-0000-4000-8000-000000000001/busy?start=2030-06-03T10:00:00Z", nil)
	req.SetPathValue("doctorId", "d0c00000-0000-4000-8000-000000000001")
	w = httptest.NewRecorder()
	handler.IsBusy(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandler_MalformedIDs(t *testing.T) {
	mockService := new(MockAvailabilityService)
	handler := handlers.NewAvailabilityHandler(mockService)

	req := httptest.NewRequest("GET", "/api/doctors/abc/busy?start=2030-06-03T10:00:00Z&end=2030-06-03T11:00:00Z", nil)
	req.SetPathValue("doctorId", "abc")
	w := httptest.NewRecorder()
	handler.IsBusy(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w)["fields"], "doctorId")

	req = httptest.NewRequest("GET", "/api/doctors/d0c00000-0000-4000-8000-000000000001/busy?start=2030-06-03T10:00:00Z&end=2030-06-03T11:00:00Z&ignoreAppointmentId=42", nil)
	req.SetPathValue("doctorId", "d0c00000-0000-4000-8000-000000000001")
	w = httptest.NewRecorder()
	handler.IsBusy(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w)["fields"], "ignoreAppointmentId")

	req = httptest.NewRequest("GET", "/api/doctors/abc/availability?date=2030-06-03&time=09:30", nil)
	req.SetPathValue("doctorId", "abc")
	w = httptest.NewRecorder()
	handler.GetAvailability(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertNotCalled(t, "IsDoctorBusy", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockService.AssertNotCalled(t, "ResolveAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
