package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// AvailabilityService defines the availability queries used by the handler
type AvailabilityService interface {
	ResolveAvailability(ctx context.Context, doctorID string, date time.Time, at entities.ClockTime) (entities.Availability, error)
	IsDoctorBusy(ctx context.Context, doctorID string, start, end time.Time, ignoreAppointmentID string) (bool, error)
}

// AvailabilityHandler answers schedule and overlap questions
type AvailabilityHandler struct {
	service AvailabilityService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(service AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// GetAvailability handles GET /api/doctors/{doctorId}/availability?date=YYYY-MM-DD&time=HH:MM
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("doctorId")
	fields := map[string]string{}
	checkUUID(doctorID, "doctorId", fields)

	date := parseDateParam(r, "date", fields)
	if date == nil && fields["date"] == "" {
		fields["date"] = "required"
	}

	var at entities.ClockTime
	if raw := r.URL.Query().Get("time"); raw == "" {
		fields["time"] = "required"
	} else if parsed, err := entities.ParseClockTime(raw); err != nil {
		fields["time"] = "must be HH:MM"
	} else {
		at = parsed
	}

	if len(fields) > 0 {
		respondWithAppError(w, r, apperrors.NewFieldValidationError(fields))
		return
	}

	availability, err := h.service.ResolveAvailability(r.Context(), doctorID, *date, at)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AvailabilityResponse{
		DoctorID:  doctorID,
		Date:      date.Format(time.DateOnly),
		Time:      at,
		Available: availability.Available,
		Source:    availability.Source,
	})
}

// IsBusy handles GET /api/doctors/{doctorId}/busy?start=&end=&ignoreAppointmentId=
func (h *AvailabilityHandler) IsBusy(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("doctorId")
	fields := map[string]string{}
	checkUUID(doctorID, "doctorId", fields)
	start := parseTimeParam(r, "start", fields)
	end := parseTimeParam(r, "end", fields)
	ignoreID := r.URL.Query().Get("ignoreAppointmentId")
	if ignoreID != "" {
		checkUUID(ignoreID, "ignoreAppointmentId", fields)
	}
	if len(fields) > 0 {
		respondWithAppError(w, r, apperrors.NewFieldValidationError(fields))
		return
	}

	busy, err := h.service.IsDoctorBusy(r.Context(), doctorID, start, end, ignoreID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, BusyResponse{DoctorID: doctorID, Start: start, End: end, Busy: busy})
}
