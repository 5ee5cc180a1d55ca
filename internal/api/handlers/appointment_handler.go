package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// BookingService defines the appointment operations used by the handler
type BookingService interface {
	CreateAppointment(ctx context.Context, in services.CreateAppointmentInput) (*entities.Appointment, error)
	GetAppointment(ctx context.Context, id string, actor services.Actor) (*entities.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, in services.UpdateAppointmentInput, actor services.Actor) (*entities.Appointment, error)
	CancelAppointment(ctx context.Context, id string, actor services.Actor) (*entities.Appointment, error)
	CompleteAppointment(ctx context.Context, id string, actor services.Actor) (*entities.Appointment, error)
	MarkMissed(ctx context.Context, id string, status entities.AppointmentStatus, actor services.Actor) (*entities.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
	ListForActor(ctx context.Context, actor services.Actor, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
	DeleteAppointment(ctx context.Context, id string, actor services.Actor) error
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service BookingService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service BookingService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// BookAppointment handles POST /api/appointments/appointment-Booking
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	patientID := actor.UserID
	if actor.IsStaff() && req.PatientID != "" {
		patientID = req.PatientID
	}

	appointment, err := h.service.CreateAppointment(r.Context(), services.CreateAppointmentInput{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Start:     req.AppointmentStartTime,
		End:       req.AppointmentEndTime,
		Amount:    req.TotalAmount,
		Notes:     req.Notes,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, appointment)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appointment, err := h.service.GetAppointment(r.Context(), id, actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// UpdateAppointment handles PUT /api/appointments/{id}
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateAppointmentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.ID != "" && req.ID != id {
		respondWithAppError(w, r, apperrors.NewFieldValidationError(map[string]string{"id": "must match the path"}))
		return
	}

	appointment, err := h.service.UpdateAppointment(r.Context(), id, services.UpdateAppointmentInput{
		Start:  req.AppointmentStartTime,
		End:    req.AppointmentEndTime,
		Notes:  req.Notes,
		Echoed: req.echoed(),
	}, actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// DeleteAppointment handles DELETE /api/appointments/{id}
func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAppointment(r.Context(), id, actor); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelAppointment handles POST /api/appointments/{id}/cancel
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appointment, err := h.service.CancelAppointment(r.Context(), id, actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// CompleteAppointment handles POST /api/appointments/{id}/complete
func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appointment, err := h.service.CompleteAppointment(r.Context(), id, actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// MarkMissed handles POST /api/appointments/{id}/missed
func (h *AppointmentHandler) MarkMissed(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req MarkMissedRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointment, err := h.service.MarkMissed(r.Context(), id, req.Status, actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// ListByDoctor handles GET /api/appointments/by-doctor/{doctorId}
func (h *AppointmentHandler) ListByDoctor(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	doctorID, ok := pathUUID(w, r, "doctorId")
	if !ok {
		return
	}

	filter, err := parseAppointmentFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointments, err := h.service.ListByDoctor(r.Context(), doctorID, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"count":        len(appointments),
	})
}

// ListMine handles GET /api/appointments/me
func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	filter, err := parseAppointmentFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointments, err := h.service.ListForActor(r.Context(), actor, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"count":        len(appointments),
	})
}

// parseAppointmentFilter reads status, from, to, paidOnly, limit and offset query parameters
func parseAppointmentFilter(r *http.Request) (repositories.AppointmentFilter, error) {
	q := r.URL.Query()
	fields := map[string]string{}
	filter := repositories.AppointmentFilter{
		PaidOnly: q.Get("paidOnly") == "true",
		Limit:    parseIntParam(r, "limit", fields),
		Offset:   parseIntParam(r, "offset", fields),
	}

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := entities.AppointmentStatus(strings.TrimSpace(s))
			if !status.Valid() {
				fields["status"] = "unknown status " + string(status)
				break
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if q.Get("from") != "" {
		from := parseTimeParam(r, "from", fields)
		filter.From = &from
	}
	if q.Get("to") != "" {
		to := parseTimeParam(r, "to", fields)
		filter.To = &to
	}

	if len(fields) > 0 {
		return filter, apperrors.NewFieldValidationError(fields)
	}
	return filter, nil
}
