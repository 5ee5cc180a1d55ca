package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// ScheduleService defines the schedule and override operations used by the handler
type ScheduleService interface {
	ListSchedules(ctx context.Context, doctorID string) ([]*entities.DoctorSchedule, error)
	ListMySchedules(ctx context.Context, actor services.Actor) ([]*entities.DoctorSchedule, error)
	CreateSchedule(ctx context.Context, actor services.Actor, in services.ScheduleInput) (*entities.DoctorSchedule, error)
	UpdateSchedule(ctx context.Context, actor services.Actor, id string, in services.ScheduleInput) (*entities.DoctorSchedule, error)
	DeleteSchedule(ctx context.Context, actor services.Actor, id string) error

	ListOverrides(ctx context.Context, actor services.Actor, doctorID string, from, to *time.Time) ([]*entities.DoctorScheduleOverride, error)
	CreateOverride(ctx context.Context, actor services.Actor, doctorID string, in services.OverrideInput) (*entities.DoctorScheduleOverride, error)
	UpdateOverride(ctx context.Context, actor services.Actor, id string, in services.OverrideInput) (*entities.DoctorScheduleOverride, error)
	DeleteOverride(ctx context.Context, actor services.Actor, id string) error
}

// ScheduleHandler handles recurring schedule and override requests
type ScheduleHandler struct {
	service ScheduleService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(service ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

func (req ScheduleRequest) input() services.ScheduleInput {
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	return services.ScheduleInput{
		DayOfWeek:   time.Weekday(*req.DayOfWeek),
		StartTime:   *req.StartTime,
		EndTime:     *req.EndTime,
		IsAvailable: available,
	}
}

func (req OverrideRequest) input() (services.OverrideInput, error) {
	date, err := time.Parse(time.DateOnly, req.OverrideDate)
	if err != nil {
		return services.OverrideInput{}, apperrors.NewFieldValidationError(map[string]string{"overrideDate": "must be YYYY-MM-DD"})
	}
	return services.OverrideInput{
		Date:         date,
		StartTime:    *req.StartTime,
		EndTime:      *req.EndTime,
		IsAvailable:  *req.IsAvailable,
		OverrideType: entities.OverrideType(req.OverrideType),
		Reason:       req.Reason,
	}, nil
}

// ListDoctorSchedules handles GET /api/doctor-schedules/doctor/{doctorId}
func (h *ScheduleHandler) ListDoctorSchedules(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorId")
	if !ok {
		return
	}
	schedules, err := h.service.ListSchedules(r.Context(), doctorID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"schedules": schedules})
}

// ListMySchedules handles GET /api/doctor-schedules/me
func (h *ScheduleHandler) ListMySchedules(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	schedules, err := h.service.ListMySchedules(r.Context(), actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"schedules": schedules})
}

// CreateSchedule handles POST /api/doctor-schedules/me
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	schedule, err := h.service.CreateSchedule(r.Context(), actor, req.input())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, schedule)
}

// UpdateSchedule handles PUT /api/doctor-schedules/me/{id}
func (h *ScheduleHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	schedule, err := h.service.UpdateSchedule(r.Context(), actor, id, req.input())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, schedule)
}

// DeleteSchedule handles DELETE /api/doctor-schedules/me/{id}
func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSchedule(r.Context(), actor, id); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMyOverrides handles GET /api/doctor-schedule-overrides/my?from=&to=
func (h *ScheduleHandler) ListMyOverrides(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	fields := map[string]string{}
	from := parseDateParam(r, "from", fields)
	to := parseDateParam(r, "to", fields)
	if len(fields) > 0 {
		respondWithAppError(w, r, apperrors.NewFieldValidationError(fields))
		return
	}

	overrides, err := h.service.ListOverrides(r.Context(), actor, "", from, to)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"overrides": overrides})
}

// CreateMyOverride handles POST /api/doctor-schedule-overrides/my
func (h *ScheduleHandler) CreateMyOverride(w http.ResponseWriter, r *http.Request) {
	h.createOverride(w, r, "")
}

// CreateOverrideForDoctor handles POST /api/doctor-schedule-overrides/doctor/{doctorId}
func (h *ScheduleHandler) CreateOverrideForDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorId")
	if !ok {
		return
	}
	h.createOverride(w, r, doctorID)
}

func (h *ScheduleHandler) createOverride(w http.ResponseWriter, r *http.Request, doctorID string) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req OverrideRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	override, err := h.service.CreateOverride(r.Context(), actor, doctorID, in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, override)
}

// UpdateMyOverride handles PUT /api/doctor-schedule-overrides/my/{id}
func (h *ScheduleHandler) UpdateMyOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req OverrideRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	override, err := h.service.UpdateOverride(r.Context(), actor, id, in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, override)
}

// DeleteMyOverride handles DELETE /api/doctor-schedule-overrides/my/{id}
func (h *ScheduleHandler) DeleteMyOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteOverride(r.Context(), actor, id); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
