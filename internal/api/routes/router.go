package routes

import (
	"net/http"

	"github.com/zatekoja/telemedbooking/internal/api/handlers"
	"github.com/zatekoja/telemedbooking/internal/api/middleware"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	appointmentHandler  *handlers.AppointmentHandler
	availabilityHandler *handlers.AvailabilityHandler
	scheduleHandler     *handlers.ScheduleHandler
	walletHandler       *handlers.WalletHandler
	healthHandler       *handlers.HealthHandler
	sseHandler          *handlers.SSEHandler

	verifier       middleware.TokenVerifier
	bookingLimiter *middleware.RateLimiter
	metrics        *observability.Metrics
}

// NewRouter creates a new router. sseHandler and bookingLimiter may be nil.
func NewRouter(
	appointmentHandler *handlers.AppointmentHandler,
	availabilityHandler *handlers.AvailabilityHandler,
	scheduleHandler *handlers.ScheduleHandler,
	walletHandler *handlers.WalletHandler,
	healthHandler *handlers.HealthHandler,
	sseHandler *handlers.SSEHandler,
	verifier middleware.TokenVerifier,
	bookingLimiter *middleware.RateLimiter,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		appointmentHandler:  appointmentHandler,
		availabilityHandler: availabilityHandler,
		scheduleHandler:     scheduleHandler,
		walletHandler:       walletHandler,
		healthHandler:       healthHandler,
		sseHandler:          sseHandler,
		verifier:            verifier,
		bookingLimiter:      bookingLimiter,
		metrics:             metrics,
	}
}

// protected requires a bearer token
func (r *Router) protected(h http.HandlerFunc) http.Handler {
	return middleware.AuthMiddleware(r.verifier)(h)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	// Appointment endpoints
	booking := http.Handler(http.HandlerFunc(r.appointmentHandler.BookAppointment))
	if r.bookingLimiter != nil {
		booking = r.bookingLimiter.Middleware(booking)
	}
	r.mux.Handle("POST /api/appointments/appointment-Booking", middleware.AuthMiddleware(r.verifier)(booking))
	r.mux.Handle("GET /api/appointments/me", r.protected(r.appointmentHandler.ListMine))
	r.mux.Handle("GET /api/appointments/by-doctor/{doctorId}", r.protected(r.appointmentHandler.ListByDoctor))
	r.mux.Handle("GET /api/appointments/{id}", r.protected(r.appointmentHandler.GetAppointment))
	r.mux.Handle("PUT /api/appointments/{id}", r.protected(r.appointmentHandler.UpdateAppointment))
	r.mux.Handle("DELETE /api/appointments/{id}", r.protected(r.appointmentHandler.DeleteAppointment))
	r.mux.Handle("POST /api/appointments/{id}/cancel", r.protected(r.appointmentHandler.CancelAppointment))
	r.mux.Handle("POST /api/appointments/{id}/complete", r.protected(r.appointmentHandler.CompleteAppointment))
	r.mux.Handle("POST /api/appointments/{id}/missed", r.protected(r.appointmentHandler.MarkMissed))

	// Availability endpoints
	r.mux.HandleFunc("GET /api/doctors/{doctorId}/availability", r.availabilityHandler.GetAvailability)
	r.mux.HandleFunc("GET /api/doctors/{doctorId}/busy", r.availabilityHandler.IsBusy)
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/doctors/{doctorId}/events", r.sseHandler.StreamDoctorEvents)
	}

	// Recurring schedule endpoints
	r.mux.HandleFunc("GET /api/doctor-schedules/doctor/{doctorId}", r.scheduleHandler.ListDoctorSchedules)
	r.mux.Handle("GET /api/doctor-schedules/me", r.protected(r.scheduleHandler.ListMySchedules))
	r.mux.Handle("POST /api/doctor-schedules/me", r.protected(r.scheduleHandler.CreateSchedule))
	r.mux.Handle("PUT /api/doctor-schedules/me/{id}", r.protected(r.scheduleHandler.UpdateSchedule))
	r.mux.Handle("DELETE /api/doctor-schedules/me/{id}", r.protected(r.scheduleHandler.DeleteSchedule))

	// Override endpoints
	r.mux.Handle("GET /api/doctor-schedule-overrides/my", r.protected(r.scheduleHandler.ListMyOverrides))
	r.mux.Handle("POST /api/doctor-schedule-overrides/my", r.protected(r.scheduleHandler.CreateMyOverride))
	r.mux.Handle("PUT /api/doctor-schedule-overrides/my/{id}", r.protected(r.scheduleHandler.UpdateMyOverride))
	r.mux.Handle("DELETE /api/doctor-schedule-overrides/my/{id}", r.protected(r.scheduleHandler.DeleteMyOverride))
	r.mux.Handle("POST /api/doctor-schedule-overrides/doctor/{doctorId}", r.protected(r.scheduleHandler.CreateOverrideForDoctor))

	// Wallet endpoints
	r.mux.Handle("GET /api/wallets/me", r.protected(r.walletHandler.GetMyWallet))
	r.mux.Handle("GET /api/wallets/me/transactions", r.protected(r.walletHandler.ListMyTransactions))
	r.mux.Handle("POST /api/wallets/{userId}/credit", r.protected(r.walletHandler.Credit))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.RecoveryMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
