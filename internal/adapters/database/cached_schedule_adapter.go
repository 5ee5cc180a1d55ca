package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
)

const scheduleCacheKeyspace = "doctor_schedules"

// CachedDoctorScheduleAdapter wraps a DoctorScheduleRepository with a read-through cache of
// each doctor's recurring schedule. Every write through it invalidates the doctor's entry.
type CachedDoctorScheduleAdapter struct {
	adapter repositories.DoctorScheduleRepository
	cache   providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
}

var _ repositories.DoctorScheduleRepository = (*CachedDoctorScheduleAdapter)(nil)

// NewCachedDoctorScheduleAdapter creates a new cached schedule adapter. metrics may be nil.
func NewCachedDoctorScheduleAdapter(adapter repositories.DoctorScheduleRepository, cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) *CachedDoctorScheduleAdapter {
	return &CachedDoctorScheduleAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
	}
}

// ScheduleCacheKey returns the cache key holding a doctor's recurring schedule
func ScheduleCacheKey(doctorID string) string {
	return fmt.Sprintf("doctor:%s:schedules", doctorID)
}

// ListByDoctor returns the cached schedule or loads and caches it
func (a *CachedDoctorScheduleAdapter) ListByDoctor(ctx context.Context, doctorID string) ([]*entities.DoctorSchedule, error) {
	key := ScheduleCacheKey(doctorID)

	cached, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		var schedules []*entities.DoctorSchedule
		if err := json.Unmarshal(cached, &schedules); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, scheduleCacheKeyspace)
			return schedules, nil
		}
		log.Warn().Err(err).Str("doctor_id", doctorID).Msg("Failed to unmarshal cached schedules")
	case !errors.Is(err, providers.ErrCacheMiss):
		log.Warn().Err(err).Str("doctor_id", doctorID).Msg("Schedule cache read failed")
	}
	observability.RecordCacheMiss(ctx, a.metrics, scheduleCacheKeyspace)

	schedules, err := a.adapter.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(schedules); err == nil {
		if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
			log.Warn().Err(err).Str("doctor_id", doctorID).Msg("Failed to cache schedules")
		}
	}
	return schedules, nil
}

// GetByID is not cached
func (a *CachedDoctorScheduleAdapter) GetByID(ctx context.Context, id string) (*entities.DoctorSchedule, error) {
	return a.adapter.GetByID(ctx, id)
}

// Create creates the row and invalidates the doctor's cached schedule
func (a *CachedDoctorScheduleAdapter) Create(ctx context.Context, schedule *entities.DoctorSchedule) error {
	if err := a.adapter.Create(ctx, schedule); err != nil {
		return err
	}
	a.Invalidate(ctx, schedule.DoctorID)
	return nil
}

// Update updates the row and invalidates the doctor's cached schedule
func (a *CachedDoctorScheduleAdapter) Update(ctx context.Context, schedule *entities.DoctorSchedule) error {
	if err := a.adapter.Update(ctx, schedule); err != nil {
		return err
	}
	a.Invalidate(ctx, schedule.DoctorID)
	return nil
}

// Delete removes the row and invalidates the owning doctor's cached schedule
func (a *CachedDoctorScheduleAdapter) Delete(ctx context.Context, id string) error {
	existing, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.Invalidate(ctx, existing.DoctorID)
	return nil
}

// Invalidate drops the doctor's cached schedule
func (a *CachedDoctorScheduleAdapter) Invalidate(ctx context.Context, doctorID string) {
	if err := a.cache.Delete(ctx, ScheduleCacheKey(doctorID)); err != nil {
		log.Warn().Err(err).Str("doctor_id", doctorID).Msg("Failed to invalidate schedule cache")
	}
}
