package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/cache"
	"github.com/pesio-ai/be-fleet-transport/internal/client"
	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

// TripRepository is the persistence surface the trip service needs.
type TripRepository interface {
	Schedule(ctx context.Context, trip *repository.Trip) error
	GetByID(ctx context.Context, id string) (*repository.Trip, error)
	List(ctx context.Context, statusFilter string) ([]*repository.Trip, error)
	Start(ctx context.Context, id string, startOdometer int, actualStartTime time.Time) (*repository.Trip, error)
	End(ctx context.Context, id string, endOdometer, passengersBoarded int, incidents *string, actualEndTime time.Time) (*repository.Trip, error)
	Cancel(ctx context.Context, id string) (*repository.Trip, error)
}

// TripService owns the trip lifecycle.
type TripService struct {
	tripRepo     TripRepository
	activityRepo ActivityLogRepository
	cache        cache.BytesCache
	cacheTTL     time.Duration
	publisher    *client.NotificationPublisher
	log          *logger.Logger
}

// NewTripService creates a new trip service. A zero cacheTTL falls back to
// the default.
func NewTripService(
	tripRepo TripRepository,
	activityRepo ActivityLogRepository,
	c cache.BytesCache,
	cacheTTL time.Duration,
	publisher *client.NotificationPublisher,
	log *logger.Logger,
) *TripService {
	if c == nil {
		c = cache.NopCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &TripService{
		tripRepo:     tripRepo,
		activityRepo: activityRepo,
		cache:        c,
		cacheTTL:     cacheTTL,
		publisher:    publisher,
		log:          log,
	}
}

// ScheduleTripRequest represents a schedule trip call
type ScheduleTripRequest struct {
	RequestIDs       []string
	VehicleID        string
	DriverID         *string
	VendorID         *string
	PlannedStartTime time.Time
	PlannedEndTime   time.Time
	ScheduledBy      string
}

// ScheduleTrip creates a trip over one or more approved requests and flips
// each of them to scheduled. All-or-nothing: if any referenced request is
// missing or not approved, no request is mutated and no trip is created.
func (s *TripService) ScheduleTrip(ctx context.Context, req *ScheduleTripRequest) (*repository.Trip, error) {
	if len(req.RequestIDs) == 0 {
		return nil, apperrors.InvalidInput("requestIds", "at least one request is required")
	}
	seen := make(map[string]bool, len(req.RequestIDs))
	for _, id := range req.RequestIDs {
		if id == "" {
			return nil, apperrors.InvalidInput("requestIds", "request id must not be empty")
		}
		if seen[id] {
			return nil, apperrors.InvalidInput("requestIds", fmt.Sprintf("duplicate request id: %s", id))
		}
		seen[id] = true
	}
	if req.VehicleID == "" {
		return nil, apperrors.InvalidInput("vehicleId", "vehicle is required")
	}
	if req.PlannedStartTime.IsZero() || req.PlannedEndTime.IsZero() {
		return nil, apperrors.InvalidInput("plannedStartTime", "planned start and end times are required")
	}
	if !req.PlannedEndTime.After(req.PlannedStartTime) {
		return nil, apperrors.InvalidInput("plannedEndTime", "planned end time must be after planned start time")
	}

	trip := &repository.Trip{
		RequestIDs:       req.RequestIDs,
		Status:           repository.TripStatusScheduled,
		VehicleID:        req.VehicleID,
		DriverID:         req.DriverID,
		VendorID:         req.VendorID,
		PlannedStartTime: req.PlannedStartTime,
		PlannedEndTime:   req.PlannedEndTime,
		IsPooled:         len(req.RequestIDs) > 1,
	}

	if err := s.tripRepo.Schedule(ctx, trip); err != nil {
		return nil, err
	}

	// Scheduling flips every referenced request to scheduled in the same
	// transaction, so their cached detail entries are now stale.
	for _, id := range trip.RequestIDs {
		if err := s.cache.Delete(ctx, requestCacheKey(id)); err != nil {
			s.log.Warn().Err(err).Str("request_id", id).Msg("cache: request invalidation failed (non-fatal)")
		}
	}

	recordActivity(ctx, s.activityRepo, s.log, "trip", trip.ID, "Trip scheduled", req.ScheduledBy,
		strPtr(fmt.Sprintf("Trip %s created", trip.TripNumber)))

	s.publisher.PublishFleetEvent(ctx, "trip_scheduled", "trip", trip.ID, req.ScheduledBy, map[string]interface{}{
		"trip_number":   trip.TripNumber,
		"request_count": len(trip.RequestIDs),
		"is_pooled":     trip.IsPooled,
	})

	s.cacheTrip(ctx, trip)

	s.log.Info().
		Str("trip_id", trip.ID).
		Str("trip_number", trip.TripNumber).
		Str("vehicle_id", trip.VehicleID).
		Int("request_count", len(trip.RequestIDs)).
		Bool("is_pooled", trip.IsPooled).
		Msg("Trip scheduled")

	return trip, nil
}

// GetTrip retrieves a trip by ID, consulting the detail cache first.
func (s *TripService) GetTrip(ctx context.Context, id string) (*repository.Trip, error) {
	key := tripCacheKey(id)
	if b, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("trip_id", id).Msg("cache: trip read failed (non-fatal)")
	} else if ok {
		var cached repository.Trip
		if err := json.Unmarshal(b, &cached); err == nil {
			return &cached, nil
		}
	}

	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheTrip(ctx, trip)
	return trip, nil
}

// ListTrips lists trips. The status filter accepts a comma-separated set of
// statuses with OR semantics; empty means all trips.
func (s *TripService) ListTrips(ctx context.Context, statusFilter string) ([]*repository.Trip, error) {
	return s.tripRepo.List(ctx, statusFilter)
}

// StartTripRequest represents a start trip call
type StartTripRequest struct {
	ID              string
	StartOdometer   int
	ActualStartTime time.Time
	StartedBy       string
}

// StartTrip moves a scheduled trip to in_progress.
func (s *TripService) StartTrip(ctx context.Context, req *StartTripRequest) (*repository.Trip, error) {
	if req.StartOdometer < 0 {
		return nil, apperrors.InvalidInput("startOdometer", "start odometer must be non-negative")
	}
	startTime := req.ActualStartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}

	trip, err := s.tripRepo.Start(ctx, req.ID, req.StartOdometer, startTime)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "trip", trip.ID, "Trip started", req.StartedBy,
		strPtr(fmt.Sprintf("Odometer: %d km", req.StartOdometer)))

	s.publisher.PublishFleetEvent(ctx, "trip_started", "trip", trip.ID, req.StartedBy, map[string]interface{}{
		"trip_number":    trip.TripNumber,
		"start_odometer": req.StartOdometer,
	})

	s.cacheTrip(ctx, trip)

	s.log.Info().
		Str("trip_id", trip.ID).
		Str("trip_number", trip.TripNumber).
		Int("start_odometer", req.StartOdometer).
		Msg("Trip started")

	return trip, nil
}

// EndTripRequest represents an end trip call
type EndTripRequest struct {
	ID                string
	EndOdometer       int
	PassengersBoarded int
	Incidents         *string
	ActualEndTime     time.Time
	EndedBy           string
}

// EndTrip moves an in_progress trip to completed. An end odometer below the
// recorded start odometer is a data-quality warning, not a failure.
func (s *TripService) EndTrip(ctx context.Context, req *EndTripRequest) (*repository.Trip, error) {
	if req.EndOdometer < 0 {
		return nil, apperrors.InvalidInput("endOdometer", "end odometer must be non-negative")
	}
	if req.PassengersBoarded < 0 {
		return nil, apperrors.InvalidInput("passengersBoarded", "passengers boarded must be non-negative")
	}
	endTime := req.ActualEndTime
	if endTime.IsZero() {
		endTime = time.Now()
	}

	trip, err := s.tripRepo.End(ctx, req.ID, req.EndOdometer, req.PassengersBoarded, req.Incidents, endTime)
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Odometer: %d km, Passengers: %d", req.EndOdometer, req.PassengersBoarded)
	if trip.StartOdometer != nil && req.EndOdometer < *trip.StartOdometer {
		details += fmt.Sprintf(" (end odometer below start odometer %d)", *trip.StartOdometer)
		s.log.Warn().
			Str("trip_id", trip.ID).
			Str("trip_number", trip.TripNumber).
			Int("start_odometer", *trip.StartOdometer).
			Int("end_odometer", req.EndOdometer).
			Msg("Trip ended with end odometer below start odometer")
	}
	recordActivity(ctx, s.activityRepo, s.log, "trip", trip.ID, "Trip completed", req.EndedBy, strPtr(details))

	s.publisher.PublishFleetEvent(ctx, "trip_completed", "trip", trip.ID, req.EndedBy, map[string]interface{}{
		"trip_number":  trip.TripNumber,
		"end_odometer": req.EndOdometer,
	})

	s.cacheTrip(ctx, trip)

	s.log.Info().
		Str("trip_id", trip.ID).
		Str("trip_number", trip.TripNumber).
		Int("end_odometer", req.EndOdometer).
		Int("passengers_boarded", req.PassengersBoarded).
		Msg("Trip completed")

	return trip, nil
}

// CancelTrip cancels a scheduled trip.
func (s *TripService) CancelTrip(ctx context.Context, id, userID string, reason *string) (*repository.Trip, error) {
	trip, err := s.tripRepo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "trip", trip.ID, "Trip cancelled", userID, reason)

	s.cacheTrip(ctx, trip)

	s.log.Info().
		Str("trip_id", trip.ID).
		Str("trip_number", trip.TripNumber).
		Str("user_id", userID).
		Msg("Trip cancelled")

	return trip, nil
}

func tripCacheKey(id string) string {
	return fmt.Sprintf("trip:%s:current", id)
}

func (s *TripService) cacheTrip(ctx context.Context, trip *repository.Trip) {
	b, err := json.Marshal(trip)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, tripCacheKey(trip.ID), b, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("trip_id", trip.ID).Msg("cache: trip write failed (non-fatal)")
	}
}
