package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/client"
	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

// GateLogRepository is the persistence surface for gate events.
type GateLogRepository interface {
	CreateWithPenalty(ctx context.Context, log *repository.GateLog, penalty *repository.Penalty) error
	GetByID(ctx context.Context, id string) (*repository.GateLog, error)
	List(ctx context.Context) ([]*repository.GateLog, error)
	RecordExit(ctx context.Context, id string, outTime time.Time, remarks *string) (*repository.GateLog, error)
}

// PenaltyRepository is the persistence surface for penalties.
type PenaltyRepository interface {
	GetByID(ctx context.Context, id string) (*repository.Penalty, error)
	List(ctx context.Context) ([]*repository.Penalty, error)
	Confirm(ctx context.Context, id, confirmedBy string) (*repository.Penalty, error)
	Waive(ctx context.Context, id, waivedBy, waiverReason string) (*repository.Penalty, error)
}

// TripReader is the narrow trip lookup the gate service needs.
type TripReader interface {
	GetByID(ctx context.Context, id string) (*repository.Trip, error)
}

// GateService records gate events and derives penalties from delayed
// arrivals.
type GateService struct {
	gateLogRepo  GateLogRepository
	penaltyRepo  PenaltyRepository
	tripReader   TripReader
	settingsRepo SettingsRepository
	activityRepo ActivityLogRepository
	publisher    *client.NotificationPublisher
	log          *logger.Logger
}

// NewGateService creates a new gate service
func NewGateService(
	gateLogRepo GateLogRepository,
	penaltyRepo PenaltyRepository,
	tripReader TripReader,
	settingsRepo SettingsRepository,
	activityRepo ActivityLogRepository,
	publisher *client.NotificationPublisher,
	log *logger.Logger,
) *GateService {
	return &GateService{
		gateLogRepo:  gateLogRepo,
		penaltyRepo:  penaltyRepo,
		tripReader:   tripReader,
		settingsRepo: settingsRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		log:          log,
	}
}

// RecordGateEntryRequest represents a record gate entry call
type RecordGateEntryRequest struct {
	TripID            string
	VehicleID         string
	PlannedTime       time.Time // zero means the trip's planned start time
	InTime            time.Time
	OutTime           *time.Time
	Remarks           *string
	SecurityOfficerID string
}

// RecordGateEntry records a gate entry for a trip. Delay minutes and the
// delayed flag are derived once here and frozen. A delayed entry mints
// exactly one pending penalty, atomically with the gate log, with the flat
// amount from the settings snapshot taken at this moment.
func (s *GateService) RecordGateEntry(ctx context.Context, req *RecordGateEntryRequest) (*repository.GateLog, *repository.Penalty, error) {
	if req.TripID == "" {
		return nil, nil, apperrors.InvalidInput("tripId", "trip is required")
	}
	if req.InTime.IsZero() {
		return nil, nil, apperrors.InvalidInput("inTime", "in time is required")
	}

	trip, err := s.tripReader.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, nil, err
	}

	plannedTime := req.PlannedTime
	if plannedTime.IsZero() {
		plannedTime = trip.PlannedStartTime
	}

	// Early arrivals clamp to zero; never a negative delay.
	delayMinutes := int(req.InTime.Sub(plannedTime) / time.Minute)
	if delayMinutes < 0 {
		delayMinutes = 0
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	// Strictly greater than: arriving exactly at the grace limit is on time.
	isDelayed := delayMinutes > settings.GraceMinutes

	gateLog := &repository.GateLog{
		TripID:            trip.ID,
		VehicleID:         req.VehicleID,
		PlannedTime:       plannedTime,
		InTime:            req.InTime,
		OutTime:           req.OutTime,
		DelayMinutes:      delayMinutes,
		IsDelayed:         isDelayed,
		Remarks:           req.Remarks,
		SecurityOfficerID: req.SecurityOfficerID,
	}

	var penalty *repository.Penalty
	if isDelayed {
		penalty = &repository.Penalty{
			TripID:       trip.ID,
			DelayMinutes: delayMinutes,
			Amount:       settings.PenaltyAmount,
			Status:       repository.PenaltyStatusPending,
		}
	}

	if err := s.gateLogRepo.CreateWithPenalty(ctx, gateLog, penalty); err != nil {
		return nil, nil, err
	}

	details := "On time"
	if isDelayed {
		details = fmt.Sprintf("Delayed by %d minutes", delayMinutes)
	}
	recordActivity(ctx, s.activityRepo, s.log, "gate_log", gateLog.ID, "Gate entry logged", req.SecurityOfficerID, strPtr(details))

	if penalty != nil {
		s.publisher.PublishFleetEvent(ctx, "gate_delay_recorded", "penalty", penalty.ID, req.SecurityOfficerID, map[string]interface{}{
			"trip_number":   trip.TripNumber,
			"gate_log_id":   gateLog.ID,
			"delay_minutes": delayMinutes,
			"amount":        penalty.Amount,
		})
	}

	s.log.Info().
		Str("gate_log_id", gateLog.ID).
		Str("trip_id", trip.ID).
		Int("delay_minutes", delayMinutes).
		Bool("is_delayed", isDelayed).
		Msg("Gate entry logged")

	return gateLog, penalty, nil
}

// RecordGateExit adds the exit time (and optionally remarks) to an existing
// gate log. The delay fields are never recomputed.
func (s *GateService) RecordGateExit(ctx context.Context, id string, outTime time.Time, remarks *string) (*repository.GateLog, error) {
	if outTime.IsZero() {
		outTime = time.Now()
	}

	gateLog, err := s.gateLogRepo.RecordExit(ctx, id, outTime, remarks)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("gate_log_id", gateLog.ID).
		Str("trip_id", gateLog.TripID).
		Time("out_time", outTime).
		Msg("Gate exit recorded")

	return gateLog, nil
}

// ListGateLogs returns all gate logs, newest first.
func (s *GateService) ListGateLogs(ctx context.Context) ([]*repository.GateLog, error) {
	return s.gateLogRepo.List(ctx)
}

// ListPenalties returns all penalties, newest first.
func (s *GateService) ListPenalties(ctx context.Context) ([]*repository.Penalty, error) {
	return s.penaltyRepo.List(ctx)
}

// ConfirmPenalty confirms a pending penalty.
func (s *GateService) ConfirmPenalty(ctx context.Context, id, confirmedBy string) (*repository.Penalty, error) {
	if confirmedBy == "" {
		return nil, apperrors.InvalidInput("confirmedBy", "confirming user is required")
	}

	penalty, err := s.penaltyRepo.Confirm(ctx, id, confirmedBy)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "penalty", penalty.ID, "Penalty confirmed", confirmedBy,
		strPtr(fmt.Sprintf("Amount: $%.2f", float64(penalty.Amount)/100)))

	s.publisher.PublishFleetEvent(ctx, "penalty_confirmed", "penalty", penalty.ID, confirmedBy, map[string]interface{}{
		"trip_id": penalty.TripID,
		"amount":  penalty.Amount,
	})

	s.log.Info().
		Str("penalty_id", penalty.ID).
		Str("trip_id", penalty.TripID).
		Str("confirmed_by", confirmedBy).
		Int64("amount", penalty.Amount).
		Msg("Penalty confirmed")

	return penalty, nil
}

// WaivePenalty waives a pending penalty. The waiver reason is mandatory.
func (s *GateService) WaivePenalty(ctx context.Context, id, waivedBy, waiverReason string) (*repository.Penalty, error) {
	if waivedBy == "" {
		return nil, apperrors.InvalidInput("waivedBy", "waiving user is required")
	}
	if strings.TrimSpace(waiverReason) == "" {
		return nil, apperrors.InvalidInput("waiverReason", "waiver reason is required")
	}

	penalty, err := s.penaltyRepo.Waive(ctx, id, waivedBy, waiverReason)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "penalty", penalty.ID, "Penalty waived", waivedBy, strPtr(waiverReason))

	s.publisher.PublishFleetEvent(ctx, "penalty_waived", "penalty", penalty.ID, waivedBy, map[string]interface{}{
		"trip_id": penalty.TripID,
		"reason":  waiverReason,
	})

	s.log.Info().
		Str("penalty_id", penalty.ID).
		Str("trip_id", penalty.TripID).
		Str("waived_by", waivedBy).
		Msg("Penalty waived")

	return penalty, nil
}
