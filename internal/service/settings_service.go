package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

// SettingsRepository is the persistence surface for the settings singleton.
type SettingsRepository interface {
	Get(ctx context.Context) (*repository.Settings, error)
	Update(ctx context.Context, upd repository.SettingsUpdate) (*repository.Settings, error)
}

var workingHoursPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// SettingsService owns the singleton configuration row.
type SettingsService struct {
	settingsRepo SettingsRepository
	activityRepo ActivityLogRepository
	log          *logger.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo SettingsRepository, activityRepo ActivityLogRepository, log *logger.Logger) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		activityRepo: activityRepo,
		log:          log,
	}
}

// GetSettings returns the current settings.
func (s *SettingsService) GetSettings(ctx context.Context) (*repository.Settings, error) {
	return s.settingsRepo.Get(ctx)
}

// UpdateSettingsRequest represents a partial settings update call
type UpdateSettingsRequest struct {
	GraceMinutes         *int
	PenaltyAmount        *int64
	PoolingWindowMinutes *int
	WorkingHoursStart    *string
	WorkingHoursEnd      *string
	UpdatedBy            string
}

// UpdateSettings applies a validated partial update. Changes never
// retroactively affect already-created gate logs or penalties.
func (s *SettingsService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*repository.Settings, error) {
	if req.GraceMinutes != nil && *req.GraceMinutes < 0 {
		return nil, apperrors.InvalidInput("graceMinutes", "grace minutes must be non-negative")
	}
	if req.PenaltyAmount != nil && *req.PenaltyAmount < 0 {
		return nil, apperrors.InvalidInput("penaltyAmount", "penalty amount must be non-negative")
	}
	if req.PoolingWindowMinutes != nil && *req.PoolingWindowMinutes < 0 {
		return nil, apperrors.InvalidInput("poolingWindowMinutes", "pooling window must be non-negative")
	}
	if req.WorkingHoursStart != nil && !workingHoursPattern.MatchString(*req.WorkingHoursStart) {
		return nil, apperrors.InvalidInput("workingHoursStart", "must be HH:MM")
	}
	if req.WorkingHoursEnd != nil && !workingHoursPattern.MatchString(*req.WorkingHoursEnd) {
		return nil, apperrors.InvalidInput("workingHoursEnd", "must be HH:MM")
	}

	// Validate start < end over the resulting pair, not just the supplied
	// fields.
	if req.WorkingHoursStart != nil || req.WorkingHoursEnd != nil {
		current, err := s.settingsRepo.Get(ctx)
		if err != nil {
			return nil, err
		}
		start, end := current.WorkingHoursStart, current.WorkingHoursEnd
		if req.WorkingHoursStart != nil {
			start = *req.WorkingHoursStart
		}
		if req.WorkingHoursEnd != nil {
			end = *req.WorkingHoursEnd
		}
		if start >= end {
			return nil, apperrors.InvalidInput("workingHoursEnd",
				fmt.Sprintf("working hours end %s must be after start %s", end, start))
		}
	}

	settings, err := s.settingsRepo.Update(ctx, repository.SettingsUpdate{
		GraceMinutes:         req.GraceMinutes,
		PenaltyAmount:        req.PenaltyAmount,
		PoolingWindowMinutes: req.PoolingWindowMinutes,
		WorkingHoursStart:    req.WorkingHoursStart,
		WorkingHoursEnd:      req.WorkingHoursEnd,
	})
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "settings", settings.ID, "Settings updated", req.UpdatedBy,
		strPtr("System settings updated"))

	s.log.Info().
		Str("updated_by", req.UpdatedBy).
		Int("grace_minutes", settings.GraceMinutes).
		Int64("penalty_amount", settings.PenaltyAmount).
		Msg("Settings updated")

	return settings, nil
}
