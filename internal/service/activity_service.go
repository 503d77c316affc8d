package service

import (
	"context"

	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

// ActivityLogRepository is the audit trail store used by every service.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *repository.ActivityLog) error
	ListByEntityID(ctx context.Context, entityID string) ([]*repository.ActivityLog, error)
}

// ActivityService serves the audit trail read side.
type ActivityService struct {
	activityRepo ActivityLogRepository
	log          *logger.Logger
}

// NewActivityService creates a new activity service
func NewActivityService(activityRepo ActivityLogRepository, log *logger.Logger) *ActivityService {
	return &ActivityService{activityRepo: activityRepo, log: log}
}

// ListByEntityID returns the audit entries for one entity, newest first.
func (s *ActivityService) ListByEntityID(ctx context.Context, entityID string) ([]*repository.ActivityLog, error) {
	return s.activityRepo.ListByEntityID(ctx, entityID)
}

// recordActivity appends one audit entry. Audit failures never fail the
// operation that triggered them; they are logged and dropped.
func recordActivity(ctx context.Context, repo ActivityLogRepository, log *logger.Logger, entityType, entityID, action, userID string, details *string) {
	entry := &repository.ActivityLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     userID,
		Details:    details,
	}
	if err := repo.Append(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Str("action", action).
			Msg("activity: failed to append entry (non-fatal)")
	}
}

func strPtr(s string) *string { return &s }
