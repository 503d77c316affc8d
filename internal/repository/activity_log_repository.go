package repository

import (
	"context"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

// ActivityLogRepository appends and reads immutable activity trail entries.
// Append is the only mutation exposed.
type ActivityLogRepository struct {
	db *database.DB
}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append inserts one entry.
func (r *ActivityLogRepository) Append(ctx context.Context, entry *ActivityLog) error {
	query := `
		INSERT INTO activity_logs (entity_type, entity_id, action, user_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.UserID,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to append activity log")
	}
	return nil
}

// ListByEntityID returns the trail for an entity, newest first.
func (r *ActivityLogRepository) ListByEntityID(ctx context.Context, entityID string) ([]*ActivityLog, error) {
	query := `
		SELECT id, entity_type, entity_id, action, user_id, details, created_at
		FROM activity_logs
		WHERE entity_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list activity logs")
	}
	defer rows.Close()

	entries := make([]*ActivityLog, 0)
	for rows.Next() {
		entry := &ActivityLog{}
		err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Action,
			&entry.UserID,
			&entry.Details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan activity log")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
