package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

// settingsID is the fixed primary key of the singleton row.
const settingsID = "settings-1"

const settingsColumns = `
	id, grace_minutes, penalty_amount, pooling_window_minutes,
	working_hours_start, working_hours_end, updated_at`

// SettingsRepository reads and updates the singleton settings row. The row
// is seeded with defaults by EnsureSchema and never deleted.
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the current settings snapshot.
func (r *SettingsRepository) Get(ctx context.Context) (*Settings, error) {
	query := `SELECT` + settingsColumns + ` FROM settings WHERE id = $1`

	s, err := scanSettings(r.db.QueryRow(ctx, query, settingsID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "settings row missing")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get settings")
	}
	return s, nil
}

// SettingsUpdate carries the fields of a partial settings update; nil fields
// are left unchanged.
type SettingsUpdate struct {
	GraceMinutes         *int
	PenaltyAmount        *int64
	PoolingWindowMinutes *int
	WorkingHoursStart    *string
	WorkingHoursEnd      *string
}

// Update applies a partial update and returns the resulting settings.
func (r *SettingsRepository) Update(ctx context.Context, upd SettingsUpdate) (*Settings, error) {
	query := `UPDATE settings SET updated_at = NOW()`
	args := []any{settingsID}
	argCount := 2

	set := func(column string, v any) {
		query += fmt.Sprintf(", %s = $%d", column, argCount)
		args = append(args, v)
		argCount++
	}

	if upd.GraceMinutes != nil {
		set("grace_minutes", *upd.GraceMinutes)
	}
	if upd.PenaltyAmount != nil {
		set("penalty_amount", *upd.PenaltyAmount)
	}
	if upd.PoolingWindowMinutes != nil {
		set("pooling_window_minutes", *upd.PoolingWindowMinutes)
	}
	if upd.WorkingHoursStart != nil {
		set("working_hours_start", *upd.WorkingHoursStart)
	}
	if upd.WorkingHoursEnd != nil {
		set("working_hours_end", *upd.WorkingHoursEnd)
	}

	query += ` WHERE id = $1 RETURNING` + settingsColumns

	s, err := scanSettings(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "settings row missing")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update settings")
	}
	return s, nil
}

func scanSettings(sc rowScanner) (*Settings, error) {
	s := &Settings{}
	err := sc.Scan(
		&s.ID,
		&s.GraceMinutes,
		&s.PenaltyAmount,
		&s.PoolingWindowMinutes,
		&s.WorkingHoursStart,
		&s.WorkingHoursEnd,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
