package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

const penaltyColumns = `
	id, trip_id, gate_log_id,
	delay_minutes, amount, status,
	confirmed_by, confirmed_at,
	waived_by, waived_at, waiver_reason,
	created_at`

// PenaltyRepository handles penalty data operations.
type PenaltyRepository struct {
	db *database.DB
}

// NewPenaltyRepository creates a new penalty repository.
func NewPenaltyRepository(db *database.DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

// GetByID retrieves a penalty by ID.
func (r *PenaltyRepository) GetByID(ctx context.Context, id string) (*Penalty, error) {
	query := `SELECT` + penaltyColumns + ` FROM penalties WHERE id = $1`

	p, err := scanPenalty(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("penalty", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get penalty")
	}
	return p, nil
}

// List retrieves penalties, newest first.
func (r *PenaltyRepository) List(ctx context.Context) ([]*Penalty, error) {
	query := `SELECT` + penaltyColumns + ` FROM penalties ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list penalties")
	}
	defer rows.Close()

	penalties := make([]*Penalty, 0)
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan penalty")
		}
		penalties = append(penalties, p)
	}
	return penalties, nil
}

// Confirm settles a pending penalty as confirmed. The pending guard runs in
// the database so two resolutions can never both succeed.
func (r *PenaltyRepository) Confirm(ctx context.Context, id, confirmedBy string) (*Penalty, error) {
	query := `
		UPDATE penalties
		SET status = 'confirmed',
		    confirmed_by = $2,
		    confirmed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING` + penaltyColumns

	p, err := scanPenalty(r.db.QueryRow(ctx, query, id, confirmedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, PenaltyStatusConfirmed)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to confirm penalty")
	}
	return p, nil
}

// Waive settles a pending penalty as waived with the given reason.
func (r *PenaltyRepository) Waive(ctx context.Context, id, waivedBy, waiverReason string) (*Penalty, error) {
	query := `
		UPDATE penalties
		SET status = 'waived',
		    waived_by = $2,
		    waived_at = NOW(),
		    waiver_reason = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING` + penaltyColumns

	p, err := scanPenalty(r.db.QueryRow(ctx, query, id, waivedBy, waiverReason))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, PenaltyStatusWaived)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to waive penalty")
	}
	return p, nil
}

func (r *PenaltyRepository) transitionError(ctx context.Context, id string, to PenaltyStatus) error {
	var status PenaltyStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM penalties WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("penalty", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read penalty status")
	}
	return apperrors.InvalidTransition("penalty", string(status), string(to))
}

func scanPenalty(sc rowScanner) (*Penalty, error) {
	p := &Penalty{}
	err := sc.Scan(
		&p.ID,
		&p.TripID,
		&p.GateLogID,
		&p.DelayMinutes,
		&p.Amount,
		&p.Status,
		&p.ConfirmedBy,
		&p.ConfirmedAt,
		&p.WaivedBy,
		&p.WaivedAt,
		&p.WaiverReason,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
