package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

const gateLogColumns = `
	id, trip_id, vehicle_id,
	planned_time, in_time, out_time,
	delay_minutes, is_delayed,
	remarks, security_officer_id,
	created_at, updated_at`

// GateLogRepository handles gate log data operations.
type GateLogRepository struct {
	db *database.DB
}

// NewGateLogRepository creates a new gate log repository.
func NewGateLogRepository(db *database.DB) *GateLogRepository {
	return &GateLogRepository{db: db}
}

// CreateWithPenalty inserts the gate log and, when penalty is non-nil, the
// penalty it minted, as one transaction. Partial application is never
// observable.
func (r *GateLogRepository) CreateWithPenalty(ctx context.Context, log *GateLog, penalty *Penalty) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO gate_logs (trip_id, vehicle_id, planned_time, in_time, out_time,
			                       delay_minutes, is_delayed, remarks, security_officer_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`,
			log.TripID,
			log.VehicleID,
			log.PlannedTime,
			log.InTime,
			log.OutTime,
			log.DelayMinutes,
			log.IsDelayed,
			log.Remarks,
			log.SecurityOfficerID,
		).Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create gate log")
		}

		if penalty == nil {
			return nil
		}

		penalty.GateLogID = log.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO penalties (trip_id, gate_log_id, delay_minutes, amount, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`,
			penalty.TripID,
			penalty.GateLogID,
			penalty.DelayMinutes,
			penalty.Amount,
			penalty.Status,
		).Scan(&penalty.ID, &penalty.CreatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create penalty")
		}
		return nil
	})
}

// GetByID retrieves a gate log by ID.
func (r *GateLogRepository) GetByID(ctx context.Context, id string) (*GateLog, error) {
	query := `SELECT` + gateLogColumns + ` FROM gate_logs WHERE id = $1`

	log, err := scanGateLog(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("gate log", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get gate log")
	}
	return log, nil
}

// List retrieves gate logs, newest first.
func (r *GateLogRepository) List(ctx context.Context) ([]*GateLog, error) {
	query := `SELECT` + gateLogColumns + ` FROM gate_logs ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list gate logs")
	}
	defer rows.Close()

	logs := make([]*GateLog, 0)
	for rows.Next() {
		log, err := scanGateLog(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan gate log")
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// RecordExit sets the out time and remarks. The derived delay fields are
// frozen at entry recording and deliberately not touched here.
func (r *GateLogRepository) RecordExit(ctx context.Context, id string, outTime time.Time, remarks *string) (*GateLog, error) {
	query := `
		UPDATE gate_logs
		SET out_time = $2,
		    remarks = COALESCE($3, remarks),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING` + gateLogColumns

	log, err := scanGateLog(r.db.QueryRow(ctx, query, id, outTime, remarks))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("gate log", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to record gate exit")
	}
	return log, nil
}

func scanGateLog(sc rowScanner) (*GateLog, error) {
	log := &GateLog{}
	err := sc.Scan(
		&log.ID,
		&log.TripID,
		&log.VehicleID,
		&log.PlannedTime,
		&log.InTime,
		&log.OutTime,
		&log.DelayMinutes,
		&log.IsDelayed,
		&log.Remarks,
		&log.SecurityOfficerID,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return log, nil
}
