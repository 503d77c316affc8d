package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

const tripColumns = `
	id, trip_number, status,
	vehicle_id, driver_id, vendor_id,
	planned_start_time, planned_end_time, actual_start_time, actual_end_time,
	start_odometer, end_odometer,
	passengers_boarded, incidents,
	is_pooled,
	created_at, updated_at`

// TripRepository handles trip data operations.
type TripRepository struct {
	db *database.DB
}

// NewTripRepository creates a new trip repository.
func NewTripRepository(db *database.DB) *TripRepository {
	return &TripRepository{db: db}
}

// Schedule creates the trip and flips every referenced request from approved
// to scheduled as one transaction. The referenced requests are locked first;
// if any is missing or not approved, nothing is written.
func (r *TripRepository) Schedule(ctx context.Context, trip *Trip) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, status FROM requests WHERE id = ANY($1) FOR UPDATE`,
			trip.RequestIDs)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to lock requests")
		}

		statuses := make(map[string]RequestStatus, len(trip.RequestIDs))
		for rows.Next() {
			var id string
			var status RequestStatus
			if err := rows.Scan(&id, &status); err != nil {
				rows.Close()
				return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan request status")
			}
			statuses[id] = status
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read request statuses")
		}

		for _, id := range trip.RequestIDs {
			status, ok := statuses[id]
			if !ok {
				return apperrors.NotFound("request", id)
			}
			if status != RequestStatusApproved {
				return apperrors.InvalidTransition("request", string(status), string(RequestStatusScheduled))
			}
		}

		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('trip_number_seq')`).Scan(&seq); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to allocate trip number")
		}
		trip.TripNumber = FormatTripNumber(time.Now().Year(), seq)

		err = tx.QueryRow(ctx, `
			INSERT INTO trips (trip_number, status, vehicle_id, driver_id, vendor_id,
			                   planned_start_time, planned_end_time, is_pooled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`,
			trip.TripNumber,
			trip.Status,
			trip.VehicleID,
			trip.DriverID,
			trip.VendorID,
			trip.PlannedStartTime,
			trip.PlannedEndTime,
			trip.IsPooled,
		).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create trip")
		}

		for i, reqID := range trip.RequestIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO trip_requests (trip_id, request_id, position) VALUES ($1, $2, $3)`,
				trip.ID, reqID, i); err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to link request to trip")
			}
		}

		tag, err := tx.Exec(ctx,
			`UPDATE requests SET status = 'scheduled', updated_at = NOW() WHERE id = ANY($1)`,
			trip.RequestIDs)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to schedule requests")
		}
		if int(tag.RowsAffected()) != len(trip.RequestIDs) {
			return apperrors.New(apperrors.ErrCodeInternal, "scheduled request count mismatch")
		}
		return nil
	})
}

// GetByID retrieves a trip with its ordered request ids.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*Trip, error) {
	query := `SELECT` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("trip", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get trip")
	}

	if err := r.loadRequestIDs(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// List retrieves trips sorted by planned start time descending. The status
// filter accepts a comma-separated set with OR semantics.
func (r *TripRepository) List(ctx context.Context, statusFilter string) ([]*Trip, error) {
	query := `SELECT` + tripColumns + ` FROM trips`
	args := []any{}

	if statusFilter != "" && statusFilter != "all" {
		statuses := strings.Split(statusFilter, ",")
		for i := range statuses {
			statuses[i] = strings.TrimSpace(statuses[i])
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, statuses)
	}

	query += ` ORDER BY planned_start_time DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list trips")
	}
	defer rows.Close()

	trips := make([]*Trip, 0)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan trip")
		}
		trips = append(trips, trip)
	}

	for _, trip := range trips {
		if err := r.loadRequestIDs(ctx, trip); err != nil {
			return nil, err
		}
	}
	return trips, nil
}

// Start moves a scheduled trip to in_progress and records the execution
// start data.
func (r *TripRepository) Start(ctx context.Context, id string, startOdometer int, actualStartTime time.Time) (*Trip, error) {
	query := `
		UPDATE trips
		SET status = 'in_progress',
		    start_odometer = $2,
		    actual_start_time = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING` + tripColumns

	trip, err := scanTrip(r.db.QueryRow(ctx, query, id, startOdometer, actualStartTime))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, TripStatusInProgress)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to start trip")
	}

	if err := r.loadRequestIDs(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// End moves an in_progress trip to completed and records the execution end
// data.
func (r *TripRepository) End(ctx context.Context, id string, endOdometer, passengersBoarded int, incidents *string, actualEndTime time.Time) (*Trip, error) {
	query := `
		UPDATE trips
		SET status = 'completed',
		    end_odometer = $2,
		    passengers_boarded = $3,
		    incidents = $4,
		    actual_end_time = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
		RETURNING` + tripColumns

	trip, err := scanTrip(r.db.QueryRow(ctx, query, id, endOdometer, passengersBoarded, incidents, actualEndTime))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, TripStatusCompleted)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to end trip")
	}

	if err := r.loadRequestIDs(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// Cancel moves a scheduled trip to cancelled.
func (r *TripRepository) Cancel(ctx context.Context, id string) (*Trip, error) {
	query := `
		UPDATE trips
		SET status = 'cancelled',
		    updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING` + tripColumns

	trip, err := scanTrip(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, TripStatusCancelled)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to cancel trip")
	}

	if err := r.loadRequestIDs(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

func (r *TripRepository) loadRequestIDs(ctx context.Context, trip *Trip) error {
	rows, err := r.db.Query(ctx,
		`SELECT request_id FROM trip_requests WHERE trip_id = $1 ORDER BY position`,
		trip.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get trip requests")
	}
	defer rows.Close()

	ids := make([]string, 0, 1)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan trip request")
		}
		ids = append(ids, id)
	}
	trip.RequestIDs = ids
	return nil
}

func (r *TripRepository) transitionError(ctx context.Context, id string, to TripStatus) error {
	var status TripStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM trips WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("trip", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read trip status")
	}
	return apperrors.InvalidTransition("trip", string(status), string(to))
}

func scanTrip(sc rowScanner) (*Trip, error) {
	trip := &Trip{}
	err := sc.Scan(
		&trip.ID,
		&trip.TripNumber,
		&trip.Status,
		&trip.VehicleID,
		&trip.DriverID,
		&trip.VendorID,
		&trip.PlannedStartTime,
		&trip.PlannedEndTime,
		&trip.ActualStartTime,
		&trip.ActualEndTime,
		&trip.StartOdometer,
		&trip.EndOdometer,
		&trip.PassengersBoarded,
		&trip.Incidents,
		&trip.IsPooled,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return trip, nil
}
