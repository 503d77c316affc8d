package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

const requestColumns = `
	id, request_number, type, status, requester_id, factory_id,
	route, passenger_count,
	yard, cbm, cutoff_time,
	pickup_location, drop_location, time_window_start, time_window_end, purpose, department,
	requested_date, notes,
	approver_id, approved_at, approval_comment,
	created_at, updated_at`

// RequestRepository handles request data operations.
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a request, allocating its request number from the dedicated
// sequence inside the same transaction.
func (r *RequestRepository) Create(ctx context.Context, req *Request) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('request_number_seq')`).Scan(&seq); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to allocate request number")
		}
		req.RequestNumber = FormatRequestNumber(time.Now().Year(), seq)

		query := `
			INSERT INTO requests (request_number, type, status, requester_id, factory_id,
			                      route, passenger_count,
			                      yard, cbm, cutoff_time,
			                      pickup_location, drop_location, time_window_start, time_window_end, purpose, department,
			                      requested_date, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			req.RequestNumber,
			req.Type,
			req.Status,
			req.RequesterID,
			req.FactoryID,
			req.Route,
			req.PassengerCount,
			req.Yard,
			req.CBM,
			req.CutoffTime,
			req.PickupLocation,
			req.DropLocation,
			req.TimeWindowStart,
			req.TimeWindowEnd,
			req.Purpose,
			req.Department,
			req.RequestedDate,
			req.Notes,
		).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create request")
		}
		return nil
	})
}

// GetByID retrieves a request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := `SELECT` + requestColumns + ` FROM requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("request", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get request")
	}
	return req, nil
}

// List retrieves requests, newest first. Empty or "all" filter values mean
// no filtering on that dimension.
func (r *RequestRepository) List(ctx context.Context, typeFilter, statusFilter string) ([]*Request, error) {
	query := `SELECT` + requestColumns + ` FROM requests WHERE 1=1`
	args := []any{}
	argCount := 1

	if typeFilter != "" && typeFilter != "all" {
		query += fmt.Sprintf(" AND type = $%d", argCount)
		args = append(args, typeFilter)
		argCount++
	}
	if statusFilter != "" && statusFilter != "all" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, statusFilter)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list requests")
	}
	defer rows.Close()

	requests := make([]*Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan request")
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// Approve moves a submitted request to approved and freezes the approval
// metadata. The status guard runs in the database so a concurrent decision
// cannot approve twice.
func (r *RequestRepository) Approve(ctx context.Context, id, approverID string, comment *string) (*Request, error) {
	query := `
		UPDATE requests
		SET status = 'approved',
		    approver_id = $2,
		    approved_at = NOW(),
		    approval_comment = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'submitted'
		RETURNING` + requestColumns

	req, err := scanRequest(r.db.QueryRow(ctx, query, id, approverID, comment))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, RequestStatusApproved)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to approve request")
	}
	return req, nil
}

// Reject moves a submitted request to cancelled, recording the decision in
// the approval metadata.
func (r *RequestRepository) Reject(ctx context.Context, id, approverID string, comment string) (*Request, error) {
	query := `
		UPDATE requests
		SET status = 'cancelled',
		    approver_id = $2,
		    approved_at = NOW(),
		    approval_comment = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'submitted'
		RETURNING` + requestColumns

	req, err := scanRequest(r.db.QueryRow(ctx, query, id, approverID, comment))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, RequestStatusCancelled)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to reject request")
	}
	return req, nil
}

// Cancel moves a request to cancelled from any of the explicitly cancellable
// states without touching approval metadata.
func (r *RequestRepository) Cancel(ctx context.Context, id string) (*Request, error) {
	query := `
		UPDATE requests
		SET status = 'cancelled',
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'submitted', 'approved')
		RETURNING` + requestColumns

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, RequestStatusCancelled)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to cancel request")
	}
	return req, nil
}

// transitionError distinguishes a missing request from one in the wrong
// state after a guarded update matched no row.
func (r *RequestRepository) transitionError(ctx context.Context, id string, to RequestStatus) error {
	var status RequestStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM requests WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("request", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read request status")
	}
	return apperrors.InvalidTransition("request", string(status), string(to))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(sc rowScanner) (*Request, error) {
	req := &Request{}
	err := sc.Scan(
		&req.ID,
		&req.RequestNumber,
		&req.Type,
		&req.Status,
		&req.RequesterID,
		&req.FactoryID,
		&req.Route,
		&req.PassengerCount,
		&req.Yard,
		&req.CBM,
		&req.CutoffTime,
		&req.PickupLocation,
		&req.DropLocation,
		&req.TimeWindowStart,
		&req.TimeWindowEnd,
		&req.Purpose,
		&req.Department,
		&req.RequestedDate,
		&req.Notes,
		&req.ApproverID,
		&req.ApprovedAt,
		&req.ApprovalComment,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}
