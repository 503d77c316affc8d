package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

const claimColumns = `
	id, claim_number,
	employee_id, linked_request_id,
	trip_date, reason, amount,
	receipt_url, status,
	approver_id, approved_at, approval_comment,
	reimbursed_at,
	created_at, updated_at`

// ClaimRepository handles reimbursement claim data operations.
type ClaimRepository struct {
	db *database.DB
}

// NewClaimRepository creates a new claim repository.
func NewClaimRepository(db *database.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create inserts a claim, allocating its claim number from the dedicated
// sequence inside the same transaction.
func (r *ClaimRepository) Create(ctx context.Context, claim *Claim) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('claim_number_seq')`).Scan(&seq); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to allocate claim number")
		}
		claim.ClaimNumber = FormatClaimNumber(time.Now().Year(), seq)

		err := tx.QueryRow(ctx, `
			INSERT INTO claims (claim_number, employee_id, linked_request_id,
			                    trip_date, reason, amount, receipt_url, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`,
			claim.ClaimNumber,
			claim.EmployeeID,
			claim.LinkedRequestID,
			claim.TripDate,
			claim.Reason,
			claim.Amount,
			claim.ReceiptURL,
			claim.Status,
		).Scan(&claim.ID, &claim.CreatedAt, &claim.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create claim")
		}
		return nil
	})
}

// GetByID retrieves a claim by ID.
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*Claim, error) {
	query := `SELECT` + claimColumns + ` FROM claims WHERE id = $1`

	claim, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("claim", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get claim")
	}
	return claim, nil
}

// List retrieves claims, newest first.
func (r *ClaimRepository) List(ctx context.Context) ([]*Claim, error) {
	query := `SELECT` + claimColumns + ` FROM claims ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list claims")
	}
	defer rows.Close()

	claims := make([]*Claim, 0)
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan claim")
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

// Submit moves a draft claim to submitted.
func (r *ClaimRepository) Submit(ctx context.Context, id string) (*Claim, error) {
	query := `
		UPDATE claims
		SET status = 'submitted',
		    updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
		RETURNING` + claimColumns

	claim, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, ClaimStatusSubmitted)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to submit claim")
	}
	return claim, nil
}

// Approve moves a submitted claim to approved and records the decision.
func (r *ClaimRepository) Approve(ctx context.Context, id, approverID string, comment *string) (*Claim, error) {
	query := `
		UPDATE claims
		SET status = 'approved',
		    approver_id = $2,
		    approved_at = NOW(),
		    approval_comment = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'submitted'
		RETURNING` + claimColumns

	claim, err := scanClaim(r.db.QueryRow(ctx, query, id, approverID, comment))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, ClaimStatusApproved)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to approve claim")
	}
	return claim, nil
}

// Reject moves a submitted claim to rejected and records the decision.
func (r *ClaimRepository) Reject(ctx context.Context, id, approverID string, comment string) (*Claim, error) {
	query := `
		UPDATE claims
		SET status = 'rejected',
		    approver_id = $2,
		    approved_at = NOW(),
		    approval_comment = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'submitted'
		RETURNING` + claimColumns

	claim, err := scanClaim(r.db.QueryRow(ctx, query, id, approverID, comment))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, ClaimStatusRejected)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to reject claim")
	}
	return claim, nil
}

// MarkReimbursed moves an approved claim to reimbursed.
func (r *ClaimRepository) MarkReimbursed(ctx context.Context, id string) (*Claim, error) {
	query := `
		UPDATE claims
		SET status = 'reimbursed',
		    reimbursed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'approved'
		RETURNING` + claimColumns

	claim, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, ClaimStatusReimbursed)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to mark claim reimbursed")
	}
	return claim, nil
}

func (r *ClaimRepository) transitionError(ctx context.Context, id string, to ClaimStatus) error {
	var status ClaimStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM claims WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("claim", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read claim status")
	}
	return apperrors.InvalidTransition("claim", string(status), string(to))
}

func scanClaim(sc rowScanner) (*Claim, error) {
	claim := &Claim{}
	err := sc.Scan(
		&claim.ID,
		&claim.ClaimNumber,
		&claim.EmployeeID,
		&claim.LinkedRequestID,
		&claim.TripDate,
		&claim.Reason,
		&claim.Amount,
		&claim.ReceiptURL,
		&claim.Status,
		&claim.ApproverID,
		&claim.ApprovedAt,
		&claim.ApprovalComment,
		&claim.ReimbursedAt,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return claim, nil
}
