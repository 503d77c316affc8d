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

// ClaimRepository is the persistence surface the claim service needs.
type ClaimRepository interface {
	Create(ctx context.Context, claim *repository.Claim) error
	GetByID(ctx context.Context, id string) (*repository.Claim, error)
	List(ctx context.Context) ([]*repository.Claim, error)
	Submit(ctx context.Context, id string) (*repository.Claim, error)
	Approve(ctx context.Context, id, approverID string, comment *string) (*repository.Claim, error)
	Reject(ctx context.Context, id, approverID string, comment string) (*repository.Claim, error)
	MarkReimbursed(ctx context.Context, id string) (*repository.Claim, error)
}

// ClaimService owns the reimbursement claim lifecycle.
type ClaimService struct {
	claimRepo    ClaimRepository
	activityRepo ActivityLogRepository
	publisher    *client.NotificationPublisher
	log          *logger.Logger
}

// NewClaimService creates a new claim service
func NewClaimService(
	claimRepo ClaimRepository,
	activityRepo ActivityLogRepository,
	publisher *client.NotificationPublisher,
	log *logger.Logger,
) *ClaimService {
	return &ClaimService{
		claimRepo:    claimRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		log:          log,
	}
}

// CreateClaimRequest represents a create claim call
type CreateClaimRequest struct {
	EmployeeID      string
	LinkedRequestID *string
	TripDate        time.Time
	Reason          string
	Amount          int64 // cents
	ReceiptURL      *string
}

// CreateClaim creates a reimbursement claim in draft state.
func (s *ClaimService) CreateClaim(ctx context.Context, req *CreateClaimRequest) (*repository.Claim, error) {
	if req.EmployeeID == "" {
		return nil, apperrors.InvalidInput("employeeId", "employee is required")
	}
	if req.TripDate.IsZero() {
		return nil, apperrors.InvalidInput("tripDate", "trip date is required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.InvalidInput("reason", "reason is required")
	}
	if req.Amount <= 0 {
		return nil, apperrors.InvalidInput("amount", "amount must be positive")
	}

	claim := &repository.Claim{
		EmployeeID:      req.EmployeeID,
		LinkedRequestID: req.LinkedRequestID,
		TripDate:        req.TripDate,
		Reason:          req.Reason,
		Amount:          req.Amount,
		ReceiptURL:      req.ReceiptURL,
		Status:          repository.ClaimStatusDraft,
	}

	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "claim", claim.ID, "Claim created", claim.EmployeeID,
		strPtr(fmt.Sprintf("Amount: $%.2f", float64(claim.Amount)/100)))

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("claim_number", claim.ClaimNumber).
		Str("employee_id", claim.EmployeeID).
		Int64("amount", claim.Amount).
		Msg("Claim created")

	return claim, nil
}

// GetClaim retrieves a claim by ID.
func (s *ClaimService) GetClaim(ctx context.Context, id string) (*repository.Claim, error) {
	return s.claimRepo.GetByID(ctx, id)
}

// ListClaims returns all claims, newest first.
func (s *ClaimService) ListClaims(ctx context.Context) ([]*repository.Claim, error) {
	return s.claimRepo.List(ctx)
}

// SubmitClaim moves a draft claim to submitted.
func (s *ClaimService) SubmitClaim(ctx context.Context, id, userID string) (*repository.Claim, error) {
	claim, err := s.claimRepo.Submit(ctx, id)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "claim", claim.ID, "Claim submitted", userID, nil)

	s.publisher.PublishFleetEvent(ctx, "claim_submitted", "claim", claim.ID, userID, map[string]interface{}{
		"claim_number": claim.ClaimNumber,
		"amount":       claim.Amount,
	})

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("claim_number", claim.ClaimNumber).
		Msg("Claim submitted")

	return claim, nil
}

// ApproveClaim approves a submitted claim.
func (s *ClaimService) ApproveClaim(ctx context.Context, id, approverID string, comment *string) (*repository.Claim, error) {
	if approverID == "" {
		return nil, apperrors.InvalidInput("approverId", "approver is required")
	}

	claim, err := s.claimRepo.Approve(ctx, id, approverID, comment)
	if err != nil {
		return nil, err
	}

	details := "Claim approved"
	if comment != nil && *comment != "" {
		details = *comment
	}
	recordActivity(ctx, s.activityRepo, s.log, "claim", claim.ID, "Claim approved", approverID, strPtr(details))

	s.publisher.PublishFleetEvent(ctx, "claim_approved", "claim", claim.ID, approverID, map[string]interface{}{
		"claim_number": claim.ClaimNumber,
		"amount":       claim.Amount,
	})

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("claim_number", claim.ClaimNumber).
		Str("approver_id", approverID).
		Msg("Claim approved")

	return claim, nil
}

// RejectClaim rejects a submitted claim. The rejection comment is mandatory.
func (s *ClaimService) RejectClaim(ctx context.Context, id, approverID, comment string) (*repository.Claim, error) {
	if approverID == "" {
		return nil, apperrors.InvalidInput("approverId", "approver is required")
	}
	if strings.TrimSpace(comment) == "" {
		return nil, apperrors.InvalidInput("comment", "rejection comment is required")
	}

	claim, err := s.claimRepo.Reject(ctx, id, approverID, comment)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "claim", claim.ID, "Claim rejected", approverID, strPtr(comment))

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("claim_number", claim.ClaimNumber).
		Str("approver_id", approverID).
		Msg("Claim rejected")

	return claim, nil
}

// ReimburseClaim marks an approved claim reimbursed. Payment processing is
// out of scope; this is a terminal status plus timestamp.
func (s *ClaimService) ReimburseClaim(ctx context.Context, id, userID string) (*repository.Claim, error) {
	claim, err := s.claimRepo.MarkReimbursed(ctx, id)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "claim", claim.ID, "Claim reimbursed", userID,
		strPtr(fmt.Sprintf("Amount: $%.2f", float64(claim.Amount)/100)))

	s.publisher.PublishFleetEvent(ctx, "claim_reimbursed", "claim", claim.ID, userID, map[string]interface{}{
		"claim_number": claim.ClaimNumber,
		"amount":       claim.Amount,
	})

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("claim_number", claim.ClaimNumber).
		Msg("Claim reimbursed")

	return claim, nil
}
