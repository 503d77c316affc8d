package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

func newClaimService(t *testing.T) (*ClaimService, *fakeActivityRepo) {
	t.Helper()
	activity := newFakeActivityRepo()
	return NewClaimService(newFakeClaimRepo(), activity, nil, logger.Nop()), activity
}

func claimInput() *CreateClaimRequest {
	return &CreateClaimRequest{
		EmployeeID: "emp-1",
		TripDate:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Reason:     "taxi fare after missed shuttle",
		Amount:     4500,
	}
}

func TestCreateClaim(t *testing.T) {
	svc, activity := newClaimService(t)

	claim, err := svc.CreateClaim(context.Background(), claimInput())
	require.NoError(t, err)
	require.Equal(t, repository.ClaimStatusDraft, claim.Status)
	require.Regexp(t, `^CLM-\d{4}-\d{3}$`, claim.ClaimNumber)
	require.Equal(t, int64(4500), claim.Amount)

	action, details := activity.lastAction(claim.ID)
	require.Equal(t, "Claim created", action)
	require.Equal(t, "Amount: $45.00", *details)
}

func TestCreateClaim_validation(t *testing.T) {
	svc, _ := newClaimService(t)
	ctx := context.Background()

	noReason := claimInput()
	noReason.Reason = "  "
	_, err := svc.CreateClaim(ctx, noReason)
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	zeroAmount := claimInput()
	zeroAmount.Amount = 0
	_, err = svc.CreateClaim(ctx, zeroAmount)
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	noEmployee := claimInput()
	noEmployee.EmployeeID = ""
	_, err = svc.CreateClaim(ctx, noEmployee)
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestClaimLifecycle(t *testing.T) {
	svc, activity := newClaimService(t)
	ctx := context.Background()

	claim, err := svc.CreateClaim(ctx, claimInput())
	require.NoError(t, err)

	submitted, err := svc.SubmitClaim(ctx, claim.ID, "emp-1")
	require.NoError(t, err)
	require.Equal(t, repository.ClaimStatusSubmitted, submitted.Status)

	approved, err := svc.ApproveClaim(ctx, claim.ID, "A1", nil)
	require.NoError(t, err)
	require.Equal(t, repository.ClaimStatusApproved, approved.Status)
	require.Equal(t, "A1", *approved.ApproverID)

	reimbursed, err := svc.ReimburseClaim(ctx, claim.ID, "fin-1")
	require.NoError(t, err)
	require.Equal(t, repository.ClaimStatusReimbursed, reimbursed.Status)
	require.NotNil(t, reimbursed.ReimbursedAt)

	action, _ := activity.lastAction(claim.ID)
	require.Equal(t, "Claim reimbursed", action)

	// reimbursed is terminal
	_, err = svc.ReimburseClaim(ctx, claim.ID, "fin-1")
	require.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
}

func TestClaim_transitionGuards(t *testing.T) {
	svc, _ := newClaimService(t)
	ctx := context.Background()

	claim, err := svc.CreateClaim(ctx, claimInput())
	require.NoError(t, err)

	// approving a draft claim skips submission
	_, err = svc.ApproveClaim(ctx, claim.ID, "A1", nil)
	require.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))

	// reimbursing before approval
	_, err = svc.ReimburseClaim(ctx, claim.ID, "fin-1")
	require.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
}

func TestRejectClaim(t *testing.T) {
	svc, activity := newClaimService(t)
	ctx := context.Background()

	claim, err := svc.CreateClaim(ctx, claimInput())
	require.NoError(t, err)
	_, err = svc.SubmitClaim(ctx, claim.ID, "emp-1")
	require.NoError(t, err)

	// rejection comment is mandatory
	_, err = svc.RejectClaim(ctx, claim.ID, "A1", " ")
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	rejected, err := svc.RejectClaim(ctx, claim.ID, "A1", "no receipt")
	require.NoError(t, err)
	require.Equal(t, repository.ClaimStatusRejected, rejected.Status)
	require.Equal(t, "no receipt", *rejected.ApprovalComment)

	action, _ := activity.lastAction(claim.ID)
	require.Equal(t, "Claim rejected", action)

	// rejected is terminal
	_, err = svc.SubmitClaim(ctx, claim.ID, "emp-1")
	require.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
}

func TestGetClaim_notFound(t *testing.T) {
	svc, _ := newClaimService(t)

	_, err := svc.GetClaim(context.Background(), "missing")
	require.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}
