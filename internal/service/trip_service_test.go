package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

type tripFixture struct {
	requests *fakeRequestRepo
	trips    *fakeTripRepo
	activity *fakeActivityRepo

	requestSvc *RequestService
	tripSvc    *TripService
}

func newTripFixture(t *testing.T) *tripFixture {
	t.Helper()
	requests := newFakeRequestRepo()
	trips := newFakeTripRepo(requests)
	activity := newFakeActivityRepo()
	return &tripFixture{
		requests:   requests,
		trips:      trips,
		activity:   activity,
		requestSvc: NewRequestService(requests, activity, nil, 0, nil, logger.Nop()),
		tripSvc:    NewTripService(trips, activity, nil, 0, nil, logger.Nop()),
	}
}

func (f *tripFixture) approvedRequest(t *testing.T) *repository.Request {
	t.Helper()
	ctx := context.Background()
	req, err := f.requestSvc.CreateRequest(ctx, workerRequest("submitted"))
	require.NoError(t, err)
	approved, err := f.requestSvc.ApproveRequest(ctx, &ApproveRequestRequest{ID: req.ID, ApproverID: "A1"})
	require.NoError(t, err)
	return approved
}

func scheduleInput(requestIDs ...string) *ScheduleTripRequest {
	start := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	return &ScheduleTripRequest{
		RequestIDs:       requestIDs,
		VehicleID:        "V1",
		PlannedStartTime: start,
		PlannedEndTime:   start.Add(2 * time.Hour),
		ScheduledBy:      "coord-1",
	}
}

func TestScheduleTrip(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()
	req := f.approvedRequest(t)

	trip, err := f.tripSvc.ScheduleTrip(ctx, scheduleInput(req.ID))
	require.NoError(t, err)
	require.Equal(t, repository.TripStatusScheduled, trip.Status)
	require.Regexp(t, `^TRIP-\d{4}-\d{3}$`, trip.TripNumber)
	require.False(t, trip.IsPooled)
	require.Equal(t, []string{req.ID}, trip.RequestIDs)

	stored, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, repository.RequestStatusScheduled, stored.Status)

	action, _ := f.activity.lastAction(trip.ID)
	require.Equal(t, "Trip scheduled", action)
}

func TestScheduleTrip_invalidatesRequestCache(t *testing.T) {
	requests := newFakeRequestRepo()
	trips := newFakeTripRepo(requests)
	activity := newFakeActivityRepo()
	shared := newFakeCache()
	requestSvc := NewRequestService(requests, activity, shared, 0, nil, logger.Nop())
	tripSvc := NewTripService(trips, activity, shared, 0, nil, logger.Nop())

	ctx := context.Background()
	req, err := requestSvc.CreateRequest(ctx, workerRequest("submitted"))
	require.NoError(t, err)
	_, err = requestSvc.ApproveRequest(ctx, &ApproveRequestRequest{ID: req.ID, ApproverID: "A1"})
	require.NoError(t, err)

	_, err = tripSvc.ScheduleTrip(ctx, scheduleInput(req.ID))
	require.NoError(t, err)

	got, err := requestSvc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, repository.RequestStatusScheduled, got.Status)
}

func TestScheduleTrip_pooled(t *testing.T) {
	f := newTripFixture(t)
	a := f.approvedRequest(t)
	b := f.approvedRequest(t)

	trip, err := f.tripSvc.ScheduleTrip(context.Background(), scheduleInput(a.ID, b.ID))
	require.NoError(t, err)
	require.True(t, trip.IsPooled)
	require.Len(t, trip.RequestIDs, 2)
}

func TestScheduleTrip_validation(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()
	req := f.approvedRequest(t)

	_, err := f.tripSvc.ScheduleTrip(ctx, scheduleInput())
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	noVehicle := scheduleInput(req.ID)
	noVehicle.VehicleID = ""
	_, err = f.tripSvc.ScheduleTrip(ctx, noVehicle)
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	inverted := scheduleInput(req.ID)
	inverted.PlannedEndTime = inverted.PlannedStartTime.Add(-time.Minute)
	_, err = f.tripSvc.ScheduleTrip(ctx, inverted)
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	dup := scheduleInput(req.ID, req.ID)
	_, err = f.tripSvc.ScheduleTrip(ctx, dup)
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestScheduleTrip_atomicAcrossRequests(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()

	approved := f.approvedRequest(t)
	draft, err := f.requestSvc.CreateRequest(ctx, workerRequest("draft"))
	require.NoError(t, err)

	_, err = f.tripSvc.ScheduleTrip(ctx, scheduleInput(approved.ID, draft.ID))
	require.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))

	// neither request changed, no trip created
	a, err := f.requests.GetByID(ctx, approved.ID)
	require.NoError(t, err)
	require.Equal(t, repository.RequestStatusApproved, a.Status)

	d, err := f.requests.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, repository.RequestStatusDraft, d.Status)

	trips, err := f.tripSvc.ListTrips(ctx, "")
	require.NoError(t, err)
	require.Empty(t, trips)
}

func TestScheduleTrip_missingRequest(t *testing.T) {
	f := newTripFixture(t)

	_, err := f.tripSvc.ScheduleTrip(context.Background(), scheduleInput("missing"))
	require.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestTripLifecycle_endToEnd(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()
	req := f.approvedRequest(t)

	trip, err := f.tripSvc.ScheduleTrip(ctx, scheduleInput(req.ID))
	require.NoError(t, err)

	started, err := f.tripSvc.StartTrip(ctx, &StartTripRequest{
		ID:              trip.ID,
		StartOdometer:   1000,
		ActualStartTime: time.Date(2026, 3, 11, 8, 5, 0, 0, time.UTC),
		StartedBy:       "driver-1",
	})
	require.NoError(t, err)
	require.Equal(t, repository.TripStatusInProgress, started.Status)
	require.Equal(t, 1000, *started.StartOdometer)
	require.NotNil(t, started.ActualStartTime)

	ended, err := f.tripSvc.EndTrip(ctx, &EndTripRequest{
		ID:                trip.ID,
		EndOdometer:       1050,
		PassengersBoarded: 30,
		ActualEndTime:     time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		EndedBy:           "driver-1",
	})
	require.NoError(t, err)
	require.Equal(t, repository.TripStatusCompleted, ended.Status)
	require.Equal(t, 1050, *ended.EndOdometer)
	require.Equal(t, 30, *ended.PassengersBoarded)

	action, details := f.activity.lastAction(trip.ID)
	require.Equal(t, "Trip completed", action)
	require.Equal(t, "Odometer: 1050 km, Passengers: 30", *details)
}

func TestStartTrip_guards(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()
	req := f.approvedRequest(t)

	trip, err := f.tripSvc.ScheduleTrip(ctx, scheduleInput(req.ID))
	require.NoError(t, err)

	_, err = f.tripSvc.StartTrip(ctx, &StartTripRequest{ID: trip.ID, StartOdometer: -1})
	require.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	_, err = f.tripSvc.StartTrip(ctx, &StartTripRequest{ID: trip.ID, StartOdometer: 100})
	require.NoError(t, err)

	// starting twice is a conflict
	_, err = f.tripSvc.StartTrip(ctx, &StartTripRequest{ID: trip.ID, StartOdometer: 100})
	require.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))

	// ending from in_progress only
	_, err = f.tripSvc.EndTrip(ctx, &EndTripRequest{ID: "missing", EndOdometer: 1})
	require.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestEndTrip_odometerRegressionIsWarning(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()
	req := f.approvedRequest(t)

	trip, err := f.tripSvc.ScheduleTrip(ctx, scheduleInput(req.ID))
	require.NoError(t, err)
	_, err = f.tripSvc.StartTrip(ctx, &StartTripRequest{ID: trip.ID, StartOdometer: 1000})
	require.NoError(t, err)

	ended, err := f.tripSvc.EndTrip(ctx, &EndTripRequest{ID: trip.ID, EndOdometer: 900, PassengersBoarded: 10})
	require.NoError(t, err)
	require.Equal(t, repository.TripStatusCompleted, ended.Status)

	_, details := f.activity.lastAction(trip.ID)
	require.True(t, strings.Contains(*details, "below start odometer"))
}

func TestCancelTrip(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()
	req := f.approvedRequest(t)

	trip, err := f.tripSvc.ScheduleTrip(ctx, scheduleInput(req.ID))
	require.NoError(t, err)

	cancelled, err := f.tripSvc.CancelTrip(ctx, trip.ID, "coord-1", nil)
	require.NoError(t, err)
	require.Equal(t, repository.TripStatusCancelled, cancelled.Status)

	// cancelled is terminal
	_, err = f.tripSvc.StartTrip(ctx, &StartTripRequest{ID: trip.ID, StartOdometer: 0})
	require.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
}

func TestListTrips_statusFilter(t *testing.T) {
	f := newTripFixture(t)
	ctx := context.Background()

	first := f.approvedRequest(t)
	second := f.approvedRequest(t)

	tripA, err := f.tripSvc.ScheduleTrip(ctx, scheduleInput(first.ID))
	require.NoError(t, err)
	_, err = f.tripSvc.ScheduleTrip(ctx, scheduleInput(second.ID))
	require.NoError(t, err)

	_, err = f.tripSvc.StartTrip(ctx, &StartTripRequest{ID: tripA.ID, StartOdometer: 10})
	require.NoError(t, err)

	active, err := f.tripSvc.ListTrips(ctx, "scheduled,in_progress")
	require.NoError(t, err)
	require.Len(t, active, 2)

	inProgress, err := f.tripSvc.ListTrips(ctx, "in_progress")
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	require.Equal(t, tripA.ID, inProgress[0].ID)

	completed, err := f.tripSvc.ListTrips(ctx, "completed")
	require.NoError(t, err)
	require.Empty(t, completed)
}
