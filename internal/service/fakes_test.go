package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

// In-memory fakes implementing the repository interfaces with the same
// transition guards as the SQL repositories.

type fakeRequestRepo struct {
	mu       sync.Mutex
	seq      int64
	requests map[string]*repository.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*repository.Request)}
}

func (f *fakeRequestRepo) Create(_ context.Context, req *repository.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	req.ID = fmt.Sprintf("req-%d", f.seq)
	req.RequestNumber = repository.FormatRequestNumber(time.Now().Year(), f.seq)
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id string) (*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestRepo) List(_ context.Context, typeFilter, statusFilter string) ([]*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Request
	for _, req := range f.requests {
		if typeFilter != "" && typeFilter != "all" && string(req.Type) != typeFilter {
			continue
		}
		if statusFilter != "" && statusFilter != "all" && string(req.Status) != statusFilter {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRequestRepo) Approve(_ context.Context, id, approverID string, comment *string) (*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	if req.Status != repository.RequestStatusSubmitted {
		return nil, apperrors.InvalidTransition("request", string(req.Status), string(repository.RequestStatusApproved))
	}
	now := time.Now()
	req.Status = repository.RequestStatusApproved
	req.ApproverID = &approverID
	req.ApprovedAt = &now
	req.ApprovalComment = comment
	req.UpdatedAt = now
	cp := *req
	return &cp, nil
}

func (f *fakeRequestRepo) Reject(_ context.Context, id, approverID string, comment string) (*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	if req.Status != repository.RequestStatusSubmitted {
		return nil, apperrors.InvalidTransition("request", string(req.Status), string(repository.RequestStatusCancelled))
	}
	now := time.Now()
	req.Status = repository.RequestStatusCancelled
	req.ApproverID = &approverID
	req.ApprovedAt = &now
	req.ApprovalComment = &comment
	req.UpdatedAt = now
	cp := *req
	return &cp, nil
}

func (f *fakeRequestRepo) Cancel(_ context.Context, id string) (*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	if !repository.CanTransitionRequest(req.Status, repository.RequestStatusCancelled) {
		return nil, apperrors.InvalidTransition("request", string(req.Status), string(repository.RequestStatusCancelled))
	}
	req.Status = repository.RequestStatusCancelled
	req.UpdatedAt = time.Now()
	cp := *req
	return &cp, nil
}

type fakeTripRepo struct {
	mu       sync.Mutex
	seq      int64
	trips    map[string]*repository.Trip
	requests *fakeRequestRepo
}

func newFakeTripRepo(requests *fakeRequestRepo) *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[string]*repository.Trip), requests: requests}
}

func (f *fakeTripRepo) Schedule(_ context.Context, trip *repository.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests.mu.Lock()
	defer f.requests.mu.Unlock()

	// All-or-nothing: verify every request before mutating anything.
	for _, id := range trip.RequestIDs {
		req, ok := f.requests.requests[id]
		if !ok {
			return apperrors.NotFound("request", id)
		}
		if req.Status != repository.RequestStatusApproved {
			return apperrors.InvalidTransition("request", string(req.Status), string(repository.RequestStatusScheduled))
		}
	}

	f.seq++
	trip.ID = fmt.Sprintf("trip-%d", f.seq)
	trip.TripNumber = repository.FormatTripNumber(time.Now().Year(), f.seq)
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	for _, id := range trip.RequestIDs {
		f.requests.requests[id].Status = repository.RequestStatusScheduled
	}
	cp := *trip
	f.trips[trip.ID] = &cp
	return nil
}

func (f *fakeTripRepo) GetByID(_ context.Context, id string) (*repository.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, apperrors.NotFound("trip", id)
	}
	cp := *trip
	return &cp, nil
}

func (f *fakeTripRepo) List(_ context.Context, statusFilter string) ([]*repository.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := map[string]bool{}
	if statusFilter != "" {
		for _, s := range strings.Split(statusFilter, ",") {
			allowed[s] = true
		}
	}
	var out []*repository.Trip
	for _, trip := range f.trips {
		if len(allowed) > 0 && !allowed[string(trip.Status)] {
			continue
		}
		cp := *trip
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlannedStartTime.After(out[j].PlannedStartTime) })
	return out, nil
}

func (f *fakeTripRepo) Start(_ context.Context, id string, startOdometer int, actualStartTime time.Time) (*repository.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, apperrors.NotFound("trip", id)
	}
	if trip.Status != repository.TripStatusScheduled {
		return nil, apperrors.InvalidTransition("trip", string(trip.Status), string(repository.TripStatusInProgress))
	}
	trip.Status = repository.TripStatusInProgress
	trip.StartOdometer = &startOdometer
	trip.ActualStartTime = &actualStartTime
	trip.UpdatedAt = time.Now()
	cp := *trip
	return &cp, nil
}

func (f *fakeTripRepo) End(_ context.Context, id string, endOdometer, passengersBoarded int, incidents *string, actualEndTime time.Time) (*repository.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, apperrors.NotFound("trip", id)
	}
	if trip.Status != repository.TripStatusInProgress {
		return nil, apperrors.InvalidTransition("trip", string(trip.Status), string(repository.TripStatusCompleted))
	}
	trip.Status = repository.TripStatusCompleted
	trip.EndOdometer = &endOdometer
	trip.PassengersBoarded = &passengersBoarded
	trip.Incidents = incidents
	trip.ActualEndTime = &actualEndTime
	trip.UpdatedAt = time.Now()
	cp := *trip
	return &cp, nil
}

func (f *fakeTripRepo) Cancel(_ context.Context, id string) (*repository.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, apperrors.NotFound("trip", id)
	}
	if trip.Status != repository.TripStatusScheduled {
		return nil, apperrors.InvalidTransition("trip", string(trip.Status), string(repository.TripStatusCancelled))
	}
	trip.Status = repository.TripStatusCancelled
	trip.UpdatedAt = time.Now()
	cp := *trip
	return &cp, nil
}

type fakePenaltyRepo struct {
	mu        sync.Mutex
	seq       int64
	penalties map[string]*repository.Penalty
}

func newFakePenaltyRepo() *fakePenaltyRepo {
	return &fakePenaltyRepo{penalties: make(map[string]*repository.Penalty)}
}

func (f *fakePenaltyRepo) GetByID(_ context.Context, id string) (*repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.penalties[id]
	if !ok {
		return nil, apperrors.NotFound("penalty", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePenaltyRepo) List(_ context.Context) ([]*repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Penalty
	for _, p := range f.penalties {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePenaltyRepo) Confirm(_ context.Context, id, confirmedBy string) (*repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.penalties[id]
	if !ok {
		return nil, apperrors.NotFound("penalty", id)
	}
	if p.Status != repository.PenaltyStatusPending {
		return nil, apperrors.InvalidTransition("penalty", string(p.Status), string(repository.PenaltyStatusConfirmed))
	}
	now := time.Now()
	p.Status = repository.PenaltyStatusConfirmed
	p.ConfirmedBy = &confirmedBy
	p.ConfirmedAt = &now
	cp := *p
	return &cp, nil
}

func (f *fakePenaltyRepo) Waive(_ context.Context, id, waivedBy, waiverReason string) (*repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.penalties[id]
	if !ok {
		return nil, apperrors.NotFound("penalty", id)
	}
	if p.Status != repository.PenaltyStatusPending {
		return nil, apperrors.InvalidTransition("penalty", string(p.Status), string(repository.PenaltyStatusWaived))
	}
	now := time.Now()
	p.Status = repository.PenaltyStatusWaived
	p.WaivedBy = &waivedBy
	p.WaivedAt = &now
	p.WaiverReason = &waiverReason
	cp := *p
	return &cp, nil
}

type fakeGateLogRepo struct {
	mu        sync.Mutex
	seq       int64
	logs      map[string]*repository.GateLog
	penalties *fakePenaltyRepo
}

func newFakeGateLogRepo(penalties *fakePenaltyRepo) *fakeGateLogRepo {
	return &fakeGateLogRepo{logs: make(map[string]*repository.GateLog), penalties: penalties}
}

func (f *fakeGateLogRepo) CreateWithPenalty(_ context.Context, log *repository.GateLog, penalty *repository.Penalty) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	log.ID = fmt.Sprintf("gate-%d", f.seq)
	log.CreatedAt = time.Now()
	log.UpdatedAt = log.CreatedAt
	cp := *log
	f.logs[log.ID] = &cp

	if penalty != nil {
		f.penalties.mu.Lock()
		f.penalties.seq++
		penalty.ID = fmt.Sprintf("pen-%d", f.penalties.seq)
		penalty.GateLogID = log.ID
		penalty.CreatedAt = time.Now()
		pcp := *penalty
		f.penalties.penalties[penalty.ID] = &pcp
		f.penalties.mu.Unlock()
	}
	return nil
}

func (f *fakeGateLogRepo) GetByID(_ context.Context, id string) (*repository.GateLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log, ok := f.logs[id]
	if !ok {
		return nil, apperrors.NotFound("gate log", id)
	}
	cp := *log
	return &cp, nil
}

func (f *fakeGateLogRepo) List(_ context.Context) ([]*repository.GateLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.GateLog
	for _, log := range f.logs {
		cp := *log
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeGateLogRepo) RecordExit(_ context.Context, id string, outTime time.Time, remarks *string) (*repository.GateLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log, ok := f.logs[id]
	if !ok {
		return nil, apperrors.NotFound("gate log", id)
	}
	log.OutTime = &outTime
	if remarks != nil {
		log.Remarks = remarks
	}
	log.UpdatedAt = time.Now()
	cp := *log
	return &cp, nil
}

type fakeClaimRepo struct {
	mu     sync.Mutex
	seq    int64
	claims map[string]*repository.Claim
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[string]*repository.Claim)}
}

func (f *fakeClaimRepo) Create(_ context.Context, claim *repository.Claim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	claim.ID = fmt.Sprintf("clm-%d", f.seq)
	claim.ClaimNumber = repository.FormatClaimNumber(time.Now().Year(), f.seq)
	claim.CreatedAt = time.Now()
	claim.UpdatedAt = claim.CreatedAt
	cp := *claim
	f.claims[claim.ID] = &cp
	return nil
}

func (f *fakeClaimRepo) GetByID(_ context.Context, id string) (*repository.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return nil, apperrors.NotFound("claim", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClaimRepo) List(_ context.Context) ([]*repository.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Claim
	for _, c := range f.claims {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeClaimRepo) Submit(_ context.Context, id string) (*repository.Claim, error) {
	return f.transition(id, repository.ClaimStatusDraft, repository.ClaimStatusSubmitted, nil)
}

func (f *fakeClaimRepo) Approve(_ context.Context, id, approverID string, comment *string) (*repository.Claim, error) {
	return f.transition(id, repository.ClaimStatusSubmitted, repository.ClaimStatusApproved, func(c *repository.Claim) {
		now := time.Now()
		c.ApproverID = &approverID
		c.ApprovedAt = &now
		c.ApprovalComment = comment
	})
}

func (f *fakeClaimRepo) Reject(_ context.Context, id, approverID string, comment string) (*repository.Claim, error) {
	return f.transition(id, repository.ClaimStatusSubmitted, repository.ClaimStatusRejected, func(c *repository.Claim) {
		now := time.Now()
		c.ApproverID = &approverID
		c.ApprovedAt = &now
		c.ApprovalComment = &comment
	})
}

func (f *fakeClaimRepo) MarkReimbursed(_ context.Context, id string) (*repository.Claim, error) {
	return f.transition(id, repository.ClaimStatusApproved, repository.ClaimStatusReimbursed, func(c *repository.Claim) {
		now := time.Now()
		c.ReimbursedAt = &now
	})
}

func (f *fakeClaimRepo) transition(id string, from, to repository.ClaimStatus, mutate func(*repository.Claim)) (*repository.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return nil, apperrors.NotFound("claim", id)
	}
	if c.Status != from {
		return nil, apperrors.InvalidTransition("claim", string(c.Status), string(to))
	}
	c.Status = to
	if mutate != nil {
		mutate(c)
	}
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings repository.Settings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: repository.Settings{
		ID:                   "settings-1",
		GraceMinutes:         15,
		PenaltyAmount:        10000,
		PoolingWindowMinutes: 30,
		WorkingHoursStart:    "08:00",
		WorkingHoursEnd:      "18:00",
		UpdatedAt:            time.Now(),
	}}
}

func (f *fakeSettingsRepo) Get(_ context.Context) (*repository.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettingsRepo) Update(_ context.Context, upd repository.SettingsUpdate) (*repository.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if upd.GraceMinutes != nil {
		f.settings.GraceMinutes = *upd.GraceMinutes
	}
	if upd.PenaltyAmount != nil {
		f.settings.PenaltyAmount = *upd.PenaltyAmount
	}
	if upd.PoolingWindowMinutes != nil {
		f.settings.PoolingWindowMinutes = *upd.PoolingWindowMinutes
	}
	if upd.WorkingHoursStart != nil {
		f.settings.WorkingHoursStart = *upd.WorkingHoursStart
	}
	if upd.WorkingHoursEnd != nil {
		f.settings.WorkingHoursEnd = *upd.WorkingHoursEnd
	}
	f.settings.UpdatedAt = time.Now()
	cp := f.settings
	return &cp, nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	seq     int64
	entries []*repository.ActivityLog
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{}
}

func (f *fakeActivityRepo) Append(_ context.Context, entry *repository.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	entry.ID = fmt.Sprintf("act-%d", f.seq)
	entry.CreatedAt = time.Now()
	cp := *entry
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeActivityRepo) ListByEntityID(_ context.Context, entityID string) ([]*repository.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.ActivityLog
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].EntityID == entityID {
			cp := *f.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// lastAction returns the most recent audit action recorded for an entity.
func (f *fakeActivityRepo) lastAction(entityID string) (string, *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].EntityID == entityID {
			return f.entries[i].Action, f.entries[i].Details
		}
	}
	return "", nil
}

// fakeCache is a map-backed BytesCache. TTLs are ignored.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.entries[key]
	return b, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}
