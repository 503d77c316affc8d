package repository

import (
	"fmt"
	"time"
)

// ── Domain types for the transport-request core ──────────────────────────────

// RequestType distinguishes the three transport demand kinds. Immutable once
// a request is created.
type RequestType string

const (
	RequestTypeWorker   RequestType = "worker"
	RequestTypeShipment RequestType = "shipment"
	RequestTypeGeneral  RequestType = "general"
)

// RequestStatus moves forward only, along
// draft → submitted → approved → scheduled → in_progress → completed,
// with cancelled reachable from draft/submitted/approved. Rejection lands on
// cancelled too; a rejected request is distinguishable only by its approval
// metadata being set.
type RequestStatus string

const (
	RequestStatusDraft      RequestStatus = "draft"
	RequestStatusSubmitted  RequestStatus = "submitted"
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusScheduled  RequestStatus = "scheduled"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// requestTransitions is the allowed status DAG.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusDraft:      {RequestStatusSubmitted, RequestStatusCancelled},
	RequestStatusSubmitted:  {RequestStatusApproved, RequestStatusCancelled},
	RequestStatusApproved:   {RequestStatusScheduled, RequestStatusCancelled},
	RequestStatusScheduled:  {RequestStatusInProgress},
	RequestStatusInProgress: {RequestStatusCompleted},
	RequestStatusCompleted:  {},
	RequestStatusCancelled:  {},
}

// CanTransitionRequest reports whether from -> to is an allowed request
// status change.
func CanTransitionRequest(from, to RequestStatus) bool {
	for _, s := range requestTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type TripStatus string

const (
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusScheduled:  {TripStatusInProgress, TripStatusCancelled},
	TripStatusInProgress: {TripStatusCompleted},
	TripStatusCompleted:  {},
	TripStatusCancelled:  {},
}

// CanTransitionTrip reports whether from -> to is an allowed trip status
// change.
func CanTransitionTrip(from, to TripStatus) bool {
	for _, s := range tripTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PenaltyStatus is pending until exactly one of confirmed or waived.
type PenaltyStatus string

const (
	PenaltyStatusPending   PenaltyStatus = "pending"
	PenaltyStatusConfirmed PenaltyStatus = "confirmed"
	PenaltyStatusWaived    PenaltyStatus = "waived"
)

type ClaimStatus string

const (
	ClaimStatusDraft      ClaimStatus = "draft"
	ClaimStatusSubmitted  ClaimStatus = "submitted"
	ClaimStatusApproved   ClaimStatus = "approved"
	ClaimStatusRejected   ClaimStatus = "rejected"
	ClaimStatusReimbursed ClaimStatus = "reimbursed"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusDraft:      {ClaimStatusSubmitted},
	ClaimStatusSubmitted:  {ClaimStatusApproved, ClaimStatusRejected},
	ClaimStatusApproved:   {ClaimStatusReimbursed},
	ClaimStatusRejected:   {},
	ClaimStatusReimbursed: {},
}

// CanTransitionClaim reports whether from -> to is an allowed claim status
// change.
func CanTransitionClaim(from, to ClaimStatus) bool {
	for _, s := range claimTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Yard is a shipment's consolidation point.
type Yard string

const (
	YardWattala    Yard = "wattala"
	YardKatunayake Yard = "katunayake"
)

// Request is one transport demand record.
type Request struct {
	ID            string
	RequestNumber string
	Type          RequestType
	Status        RequestStatus
	RequesterID   string
	FactoryID     string

	// worker
	Route          *string
	PassengerCount *int

	// shipment
	Yard       *Yard
	CBM        *float64
	CutoffTime *time.Time

	// general
	PickupLocation  *string
	DropLocation    *string
	TimeWindowStart *time.Time
	TimeWindowEnd   *time.Time
	Purpose         *string
	Department      *string

	RequestedDate time.Time
	Notes         *string

	ApproverID      *string
	ApprovedAt      *time.Time
	ApprovalComment *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Trip is an execution unit fulfilling one or more approved requests.
type Trip struct {
	ID         string
	TripNumber string
	RequestIDs []string
	Status     TripStatus

	VehicleID string
	DriverID  *string
	VendorID  *string

	PlannedStartTime time.Time
	PlannedEndTime   time.Time
	ActualStartTime  *time.Time
	ActualEndTime    *time.Time

	StartOdometer *int
	EndOdometer   *int

	PassengersBoarded *int
	Incidents         *string

	IsPooled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GateLog is one security-recorded entry/exit event for a trip. DelayMinutes
// and IsDelayed are derived once at creation and never recomputed.
type GateLog struct {
	ID        string
	TripID    string
	VehicleID string

	PlannedTime time.Time
	InTime      time.Time
	OutTime     *time.Time

	DelayMinutes int
	IsDelayed    bool

	Remarks           *string
	SecurityOfficerID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Penalty is minted by a delayed gate log; amount and delay are frozen at
// creation. Amounts are in cents.
type Penalty struct {
	ID        string
	TripID    string
	GateLogID string

	DelayMinutes int
	Amount       int64

	Status PenaltyStatus

	ConfirmedBy *string
	ConfirmedAt *time.Time

	WaivedBy     *string
	WaivedAt     *time.Time
	WaiverReason *string

	CreatedAt time.Time
}

// Claim is an employee reimbursement claim. Amount is in cents.
type Claim struct {
	ID          string
	ClaimNumber string

	EmployeeID      string
	LinkedRequestID *string

	TripDate time.Time
	Reason   string
	Amount   int64

	ReceiptURL *string

	Status ClaimStatus

	ApproverID      *string
	ApprovedAt      *time.Time
	ApprovalComment *string

	ReimbursedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings is the singleton configuration row. PenaltyAmount is in cents.
type Settings struct {
	ID                   string
	GraceMinutes         int
	PenaltyAmount        int64
	PoolingWindowMinutes int
	WorkingHoursStart    string
	WorkingHoursEnd      string
	UpdatedAt            time.Time
}

// ActivityLog is one immutable audit entry.
type ActivityLog struct {
	ID         string
	EntityType string // request | trip | gate_log | penalty | claim | settings
	EntityID   string
	Action     string
	UserID     string
	Details    *string
	CreatedAt  time.Time
}

// ── Sequence numbers ─────────────────────────────────────────────────────────

// FormatRequestNumber renders REQ-<year>-<3-digit-seq>.
func FormatRequestNumber(year int, seq int64) string {
	return fmt.Sprintf("REQ-%d-%03d", year, seq)
}

// FormatTripNumber renders TRIP-<year>-<3-digit-seq>.
func FormatTripNumber(year int, seq int64) string {
	return fmt.Sprintf("TRIP-%d-%03d", year, seq)
}

// FormatClaimNumber renders CLM-<year>-<3-digit-seq>.
func FormatClaimNumber(year int, seq int64) string {
	return fmt.Sprintf("CLM-%d-%03d", year, seq)
}
