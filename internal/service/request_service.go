package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/cache"
	"github.com/pesio-ai/be-fleet-transport/internal/client"
	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
)

// defaultCacheTTL bounds staleness of the entity detail caches when no TTL
// is configured.
const defaultCacheTTL = 10 * time.Minute

// RequestRepository is the persistence surface the request service needs.
type RequestRepository interface {
	Create(ctx context.Context, req *repository.Request) error
	GetByID(ctx context.Context, id string) (*repository.Request, error)
	List(ctx context.Context, typeFilter, statusFilter string) ([]*repository.Request, error)
	Approve(ctx context.Context, id, approverID string, comment *string) (*repository.Request, error)
	Reject(ctx context.Context, id, approverID string, comment string) (*repository.Request, error)
	Cancel(ctx context.Context, id string) (*repository.Request, error)
}

// RequestService owns the transport request lifecycle.
type RequestService struct {
	requestRepo  RequestRepository
	activityRepo ActivityLogRepository
	cache        cache.BytesCache
	cacheTTL     time.Duration
	publisher    *client.NotificationPublisher
	log          *logger.Logger
}

// NewRequestService creates a new request service. A zero cacheTTL falls
// back to the default.
func NewRequestService(
	requestRepo RequestRepository,
	activityRepo ActivityLogRepository,
	c cache.BytesCache,
	cacheTTL time.Duration,
	publisher *client.NotificationPublisher,
	log *logger.Logger,
) *RequestService {
	if c == nil {
		c = cache.NopCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &RequestService{
		requestRepo:  requestRepo,
		activityRepo: activityRepo,
		cache:        c,
		cacheTTL:     cacheTTL,
		publisher:    publisher,
		log:          log,
	}
}

// CreateRequestRequest represents a create transport request call
type CreateRequestRequest struct {
	Type        string
	Status      string // draft | submitted; empty means draft
	RequesterID string
	FactoryID   string

	// worker
	Route          *string
	PassengerCount *int

	// shipment
	Yard       *string
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
}

// CreateRequest creates a transport request in draft or submitted state.
func (s *RequestService) CreateRequest(ctx context.Context, req *CreateRequestRequest) (*repository.Request, error) {
	reqType := repository.RequestType(strings.ToLower(req.Type))
	switch reqType {
	case repository.RequestTypeWorker, repository.RequestTypeShipment, repository.RequestTypeGeneral:
	default:
		return nil, apperrors.InvalidInput("type", "must be worker, shipment or general")
	}

	status := repository.RequestStatusDraft
	switch req.Status {
	case "", string(repository.RequestStatusDraft):
	case string(repository.RequestStatusSubmitted):
		status = repository.RequestStatusSubmitted
	default:
		return nil, apperrors.InvalidInput("status", "initial status must be draft or submitted")
	}

	if req.RequesterID == "" {
		return nil, apperrors.InvalidInput("requesterId", "requester is required")
	}
	if req.FactoryID == "" {
		return nil, apperrors.InvalidInput("factoryId", "factory is required")
	}
	if req.RequestedDate.IsZero() {
		return nil, apperrors.InvalidInput("requestedDate", "requested date is required")
	}

	record := &repository.Request{
		Type:          reqType,
		Status:        status,
		RequesterID:   req.RequesterID,
		FactoryID:     req.FactoryID,
		RequestedDate: req.RequestedDate,
		Notes:         req.Notes,
	}

	// Only the declared type's field set is stored; fields of the other
	// types are left empty even when supplied.
	switch reqType {
	case repository.RequestTypeWorker:
		if req.Route == nil || strings.TrimSpace(*req.Route) == "" {
			return nil, apperrors.InvalidInput("route", "route is required for worker requests")
		}
		if req.PassengerCount == nil || *req.PassengerCount <= 0 {
			return nil, apperrors.InvalidInput("passengerCount", "passenger count must be positive")
		}
		record.Route = req.Route
		record.PassengerCount = req.PassengerCount

	case repository.RequestTypeShipment:
		if req.Yard == nil {
			return nil, apperrors.InvalidInput("yard", "yard is required for shipment requests")
		}
		yard := repository.Yard(strings.ToLower(*req.Yard))
		if yard != repository.YardWattala && yard != repository.YardKatunayake {
			return nil, apperrors.InvalidInput("yard", "must be wattala or katunayake")
		}
		if req.CBM == nil || *req.CBM <= 0 {
			return nil, apperrors.InvalidInput("cbm", "cbm must be positive")
		}
		if req.CutoffTime == nil {
			return nil, apperrors.InvalidInput("cutoffTime", "cutoff time is required for shipment requests")
		}
		record.Yard = &yard
		record.CBM = req.CBM
		record.CutoffTime = req.CutoffTime

	case repository.RequestTypeGeneral:
		if req.PickupLocation == nil || strings.TrimSpace(*req.PickupLocation) == "" {
			return nil, apperrors.InvalidInput("pickupLocation", "pickup location is required for general requests")
		}
		if req.DropLocation == nil || strings.TrimSpace(*req.DropLocation) == "" {
			return nil, apperrors.InvalidInput("dropLocation", "drop location is required for general requests")
		}
		if req.TimeWindowStart != nil && req.TimeWindowEnd != nil && !req.TimeWindowEnd.After(*req.TimeWindowStart) {
			return nil, apperrors.InvalidInput("timeWindowEnd", "time window end must be after start")
		}
		record.PickupLocation = req.PickupLocation
		record.DropLocation = req.DropLocation
		record.TimeWindowStart = req.TimeWindowStart
		record.TimeWindowEnd = req.TimeWindowEnd
		record.Purpose = req.Purpose
		record.Department = req.Department
	}

	if err := s.requestRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	action := "Request created"
	if status == repository.RequestStatusSubmitted {
		action = "Request submitted"
	}
	recordActivity(ctx, s.activityRepo, s.log, "request", record.ID, action, record.RequesterID,
		strPtr(fmt.Sprintf("Request %s created", record.RequestNumber)))

	if status == repository.RequestStatusSubmitted {
		s.publisher.PublishFleetEvent(ctx, "request_submitted", "request", record.ID, record.RequesterID, map[string]interface{}{
			"request_number": record.RequestNumber,
			"type":           string(record.Type),
		})
	}

	s.cacheRequest(ctx, record)

	s.log.Info().
		Str("request_id", record.ID).
		Str("request_number", record.RequestNumber).
		Str("type", string(record.Type)).
		Str("status", string(record.Status)).
		Str("requester_id", record.RequesterID).
		Msg("Request created")

	return record, nil
}

// GetRequest retrieves a request by ID, consulting the detail cache first.
func (s *RequestService) GetRequest(ctx context.Context, id string) (*repository.Request, error) {
	key := requestCacheKey(id)
	if b, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("request_id", id).Msg("cache: request read failed (non-fatal)")
	} else if ok {
		var cached repository.Request
		if err := json.Unmarshal(b, &cached); err == nil {
			return &cached, nil
		}
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheRequest(ctx, req)
	return req, nil
}

// ListRequests lists requests filtered by type and status. An empty or "all"
// filter value means no filtering on that dimension.
func (s *RequestService) ListRequests(ctx context.Context, typeFilter, statusFilter string) ([]*repository.Request, error) {
	return s.requestRepo.List(ctx, typeFilter, statusFilter)
}

// ApproveRequestRequest represents an approve request call
type ApproveRequestRequest struct {
	ID         string
	ApproverID string
	Comment    *string
}

// ApproveRequest approves a submitted request.
func (s *RequestService) ApproveRequest(ctx context.Context, req *ApproveRequestRequest) (*repository.Request, error) {
	if req.ApproverID == "" {
		return nil, apperrors.InvalidInput("approverId", "approver is required")
	}

	record, err := s.requestRepo.Approve(ctx, req.ID, req.ApproverID, req.Comment)
	if err != nil {
		return nil, err
	}

	details := "Request approved"
	if req.Comment != nil && *req.Comment != "" {
		details = *req.Comment
	}
	recordActivity(ctx, s.activityRepo, s.log, "request", record.ID, "Request approved", req.ApproverID, strPtr(details))

	s.publisher.PublishFleetEvent(ctx, "request_approved", "request", record.ID, req.ApproverID, map[string]interface{}{
		"request_number": record.RequestNumber,
	})

	s.cacheRequest(ctx, record)

	s.log.Info().
		Str("request_id", record.ID).
		Str("request_number", record.RequestNumber).
		Str("approver_id", req.ApproverID).
		Msg("Request approved")

	return record, nil
}

// RejectRequestRequest represents a reject request call
type RejectRequestRequest struct {
	ID         string
	ApproverID string
	Comment    string
}

// RejectRequest rejects a submitted request. The rejection comment is
// mandatory. The request lands on the cancelled terminal status with its
// approval metadata set.
func (s *RequestService) RejectRequest(ctx context.Context, req *RejectRequestRequest) (*repository.Request, error) {
	if req.ApproverID == "" {
		return nil, apperrors.InvalidInput("approverId", "approver is required")
	}
	if strings.TrimSpace(req.Comment) == "" {
		return nil, apperrors.InvalidInput("comment", "rejection comment is required")
	}

	record, err := s.requestRepo.Reject(ctx, req.ID, req.ApproverID, req.Comment)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "request", record.ID, "Request rejected", req.ApproverID, strPtr(req.Comment))

	s.publisher.PublishFleetEvent(ctx, "request_rejected", "request", record.ID, req.ApproverID, map[string]interface{}{
		"request_number": record.RequestNumber,
		"comment":        req.Comment,
	})

	s.cacheRequest(ctx, record)

	s.log.Info().
		Str("request_id", record.ID).
		Str("request_number", record.RequestNumber).
		Str("approver_id", req.ApproverID).
		Msg("Request rejected")

	return record, nil
}

// CancelRequest cancels a request from draft, submitted or approved.
func (s *RequestService) CancelRequest(ctx context.Context, id, userID string) (*repository.Request, error) {
	record, err := s.requestRepo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activityRepo, s.log, "request", record.ID, "Request cancelled", userID, nil)

	s.publisher.PublishFleetEvent(ctx, "request_cancelled", "request", record.ID, userID, map[string]interface{}{
		"request_number": record.RequestNumber,
	})

	s.cacheRequest(ctx, record)

	s.log.Info().
		Str("request_id", record.ID).
		Str("request_number", record.RequestNumber).
		Str("user_id", userID).
		Msg("Request cancelled")

	return record, nil
}

func requestCacheKey(id string) string {
	return fmt.Sprintf("request:%s:current", id)
}

func (s *RequestService) cacheRequest(ctx context.Context, req *repository.Request) {
	b, err := json.Marshal(req)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, requestCacheKey(req.ID), b, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID).Msg("cache: request write failed (non-fatal)")
	}
}
