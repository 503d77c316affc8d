package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// NotificationPublisher publishes fleet transport lifecycle events to NATS
// for consumption by downstream notification services.
//
// Subject convention: notifications.fleet.<event_type>
//
// Event types: request_submitted, request_approved, request_rejected,
// request_cancelled, trip_scheduled, trip_started, trip_completed,
// gate_delay_recorded, penalty_confirmed, penalty_waived, claim_submitted,
// claim_approved, claim_reimbursed.
//
// All publish operations are non-fatal: errors are logged but never
// propagated to the caller, so notification failures never interrupt
// lifecycle operations.
type NotificationPublisher struct {
	nats *NATSClient
	log  zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	ActorID      string                 `json:"actor_id"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Severity     string                 `json:"severity,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS client.
// A nil client yields a publisher whose publish calls are no-ops.
func NewNotificationPublisher(nats *NATSClient, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nats: nats, log: log}
}

// PublishFleetEvent publishes a fleet lifecycle event to NATS.
// Subject: notifications.fleet.<eventType>
func (p *NotificationPublisher) PublishFleetEvent(ctx context.Context, eventType, resourceType, resourceID, actorID string, payload map[string]interface{}) {
	if p == nil || p.nats == nil {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Severity:     "info",
		Category:     "fleet_transport",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.fleet.%s", eventType)
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("resource_id", resourceID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("resource_id", resourceID).
		Msg("notification: event published")
}
