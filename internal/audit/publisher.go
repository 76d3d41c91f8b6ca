package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing keys for audit events.
const (
	EventAppointmentCreated     = "appointment.created"
	EventAppointmentAccepted    = "appointment.accepted"
	EventAppointmentRejected    = "appointment.rejected"
	EventAppointmentCheckedIn   = "appointment.checked_in"
	EventAppointmentAttended    = "appointment.attended"
	EventAppointmentReferred    = "appointment.referred"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentCompleted   = "appointment.completed"
	EventAppointmentNoShow      = "appointment.no_show"
	EventRequestSubmitted       = "request.submitted"
	EventRequestResolved        = "request.resolved"
	EventRequestWithdrawn       = "request.withdrawn"
)

// Event is the envelope delivered to the audit collaborator.
type Event struct {
	EventType   string         `json:"event_type"`
	EventID     string         `json:"event_id"`
	Timestamp   time.Time      `json:"timestamp"`
	ServiceName string         `json:"service_name"`
	ActorID     string         `json:"actor_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// NewEvent builds an envelope for the given routing key.
func NewEvent(eventType string, actorID *uuid.UUID, data map[string]any) Event {
	ev := Event{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: "appointment-service",
		Data:        data,
	}
	if actorID != nil {
		ev.ActorID = actorID.String()
	}
	return ev
}

// Publisher delivers audit events. Callers never await the outcome for
// correctness; implementations report errors only so they can be logged.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event Event) error
	Close() error
}

// NopPublisher drops every event. Used in tests and when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, routingKey string, event Event) error { return nil }
func (NopPublisher) Close() error                                                      { return nil }
