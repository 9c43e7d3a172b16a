package events

import (
	"time"

	"github.com/spec-kit/notjira/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketMoved    EventType = "ticket_moved"
	EventTicketDeleted  EventType = "ticket_deleted"
	EventProfileUpdated EventType = "profile_updated"
)

// Event represents a board event emitted by the state manager.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	TicketID  string         `json:"ticket_id,omitempty"`
	Actor     domain.UserRef `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   interface{}    `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Status   domain.TicketStatus   `json:"status"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketMovedPayload payload.
type TicketMovedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Title  string              `json:"title"`
	Status domain.TicketStatus `json:"status"`
}

// ProfileUpdatedPayload payload.
type ProfileUpdatedPayload struct {
	UID string `json:"uid"`
}
