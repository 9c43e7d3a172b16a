package domain

import "time"

// TicketStatus enumerates the board columns a ticket can occupy.
type TicketStatus string

const (
	StatusFuture    TicketStatus = "future"
	StatusWorking   TicketStatus = "working"
	StatusDone      TicketStatus = "done"
	StatusCanceled  TicketStatus = "canceled"
	StatusEmailSent TicketStatus = "emailSent"
)

// Statuses returns every status in board column order.
func Statuses() []TicketStatus {
	return []TicketStatus{StatusFuture, StatusWorking, StatusDone, StatusCanceled, StatusEmailSent}
}

// IsValid reports whether the status is a member of the fixed enumeration.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusFuture, StatusWorking, StatusDone, StatusCanceled, StatusEmailSent:
		return true
	}
	return false
}

// ParseStatus resolves a column identifier to a status.
func ParseStatus(raw string) (TicketStatus, bool) {
	status := TicketStatus(raw)
	return status, status.IsValid()
}

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// IsValid reports whether the priority is a known member.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Ticket is the board aggregate.
type Ticket struct {
	ID          string         `json:"-"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      TicketStatus   `json:"status"`
	Priority    TicketPriority `json:"priority"`
	CreatedBy   UserRef        `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
