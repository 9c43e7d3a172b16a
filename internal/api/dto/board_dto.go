package dto

import (
	"time"

	"github.com/spec-kit/notjira/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
}

// MoveTicketRequest carries a drop target column.
type MoveTicketRequest struct {
	Column string `json:"column"`
}

// UserRefResponse is the creator snapshot on a ticket.
type UserRefResponse struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// TicketResponse response.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   UserRefResponse       `json:"created_by"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ColumnResponse is one board column with its matching tickets.
type ColumnResponse struct {
	Status  domain.TicketStatus `json:"status"`
	Count   int                 `json:"count"`
	Tickets []TicketResponse    `json:"tickets"`
}
