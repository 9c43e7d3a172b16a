package board

import (
	"context"

	"github.com/spec-kit/notjira/internal/domain"
)

// ResolveDrop maps a drop onto a column identifier to a status-change intent.
// Dropping outside any droppable column, onto an unknown column, or onto the
// ticket's own column resolves to no intent. Pure.
func ResolveDrop(current domain.TicketStatus, column string) (domain.TicketStatus, bool) {
	if column == "" {
		return "", false
	}
	target, ok := domain.ParseStatus(column)
	if !ok || target == current {
		return "", false
	}
	return target, true
}

// HandleDrop resolves a drag-and-drop drop event and applies the resulting
// status change, if any.
func (m *Manager) HandleDrop(ctx context.Context, ticketID, column string) error {
	ticket, ok := m.Ticket(ticketID)
	if !ok {
		return nil
	}
	target, ok := ResolveDrop(ticket.Status, column)
	if !ok {
		return nil
	}
	return m.ChangeStatus(ctx, ticketID, target)
}
