package board

import (
	"strings"

	"github.com/spec-kit/notjira/internal/domain"
)

// StatusFilter selects one column or every ticket.
type StatusFilter string

// FilterAll matches tickets in any status.
const FilterAll StatusFilter = "all"

// Matches reports whether the ticket passes the status filter and the
// case-insensitive search query. An empty query matches everything; the query
// is checked against the title and, when present, the description.
func Matches(ticket *domain.Ticket, filter StatusFilter, query string) bool {
	if filter != FilterAll && ticket.Status != domain.TicketStatus(filter) {
		return false
	}
	if query == "" {
		return true
	}
	needle := strings.ToLower(query)
	if strings.Contains(strings.ToLower(ticket.Title), needle) {
		return true
	}
	return ticket.Description != "" && strings.Contains(strings.ToLower(ticket.Description), needle)
}

// FilterTickets returns the tickets passing the filter and query, preserving
// collection order. Pure.
func FilterTickets(tickets []domain.Ticket, filter StatusFilter, query string) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if Matches(&tickets[i], filter, query) {
			out = append(out, tickets[i])
		}
	}
	return out
}

// GroupTickets partitions tickets by status into one bucket per enumeration
// member, preserving order within each bucket. Buckets with zero matches are
// present but empty, so every column renders. Pure.
func GroupTickets(tickets []domain.Ticket) map[domain.TicketStatus][]domain.Ticket {
	grouped := make(map[domain.TicketStatus][]domain.Ticket, len(domain.Statuses()))
	for _, status := range domain.Statuses() {
		grouped[status] = []domain.Ticket{}
	}
	for i := range tickets {
		grouped[tickets[i].Status] = append(grouped[tickets[i].Status], tickets[i])
	}
	return grouped
}

// FilteredTickets derives the filtered view of the current collection.
func (m *Manager) FilteredTickets(filter StatusFilter, query string) []domain.Ticket {
	return FilterTickets(m.Tickets(), filter, query)
}

// GroupedTickets derives the per-column view of the filtered collection.
func (m *Manager) GroupedTickets(filter StatusFilter, query string) map[domain.TicketStatus][]domain.Ticket {
	return GroupTickets(m.FilteredTickets(filter, query))
}
