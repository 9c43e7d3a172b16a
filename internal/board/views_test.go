package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/notjira/internal/domain"
)

func viewFixture() []domain.Ticket {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return []domain.Ticket{
		{ID: "TKT-1", Title: "Fix login redirect", Status: domain.StatusFuture, CreatedAt: base},
		{ID: "TKT-2", Title: "Upgrade CI runners", Description: "login nodes included", Status: domain.StatusWorking, CreatedAt: base.Add(time.Minute)},
		{ID: "TKT-3", Title: "Write release notes", Status: domain.StatusDone, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "TKT-4", Title: "Cancel legacy sync", Status: domain.StatusCanceled, CreatedAt: base.Add(3 * time.Minute)},
	}
}

func TestFilterTickets_StatusAndQuery(t *testing.T) {
	t.Parallel()

	tickets := viewFixture()

	all := FilterTickets(tickets, FilterAll, "")
	require.Len(t, all, len(tickets))

	working := FilterTickets(tickets, StatusFilter(domain.StatusWorking), "")
	require.Len(t, working, 1)
	require.Equal(t, "TKT-2", working[0].ID)

	// Query is case-insensitive and matches title or description.
	byQuery := FilterTickets(tickets, FilterAll, "LOGIN")
	require.Len(t, byQuery, 2)
	require.Equal(t, "TKT-1", byQuery[0].ID)
	require.Equal(t, "TKT-2", byQuery[1].ID)

	// Both dimensions combine with AND.
	both := FilterTickets(tickets, StatusFilter(domain.StatusFuture), "login")
	require.Len(t, both, 1)
	require.Equal(t, "TKT-1", both[0].ID)

	require.Empty(t, FilterTickets(tickets, StatusFilter(domain.StatusDone), "login"))
}

func TestFilterTickets_PreservesOrder(t *testing.T) {
	t.Parallel()

	tickets := viewFixture()
	filtered := FilterTickets(tickets, FilterAll, "")
	for i := 1; i < len(filtered); i++ {
		require.True(t, filtered[i-1].CreatedAt.Before(filtered[i].CreatedAt))
	}
}

func TestGroupTickets_EveryColumnPresent(t *testing.T) {
	t.Parallel()

	grouped := GroupTickets(viewFixture())
	require.Len(t, grouped, len(domain.Statuses()))
	for _, status := range domain.Statuses() {
		bucket, ok := grouped[status]
		require.True(t, ok, "missing column %s", status)
		require.NotNil(t, bucket)
	}

	// No fixture ticket is ever emailSent; its column still renders, empty.
	require.Empty(t, grouped[domain.StatusEmailSent])
	require.Len(t, grouped[domain.StatusFuture], 1)

	total := 0
	for _, bucket := range grouped {
		total += len(bucket)
	}
	require.Equal(t, len(viewFixture()), total)
}

func TestGroupTickets_UnionEqualsInput(t *testing.T) {
	t.Parallel()

	tickets := viewFixture()
	grouped := GroupTickets(FilterTickets(tickets, FilterAll, "login"))

	seen := map[string]bool{}
	for _, bucket := range grouped {
		for _, ticket := range bucket {
			require.False(t, seen[ticket.ID], "ticket %s in two buckets", ticket.ID)
			seen[ticket.ID] = true
		}
	}
	require.Len(t, seen, 2)
}
