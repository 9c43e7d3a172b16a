package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTicketStatus_IsValid(t *testing.T) {
	t.Parallel()

	for _, status := range Statuses() {
		require.True(t, status.IsValid(), "status %s", status)
	}
	require.False(t, TicketStatus("").IsValid())
	require.False(t, TicketStatus("archived").IsValid())
	require.False(t, TicketStatus("Done").IsValid(), "statuses are case-sensitive")
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	status, ok := ParseStatus("emailSent")
	require.True(t, ok)
	require.Equal(t, StatusEmailSent, status)

	_, ok = ParseStatus("emailsent")
	require.False(t, ok)
}

func TestStatuses_OrderIsStable(t *testing.T) {
	t.Parallel()

	require.Equal(t, []TicketStatus{
		StatusFuture, StatusWorking, StatusDone, StatusCanceled, StatusEmailSent,
	}, Statuses())
}

func TestTicketPriority_IsValid(t *testing.T) {
	t.Parallel()

	for _, priority := range []TicketPriority{PriorityLow, PriorityMedium, PriorityHigh} {
		require.True(t, priority.IsValid())
	}
	require.False(t, TicketPriority("urgent").IsValid())
}

func TestStats_Total(t *testing.T) {
	t.Parallel()

	stats := Stats{StatusFuture: 2, StatusDone: 3, StatusCanceled: 0}
	require.Equal(t, int64(5), stats.Total())
	require.Equal(t, int64(0), Stats{}.Total())
}
