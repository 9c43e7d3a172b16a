package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func nextSnapshot(t *testing.T, sub Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot arrived")
		return nil
	}
}

func TestMemoryStore_PutGetDelete(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	defer m.Close() //nolint:errcheck
	ctx := context.Background()

	type doc struct {
		Title string `json:"title"`
	}
	require.NoError(t, m.Put(ctx, "tickets", "TKT-1", doc{Title: "a"}))

	var got doc
	require.NoError(t, m.Get(ctx, "tickets", "TKT-1", &got))
	require.Equal(t, "a", got.Title)

	require.ErrorIs(t, m.Get(ctx, "tickets", "TKT-2", &got), ErrNotFound)

	require.NoError(t, m.Delete(ctx, "tickets", "TKT-1"))
	require.ErrorIs(t, m.Get(ctx, "tickets", "TKT-1", &got), ErrNotFound)

	// Deleting an absent document is not an error.
	require.NoError(t, m.Delete(ctx, "tickets", "TKT-1"))
}

func TestMemoryStore_MergeTouchesOnlyNamedFields(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	defer m.Close() //nolint:errcheck
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "tickets", "TKT-1", map[string]any{
		"title":  "a",
		"status": "future",
	}))
	require.NoError(t, m.Merge(ctx, "tickets", "TKT-1", map[string]any{
		"status": "done",
	}))

	var got map[string]string
	require.NoError(t, m.Get(ctx, "tickets", "TKT-1", &got))
	require.Equal(t, "a", got["title"])
	require.Equal(t, "done", got["status"])

	// Merge creates the document when absent.
	require.NoError(t, m.Merge(ctx, "tickets", "TKT-2", map[string]any{"title": "b"}))
	require.NoError(t, m.Get(ctx, "tickets", "TKT-2", &got))
	require.Equal(t, "b", got["title"])
}

func TestMemoryStore_IncrementAppliesDeltasAsOneUnit(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	defer m.Close() //nolint:errcheck
	ctx := context.Background()

	// Missing fields start at zero.
	require.NoError(t, m.Increment(ctx, "stats", "user-1", map[string]int64{"future": 1}))
	require.NoError(t, m.Increment(ctx, "stats", "user-1", map[string]int64{
		"future": -1,
		"done":   1,
	}))

	var got map[string]int64
	require.NoError(t, m.Get(ctx, "stats", "user-1", &got))
	require.Equal(t, int64(0), got["future"])
	require.Equal(t, int64(1), got["done"])
}

func TestMemoryStore_SubscribeDeliversFullSnapshots(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	defer m.Close() //nolint:errcheck
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "tickets", "TKT-1", map[string]any{"title": "a"}))

	sub, err := m.Subscribe(ctx, "tickets")
	require.NoError(t, err)
	defer sub.Close()

	initial := nextSnapshot(t, sub)
	require.Len(t, initial, 1)
	require.Contains(t, initial, "TKT-1")

	require.NoError(t, m.Put(ctx, "tickets", "TKT-2", map[string]any{"title": "b"}))
	second := nextSnapshot(t, sub)
	require.Len(t, second, 2)

	require.NoError(t, m.Delete(ctx, "tickets", "TKT-1"))
	third := nextSnapshot(t, sub)
	require.Len(t, third, 1)
	require.Contains(t, third, "TKT-2")
}

func TestMemoryStore_SubscriptionsAreScopedToCollection(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	defer m.Close() //nolint:errcheck
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "tickets")
	require.NoError(t, err)
	defer sub.Close()
	nextSnapshot(t, sub)

	require.NoError(t, m.Put(ctx, "stats", "user-1", map[string]int64{"done": 1}))

	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("unexpected push for unrelated collection: %v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStore_LaggingSubscriberStillSeesLatestWrite(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	defer m.Close() //nolint:errcheck
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "tickets")
	require.NoError(t, err)
	defer sub.Close()
	nextSnapshot(t, sub)

	// Overrun the subscription buffer without reading; the final write must
	// still be waiting at the end of the queue.
	const writes = 40
	for i := 0; i < writes; i++ {
		key := fmt.Sprintf("TKT-%02d", i)
		require.NoError(t, m.Put(ctx, "tickets", key, map[string]any{"title": key}))
	}

	var last Snapshot
	for {
		select {
		case snap := <-sub.Snapshots():
			last = snap
			continue
		default:
		}
		break
	}
	require.Len(t, last, writes)
	require.Contains(t, last, fmt.Sprintf("TKT-%02d", writes-1))
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	sub, err := m.Subscribe(context.Background(), "tickets")
	require.NoError(t, err)
	nextSnapshot(t, sub)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	sub.Close()
	sub.Close()

	_, ok := <-sub.Snapshots()
	require.False(t, ok)

	_, err = m.Subscribe(context.Background(), "tickets")
	require.Error(t, err)
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	t.Parallel()

	original := Snapshot{"k": json.RawMessage(`{"a":1}`)}
	clone := original.Clone()
	clone["k"][2] = 'x'
	require.Equal(t, json.RawMessage(`{"a":1}`), original["k"])
}
