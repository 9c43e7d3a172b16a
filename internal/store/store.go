package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collections used by the board service.
const (
	CollectionTickets  = "tickets"
	CollectionStats    = "stats"
	CollectionUsers    = "users"
	CollectionProfiles = "profiles"
	CollectionAccounts = "accounts"
)

// ErrNotFound is returned by Get when no document exists at the given path.
var ErrNotFound = errors.New("document not found")

// Snapshot is the entire current contents of a collection, keyed by document
// key. Subscriptions always deliver full snapshots, never diffs.
type Snapshot map[string]json.RawMessage

// Subscription watches one collection for changes.
type Subscription interface {
	// Snapshots yields one initial snapshot and then one per change to the
	// collection. The channel closes when the subscription is closed.
	Snapshots() <-chan Snapshot
	// Close releases the watch. Safe to call more than once.
	Close()
}

// Store is a path-addressed document store. Paths have two segments:
// collection and key ("tickets/{id}", "stats/{uid}", ...). Documents are JSON
// objects; counter documents hold integer fields.
type Store interface {
	// Put fully replaces the document at collection/key.
	Put(ctx context.Context, collection, key string, value any) error
	// Get reads the document at collection/key into dest. Returns ErrNotFound
	// when absent.
	Get(ctx context.Context, collection, key string, dest any) error
	// Merge updates only the named top-level fields of the document, creating
	// it when absent.
	Merge(ctx context.Context, collection, key string, fields map[string]any) error
	// Increment atomically adds each delta to the named integer fields of the
	// document, creating missing fields at zero. The whole delta set applies
	// as a single unit.
	Increment(ctx context.Context, collection, key string, deltas map[string]int64) error
	// Delete removes the document at collection/key. Deleting an absent
	// document is not an error.
	Delete(ctx context.Context, collection, key string) error
	// Subscribe opens a snapshot watch on the collection.
	Subscribe(ctx context.Context, collection string) (Subscription, error)
	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// Clone returns a deep copy of the snapshot so consumers can hold it across
// later pushes.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for key, doc := range s {
		buf := make(json.RawMessage, len(doc))
		copy(buf, doc)
		out[key] = buf
	}
	return out
}
