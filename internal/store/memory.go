package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is the embedded backend used for development and tests. It
// keeps documents in process and fans snapshots out to subscribers
// synchronously with each write.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	watchers    map[string][]*memorySubscription
	closed      bool
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]json.RawMessage),
		watchers:    make(map[string][]*memorySubscription),
	}
}

type memorySubscription struct {
	store      *MemoryStore
	collection string
	ch         chan Snapshot
	once       sync.Once
}

func (s *memorySubscription) Snapshots() <-chan Snapshot { return s.ch }

func (s *memorySubscription) Close() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	watchers := s.store.watchers[s.collection]
	for i, w := range watchers {
		if w == s {
			s.store.watchers[s.collection] = append(watchers[:i], watchers[i+1:]...)
			break
		}
	}
	s.once.Do(func() { close(s.ch) })
}

func (m *MemoryStore) Put(ctx context.Context, collection, key string, value any) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs(collection)[key] = doc
	m.notifyLocked(collection)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, key string, dest any) error {
	m.mu.Lock()
	doc, ok := m.docs(collection)[key]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(doc, dest)
}

func (m *MemoryStore) Merge(ctx context.Context, collection, key string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := map[string]json.RawMessage{}
	if doc, ok := m.docs(collection)[key]; ok {
		if err := json.Unmarshal(doc, &merged); err != nil {
			return fmt.Errorf("decode existing document: %w", err)
		}
	}
	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", name, err)
		}
		merged[name] = raw
	}
	doc, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	m.docs(collection)[key] = doc
	m.notifyLocked(collection)
	return nil
}

func (m *MemoryStore) Increment(ctx context.Context, collection, key string, deltas map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	counters := map[string]int64{}
	if doc, ok := m.docs(collection)[key]; ok {
		if err := json.Unmarshal(doc, &counters); err != nil {
			return fmt.Errorf("decode counter document: %w", err)
		}
	}
	for field, delta := range deltas {
		counters[field] += delta
	}
	doc, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	m.docs(collection)[key] = doc
	m.notifyLocked(collection)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs(collection), key)
	m.notifyLocked(collection)
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, collection string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("store closed")
	}
	sub := &memorySubscription{
		store:      m,
		collection: collection,
		ch:         make(chan Snapshot, 16),
	}
	m.watchers[collection] = append(m.watchers[collection], sub)
	sub.ch <- m.snapshotLocked(collection)
	return sub, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for collection, watchers := range m.watchers {
		for _, w := range watchers {
			w.once.Do(func() { close(w.ch) })
		}
		delete(m.watchers, collection)
	}
	return nil
}

func (m *MemoryStore) docs(collection string) map[string]json.RawMessage {
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		m.collections[collection] = docs
	}
	return docs
}

func (m *MemoryStore) snapshotLocked(collection string) Snapshot {
	return Snapshot(m.docs(collection)).Clone()
}

func (m *MemoryStore) notifyLocked(collection string) {
	watchers := m.watchers[collection]
	if len(watchers) == 0 {
		return
	}
	snap := m.snapshotLocked(collection)
	for _, w := range watchers {
		select {
		case w.ch <- snap.Clone():
		default:
			// Full buffer: coalesce by dropping the oldest pending push in
			// favor of this one. Every push is a full snapshot, so the last
			// delivered one always reflects the latest write.
			select {
			case <-w.ch:
			default:
			}
			select {
			case w.ch <- snap.Clone():
			default:
			}
		}
	}
}
