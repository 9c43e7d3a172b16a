package board

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/notjira/internal/domain"
	"github.com/spec-kit/notjira/internal/events"
	"github.com/spec-kit/notjira/internal/identity"
	"github.com/spec-kit/notjira/internal/store"
	apperrors "github.com/spec-kit/notjira/pkg/util"
)

// MutationState tracks the optimistic-write lifecycle of a ticket.
type MutationState string

const (
	StateClean      MutationState = "clean"
	StatePending    MutationState = "pending-write"
	StateRolledBack MutationState = "rolled-back"
)

// Clock supplies timestamps; swapped out in tests.
type Clock func() time.Time

// Dependencies bundles collaborators for the board manager.
type Dependencies struct {
	Store      store.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Session    *identity.Identity
	// WriteTimeout bounds each remote store round trip. The observed design
	// left requests unbounded; a timeout fails the pending operation and
	// triggers the same rollback as a rejected write.
	WriteTimeout time.Duration
	Clock        Clock
}

// Manager owns the in-memory ticket collection. It holds one subscription
// against the tickets collection and replaces its state wholesale on every
// snapshot push; optimistic local edits live only until the next push or a
// rollback, whichever comes first.
type Manager struct {
	store        store.Store
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	clock        Clock
	writeTimeout time.Duration

	mu      sync.Mutex
	session *identity.Identity
	tickets []domain.Ticket
	index   map[string]int
	states  map[string]MutationState
	sub     store.Subscription
	applied chan struct{}
}

// NewManager constructs the manager. Start must be called before use.
func NewManager(deps Dependencies) *Manager {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	timeout := deps.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		store:        deps.Store,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		clock:        clock,
		writeTimeout: timeout,
		session:      deps.Session,
		index:        map[string]int{},
		states:       map[string]MutationState{},
	}
}

// Start opens the tickets subscription and begins applying snapshot pushes.
func (m *Manager) Start(ctx context.Context) error {
	sub, err := m.store.Subscribe(ctx, store.CollectionTickets)
	if err != nil {
		return apperrors.NewStoreWriteError("subscribe tickets", err)
	}
	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()

	go func() {
		for snap := range sub.Snapshots() {
			m.applySnapshot(sub, snap)
		}
	}()
	return nil
}

// Close tears down the subscription; no further pushes are processed.
func (m *Manager) Close() {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// SessionChanged re-initializes the manager for a new session identity. A nil
// identity tears the subscription down; anything else reopens it.
func (m *Manager) SessionChanged(ctx context.Context, id *identity.Identity) error {
	m.Close()
	m.mu.Lock()
	m.session = id
	m.tickets = nil
	m.index = map[string]int{}
	m.states = map[string]MutationState{}
	m.mu.Unlock()
	if id == nil {
		return nil
	}
	return m.Start(ctx)
}

// applySnapshot replaces the whole in-memory collection with the push
// contents. The push is the authority: optimistic edits and rollback marks
// are discarded. Pushes are only honored while src is still the current
// subscription; after a restart the old apply goroutine can still drain
// snapshots buffered before Close, and those predate the new subscription's
// state. A nil src applies unconditionally.
func (m *Manager) applySnapshot(src store.Subscription, snap store.Snapshot) {
	tickets := make([]domain.Ticket, 0, len(snap))
	for key, raw := range snap {
		var ticket domain.Ticket
		if err := json.Unmarshal(raw, &ticket); err != nil {
			m.logger.Warn("dropping undecodable ticket", zap.String("id", key), zap.Error(err))
			continue
		}
		if !ticket.Status.IsValid() {
			m.logger.Warn("dropping ticket with unknown status",
				zap.String("id", key), zap.String("status", string(ticket.Status)))
			continue
		}
		ticket.ID = key
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})

	m.mu.Lock()
	if src != nil && m.sub != src {
		m.mu.Unlock()
		return
	}
	m.tickets = tickets
	m.index = make(map[string]int, len(tickets))
	for i := range tickets {
		m.index[tickets[i].ID] = i
	}
	m.states = map[string]MutationState{}
	applied := m.applied
	m.applied = nil
	m.mu.Unlock()

	if applied != nil {
		close(applied)
	}
}

// CreateTicketInput is the composition form payload.
type CreateTicketInput struct {
	Title       string
	Description string
	Status      domain.TicketStatus
	Priority    domain.TicketPriority
}

// CreateTicket validates the input, writes the ticket under a fresh key and
// increments the author's counter for the chosen status. The two writes are
// sequential, not transactional: when the ticket lands but the counter write
// fails, the ticket is kept and the divergence is reported, never hidden.
func (m *Manager) CreateTicket(ctx context.Context, input CreateTicketInput, author domain.UserRef) (*domain.Ticket, error) {
	if author.UID == "" {
		if ref, ok := m.sessionRef(); ok {
			author = ref
		} else {
			return nil, apperrors.NewUnauthorized("author required")
		}
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	status := input.Status
	if status == "" {
		status = domain.StatusFuture
	}
	if !status.IsValid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(status)})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}

	now := m.clock()
	ticket := &domain.Ticket{
		ID:          newTicketKey(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    priority,
		CreatedBy:   author,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	writeCtx, cancel := m.opCtx(ctx)
	defer cancel()
	if err := m.store.Put(writeCtx, store.CollectionTickets, ticket.ID, ticket); err != nil {
		return nil, apperrors.NewStoreWriteError("ticket create", err)
	}

	m.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    author,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Status:   ticket.Status,
			Priority: ticket.Priority,
		},
	})

	if err := m.store.Increment(writeCtx, store.CollectionStats, author.UID, map[string]int64{
		string(status): 1,
	}); err != nil {
		m.logger.Error("stats increment failed after ticket create",
			zap.String("ticket", ticket.ID), zap.String("uid", author.UID), zap.Error(err))
		return ticket, apperrors.NewStatsDriftError("ticket create", err)
	}

	return ticket, nil
}

// ChangeStatus moves a ticket to a new column. The local copy is updated
// optimistically and reverted unconditionally on any store failure; the two
// counter deltas ride one atomic increment so a move cannot half-apply.
func (m *Manager) ChangeStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus) error {
	if !newStatus.IsValid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": string(newStatus)})
	}

	m.mu.Lock()
	i, ok := m.index[ticketID]
	if !ok {
		m.mu.Unlock()
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if m.tickets[i].Status == newStatus {
		m.mu.Unlock()
		return nil
	}
	oldStatus := m.tickets[i].Status
	creatorUID := m.tickets[i].CreatedBy.UID
	now := m.clock()
	m.tickets[i].Status = newStatus
	m.tickets[i].UpdatedAt = now
	m.states[ticketID] = StatePending
	m.mu.Unlock()

	writeCtx, cancel := m.opCtx(ctx)
	defer cancel()

	if err := m.store.Merge(writeCtx, store.CollectionTickets, ticketID, map[string]any{
		"status":    newStatus,
		"updatedAt": now,
	}); err != nil {
		m.revertStatus(ticketID, oldStatus)
		return apperrors.NewStoreWriteError("ticket status update", err)
	}

	if err := m.store.Increment(writeCtx, store.CollectionStats, creatorUID, map[string]int64{
		string(oldStatus): -1,
		string(newStatus): 1,
	}); err != nil {
		// The ticket write landed but the counters did not. Revert the local
		// copy and compensate the ticket write so stats and ticket state
		// agree again; if even that fails, report the drift.
		m.revertStatus(ticketID, oldStatus)
		if cerr := m.store.Merge(writeCtx, store.CollectionTickets, ticketID, map[string]any{
			"status":    oldStatus,
			"updatedAt": m.clock(),
		}); cerr != nil {
			m.logger.Error("compensating status write failed",
				zap.String("ticket", ticketID), zap.Error(cerr))
			return apperrors.NewStatsDriftError("status change", err)
		}
		return apperrors.NewStoreWriteError("stats update", err)
	}

	m.mu.Lock()
	if m.states[ticketID] == StatePending {
		m.states[ticketID] = StateClean
	}
	m.mu.Unlock()

	m.publish(ctx, events.Event{
		Type:     events.EventTicketMoved,
		TicketID: ticketID,
		Actor:    m.actor(creatorUID),
		Payload: events.TicketMovedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return nil
}

// DeleteTicket decrements the creator's counter and removes the ticket
// record, in that order. The local list is not pruned; removal arrives with
// the next snapshot push.
func (m *Manager) DeleteTicket(ctx context.Context, ticketID string) error {
	m.mu.Lock()
	i, ok := m.index[ticketID]
	if !ok {
		m.mu.Unlock()
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	status := m.tickets[i].Status
	creatorUID := m.tickets[i].CreatedBy.UID
	title := m.tickets[i].Title
	m.mu.Unlock()

	writeCtx, cancel := m.opCtx(ctx)
	defer cancel()

	if err := m.store.Increment(writeCtx, store.CollectionStats, creatorUID, map[string]int64{
		string(status): -1,
	}); err != nil {
		return apperrors.NewStoreWriteError("stats decrement", err)
	}

	if err := m.store.Delete(writeCtx, store.CollectionTickets, ticketID); err != nil {
		// The counter already dropped. Try to put it back; surface the drift
		// when the compensation fails too.
		if cerr := m.store.Increment(writeCtx, store.CollectionStats, creatorUID, map[string]int64{
			string(status): 1,
		}); cerr != nil {
			m.logger.Error("compensating increment failed after delete failure",
				zap.String("ticket", ticketID), zap.Error(cerr))
			return apperrors.NewStatsDriftError("ticket delete", err)
		}
		return apperrors.NewStoreWriteError("ticket delete", err)
	}

	m.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    m.actor(creatorUID),
		Payload: events.TicketDeletedPayload{
			Title:  title,
			Status: status,
		},
	})
	return nil
}

// Tickets returns a copy of the current collection in collection order.
func (m *Manager) Tickets() []domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Ticket(nil), m.tickets...)
}

// Ticket returns the ticket with the given id, if known to the manager.
func (m *Manager) Ticket(id string) (domain.Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.index[id]; ok {
		return m.tickets[i], true
	}
	return domain.Ticket{}, false
}

// TicketState reports the mutation state of a ticket.
func (m *Manager) TicketState(id string) MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[id]; ok {
		return state
	}
	return StateClean
}

// WaitForApply blocks until the next snapshot push has been applied. Used by
// callers that need to observe a write they just made.
func (m *Manager) WaitForApply(ctx context.Context) error {
	m.mu.Lock()
	if m.applied == nil {
		m.applied = make(chan struct{})
	}
	applied := m.applied
	m.mu.Unlock()

	select {
	case <-applied:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) revertStatus(ticketID string, oldStatus domain.TicketStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.index[ticketID]; ok {
		m.tickets[i].Status = oldStatus
	}
	m.states[ticketID] = StateRolledBack
}

func (m *Manager) sessionRef() (domain.UserRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.UserRef{}, false
	}
	return m.session.Ref(), true
}

func (m *Manager) actor(uid string) domain.UserRef {
	if ref, ok := m.sessionRef(); ok {
		return ref
	}
	return domain.UserRef{UID: uid}
}

func (m *Manager) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.writeTimeout)
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.clock()
	}
	_ = m.dispatcher.Publish(ctx, event)
}

func newTicketKey() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
