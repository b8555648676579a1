package store

import (
	"sync"
)

// TableUpdate is delivered to subscribers whenever a commit materialized
// mutations into the subscribed table. Rows holds the table's rows after
// the commit was applied, in the engine's deterministic order.
type TableUpdate struct {
	Table          string
	Rows           []map[string]any
	SequenceNumber uint
}

// Subscription delivers live TableUpdate(s) for one table.
//
// The updates channel has a buffer of one and delivery is latest-wins:
// when a subscriber is slow, a newer update replaces the buffered one
// instead of blocking the committing goroutine. Subscribers always
// observe the most recent table state, never a blocked store.
type Subscription struct {
	hub     *Hub
	table   string
	updates chan TableUpdate
	once    sync.Once
	err     error
}

// Updates returns the channel on which table updates are delivered.
// The channel is closed when the subscription or the owning store is closed.
func (s *Subscription) Updates() <-chan TableUpdate {
	return s.updates
}

// Table returns the name of the subscribed table.
func (s *Subscription) Table() string {
	return s.table
}

// Err reports why the subscription ended, or nil while it is active
// or after a plain Close.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	return s.err
}

// Close unsubscribes from the hub and closes the updates channel.
// It is safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub routes TableUpdate(s) from committing goroutines to table subscriptions.
// Publishing never blocks, a slow subscriber only loses intermediate updates.
type Hub struct {
	mu            sync.Mutex
	subscriptions map[string][]*Subscription
	closed        bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string][]*Subscription),
	}
}

// Subscribe registers a new subscription for the given table.
// Returns ErrStoreClosed once the hub was closed.
func (h *Hub) Subscribe(table string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrStoreClosed
	}

	subscription := &Subscription{
		hub:     h,
		table:   table,
		updates: make(chan TableUpdate, 1),
	}

	h.subscriptions[table] = append(h.subscriptions[table], subscription)

	return subscription, nil
}

// Publish delivers the update to all subscriptions of its table.
// A buffered but unconsumed older update is replaced by the newer one.
func (h *Hub) Publish(update TableUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, subscription := range h.subscriptions[update.Table] {
		h.send(subscription, update)
	}
}

// Deliver sends the update to a single subscription only, with the same
// latest-wins semantics as Publish. Engines use it to seed a fresh
// subscription with a snapshot without broadcasting to its siblings.
func (h *Hub) Deliver(s *Subscription, update TableUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	// The subscription may have been closed concurrently, sending would panic.
	for _, subscription := range h.subscriptions[s.table] {
		if subscription == s {
			h.send(s, update)
			return
		}
	}
}

// send performs the non-blocking latest-wins delivery. Callers must hold mu.
func (h *Hub) send(s *Subscription, update TableUpdate) {
	select {
	case s.updates <- update:
	default:
		// Subscriber is slow, drop the stale update and buffer the new one
		select {
		case <-s.updates:
		default:
		}

		select {
		case s.updates <- update:
		default:
		}
	}
}

// Close ends all subscriptions with ErrStoreClosed and rejects new ones.
// It is safe to call multiple times.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for _, subscriptions := range h.subscriptions {
		for _, subscription := range subscriptions {
			subscription.err = ErrStoreClosed
			close(subscription.updates)
		}
	}

	h.subscriptions = make(map[string][]*Subscription)
}

// unsubscribe removes the subscription from the hub and closes its channel.
func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	remaining := h.subscriptions[s.table][:0]
	for _, candidate := range h.subscriptions[s.table] {
		if candidate != s {
			remaining = append(remaining, candidate)
		}
	}

	if len(remaining) == 0 {
		delete(h.subscriptions, s.table)
	} else {
		h.subscriptions[s.table] = remaining
	}

	close(s.updates)
}
