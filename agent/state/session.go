package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrNilTurnFunc         = errors.New("turn func is nil")
)

// DefaultIdleTTL is how long an untouched conversation survives before the
// janitor evicts it.
const DefaultIdleTTL = 30 * time.Minute

// Conversation is the per-id dialogue state owned by the Manager.
type Conversation struct {
	ID    string
	Slots *Memory

	// ActiveIntent is the intent still being pursued, empty once a flow ends.
	ActiveIntent string

	CreatedAt  time.Time
	LastActive time.Time
}

type entry struct {
	conv *Conversation
	// sem is a one-slot semaphore so waiting for the lock can honour ctx.
	sem  chan struct{}
	refs int
}

// Manager owns every live conversation. Turns for the same id are serialized;
// turns for different ids run in parallel.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	idleTTL time.Duration
	now     func() time.Time
}

type ManagerOption func(*Manager)

func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.idleTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		entries: make(map[string]*entry),
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Do runs fn with exclusive access to the conversation id, creating it on
// first reference. The conversation cannot be evicted while fn runs.
func (m *Manager) Do(ctx context.Context, conversationID string, fn func(*Conversation) error) error {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return ErrInvalidConversation
	}
	if fn == nil {
		return ErrNilTurnFunc
	}

	e := m.acquire(id)
	defer m.release(e)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.sem }()

	return fn(e.conv)
}

func (m *Manager) acquire(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		now := m.now().UTC()
		e = &entry{
			conv: &Conversation{
				ID:         id,
				Slots:      NewMemory(),
				CreatedAt:  now,
				LastActive: now,
			},
			sem: make(chan struct{}, 1),
		}
		m.entries[id] = e
	}
	e.refs++
	return e
}

func (m *Manager) release(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	e.conv.LastActive = m.now().UTC()
}

// Snapshot returns the slot snapshot of a conversation without creating it.
func (m *Manager) Snapshot(ctx context.Context, conversationID string) (map[string]any, bool, error) {
	m.mu.Lock()
	_, ok := m.entries[strings.TrimSpace(conversationID)]
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	var snap map[string]any
	err := m.Do(ctx, conversationID, func(c *Conversation) error {
		snap = c.Slots.Snapshot()
		return nil
	})
	return snap, err == nil, err
}

// EvictIdle drops conversations idle for longer than the TTL that no turn is
// currently using. It returns the number removed.
func (m *Manager) EvictIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().UTC().Add(-m.idleTTL)
	removed := 0
	for id, e := range m.entries {
		if e.refs > 0 {
			continue
		}
		if e.conv.LastActive.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// End removes a conversation immediately if no turn is using it.
func (m *Manager) End(conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := strings.TrimSpace(conversationID)
	e, ok := m.entries[id]
	if !ok || e.refs > 0 {
		return false
	}
	delete(m.entries, id)
	return true
}

type Stats struct {
	Total  int
	Active int
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{Total: len(m.entries)}
	for _, e := range m.entries {
		if e.refs > 0 {
			st.Active++
		}
	}
	return st
}
