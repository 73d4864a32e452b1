package query

import (
	"context"
	"sync"
)

// MutationStatus tracks one mutation handle through its lifecycle:
// idle -> pending -> success|error, resettable per invocation.
type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

// MutationState is a point-in-time view of a mutation handle.
type MutationState struct {
	Status MutationStatus
	Data   any
	Err    error
}

// MutationFunc performs the side-effecting call behind a mutation.
type MutationFunc func(ctx context.Context) (any, error)

// Mutation is a one-shot write handle. Invocations are never cached, never
// deduplicated, and never retried; each Do performs exactly one call.
// A successful invocation invalidates the configured query keys.
type Mutation struct {
	store       *Store
	invalidates []Key

	mu         sync.Mutex
	invocation uint64
	state      MutationState
}

// NewMutation builds a mutation handle. The keys listed in invalidates are
// invalidated on every successful invocation; this is how a document parse
// forces the dashboard-stats pollers off their stale snapshot.
func NewMutation(store *Store, invalidates ...Key) *Mutation {
	return &Mutation{store: store, invalidates: invalidates}
}

// Do runs fn once and records the outcome. Starting a new invocation clears
// the previous error. A result that arrives after a newer invocation has
// begun is returned to its caller but does not overwrite the handle state.
func (m *Mutation) Do(ctx context.Context, fn MutationFunc) (any, error) {
	m.mu.Lock()
	m.invocation++
	invocation := m.invocation
	m.state = MutationState{Status: MutationPending}
	m.mu.Unlock()

	data, err := fn(ctx)

	m.mu.Lock()
	if m.invocation == invocation {
		if err != nil {
			m.state = MutationState{Status: MutationError, Err: err}
		} else {
			m.state = MutationState{Status: MutationSuccess, Data: data}
		}
	}
	m.mu.Unlock()

	if err == nil && m.store != nil {
		for _, key := range m.invalidates {
			m.store.Invalidate(key)
		}
	}
	return data, err
}

// State reports the handle's current state.
func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the handle to idle, clearing any recorded result or error.
func (m *Mutation) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocation++
	m.state = MutationState{}
}
