// Package query implements the client-side request/cache orchestration layer:
// cached reads addressed by operation+parameter keys, subscription-scoped
// polling, single-flight deduplication, bounded retry, and cross-key
// invalidation triggered by mutations.
package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nkamath/docstudio/internal/api"
)

const defaultFetchTimeout = 10 * time.Second

// Key addresses one cached query. Two subscriptions with the same key share
// one cached result and at most one in-flight request.
type Key string

// KeyOf derives a cache key from an operation name and its effective
// parameters. Omitted optional parameters must be left out entirely so that
// e.g. alerts with and without a severity filter cache separately.
func KeyOf(op string, params ...string) Key {
	if len(params) == 0 {
		return Key(op)
	}
	return Key(op + "?" + strings.Join(params, "&"))
}

// Fetcher performs the network read behind a query key.
type Fetcher func(ctx context.Context) (any, error)

// Status describes where a query key currently sits in its lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// Snapshot is the reactive state handed to subscribers. While a refetch is in
// flight the previous data remains populated (stale-while-revalidate).
type Snapshot struct {
	Key       Key
	Status    Status
	Data      any
	HasData   bool
	Err       error
	UpdatedAt time.Time
}

// Store is the process-wide query cache. All entries live in memory only and
// are lost when the process exits.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	timeout time.Duration
}

type entry struct {
	key      Key
	fetch    Fetcher
	interval time.Duration

	subs map[*Subscription]struct{}

	data      any
	hasData   bool
	err       error
	stale     bool
	updatedAt time.Time

	// issued/applied are issuance sequence numbers; a completed fetch is
	// discarded unless it is newer than the last applied one.
	issued   uint64
	applied  uint64
	inflight bool

	timer *time.Timer
}

// Subscription is one consumer's handle on a query key. Updates are delivered
// on a latest-wins channel; Close detaches the consumer and, when it was the
// last one, cancels the key's scheduled polling.
type Subscription struct {
	store   *Store
	key     Key
	updates chan Snapshot
	closed  bool
}

// NewStore builds an empty Store. A zero timeout selects the default bound
// applied to every fetch attempt.
func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Store{
		entries: make(map[Key]*entry),
		timeout: timeout,
	}
}

// Subscribe attaches a consumer to key. The fetcher and polling interval are
// bound to the key on first attach; an interval of zero disables polling.
// The current snapshot is delivered immediately, and a fetch is started when
// the cached value is missing, invalidated, or older than the interval.
func (s *Store) Subscribe(key Key, fetch Fetcher, interval time.Duration) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{
			key:   key,
			subs:  make(map[*Subscription]struct{}),
			stale: true,
		}
		s.entries[key] = e
	}
	e.fetch = fetch
	e.interval = interval

	sub := &Subscription{
		store:   s,
		key:     key,
		updates: make(chan Snapshot, 1),
	}
	e.subs[sub] = struct{}{}
	sub.push(s.snapshotLocked(e))

	switch {
	case e.inflight:
		// Piggyback on the request already in flight.
	case e.stale || !e.hasData:
		s.startFetchLocked(e)
	case interval > 0:
		remaining := interval - time.Since(e.updatedAt)
		if remaining <= 0 {
			s.startFetchLocked(e)
		} else {
			s.scheduleLocked(e, remaining)
		}
	}
	return sub
}

// Invalidate marks key's cached value stale. Active consumers trigger an
// immediate refetch; with no consumers attached the next Subscribe refetches
// instead of serving the stale value.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return
	}
	e.stale = true
	if len(e.subs) > 0 {
		s.startFetchLocked(e)
	}
}

// Updates exposes the subscription's snapshot stream. The channel is closed
// by Close.
func (sub *Subscription) Updates() <-chan Snapshot {
	return sub.updates
}

// Close detaches the consumer. An in-flight request is not aborted, but its
// result is discarded on arrival if nobody else holds the key.
func (sub *Subscription) Close() {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.updates)

	e, ok := sub.store.entries[sub.key]
	if !ok {
		return
	}
	delete(e.subs, sub)
	if len(e.subs) == 0 && e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (sub *Subscription) push(snap Snapshot) {
	if sub.closed {
		return
	}
	// Latest wins: drop the undelivered snapshot rather than block.
	select {
	case sub.updates <- snap:
	default:
		select {
		case <-sub.updates:
		default:
		}
		select {
		case sub.updates <- snap:
		default:
		}
	}
}

func (s *Store) snapshotLocked(e *entry) Snapshot {
	snap := Snapshot{
		Key:       e.key,
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
	}
	switch {
	case e.inflight:
		snap.Status = StatusLoading
	case e.err != nil:
		snap.Status = StatusError
	case e.hasData:
		snap.Status = StatusSuccess
	default:
		snap.Status = StatusIdle
	}
	return snap
}

func (s *Store) broadcastLocked(e *entry) {
	snap := s.snapshotLocked(e)
	for sub := range e.subs {
		sub.push(snap)
	}
}

func (s *Store) startFetchLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.issued++
	seq := e.issued
	e.inflight = true
	s.broadcastLocked(e)
	go s.runFetch(e.key, e.fetch, seq)
}

func (s *Store) scheduleLocked(e *entry, wait time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
	}
	key := e.key
	e.timer = time.AfterFunc(wait, func() { s.pollTick(key) })
}

func (s *Store) pollTick(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || len(e.subs) == 0 {
		return
	}
	if e.inflight {
		// Never stack a poll on top of a request still in flight; the next
		// one is scheduled when the current request settles.
		return
	}
	s.startFetchLocked(e)
}

func (s *Store) runFetch(key Key, fetch Fetcher, seq uint64) {
	data, err := s.attempt(fetch)
	if err != nil && retryable(err) {
		data, err = s.attempt(fetch)
	}
	s.apply(key, seq, data, err)
}

func (s *Store) attempt(fetch Fetcher) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return fetch(ctx)
}

// retryable reports whether the single automatic retry applies. Shape
// mismatches are integration bugs and will not heal on a second attempt.
func retryable(err error) bool {
	var decodeErr *api.DecodeError
	return !errors.As(err, &decodeErr)
}

func (s *Store) apply(key Key, seq uint64, data any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return
	}
	if seq <= e.applied {
		// A newer request already settled; this result is stale by issuance
		// order and must not overwrite it.
		return
	}
	e.applied = seq
	e.inflight = e.issued > seq

	if len(e.subs) == 0 {
		// Last consumer detached while the request was in flight; drop the
		// result so a later subscriber starts from a deliberate refetch.
		return
	}

	if err != nil {
		e.err = err
	} else {
		e.data = data
		e.hasData = true
		e.err = nil
		e.stale = false
	}
	e.updatedAt = time.Now()
	s.broadcastLocked(e)

	if !e.inflight && e.interval > 0 {
		s.scheduleLocked(e, e.interval)
	}
}
