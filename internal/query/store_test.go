package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nkamath/docstudio/internal/api"
)

func waitSnapshot(t *testing.T, sub *Subscription, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Updates():
			if !ok {
				t.Fatal("subscription closed while waiting for snapshot")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func isSuccess(snap Snapshot) bool { return snap.Status == StatusSuccess }
func isError(snap Snapshot) bool   { return snap.Status == StatusError }

// countingFetcher serializes calls and optionally blocks each one on a gate.
type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	gates   []chan struct{}
	results []any
	errs    []error
}

func (f *countingFetcher) fetch(ctx context.Context) (any, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	if idx < len(f.gates) && f.gates[idx] != nil {
		<-f.gates[idx]
	}
	var data any
	if idx < len(f.results) {
		data = f.results[idx]
	} else if len(f.results) > 0 {
		data = f.results[len(f.results)-1]
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	} else if len(f.errs) > 0 {
		err = f.errs[len(f.errs)-1]
	}
	return data, err
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestKeyOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		op     string
		params []string
		want   Key
	}{
		{"constant", "dashboard-stats", nil, "dashboard-stats"},
		{"with filter", "alerts", []string{"limit=5", "severity=high"}, "alerts?limit=5&severity=high"},
		{"filter omitted", "alerts", []string{"limit=5"}, "alerts?limit=5"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := KeyOf(tt.op, tt.params...); got != tt.want {
				t.Fatalf("KeyOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSharedKeyIssuesSingleFetch(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	fetcher := &countingFetcher{
		gates:   []chan struct{}{gate},
		results: []any{"payload"},
	}
	store := NewStore(0)

	first := store.Subscribe("stats", fetcher.fetch, 0)
	defer first.Close()
	second := store.Subscribe("stats", fetcher.fetch, 0)
	defer second.Close()

	close(gate)

	for _, sub := range []*Subscription{first, second} {
		snap := waitSnapshot(t, sub, isSuccess)
		if snap.Data != "payload" {
			t.Fatalf("snapshot data = %v, want payload", snap.Data)
		}
	}
	if got := fetcher.count(); got != 1 {
		t.Fatalf("network calls = %d, want 1 shared fetch", got)
	}
}

func TestInvalidateForcesRefetchBeforeInterval(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: []any{"v1", "v2"}}
	store := NewStore(0)

	sub := store.Subscribe("dashboard-stats", fetcher.fetch, time.Hour)
	defer sub.Close()
	waitSnapshot(t, sub, isSuccess)
	if got := fetcher.count(); got != 1 {
		t.Fatalf("calls before invalidation = %d, want 1", got)
	}

	store.Invalidate("dashboard-stats")
	snap := waitSnapshot(t, sub, func(s Snapshot) bool {
		return s.Status == StatusSuccess && s.Data == "v2"
	})
	if snap.Data != "v2" {
		t.Fatalf("snapshot data = %v, want v2", snap.Data)
	}
	if got := fetcher.count(); got != 2 {
		t.Fatalf("calls after invalidation = %d, want 2", got)
	}
}

func TestInvalidateWithoutConsumersDefersRefetch(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: []any{"v1", "v2"}}
	store := NewStore(0)

	sub := store.Subscribe("alerts?limit=5", fetcher.fetch, 0)
	waitSnapshot(t, sub, isSuccess)
	sub.Close()

	store.Invalidate("alerts?limit=5")
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.count(); got != 1 {
		t.Fatalf("detached invalidation issued a fetch: calls = %d", got)
	}

	again := store.Subscribe("alerts?limit=5", fetcher.fetch, 0)
	defer again.Close()
	snap := waitSnapshot(t, again, func(s Snapshot) bool {
		return s.Status == StatusSuccess && s.Data == "v2"
	})
	if snap.Data != "v2" {
		t.Fatalf("reattach served stale data: %v", snap.Data)
	}
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	t.Parallel()

	first := make(chan struct{})
	second := make(chan struct{})
	fetcher := &countingFetcher{
		gates:   []chan struct{}{first, second},
		results: []any{"old", "new"},
	}
	store := NewStore(0)

	sub := store.Subscribe("stats", fetcher.fetch, 0)
	defer sub.Close()

	// Supersede the in-flight request, then let the newer one finish first.
	store.Invalidate("stats")
	close(second)
	waitSnapshot(t, sub, func(s Snapshot) bool {
		return s.Status == StatusSuccess && s.Data == "new"
	})

	// The older response arrives late and must be discarded.
	close(first)
	time.Sleep(50 * time.Millisecond)

	late := store.Subscribe("stats", fetcher.fetch, 0)
	defer late.Close()
	snap := waitSnapshot(t, late, isSuccess)
	if snap.Data != "new" {
		t.Fatalf("stale response overwrote newer result: got %v", snap.Data)
	}
}

func TestFailingQueryRetriesExactlyOnce(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{
		errs: []error{&api.NetworkError{Err: errors.New("connection refused")}},
	}
	store := NewStore(0)

	sub := store.Subscribe("health", fetcher.fetch, 0)
	defer sub.Close()

	snap := waitSnapshot(t, sub, isError)
	var netErr *api.NetworkError
	if !errors.As(snap.Err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", snap.Err)
	}
	if got := fetcher.count(); got != 2 {
		t.Fatalf("attempts = %d, want initial call plus one retry", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := fetcher.count(); got != 2 {
		t.Fatalf("a third automatic attempt was issued: %d", got)
	}
}

func TestDecodeErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{
		errs: []error{&api.DecodeError{Err: errors.New("unexpected field type")}},
	}
	store := NewStore(0)

	sub := store.Subscribe("stats", fetcher.fetch, 0)
	defer sub.Close()

	waitSnapshot(t, sub, isError)
	if got := fetcher.count(); got != 1 {
		t.Fatalf("decode failure was retried: attempts = %d", got)
	}
}

func TestPollingRefreshesOnInterval(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: []any{1, 2, 3}}
	store := NewStore(0)

	sub := store.Subscribe("health", fetcher.fetch, 20*time.Millisecond)
	defer sub.Close()

	waitSnapshot(t, sub, func(s Snapshot) bool {
		return s.Status == StatusSuccess && s.Data == 3
	})
	if got := fetcher.count(); got < 3 {
		t.Fatalf("polling issued %d fetches, want at least 3", got)
	}
}

func TestStaleWhileRevalidateKeepsLastData(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	fetcher := &countingFetcher{
		gates:   []chan struct{}{nil, gate},
		results: []any{"v1", "v2"},
	}
	store := NewStore(0)

	sub := store.Subscribe("stats", fetcher.fetch, time.Hour)
	defer sub.Close()
	waitSnapshot(t, sub, isSuccess)

	store.Invalidate("stats")
	snap := waitSnapshot(t, sub, func(s Snapshot) bool { return s.Status == StatusLoading })
	if !snap.HasData || snap.Data != "v1" {
		t.Fatalf("loading snapshot dropped stale data: %#v", snap)
	}
	close(gate)
	waitSnapshot(t, sub, func(s Snapshot) bool {
		return s.Status == StatusSuccess && s.Data == "v2"
	})
}

func TestDetachStopsPolling(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: []any{"v1"}}
	store := NewStore(0)

	sub := store.Subscribe("alerts?limit=5", fetcher.fetch, 20*time.Millisecond)
	waitSnapshot(t, sub, isSuccess)
	sub.Close()

	baseline := fetcher.count()
	time.Sleep(150 * time.Millisecond)
	if got := fetcher.count(); got != baseline {
		t.Fatalf("polling continued after last detach: %d -> %d", baseline, got)
	}
}

func TestInflightResultDiscardedAfterLastDetach(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	fetcher := &countingFetcher{
		gates:   []chan struct{}{gate},
		results: []any{"orphaned", "fresh"},
	}
	store := NewStore(0)

	sub := store.Subscribe("stats", fetcher.fetch, 0)
	sub.Close()
	close(gate)
	time.Sleep(50 * time.Millisecond)

	again := store.Subscribe("stats", fetcher.fetch, 0)
	defer again.Close()
	snap := waitSnapshot(t, again, isSuccess)
	if snap.Data != "fresh" {
		t.Fatalf("orphaned in-flight result was cached: %v", snap.Data)
	}
	if got := fetcher.count(); got != 2 {
		t.Fatalf("reattach should refetch, calls = %d", got)
	}
}

func TestConcurrentSubscribersDistinctKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := KeyOf("alerts", fmt.Sprintf("limit=%d", i))
			sub := store.Subscribe(key, func(ctx context.Context) (any, error) {
				return i, nil
			}, 0)
			defer sub.Close()
			deadline := time.After(2 * time.Second)
			for {
				select {
				case snap, ok := <-sub.Updates():
					if !ok {
						t.Errorf("key %s: subscription closed early", key)
						return
					}
					if snap.Status != StatusSuccess {
						continue
					}
					if snap.Data != i {
						t.Errorf("key %s got %v, want %d", key, snap.Data, i)
					}
					return
				case <-deadline:
					t.Errorf("key %s: timed out", key)
					return
				}
			}
		}()
	}
	wg.Wait()
}
