package query

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMutationSuccessInvalidatesKeys(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: []any{"stale stats", "fresh stats"}}
	store := NewStore(0)

	sub := store.Subscribe("dashboard-stats", fetcher.fetch, time.Hour)
	defer sub.Close()
	waitSnapshot(t, sub, isSuccess)

	mutation := NewMutation(store, "dashboard-stats")
	if _, err := mutation.Do(context.Background(), func(ctx context.Context) (any, error) {
		return "parsed", nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	snap := waitSnapshot(t, sub, func(s Snapshot) bool {
		return s.Status == StatusSuccess && s.Data == "fresh stats"
	})
	if snap.Data != "fresh stats" {
		t.Fatalf("poller kept stale data after mutation: %v", snap.Data)
	}
	if got := fetcher.count(); got != 2 {
		t.Fatalf("stats fetches = %d, want refetch after mutation", got)
	}
	if state := mutation.State(); state.Status != MutationSuccess || state.Data != "parsed" {
		t.Fatalf("unexpected mutation state: %#v", state)
	}
}

func TestMutationErrorIsLocalAndNeverRetried(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: []any{"stats"}}
	store := NewStore(0)

	sub := store.Subscribe("dashboard-stats", fetcher.fetch, time.Hour)
	defer sub.Close()
	waitSnapshot(t, sub, isSuccess)

	mutation := NewMutation(store, "dashboard-stats")
	calls := 0
	wantErr := errors.New("upload rejected")
	_, err := mutation.Do(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Fatalf("mutation was retried: %d calls", calls)
	}
	if state := mutation.State(); state.Status != MutationError || !errors.Is(state.Err, wantErr) {
		t.Fatalf("unexpected mutation state: %#v", state)
	}

	time.Sleep(50 * time.Millisecond)
	if got := fetcher.count(); got != 1 {
		t.Fatalf("failed mutation invalidated the cache: %d fetches", got)
	}
}

func TestMutationNewInvocationClearsError(t *testing.T) {
	t.Parallel()

	mutation := NewMutation(nil)
	_, _ = mutation.Do(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("first failure")
	})
	if mutation.State().Status != MutationError {
		t.Fatal("expected error state after failed invocation")
	}

	var during MutationState
	_, err := mutation.Do(context.Background(), func(ctx context.Context) (any, error) {
		during = mutation.State()
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if during.Status != MutationPending || during.Err != nil {
		t.Fatalf("in-flight state = %#v, want pending with cleared error", during)
	}
	if state := mutation.State(); state.Status != MutationSuccess {
		t.Fatalf("final state = %#v", state)
	}
}

func TestMutationReset(t *testing.T) {
	t.Parallel()

	mutation := NewMutation(nil)
	if _, err := mutation.Do(context.Background(), func(ctx context.Context) (any, error) {
		return "done", nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	mutation.Reset()
	if state := mutation.State(); state.Status != MutationIdle || state.Data != nil || state.Err != nil {
		t.Fatalf("state after reset = %#v", state)
	}
}
