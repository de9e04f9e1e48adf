package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeList records every fetch it serves.
type fakeList struct {
	mu    sync.Mutex
	calls []ListParams
	items []map[string]any
	total int
	err   error
	block chan struct{} // when set, the fetch waits until closed
	done  chan struct{} // signalled after each call
}

func newFakeList(total int) *fakeList {
	return &fakeList{total: total, done: make(chan struct{}, 16)}
}

func (f *fakeList) fetch(ctx context.Context, p ListParams) (ListResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	items, total, err := f.items, f.total, f.err
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	select {
	case f.done <- struct{}{}:
	default:
	}
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

func (f *fakeList) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeList) lastCall() ListParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func intp(v int) *int { return &v }

func newTestList(t *testing.T, fetch FetchListFunc) *ListStore {
	t.Helper()
	reg := NewRegistry(context.Background())
	t.Cleanup(reg.Close)
	ls := reg.NewList("test.list", fetch)
	ls.setWindows(2*time.Millisecond, 5*time.Millisecond)
	return ls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestListFetchPopulatesResponse(t *testing.T) {
	f := newFakeList(45)
	f.items = []map[string]any{{"id": "1"}}
	ls := newTestList(t, f.fetch)

	require.NoError(t, ls.Fetch(context.Background()))
	assert.Len(t, ls.Response(), 1)
	pg := ls.Pagination()
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 45, pg.Total)
	assert.True(t, pg.HasNextPage)
}

func TestSetPaginationCoalescesIntoOneFetch(t *testing.T) {
	f := newFakeList(100)
	ls := newTestList(t, f.fetch)
	require.NoError(t, ls.Fetch(context.Background()))

	// Two immediate patches share exactly one re-fetch carrying both.
	ls.SetPagination(PaginationPatch{Limit: intp(20)})
	ls.SetPagination(PaginationPatch{Page: intp(2)})

	waitFor(t, func() bool { return f.callCount() == 2 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, f.callCount())

	last := f.lastCall()
	assert.Equal(t, 2, last.Page)
	assert.Equal(t, 20, last.Limit)
	assert.Equal(t, 2, ls.Pagination().Page)
}

func TestStaleFetchDiscarded(t *testing.T) {
	f := newFakeList(10)
	block := make(chan struct{})
	f.block = block
	ls := newTestList(t, f.fetch)

	// First fetch stalls; a second one started later wins the generation.
	go ls.Fetch(context.Background())
	waitFor(t, func() bool { return f.callCount() == 1 })

	f.mu.Lock()
	f.block = nil
	f.items = []map[string]any{{"id": "fresh"}}
	f.mu.Unlock()
	require.NoError(t, ls.Fetch(context.Background()))
	assert.Equal(t, "fresh", ls.Response()[0]["id"])

	// The stalled fetch resolves with the old (empty) payload; it must not
	// overwrite the newer response.
	f.mu.Lock()
	f.items = nil
	f.mu.Unlock()
	close(block)
	time.Sleep(20 * time.Millisecond)
	require.Len(t, ls.Response(), 1)
	assert.Equal(t, "fresh", ls.Response()[0]["id"])
}

func TestStaleWhileError(t *testing.T) {
	f := newFakeList(1)
	f.items = []map[string]any{{"id": "1"}}
	ls := newTestList(t, f.fetch)
	require.NoError(t, ls.Fetch(context.Background()))

	f.mu.Lock()
	f.err = errors.New("backend down")
	f.mu.Unlock()
	err := ls.Fetch(context.Background())
	require.Error(t, err)
	assert.Error(t, ls.Err())
	// The previous response survives the failure.
	assert.Len(t, ls.Response(), 1)

	// The next attempt clears the error.
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	require.NoError(t, ls.Fetch(context.Background()))
	assert.NoError(t, ls.Err())
}

func TestSetFilterDebounces(t *testing.T) {
	f := newFakeList(0)
	ls := newTestList(t, f.fetch)

	// Simulated keystrokes within the quiet period.
	ls.SetFilter("name", "a")
	ls.SetFilter("name", "ad")
	ls.SetFilter("name", "ada")

	waitFor(t, func() bool { return f.callCount() == 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, "ada", f.lastCall().Filter["name"])
	assert.Equal(t, 1, f.lastCall().Page)
}

func TestInvalidateForcesRefetchOnEnsure(t *testing.T) {
	f := newFakeList(0)
	ls := newTestList(t, f.fetch)

	require.NoError(t, ls.Ensure(context.Background()))
	require.NoError(t, ls.Ensure(context.Background()))
	assert.Equal(t, 1, f.callCount())

	ls.Invalidate()
	require.NoError(t, ls.Ensure(context.Background()))
	assert.Equal(t, 2, f.callCount())
}

func TestActionOrthogonalToLoading(t *testing.T) {
	f := newFakeList(0)
	block := make(chan struct{})
	f.block = block
	ls := newTestList(t, f.fetch)

	go ls.Fetch(context.Background())
	waitFor(t, func() bool { return f.callCount() == 1 })

	// Opening a delete dialog while the refresh is in flight is legal.
	ls.SetAction(ActionDelete, map[string]any{"id": "42"})
	assert.Equal(t, ActionDelete, ls.Action())
	close(block)
}

func TestListReset(t *testing.T) {
	f := newFakeList(3)
	f.items = []map[string]any{{"id": "1"}}
	ls := newTestList(t, f.fetch)
	require.NoError(t, ls.Fetch(context.Background()))
	ls.SetAction(ActionDelete, "1")

	ls.Reset()
	assert.Nil(t, ls.Response())
	assert.Equal(t, ActionNone, ls.Action())
	assert.Nil(t, ls.Payload())
	assert.Equal(t, 1, ls.Pagination().Page)
}

func TestSubscribeSeesChanges(t *testing.T) {
	f := newFakeList(0)
	ls := newTestList(t, f.fetch)
	ch, cancel := ls.Subscribe()
	defer cancel()

	require.NoError(t, ls.Fetch(context.Background()))

	var fields []string
	for len(fields) < 2 {
		select {
		case c := <-ch:
			fields = append(fields, c.Field)
		case <-time.After(time.Second):
			t.Fatal("no change received")
		}
	}
	assert.Equal(t, []string{"loading", "response"}, fields)
}

func TestSetExtraNotifiesExtraField(t *testing.T) {
	f := newFakeList(0)
	ls := newTestList(t, f.fetch)
	ch, cancel := ls.Subscribe()
	defer cancel()

	ls.SetExtra(map[string]any{"tab": "billing"})
	select {
	case c := <-ch:
		assert.Equal(t, "extra", c.Field)
	case <-time.After(time.Second):
		t.Fatal("no change received")
	}
	assert.Equal(t, map[string]any{"tab": "billing"}, ls.Extra())
}

func TestUnsubscribeDetaches(t *testing.T) {
	f := newFakeList(1)
	ls := newTestList(t, f.fetch)

	var cancels []func()
	for i := 0; i < 100; i++ {
		_, cancel := ls.Subscribe()
		cancels = append(cancels, cancel)
	}
	kept, keptCancel := ls.Subscribe()
	defer keptCancel()

	for _, cancel := range cancels {
		cancel()
	}
	ls.mu.Lock()
	remaining := len(ls.subs)
	ls.mu.Unlock()
	assert.Equal(t, 1, remaining)

	// Mutations after the detach reach only the surviving subscriber.
	require.NoError(t, ls.Fetch(context.Background()))
	select {
	case c := <-kept:
		assert.Equal(t, "loading", c.Field)
	case <-time.After(time.Second):
		t.Fatal("surviving subscriber received nothing")
	}
}

func TestUnsubscribeClosesChannelAndIsIdempotent(t *testing.T) {
	f := newFakeList(1)
	ls := newTestList(t, f.fetch)

	ch, cancel := ls.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}
