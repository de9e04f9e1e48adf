package store

import (
	"context"
	"time"
)

// Pagination is the list paging envelope. Page is 1-based.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	HasNextPage bool `json:"hasNextPage"`
}

// PaginationPatch is a partial pagination update; nil fields keep the
// current value.
type PaginationPatch struct {
	Page  *int
	Limit *int
}

// ListParams is what a list fetch receives.
type ListParams struct {
	Page   int
	Limit  int
	Filter map[string]string
}

// ListResult is what a list fetch resolves to.
type ListResult struct {
	Items []map[string]any
	Total int
}

// FetchListFunc is the injected fetch for list stores. It must return an
// error on any transport or server failure.
type FetchListFunc func(ctx context.Context, p ListParams) (ListResult, error)

const (
	defaultLimit = 20

	// coalesceWindow merges pagination patches issued in quick succession
	// into a single re-fetch.
	coalesceWindow = 10 * time.Millisecond

	// debounceWindow is the quiet period after a filter change before the
	// re-fetch fires, so typing does not issue one request per keystroke.
	debounceWindow = 300 * time.Millisecond
)

// ListStore owns a paginated collection of one resource.
type ListStore struct {
	base
	fetch FetchListFunc

	items   []map[string]any
	pg      Pagination
	filter  map[string]string
	fetched bool
	stale   bool

	coalesce      time.Duration
	debounce      time.Duration
	pending       *time.Timer
	filterPending *time.Timer
}

func newListStore(ctx context.Context, key string, fetch FetchListFunc) *ListStore {
	return &ListStore{
		base:     newBase(ctx, key),
		fetch:    fetch,
		pg:       Pagination{Page: 1, Limit: defaultLimit},
		filter:   make(map[string]string),
		coalesce: coalesceWindow,
		debounce: debounceWindow,
	}
}

// Response returns the last successfully fetched page. The slice is owned
// by the store; callers must treat it as read-only.
func (s *ListStore) Response() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// Pagination returns the current paging state.
func (s *ListStore) Pagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pg
}

// Fetch loads the current page synchronously. A failed fetch sets Err and
// keeps the previous response so the screen can keep showing the last good
// page.
func (s *ListStore) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	gen, params := s.beginLocked()
	s.mu.Unlock()
	s.notify("loading")

	res, err := s.fetch(ctx, params)
	s.commit(gen, res, err)
	return err
}

// beginLocked starts a new fetch generation and snapshots its parameters.
// A pending coalesced fetch is cancelled: the explicit fetch supersedes it.
func (s *ListStore) beginLocked() (uint64, ListParams) {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.gen++
	s.loading = true
	s.err = nil
	filter := make(map[string]string, len(s.filter))
	for k, v := range s.filter {
		filter[k] = v
	}
	return s.gen, ListParams{Page: s.pg.Page, Limit: s.pg.Limit, Filter: filter}
}

// commit installs a fetch result unless a newer fetch was initiated since.
func (s *ListStore) commit(gen uint64, res ListResult, err error) {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.notify("error")
		return
	}
	s.items = res.Items
	s.pg.Total = res.Total
	s.pg.HasNextPage = s.pg.Page*s.pg.Limit < res.Total
	s.fetched = true
	s.stale = false
	s.mu.Unlock()
	s.notify("response")
}

// SetPagination merges the patch into the current pagination and schedules
// a re-fetch. Patches issued within the coalesce window share one fetch, so
// changing limit and page back-to-back results in a single request carrying
// both values.
func (s *ListStore) SetPagination(p PaginationPatch) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if p.Page != nil {
		s.pg.Page = *p.Page
	}
	if p.Limit != nil {
		s.pg.Limit = *p.Limit
	}
	s.stale = true
	if s.pending == nil {
		s.pending = time.AfterFunc(s.coalesce, s.flushPending)
	}
	s.mu.Unlock()
	s.notify("pagination")
}

// SetFilter records one filter term and re-fetches after the debounce quiet
// period. Each change restarts the period. The page resets to 1 because a
// new filter invalidates the old offset.
func (s *ListStore) SetFilter(key, value string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if value == "" {
		delete(s.filter, key)
	} else {
		s.filter[key] = value
	}
	s.pg.Page = 1
	s.stale = true
	if s.filterPending != nil {
		s.filterPending.Stop()
	}
	s.filterPending = time.AfterFunc(s.debounce, s.flushFilter)
	s.mu.Unlock()
}

func (s *ListStore) flushPending() {
	s.mu.Lock()
	s.pending = nil
	s.refetchLocked()
}

func (s *ListStore) flushFilter() {
	s.mu.Lock()
	s.filterPending = nil
	s.refetchLocked()
}

// refetchLocked runs the fetch on the registry context. Called with the
// lock held; releases it.
func (s *ListStore) refetchLocked() {
	if s.closed {
		s.mu.Unlock()
		return
	}
	gen, params := s.beginLocked()
	ctx := s.ctx
	s.mu.Unlock()
	s.notify("loading")

	res, err := s.fetch(ctx, params)
	s.commit(gen, res, err)
}

// Invalidate marks the cached page stale, typically after a deletion, so
// the next Ensure re-fetches.
func (s *ListStore) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// Ensure fetches if the store has never fetched or was invalidated.
func (s *ListStore) Ensure(ctx context.Context) error {
	s.mu.Lock()
	fresh := s.fetched && !s.stale
	s.mu.Unlock()
	if fresh {
		return nil
	}
	return s.Fetch(ctx)
}

// Reset restores the store to its initial empty state without destroying
// it, so the same store can back repeated open/close cycles.
func (s *ListStore) Reset() {
	s.mu.Lock()
	s.resetBase()
	s.items = nil
	s.pg = Pagination{Page: 1, Limit: defaultLimit}
	s.filter = make(map[string]string)
	s.fetched = false
	s.stale = false
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.filterPending != nil {
		s.filterPending.Stop()
		s.filterPending = nil
	}
	s.mu.Unlock()
	s.notify("reset")
}

// setWindows overrides the coalesce and debounce windows; used by tests.
func (s *ListStore) setWindows(coalesce, debounce time.Duration) {
	s.mu.Lock()
	s.coalesce = coalesce
	s.debounce = debounce
	s.mu.Unlock()
}
