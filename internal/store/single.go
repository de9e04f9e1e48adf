package store

import "context"

// FetchOneFunc is the injected fetch for single stores.
type FetchOneFunc func(ctx context.Context, id string) (map[string]any, error)

// SingleStore owns one entity, typically addressed by an id taken from the
// action payload or route state.
type SingleStore struct {
	base
	fetch  FetchOneFunc
	record map[string]any
}

func newSingleStore(ctx context.Context, key string, fetch FetchOneFunc) *SingleStore {
	return &SingleStore{base: newBase(ctx, key), fetch: fetch}
}

// Response returns the fetched entity, or nil before the first successful
// fetch and after Reset.
func (s *SingleStore) Response() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// IsEditing reports whether the response carries an identity, making the
// active workflow an update rather than a create.
func (s *SingleStore) IsEditing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return false
	}
	id, _ := s.record["id"].(string)
	return id != ""
}

// Fetch loads the entity. A failure sets Err and keeps the previous
// response.
func (s *SingleStore) Fetch(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	gen := s.gen
	s.loading = true
	s.err = nil
	s.mu.Unlock()
	s.notify("loading")

	record, err := s.fetch(ctx, id)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return err
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.notify("error")
		return err
	}
	s.record = record
	s.mu.Unlock()
	s.notify("response")
	return nil
}

// Reset clears the response and returns the action to none.
func (s *SingleStore) Reset() {
	s.mu.Lock()
	s.resetBase()
	s.record = nil
	s.mu.Unlock()
	s.notify("reset")
}
