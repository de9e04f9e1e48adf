// Package backend provides fetch/mutate implementations for the store
// family. The framework itself is storage-agnostic; these adapters exist so
// screens and tests have something real to inject.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/matthewbaird/adminkit/internal/store"
)

// ErrNotFound is returned when an entity id does not exist.
var ErrNotFound = errors.New("backend: not found")

// Memory keeps entities in an in-memory slice. Intended for demos and
// testing — no database required.
type Memory struct {
	mu      sync.RWMutex
	records []map[string]any
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

// List returns one page of entities, applying substring filters before
// pagination. Insertion order is preserved.
func (m *Memory) List(_ context.Context, p store.ListParams) (store.ListResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []map[string]any
	for _, rec := range m.records {
		if matchesFilter(rec, p.Filter) {
			matched = append(matched, rec)
		}
	}
	total := len(matched)
	start, end := pageBounds(p.Page, p.Limit, total)
	return store.ListResult{Items: matched[start:end], Total: total}, nil
}

// Get returns the entity with the given id.
func (m *Memory) Get(_ context.Context, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec["id"] == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save creates the entity when values carry no id, and updates it
// otherwise. The stored record is returned with its id set.
func (m *Memory) Save(_ context.Context, values map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := make(map[string]any, len(values))
	for k, v := range values {
		rec[k] = v
	}
	id, _ := rec["id"].(string)
	if id == "" {
		rec["id"] = uuid.NewString()
		m.records = append(m.records, rec)
		return rec, nil
	}
	for i, existing := range m.records {
		if existing["id"] == id {
			m.records[i] = rec
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the entity with the given id.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.records {
		if rec["id"] == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// matchesFilter reports whether every filter term is a case-insensitive
// substring of the record's corresponding string field.
func matchesFilter(rec map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		have, _ := rec[key].(string)
		if !strings.Contains(strings.ToLower(have), strings.ToLower(want)) {
			return false
		}
	}
	return true
}

func pageBounds(page, limit, total int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}
