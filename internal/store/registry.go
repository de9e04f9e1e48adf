package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/matthewbaird/adminkit/internal/schema"
)

// ErrUnknownKey is returned when a store key was never registered. Callers
// render it as an inline diagnostic instead of failing the whole screen.
var ErrUnknownKey = errors.New("store: unknown key")

// Registry owns every store of one screen root. It is passed down
// explicitly rather than living in process-global state, and Close tears
// down all stores with it so repeated mounts do not leak.
type Registry struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	stores map[string]Store
}

// NewRegistry creates a registry whose scheduled fetches run on a context
// derived from ctx.
func NewRegistry(ctx context.Context) *Registry {
	ctx, cancel := context.WithCancel(ctx)
	return &Registry{ctx: ctx, cancel: cancel, stores: make(map[string]Store)}
}

// NewList returns the list store registered under key, creating it on first
// use. Re-registering an existing key returns the existing store so a
// remounted screen reuses its state.
func (r *Registry) NewList(key string, fetch FetchListFunc) *ListStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.stores[key]; ok {
		if ls, ok := existing.(*ListStore); ok {
			return ls
		}
		log.Printf("store: key %q re-registered with a different variant, replacing", key)
	}
	ls := newListStore(r.ctx, key, fetch)
	r.stores[key] = ls
	return ls
}

// NewSingle returns the single store registered under key, creating it on
// first use.
func (r *Registry) NewSingle(key string, fetch FetchOneFunc) *SingleStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.stores[key]; ok {
		if ss, ok := existing.(*SingleStore); ok {
			return ss
		}
		log.Printf("store: key %q re-registered with a different variant, replacing", key)
	}
	ss := newSingleStore(r.ctx, key, fetch)
	r.stores[key] = ss
	return ss
}

// NewForm returns the form store registered under key, creating it on first
// use.
func (r *Registry) NewForm(key string, contract *schema.Contract, initial InitialFunc, mutate MutateFunc) *FormStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.stores[key]; ok {
		if fs, ok := existing.(*FormStore); ok {
			return fs
		}
		log.Printf("store: key %q re-registered with a different variant, replacing", key)
	}
	fs := newFormStore(r.ctx, key, contract, initial, mutate)
	r.stores[key] = fs
	return fs
}

// Lookup returns the store registered under key.
func (r *Registry) Lookup(key string) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return st, nil
}

// List returns the list store under key, or an error if the key is unknown
// or backed by another variant.
func (r *Registry) List(key string) (*ListStore, error) {
	st, err := r.Lookup(key)
	if err != nil {
		return nil, err
	}
	ls, ok := st.(*ListStore)
	if !ok {
		return nil, fmt.Errorf("store: key %q is not a list store", key)
	}
	return ls, nil
}

// Single returns the single store under key.
func (r *Registry) Single(key string) (*SingleStore, error) {
	st, err := r.Lookup(key)
	if err != nil {
		return nil, err
	}
	ss, ok := st.(*SingleStore)
	if !ok {
		return nil, fmt.Errorf("store: key %q is not a single store", key)
	}
	return ss, nil
}

// Form returns the form store under key.
func (r *Registry) Form(key string) (*FormStore, error) {
	st, err := r.Lookup(key)
	if err != nil {
		return nil, err
	}
	fs, ok := st.(*FormStore)
	if !ok {
		return nil, fmt.Errorf("store: key %q is not a form store", key)
	}
	return fs, nil
}

// Keys returns the registered store keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close cancels the registry context and closes every store's subscriber
// channels. The registry must not be used afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]Store)
	r.mu.Unlock()
	r.cancel()
	for _, st := range stores {
		st.close()
	}
}
