// Package action maps a store's current action tag to the component that
// renders the corresponding overlay. Screens declare their legal actions as
// a registry of entries; the dispatcher consults it and renders at most one
// component at a time.
package action

import (
	"fmt"
	"log"

	"github.com/matthewbaird/adminkit/internal/render"
	"github.com/matthewbaird/adminkit/internal/store"
)

// Component renders the overlay for one action. It receives the store and
// its key and owns its own lifecycle, typically returning the store's
// action to none on completion.
type Component interface {
	Render(st store.Store, storeKey string) *render.Node
}

// ComponentFunc adapts a plain function to Component.
type ComponentFunc func(st store.Store, storeKey string) *render.Node

// Render implements Component.
func (f ComponentFunc) Render(st store.Store, storeKey string) *render.Node {
	return f(st, storeKey)
}

// Entry binds one action name to its component.
type Entry struct {
	Action    store.Action
	Component Component
}

// Registry is the per-screen lookup table from action name to component.
// When two entries declare the same action the first registration wins and
// later ones are logged and ignored.
type Registry struct {
	order   []store.Action
	entries map[store.Action]Component
}

// NewRegistry builds a registry from entries in declaration order.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make(map[store.Action]Component, len(entries))}
	for _, e := range entries {
		r.Register(e)
	}
	return r
}

// Register adds one entry; a duplicate action name is ignored with a
// diagnostic.
func (r *Registry) Register(e Entry) {
	if _, exists := r.entries[e.Action]; exists {
		log.Printf("action: duplicate registration for %q ignored (first wins)", e.Action)
		return
	}
	r.order = append(r.order, e.Action)
	r.entries[e.Action] = e.Component
}

// Component returns the component for an action name.
func (r *Registry) Component(a store.Action) (Component, bool) {
	c, ok := r.entries[a]
	return c, ok
}

// Actions returns the registered action names in declaration order.
func (r *Registry) Actions() []store.Action {
	out := make([]store.Action, len(r.order))
	copy(out, r.order)
	return out
}

// Dispatch renders the overlay for the store's current action, or nil when
// the action is none or no entry matches. Several dispatchers may share one
// store; because action is a single field, at most one of them renders.
func Dispatch(r *Registry, st store.Store) *render.Node {
	a := st.Action()
	if a == store.ActionNone {
		return nil
	}
	c, ok := r.Component(a)
	if !ok {
		return nil
	}
	return c.Render(st, st.Key())
}

// DispatchKey looks the store up by key first. An unregistered key renders
// an inline diagnostic node instead of crashing the screen.
func DispatchKey(r *Registry, stores *store.Registry, key string) *render.Node {
	st, err := stores.Lookup(key)
	if err != nil {
		return render.Diagnostic(key, fmt.Sprintf("no store registered for key %q", key))
	}
	return Dispatch(r, st)
}
