// Package store implements the resource handler stores: the reactive state
// containers that own a resource's list/single/form lifecycle. Stores are
// created through a Registry whose lifetime is tied to a screen root, and
// publish Change records to subscribers the way the rest of the system
// consumes domain events.
//
// All fetches are fenced with a per-store generation counter: a resolving
// fetch commits its result only if it is still the newest one initiated, so
// a stale response can never overwrite newer state.
package store

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Action names the currently active secondary workflow of a store. Exactly
// one action is active at a time; ActionNone means no overlay is visible.
type Action string

const (
	ActionNone           Action = "none"
	ActionCreateOrUpdate Action = "createOrUpdate"
	ActionDelete         Action = "delete"
)

// Change describes one observable store mutation.
type Change struct {
	Key   string `json:"key"`
	Field string `json:"field"` // "loading", "response", "pagination", "action", "extra", "error", "errors", "submit", "reset"
}

// Store is the behaviour shared by all three variants.
type Store interface {
	Key() string
	Action() Action
	Payload() any
	Extra() any
	SetAction(a Action, payload any)
	SetExtra(extra any)
	Reset()
	Loading() bool
	Err() error
	Subscribe() (<-chan Change, func())

	close()
}

// ErrClosed is returned by fetches issued after the owning registry closed.
var ErrClosed = errors.New("store: closed")

const subscriberBuffer = 16

// base carries the state-machine fields common to every variant. The
// loading/error pair and the action tag are orthogonal dimensions: an action
// can open while a background fetch is still in flight.
type base struct {
	mu      sync.Mutex
	key     string
	ctx     context.Context
	action  Action
	payload any
	extra   any
	loading bool
	err     error
	gen     uint64
	subs    []chan Change
	closed  bool
}

func newBase(ctx context.Context, key string) base {
	return base{key: key, ctx: ctx, action: ActionNone}
}

func (b *base) Key() string { return b.key }

func (b *base) Action() Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.action
}

func (b *base) Payload() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.payload
}

func (b *base) Extra() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extra
}

// SetAction switches the active workflow and its scoped payload. Setting
// ActionNone clears the payload.
func (b *base) SetAction(a Action, payload any) {
	b.mu.Lock()
	b.action = a
	b.payload = payload
	if a == ActionNone {
		b.payload = nil
	}
	b.mu.Unlock()
	b.notify("action")
}

// SetExtra stores caller-injected context read by whichever component the
// dispatcher currently mounts.
func (b *base) SetExtra(extra any) {
	b.mu.Lock()
	b.extra = extra
	b.mu.Unlock()
	b.notify("extra")
}

func (b *base) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Subscribe registers a change listener. Sends are non-blocking: a slow
// subscriber misses changes rather than stalling store mutations. The
// returned cancel func detaches the listener and closes its channel; callers
// whose lifetime is shorter than the registry's must call it, or the dead
// channel stays on the notify path until Close.
func (b *base) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Change, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs = append(b.subs, ch)
	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(ch) })
	}
	return ch, cancel
}

// unsubscribe removes one listener and closes its channel. After close the
// subscriber list is gone and every channel already closed, so there is
// nothing left to do.
func (b *base) unsubscribe(ch chan Change) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	for i, c := range b.subs {
		if c == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	close(ch)
	b.mu.Unlock()
}

// notify sends one change to every subscriber. The lock is held across the
// sends so a concurrent unsubscribe cannot close a channel mid-loop; the
// sends never block, so holding it is cheap.
func (b *base) notify(field string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	c := Change{Key: b.key, Field: field}
	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
			log.Printf("store: %s: subscriber full, dropping %s change", b.key, field)
		}
	}
}

// resetBase restores the action dimension and bumps the generation so any
// in-flight fetch or submit result is discarded on arrival.
func (b *base) resetBase() {
	b.action = ActionNone
	b.payload = nil
	b.extra = nil
	b.loading = false
	b.err = nil
	b.gen++
}

func (b *base) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.gen++
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
