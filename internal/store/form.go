package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/matthewbaird/adminkit/internal/schema"
	"github.com/matthewbaird/adminkit/internal/validate"
)

// MutateFunc is the injected mutate for form stores. Resolution is the
// server response; rejection becomes the submission error.
type MutateFunc func(ctx context.Context, values map[string]any) (map[string]any, error)

// InitialFunc supplies the form's initial values, typically wrapping a list
// or single store's response.
type InitialFunc func() map[string]any

// ErrValidation is returned by Submit when the resolver found rule
// failures; the per-field messages are available via Errors.
var ErrValidation = errors.New("store: validation failed")

// FormStore owns the edit state and submission lifecycle for one contract.
//
// Submit deliberately does not reset the store or close anything on
// success: teardown belongs to the caller, so multi-step flows can keep the
// dialog open and failed submissions keep the last attempted values
// visible.
type FormStore struct {
	base
	contract *schema.Contract
	initial  InitialFunc
	mutate   MutateFunc

	values     map[string]any
	fieldErrs  map[string]string
	submitting bool
	submitErr  error
	onSuccess  func(response map[string]any)
}

func newFormStore(ctx context.Context, key string, contract *schema.Contract, initial InitialFunc, mutate MutateFunc) *FormStore {
	return &FormStore{
		base:     newBase(ctx, key),
		contract: contract,
		initial:  initial,
		mutate:   mutate,
	}
}

// Contract returns the contract this form edits.
func (s *FormStore) Contract() *schema.Contract { return s.contract }

// OnSuccess registers the callback that receives the server response after
// a successful submit.
func (s *FormStore) OnSuccess(fn func(response map[string]any)) {
	s.mu.Lock()
	s.onSuccess = fn
	s.mu.Unlock()
}

// Values returns the current edit values, seeding from the initial source
// on first access.
func (s *FormStore) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked()
	return s.values
}

func (s *FormStore) seedLocked() {
	if s.values != nil {
		return
	}
	s.values = make(map[string]any)
	if s.initial == nil {
		return
	}
	for k, v := range s.initial() {
		s.values[k] = v
	}
}

// IsEditing reports whether the initial values carry an identity.
func (s *FormStore) IsEditing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked()
	id, _ := s.values["id"].(string)
	return id != ""
}

// Errors returns the current validation error map, keyed by flattened
// field path.
func (s *FormStore) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrs
}

// Submitting reports whether a mutate call is in flight.
func (s *FormStore) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// SubmitErr returns the last transport-level submission error.
func (s *FormStore) SubmitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitErr
}

// SetValue writes one edit value at a dotted path, creating intermediate
// objects as needed. Numeric segments index into nested arrays.
func (s *FormStore) SetValue(path string, value any) {
	s.mu.Lock()
	s.seedLocked()
	setPath(s.values, strings.Split(path, "."), value)
	s.mu.Unlock()
	s.notify("response")
}

// SpliceAdd appends an empty element to the nested array at path.
func (s *FormStore) SpliceAdd(path string) {
	s.mu.Lock()
	s.seedLocked()
	arr, _ := getPath(s.values, strings.Split(path, ".")).([]any)
	setPath(s.values, strings.Split(path, "."), append(arr, map[string]any{}))
	s.mu.Unlock()
	s.notify("response")
}

// SpliceRemove removes the element at index from the nested array at path;
// subsequent elements re-index.
func (s *FormStore) SpliceRemove(path string, index int) {
	s.mu.Lock()
	s.seedLocked()
	arr, ok := getPath(s.values, strings.Split(path, ".")).([]any)
	if !ok || index < 0 || index >= len(arr) {
		s.mu.Unlock()
		return
	}
	arr = append(arr[:index:index], arr[index+1:]...)
	setPath(s.values, strings.Split(path, "."), arr)
	s.mu.Unlock()
	s.notify("response")
}

// Submit validates values against the contract and, only when no rule
// fails, invokes the injected mutate. On validation failure the errors are
// stored and ErrValidation returned; the attempted values stay visible so
// the user can correct them. On mutate failure the form likewise keeps its
// values and records the error. On success the server response is handed to
// the OnSuccess callback and the store is left as-is: closing and resetting
// are the caller's contract.
func (s *FormStore) Submit(ctx context.Context, values map[string]any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if values == nil {
		s.seedLocked()
		values = s.values
	} else {
		s.values = values
	}

	result := validate.Resolve(s.contract, values)
	if !result.OK() {
		s.fieldErrs = result.Errors
		s.mu.Unlock()
		s.notify("errors")
		return ErrValidation
	}
	s.fieldErrs = nil
	s.submitting = true
	s.submitErr = nil
	s.gen++
	gen := s.gen
	onSuccess := s.onSuccess
	s.mu.Unlock()
	s.notify("submit")

	response, err := s.mutate(ctx, result.Values)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		// The store was reset while the call was in flight; the result is
		// ignored rather than resurrecting stale state.
		s.mu.Unlock()
		return err
	}
	s.submitting = false
	if err != nil {
		s.submitErr = err
		s.mu.Unlock()
		s.notify("error")
		return err
	}
	s.mu.Unlock()
	s.notify("response")
	if onSuccess != nil {
		onSuccess(response)
	}
	return nil
}

// Reset clears edit state, validation errors, and the action dimension.
func (s *FormStore) Reset() {
	s.mu.Lock()
	s.resetBase()
	s.values = nil
	s.fieldErrs = nil
	s.submitting = false
	s.submitErr = nil
	s.mu.Unlock()
	s.notify("reset")
}

// ── dotted-path helpers ──────────────────────────────────────────────────────

func setPath(root map[string]any, segments []string, value any) {
	if len(segments) == 1 {
		root[segments[0]] = value
		return
	}
	head, rest := segments[0], segments[1:]
	if idx, err := strconv.Atoi(rest[0]); err == nil {
		arr, _ := root[head].([]any)
		for len(arr) <= idx {
			arr = append(arr, map[string]any{})
		}
		root[head] = arr
		if len(rest) == 1 {
			arr[idx] = value
			return
		}
		child, ok := arr[idx].(map[string]any)
		if !ok {
			child = map[string]any{}
			arr[idx] = child
		}
		setPath(child, rest[1:], value)
		return
	}
	child, ok := root[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		root[head] = child
	}
	setPath(child, rest, value)
}

func getPath(root map[string]any, segments []string) any {
	var cur any = root
	for _, seg := range segments {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	return cur
}
