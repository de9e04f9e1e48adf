// Package render walks a derived field-node tree and a form store in
// lock-step, producing a framework-agnostic tree of renderable inputs whose
// shape mirrors the source contract. The output is plain data: a UI layer
// (or the HTTP surface) serializes it and decides how each kind is drawn.
package render

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/matthewbaird/adminkit/internal/schema"
	"github.com/matthewbaird/adminkit/internal/store"
)

// Node is one renderable input. Exactly one of the leaf fields, Children,
// or Items is populated, mirroring the FieldNode invariant.
type Node struct {
	Path     string          `json:"path"`
	Kind     string          `json:"kind"`
	Label    string          `json:"label"`
	Required bool            `json:"required"`
	Options  []schema.Option `json:"options,omitempty"`
	Value    any             `json:"value,omitempty"`
	Error    string          `json:"error,omitempty"`

	// Children holds the sub-nodes of a nested object.
	Children *NodeMap `json:"children,omitempty"`

	// Items holds one NodeMap per element of a nested array; elements can
	// be appended and removed through the form store's splice operations.
	Items []*NodeMap `json:"items,omitempty"`

	// Diagnostic replaces the input when the node exists only to surface a
	// developer-usage error inline.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// NodeMap preserves the field declaration order, like schema.FieldNodes.
type NodeMap struct {
	order []string
	nodes map[string]*Node
}

func newNodeMap() *NodeMap {
	return &NodeMap{nodes: make(map[string]*Node)}
}

func (m *NodeMap) add(name string, n *Node) {
	if _, exists := m.nodes[name]; !exists {
		m.order = append(m.order, name)
	}
	m.nodes[name] = n
}

// Get returns the node for name, or nil.
func (m *NodeMap) Get(name string) *Node {
	if m == nil {
		return nil
	}
	return m.nodes[name]
}

// Names returns node names in declaration order.
func (m *NodeMap) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of nodes.
func (m *NodeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// MarshalJSON emits an object with keys in declaration order.
func (m *NodeMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.nodes[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Engine renders field trees with memoization: a subtree whose FieldNode
// and bound value are unchanged since the previous render is reused, so
// interaction latency stays bounded as forms grow.
type Engine struct {
	memo map[memoKey]*Node
}

// NewEngine creates an engine with an empty memo.
func NewEngine() *Engine {
	return &Engine{memo: make(map[memoKey]*Node)}
}

type memoKey struct {
	node *schema.FieldNode
	path string
	val  any // scalar value, or identity pointer for maps and slices
	err  string
}

// keyValue makes an arbitrary bound value usable as a map key: comparable
// values key by value, maps and slices by backing-array identity.
func keyValue(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		if rv.IsNil() {
			return nil
		}
		return rv.Pointer()
	case reflect.Invalid:
		return nil
	}
	if !rv.Comparable() {
		return rv.Kind().String()
	}
	return v
}

// Render produces the renderable tree for the form's contract, binding
// current values and validation errors. Keys of the result always equal the
// contract's derived field names.
func (e *Engine) Render(f *store.FormStore) *NodeMap {
	return e.renderFields(f.Contract().Fields, f.Values(), f.Errors(), "")
}

// RenderFields renders an explicit field map against a value map; used when
// no form store is involved (read-only detail views).
func (e *Engine) RenderFields(fields *schema.FieldNodes, values map[string]any) *NodeMap {
	return e.renderFields(fields, values, nil, "")
}

func (e *Engine) renderFields(fields *schema.FieldNodes, values map[string]any, errs map[string]string, prefix string) *NodeMap {
	out := newNodeMap()
	fields.Walk(func(fn *schema.FieldNode) {
		path := fn.Name
		if prefix != "" {
			path = prefix + "." + fn.Name
		}
		var value any
		if values != nil {
			value = values[fn.Name]
		}
		if n := e.renderNode(fn, path, value, errs); n != nil {
			out.add(fn.Name, n)
		}
	})
	return out
}

// renderNode dispatches on kind. Leaves are memoized; container nodes are
// rebuilt each pass because their children's errors can change without the
// container's own value identity changing, but they reuse their leaves.
func (e *Engine) renderNode(fn *schema.FieldNode, path string, value any, errs map[string]string) *Node {
	switch fn.Kind {
	case schema.KindNested:
		return e.renderNested(fn, path, value, errs)
	case schema.KindNestedArray:
		return e.renderNestedArray(fn, path, value, errs)
	}

	key := memoKey{node: fn, path: path, val: keyValue(value), err: errs[path]}
	if cached, ok := e.memo[key]; ok {
		return cached
	}
	n := renderLeaf(fn, path, value, errs)
	if n != nil {
		e.memo[key] = n
	}
	return n
}

// leafRenderers is the exhaustive kind dispatch table. A kind missing here
// renders nothing, which keeps old renderers forward-compatible with newer
// schemas.
var leafRenderers = map[schema.Kind]bool{
	schema.KindText:        true,
	schema.KindTextarea:    true,
	schema.KindNumber:      true,
	schema.KindSelect:      true,
	schema.KindMultiSelect: true,
	schema.KindSwitch:      true,
	schema.KindCheckbox:    true,
	schema.KindRadio:       true,
	schema.KindDate:        true,
	schema.KindDateRange:   true,
	schema.KindFile:        true,
	schema.KindMultiFile:   true,
	schema.KindColor:       true,
	schema.KindTags:        true,
	schema.KindCustom:      true,
}

func renderLeaf(fn *schema.FieldNode, path string, value any, errs map[string]string) *Node {
	if !leafRenderers[fn.Kind] {
		return nil
	}
	return &Node{
		Path:     path,
		Kind:     fn.Kind.String(),
		Label:    label(fn),
		Required: fn.Required,
		Options:  fn.Options,
		Value:    value,
		Error:    errs[path],
	}
}

func (e *Engine) renderNested(fn *schema.FieldNode, path string, value any, errs map[string]string) *Node {
	sub, _ := value.(map[string]any)
	return &Node{
		Path:     path,
		Kind:     fn.Kind.String(),
		Label:    label(fn),
		Required: fn.Required,
		Error:    errs[path],
		Children: e.renderFields(fn.SubFields, sub, errs, path),
	}
}

func (e *Engine) renderNestedArray(fn *schema.FieldNode, path string, value any, errs map[string]string) *Node {
	n := &Node{
		Path:     path,
		Kind:     fn.Kind.String(),
		Label:    label(fn),
		Required: fn.Required,
		Error:    errs[path],
		Items:    []*NodeMap{},
	}
	elems, _ := value.([]any)
	for i, elem := range elems {
		sub, _ := elem.(map[string]any)
		n.Items = append(n.Items, e.renderFields(fn.SubFields, sub, errs, joinIndex(path, i)))
	}
	return n
}

// Diagnostic builds an inline error node for developer-usage mistakes such
// as referencing an unregistered store key: one broken screen must not take
// the process down.
func Diagnostic(path, message string) *Node {
	return &Node{Path: path, Kind: "diagnostic", Diagnostic: message}
}

func label(fn *schema.FieldNode) string {
	if fn.Label != "" {
		return fn.Label
	}
	return schema.Labelize(fn.Name)
}

func joinIndex(path string, i int) string {
	return path + "." + strconv.Itoa(i)
}
