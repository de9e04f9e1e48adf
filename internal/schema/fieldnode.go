package schema

import (
	"bytes"
	"encoding/json"
)

// Option is one entry of an enumerated field's option list.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldNode describes how one contract property is edited. A node either
// carries a leaf editor (Kind plus Options/Rules) or a sub-contract
// (SubFields), never both.
type FieldNode struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Required bool     `json:"required"`
	Label    string   `json:"label,omitempty"`
	Options  []Option `json:"options,omitempty"`

	// Rules is a validator tag expression for the scalar rule engine,
	// e.g. "min=3,max=120". Required is tracked separately.
	Rules string `json:"rules,omitempty"`

	// SubFields is present only for nested and nestedArray kinds. For
	// nested it is the object's full field map; for nestedArray it is the
	// template applied to every element.
	SubFields *FieldNodes `json:"subFields,omitempty"`
}

// FieldNodes is a name-keyed map of FieldNodes that preserves insertion
// order. Order is significant: it is the default rendering layout.
type FieldNodes struct {
	order []string
	nodes map[string]*FieldNode
}

// NewFieldNodes creates an empty ordered node map.
func NewFieldNodes() *FieldNodes {
	return &FieldNodes{nodes: make(map[string]*FieldNode)}
}

// Add inserts a node, replacing in place if the name already exists.
func (f *FieldNodes) Add(n *FieldNode) {
	if _, exists := f.nodes[n.Name]; !exists {
		f.order = append(f.order, n.Name)
	}
	f.nodes[n.Name] = n
}

// Get returns the node for name, or nil.
func (f *FieldNodes) Get(name string) *FieldNode {
	if f == nil {
		return nil
	}
	return f.nodes[name]
}

// Names returns the field names in insertion order.
func (f *FieldNodes) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Len returns the number of fields.
func (f *FieldNodes) Len() int {
	if f == nil {
		return 0
	}
	return len(f.order)
}

// Walk calls fn for every node in insertion order.
func (f *FieldNodes) Walk(fn func(*FieldNode)) {
	if f == nil {
		return
	}
	for _, name := range f.order {
		fn(f.nodes[name])
	}
}

// MarshalJSON emits a JSON object whose keys appear in insertion order.
func (f *FieldNodes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.nodes[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Contract is the derived schema for one entity's payload.
type Contract struct {
	Name   string      `json:"name"`
	Fields *FieldNodes `json:"fields"`
}

// Field returns the named top-level node, or nil.
func (c *Contract) Field(name string) *FieldNode {
	return c.Fields.Get(name)
}
