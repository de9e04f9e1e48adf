package schema

// Builder assembles a Contract declaratively. Fields are required unless
// explicitly marked Optional, matching the deriver's convention.
type Builder struct {
	contract *Contract
}

// NewContract starts a builder for the named entity.
func NewContract(name string) *Builder {
	return &Builder{contract: &Contract{Name: name, Fields: NewFieldNodes()}}
}

// FieldOption customises a single field declaration.
type FieldOption func(*FieldNode)

// Optional marks the field as not required.
func Optional() FieldOption {
	return func(n *FieldNode) { n.Required = false }
}

// Label sets a display label. Without it the renderer humanizes the name.
func Label(label string) FieldOption {
	return func(n *FieldNode) { n.Label = label }
}

// Rules attaches a validator tag expression, e.g. "min=3,max=120".
func Rules(expr string) FieldOption {
	return func(n *FieldNode) { n.Rules = expr }
}

func (b *Builder) add(name string, kind Kind, opts []FieldOption) *Builder {
	n := &FieldNode{Name: name, Kind: kind, Required: true}
	for _, opt := range opts {
		opt(n)
	}
	b.contract.Fields.Add(n)
	return b
}

// Field declares a field of an arbitrary kind.
func (b *Builder) Field(name string, kind Kind, opts ...FieldOption) *Builder {
	return b.add(name, kind, opts)
}

// Text declares a single-line text field.
func (b *Builder) Text(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindText, opts)
}

// Textarea declares a multi-line text field.
func (b *Builder) Textarea(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindTextarea, opts)
}

// Number declares a numeric field.
func (b *Builder) Number(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindNumber, opts)
}

// Switch declares a boolean toggle.
func (b *Builder) Switch(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindSwitch, opts)
}

// Date declares a date field.
func (b *Builder) Date(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindDate, opts)
}

// File declares a binary upload field.
func (b *Builder) File(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindFile, opts)
}

// Select declares an enumerated field with the given options.
func (b *Builder) Select(name string, options []Option, opts ...FieldOption) *Builder {
	b.add(name, KindSelect, opts)
	b.contract.Fields.Get(name).Options = options
	return b
}

// Tags declares a free-form string list field.
func (b *Builder) Tags(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindTags, opts)
}

// Nested declares an embedded object edited with the sub-contract's fields.
func (b *Builder) Nested(name string, sub *Contract, opts ...FieldOption) *Builder {
	b.add(name, KindNested, opts)
	b.contract.Fields.Get(name).SubFields = sub.Fields
	return b
}

// NestedArray declares a repeatable group; sub is the per-element template.
func (b *Builder) NestedArray(name string, sub *Contract, opts ...FieldOption) *Builder {
	b.add(name, KindNestedArray, opts)
	b.contract.Fields.Get(name).SubFields = sub.Fields
	return b
}

// Build returns the assembled contract.
func (b *Builder) Build() *Contract {
	return b.contract
}
