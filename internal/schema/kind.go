// Package schema defines the field-node model that drives form rendering
// and validation, and the two ways of declaring it: a builder API and
// reflection over annotated structs.
//
// A Contract is the source of truth for one entity's create/update payload.
// Everything downstream — rendering, validation, the HTTP surface — consumes
// the derived FieldNodes and never the declaring struct itself.
package schema

import "fmt"

// Kind classifies how a field is edited. The set is closed: adding a kind
// means teaching both ParseKind and the render dispatch table about it.
type Kind int

const (
	KindText Kind = iota
	KindTextarea
	KindNumber
	KindSelect
	KindMultiSelect
	KindSwitch
	KindCheckbox
	KindRadio
	KindDate
	KindDateRange
	KindFile
	KindMultiFile
	KindColor
	KindTags
	KindCustom
	KindNested
	KindNestedArray
)

var kindNames = map[Kind]string{
	KindText:        "text",
	KindTextarea:    "textarea",
	KindNumber:      "number",
	KindSelect:      "select",
	KindMultiSelect: "multiSelect",
	KindSwitch:      "switch",
	KindCheckbox:    "checkbox",
	KindRadio:       "radio",
	KindDate:        "date",
	KindDateRange:   "dateRange",
	KindFile:        "file",
	KindMultiFile:   "multiFile",
	KindColor:       "color",
	KindTags:        "tags",
	KindCustom:      "custom",
	KindNested:      "nested",
	KindNestedArray: "nestedArray",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a wire name back to a Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// HasSubFields reports whether the kind carries a sub-contract.
func (k Kind) HasSubFields() bool {
	return k == KindNested || k == KindNestedArray
}

// Binary reports whether the kind holds file payloads that must never be
// coerced or structurally validated.
func (k Kind) Binary() bool {
	return k == KindFile || k == KindMultiFile
}

// Enumerated reports whether the kind is backed by an option list.
func (k Kind) Enumerated() bool {
	switch k {
	case KindSelect, KindMultiSelect, KindRadio:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize as their
// wire names inside schema JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An unknown name is an
// error rather than a silent fallback to the zero kind.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("schema: unknown kind %q", string(b))
	}
	*k = parsed
	return nil
}
