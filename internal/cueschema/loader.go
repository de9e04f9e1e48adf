// Package cueschema derives contracts from CUE definitions, so a deployment
// can keep its data contracts in declarative .cue files instead of Go.
//
// Field classification:
//
//	CUE type                  field kind
//	string                    text
//	bool                      switch
//	int / float / number      number
//	bytes                     file
//	"a" | "b" (disjunction)   select with options
//	{...} (struct)            nested, derived recursively
//	[...{...}]                nestedArray, derived recursively
//	[...string]               tags
//
// Attributes refine the inferred node:
//
//	name: string @ui(textarea) @rules(min=3) @label(Full Name)
package cueschema

import (
	"fmt"
	"log"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/matthewbaird/adminkit/internal/schema"
)

// Load reads every CUE file in dir and returns one contract per top-level
// definition (e.g. #Member becomes the "member" contract).
func Load(dir string) ([]*schema.Contract, error) {
	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return nil, fmt.Errorf("cueschema: no CUE instances in %s", dir)
	}
	inst := insts[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("cueschema: loading %s: %w", dir, inst.Err)
	}
	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("cueschema: building %s: %w", dir, err)
	}
	return Contracts(value)
}

// Contracts derives a contract from each top-level definition of value.
func Contracts(value cue.Value) ([]*schema.Contract, error) {
	it, err := value.Fields(cue.Definitions(true))
	if err != nil {
		return nil, fmt.Errorf("cueschema: iterating definitions: %w", err)
	}
	var contracts []*schema.Contract
	for it.Next() {
		sel := it.Selector()
		if !sel.IsDefinition() {
			continue
		}
		name := schema.SnakeCase(strings.TrimPrefix(sel.String(), "#"))
		c, err := FromValue(name, it.Value())
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// FromValue derives one contract from a CUE struct value.
func FromValue(name string, v cue.Value) (*schema.Contract, error) {
	fields, err := deriveFields(name, v)
	if err != nil {
		return nil, err
	}
	return &schema.Contract{Name: name, Fields: fields}, nil
}

func deriveFields(path string, v cue.Value) (*schema.FieldNodes, error) {
	it, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, fmt.Errorf("cueschema: %s is not a struct: %w", path, err)
	}
	fields := schema.NewFieldNodes()
	for it.Next() {
		name := strings.TrimSuffix(it.Selector().String(), "?")
		node, err := deriveField(path+"."+name, name, it.Value(), it.IsOptional())
		if err != nil {
			return nil, err
		}
		if node != nil {
			fields.Add(node)
		}
	}
	return fields, nil
}

func deriveField(path, name string, v cue.Value, optional bool) (*schema.FieldNode, error) {
	node := &schema.FieldNode{
		Name:     name,
		Required: !optional,
		Label:    attrString(v, "label"),
		Rules:    attrString(v, "rules"),
	}

	if opts := enumOptions(v); opts != nil {
		node.Kind = schema.KindSelect
		node.Options = opts
		applyKindOverride(node, v)
		return node, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		node.Kind = schema.KindText
	case cue.BoolKind:
		node.Kind = schema.KindSwitch
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		node.Kind = schema.KindNumber
	case cue.BytesKind:
		node.Kind = schema.KindFile
	case cue.StructKind:
		sub, err := deriveFields(path, v)
		if err != nil {
			return nil, err
		}
		node.Kind = schema.KindNested
		node.SubFields = sub
	case cue.ListKind:
		return deriveListField(path, node, v)
	default:
		// Disjunctions of mixed kinds, _|_ and friends: not editable.
		log.Printf("cueschema: %s: unsupported kind %v, dropping field", path, v.IncompleteKind())
		return nil, nil
	}
	applyKindOverride(node, v)
	return node, nil
}

func deriveListField(path string, node *schema.FieldNode, v cue.Value) (*schema.FieldNode, error) {
	elem := v.LookupPath(cue.MakePath(cue.AnyIndex))
	if !elem.Exists() {
		log.Printf("cueschema: %s: list without element type, dropping field", path)
		return nil, nil
	}
	switch elem.IncompleteKind() {
	case cue.StructKind:
		sub, err := deriveFields(path, elem)
		if err != nil {
			return nil, err
		}
		node.Kind = schema.KindNestedArray
		node.SubFields = sub
	case cue.StringKind:
		node.Kind = schema.KindTags
	default:
		log.Printf("cueschema: %s: unsupported list element kind %v, dropping field", path, elem.IncompleteKind())
		return nil, nil
	}
	applyKindOverride(node, v)
	return node, nil
}

// enumOptions returns the option list for a disjunction of concrete
// strings, or nil when the value is not one.
func enumOptions(v cue.Value) []schema.Option {
	op, args := v.Expr()
	if op != cue.OrOp || len(args) < 2 {
		return nil
	}
	opts := make([]schema.Option, 0, len(args))
	for _, arg := range args {
		s, err := arg.String()
		if err != nil {
			return nil
		}
		opts = append(opts, schema.Option{Label: schema.Labelize(s), Value: s})
	}
	return opts
}

// applyKindOverride honours an explicit @ui(kind) attribute. Sub-contract
// kinds cannot be overridden onto leaf values.
func applyKindOverride(node *schema.FieldNode, v cue.Value) {
	raw := attrString(v, "ui")
	if raw == "" {
		return
	}
	kind, ok := schema.ParseKind(raw)
	if !ok || kind.HasSubFields() != (node.SubFields != nil) {
		log.Printf("cueschema: field %s: ignoring @ui(%s)", node.Name, raw)
		return
	}
	node.Kind = kind
}

// attrString returns the raw contents of a field attribute, e.g. "min=3"
// for @rules(min=3).
func attrString(v cue.Value, name string) string {
	attr := v.Attribute(name)
	if attr.Err() != nil {
		return ""
	}
	return attr.Contents()
}
