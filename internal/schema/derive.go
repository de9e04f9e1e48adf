package schema

import (
	"log"
	"reflect"
	"strings"
)

// Derive builds a Contract from an annotated struct value. Each exported
// field carrying a `ui:"<kind>[,optional]"` tag becomes a FieldNode; fields
// without the tag are non-editable and silently excluded.
//
// Recognised tags:
//
//	ui:"select,optional"       kind plus optionality (required by default)
//	options:"draft|Draft,open" option list for enumerated kinds (value|label)
//	rules:"min=3,max=120"      validator expression for the scalar engine
//	label:"Display Name"       display label override
//	json:"snake_name"          property name (falls back to snake_case)
//
// Nested and nestedArray kinds require the field type to be a struct,
// pointer to struct, or slice of struct; a mismatch drops the field with a
// diagnostic rather than failing the whole contract.
func Derive(v any) *Contract {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return &Contract{
		Name:   SnakeCase(t.Name()),
		Fields: deriveFields(t, map[reflect.Type]bool{t: true}),
	}
}

func deriveFields(t reflect.Type, visited map[reflect.Type]bool) *FieldNodes {
	fields := NewFieldNodes()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		uiTag, ok := sf.Tag.Lookup("ui")
		if !ok || uiTag == "" {
			continue
		}

		kindName, optional := splitUITag(uiTag)
		kind, known := ParseKind(kindName)
		if !known {
			log.Printf("schema: %s.%s: unknown ui kind %q, dropping field", t.Name(), sf.Name, kindName)
			continue
		}

		node := &FieldNode{
			Name:     fieldName(sf),
			Kind:     kind,
			Required: !optional,
			Label:    sf.Tag.Get("label"),
			Rules:    sf.Tag.Get("rules"),
		}
		if kind.Enumerated() {
			node.Options = parseOptions(sf.Tag.Get("options"))
		}
		if kind.HasSubFields() {
			sub, ok := subContractType(sf.Type, kind)
			if !ok {
				log.Printf("schema: %s.%s: %s field is not struct-backed, dropping field", t.Name(), sf.Name, kind)
				continue
			}
			if visited[sub] {
				log.Printf("schema: %s.%s: cyclic sub-contract %s, dropping field", t.Name(), sf.Name, sub.Name())
				continue
			}
			visited[sub] = true
			node.SubFields = deriveFields(sub, visited)
			delete(visited, sub)
		}
		fields.Add(node)
	}
	return fields
}

// subContractType unwraps the struct type backing a nested field.
func subContractType(t reflect.Type, kind Kind) (reflect.Type, bool) {
	if kind == KindNestedArray {
		if t.Kind() != reflect.Slice {
			return nil, false
		}
		t = t.Elem()
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	return t, true
}

func splitUITag(tag string) (kind string, optional bool) {
	parts := strings.Split(tag, ",")
	for _, p := range parts[1:] {
		if strings.TrimSpace(p) == "optional" {
			optional = true
		}
	}
	return strings.TrimSpace(parts[0]), optional
}

func fieldName(sf reflect.StructField) string {
	if jt, ok := sf.Tag.Lookup("json"); ok {
		if name := strings.Split(jt, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return SnakeCase(sf.Name)
}

// parseOptions parses "value|Label,value2" into an option list. A missing
// label is humanized from the value.
func parseOptions(raw string) []Option {
	if raw == "" {
		return nil
	}
	var opts []Option
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, label, found := strings.Cut(part, "|")
		if !found {
			label = Labelize(value)
		}
		opts = append(opts, Option{Label: label, Value: value})
	}
	return opts
}
