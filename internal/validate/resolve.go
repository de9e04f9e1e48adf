// Package validate resolves a candidate value map against a contract's
// declared rules. Binary payloads are partitioned out before structural
// validation so uploads are never coerced or serialized, and rule failures
// are collected across all fields rather than stopping at the first.
package validate

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matthewbaird/adminkit/internal/schema"
)

// File is one uploaded binary payload.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Result is the outcome of Resolve. On success Values is the original
// candidate map untouched and Errors is empty; on failure Values is empty
// and Errors maps flattened field paths to the first failing rule message.
type Result struct {
	Values map[string]any    `json:"values"`
	Errors map[string]string `json:"errors"`
}

// OK reports whether validation passed.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

var scalarRules = validator.New()

// Resolve validates candidate against the contract. The candidate is split
// into binary values, arrays of binary values, and scalars; only the scalar
// bucket is coerced and run through the rule engine. Empty-string and nil
// scalars are dropped so blank optional inputs do not trip rules, while
// required fields still fail on absence.
func Resolve(contract *schema.Contract, candidate map[string]any) Result {
	errs := make(map[string]string)
	resolveFields(contract.Fields, candidate, "", errs)
	if len(errs) > 0 {
		return Result{Values: map[string]any{}, Errors: errs}
	}
	return Result{Values: candidate, Errors: errs}
}

func resolveFields(fields *schema.FieldNodes, candidate map[string]any, prefix string, errs map[string]string) {
	data := make(map[string]any)
	rules := make(map[string]any)

	fields.Walk(func(node *schema.FieldNode) {
		path := node.Name
		if prefix != "" {
			path = prefix + "." + node.Name
		}
		value, present := candidate[node.Name]
		if present && isBlank(value) {
			present = false
		}

		switch {
		case node.Kind.Binary() || (present && binaryValue(value)):
			// Presence only; content is opaque to the rule engine.
			if node.Required && (!present || emptyBinary(value)) {
				errs[path] = "required"
			}

		case node.Kind == schema.KindNested:
			resolveNested(node, value, present, path, errs)

		case node.Kind == schema.KindNestedArray:
			resolveNestedArray(node, value, present, path, errs)

		default:
			tag := scalarTag(node, present)
			if tag == "" {
				return
			}
			rules[node.Name] = tag
			if present {
				data[node.Name] = coerce(node, value)
			}
		}
	})

	if len(rules) > 0 {
		for field, err := range scalarRules.ValidateMap(data, rules) {
			path := field
			if prefix != "" {
				path = prefix + "." + field
			}
			errs[path] = firstRuleMessage(err)
		}
	}
}

func resolveNested(node *schema.FieldNode, value any, present bool, path string, errs map[string]string) {
	if !present {
		if node.Required {
			errs[path] = "required"
		}
		return
	}
	sub, ok := value.(map[string]any)
	if !ok {
		errs[path] = "invalid"
		return
	}
	childErrs := make(map[string]string)
	resolveFields(node.SubFields, sub, path, childErrs)
	mergeChildErrors(path, node.SubFields, childErrs, errs)
}

func resolveNestedArray(node *schema.FieldNode, value any, present bool, path string, errs map[string]string) {
	if !present {
		if node.Required {
			errs[path] = "required"
		}
		return
	}
	elems, ok := toAnySlice(value)
	if !ok {
		errs[path] = "invalid"
		return
	}
	childErrs := make(map[string]string)
	for i, elem := range elems {
		sub, ok := elem.(map[string]any)
		if !ok {
			childErrs[fmt.Sprintf("%s.%d", path, i)] = "invalid"
			continue
		}
		resolveFields(node.SubFields, sub, fmt.Sprintf("%s.%d", path, i), childErrs)
	}
	mergeChildErrors(path, nil, childErrs, errs)
}

// mergeChildErrors copies flattened child errors into errs and mirrors the
// first child message onto the parent path, so a composite field can show a
// single summary error. Child order follows the sub-contract's declaration
// order when available.
func mergeChildErrors(path string, sub *schema.FieldNodes, childErrs, errs map[string]string) {
	if len(childErrs) == 0 {
		return
	}
	for k, v := range childErrs {
		errs[k] = v
	}
	if sub != nil {
		for _, name := range sub.Names() {
			if msg, ok := childErrs[path+"."+name]; ok {
				errs[path] = msg
				return
			}
		}
	}
	// Fall back to the lexically smallest child path for determinism.
	var first string
	for k := range childErrs {
		if first == "" || k < first {
			first = k
		}
	}
	errs[path] = childErrs[first]
}

// scalarTag builds the validator expression for a leaf node, or "" when the
// field needs no evaluation (absent and optional).
func scalarTag(node *schema.FieldNode, present bool) string {
	var parts []string
	if node.Required {
		parts = append(parts, "required")
	}
	if present && node.Rules != "" {
		parts = append(parts, node.Rules)
	}
	if !present && !node.Required {
		return ""
	}
	return strings.Join(parts, ",")
}

// coerce applies the contract's declared structural coercion: numeric
// strings become numbers, boolean strings become booleans. Values that do
// not parse are left alone for the rule engine to reject.
func coerce(node *schema.FieldNode, value any) any {
	switch node.Kind {
	case schema.KindNumber:
		if s, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	case schema.KindSwitch, schema.KindCheckbox:
		if s, ok := value.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
	}
	return value
}

// firstRuleMessage extracts the first failing constraint from a
// ValidateMap result entry; later violations on the same field are not
// surfaced.
func firstRuleMessage(v any) string {
	verrs, ok := v.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		if err, ok := v.(error); ok {
			return err.Error()
		}
		return "invalid"
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

// isBlank reports whether a scalar value should be dropped before
// validation: nil and empty string only. Empty arrays are kept — an empty
// optional list is valid data, not an omitted field.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// binaryValue reports whether v is a binary payload or a non-empty
// homogeneous array of binary payloads.
func binaryValue(v any) bool {
	switch val := v.(type) {
	case *File, []byte, io.Reader:
		return true
	case []*File:
		return len(val) > 0
	case []any:
		if len(val) == 0 {
			return false
		}
		for _, e := range val {
			switch e.(type) {
			case *File, []byte, io.Reader:
			default:
				return false
			}
		}
		return true
	}
	return false
}

func emptyBinary(v any) bool {
	switch val := v.(type) {
	case []byte:
		return len(val) == 0
	case *File:
		return val == nil
	case []*File:
		return len(val) == 0
	}
	return false
}

func toAnySlice(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []map[string]any:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}
