// Package models contains domain types for graphoni-engine.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ValueKind identifies the scalar kind held by a Value.
type ValueKind int

// Value kinds. Graph properties are restricted to flat scalar values;
// nested objects and arrays are rejected at the boundary.
const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a scalar graph property value: string, number, boolean, or null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// Null is the null property value.
var Null = Value{kind: KindNull}

// String creates a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the scalar kind of the value.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload. Only meaningful for KindString.
func (v Value) AsString() string { return v.str }

// AsNumber returns the numeric payload. Only meaningful for KindNumber.
func (v Value) AsNumber() float64 { return v.num }

// AsBool returns the boolean payload. Only meaningful for KindBool.
func (v Value) AsBool() bool { return v.b }

// Native returns the value as a plain Go value for driver parameters.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Literal renders the value as a Cypher literal. Strings are JSON-quoted,
// numbers use the shortest round-trip representation.
func (v Value) Literal() string {
	switch v.kind {
	case KindString:
		quoted, _ := json.Marshal(v.str)
		return string(quoted)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON implements json.Unmarshaler. Nested objects and arrays are
// rejected: graph properties are scalars only.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ValueOf converts a decoded JSON value into a Value.
func ValueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null, nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	default:
		return Value{}, fmt.Errorf("unsupported property value type %T", raw)
	}
}

// Properties is a graph entity's property bag at a point in time.
// Iteration order is not defined on the map itself; callers that need
// determinism use SortedKeys.
type Properties map[string]Value

// PropertiesOf converts a map of plain Go values into Properties.
// Returns an error on any non-scalar value.
func PropertiesOf(raw map[string]any) (Properties, error) {
	if raw == nil {
		return nil, nil
	}
	props := make(Properties, len(raw))
	for k, v := range raw {
		val, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		props[k] = val
	}
	return props, nil
}

// SortedKeys returns the property keys in ascending order.
func (p Properties) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Native converts the bag into a plain map for driver parameters.
func (p Properties) Native() map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Native()
	}
	return out
}

// Clone returns a shallow copy of the bag.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Diff returns the subset of after whose values are absent from or differ
// in p. Keys only present in p are untouched and do not appear.
func (p Properties) Diff(after Properties) Properties {
	changed := make(Properties)
	for _, k := range after.SortedKeys() {
		v := after[k]
		if cur, ok := p[k]; !ok || !cur.Equal(v) {
			changed[k] = v
		}
	}
	return changed
}
