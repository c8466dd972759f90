package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind identifies the shape of a response value.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueNumber
	ValueText
	ValueNumberList
	ValueTextList
)

// Value is a response to a question: a number, a string, or a homogeneous list of either.
// The zero Value holds nothing.
type Value struct {
	kind  ValueKind
	num   float64
	text  string
	nums  []float64
	texts []string
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: ValueNumber, num: f}
}

// Text returns a string value.
func Text(s string) Value {
	return Value{kind: ValueText, text: s}
}

// Numbers returns a list of numbers.
func Numbers(fs ...float64) Value {
	return Value{kind: ValueNumberList, nums: append([]float64{}, fs...)}
}

// Texts returns a list of strings.
func Texts(ss ...string) Value {
	return Value{kind: ValueTextList, texts: append([]string{}, ss...)}
}

func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether the value holds nothing.
func (v Value) IsZero() bool { return v.kind == ValueNone }

// IsList reports whether the value is a list.
func (v Value) IsList() bool { return v.kind == ValueNumberList || v.kind == ValueTextList }

// Float returns the number held by a scalar numeric value.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == ValueNumber
}

// Text returns the string held by a scalar text value.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == ValueText
}

// Floats returns a copy of a number list.
func (v Value) Floats() []float64 {
	if v.kind != ValueNumberList {
		return nil
	}
	return append([]float64{}, v.nums...)
}

// Texts returns a copy of a string list.
func (v Value) Texts() []string {
	if v.kind != ValueTextList {
		return nil
	}
	return append([]string{}, v.texts...)
}

// Len returns the number of list elements, or 1 for a scalar and 0 for the zero value.
func (v Value) Len() int {
	switch v.kind {
	case ValueNumberList:
		return len(v.nums)
	case ValueTextList:
		return len(v.texts)
	case ValueNone:
		return 0
	default:
		return 1
	}
}

// elements returns the scalars of a list, or the value itself for a scalar.
func (v Value) elements() []Value {
	switch v.kind {
	case ValueNumberList:
		out := make([]Value, len(v.nums))
		for i, n := range v.nums {
			out[i] = Number(n)
		}
		return out
	case ValueTextList:
		out := make([]Value, len(v.texts))
		for i, s := range v.texts {
			out[i] = Text(s)
		}
		return out
	case ValueNone:
		return nil
	default:
		return []Value{v}
	}
}

// Contains reports whether a list value holds the scalar s, or a scalar value equals s.
func (v Value) Contains(s Value) bool {
	for _, e := range v.elements() {
		if e.Equal(s) {
			return true
		}
	}
	return false
}

// Equal reports whether two values have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueNumber:
		return v.num == o.num
	case ValueText:
		return v.text == o.text
	case ValueNumberList:
		return slices.Equal(v.nums, o.nums)
	case ValueTextList:
		return slices.Equal(v.texts, o.texts)
	default:
		return true
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case ValueNumber:
		return formatNumber(v.num)
	case ValueText:
		return v.text
	case ValueNumberList:
		parts := make([]string, len(v.nums))
		for i, n := range v.nums {
			parts[i] = formatNumber(n)
		}
		return strings.Join(parts, ", ")
	case ValueTextList:
		return strings.Join(v.texts, ", ")
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// raw returns the plain Go representation used by the JSON and YAML encoders.
func (v Value) raw() interface{} {
	switch v.kind {
	case ValueNumber:
		return v.num
	case ValueText:
		return v.text
	case ValueNumberList:
		return append([]float64{}, v.nums...)
	case ValueTextList:
		return append([]string{}, v.texts...)
	default:
		return nil
	}
}

// valueFromRaw converts a decoded JSON or YAML scalar or list into a Value.
func valueFromRaw(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case float64:
		return Number(x), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case string:
		return Text(x), nil
	case []interface{}:
		if len(x) == 0 {
			return Texts(), nil
		}
		first, err := valueFromRaw(x[0])
		if err != nil {
			return Value{}, err
		}
		switch first.kind {
		case ValueNumber:
			nums := make([]float64, 0, len(x))
			for _, e := range x {
				ev, err := valueFromRaw(e)
				if err != nil {
					return Value{}, err
				}
				f, ok := ev.Float()
				if !ok {
					return Value{}, fmt.Errorf("mixed list: %v", x)
				}
				nums = append(nums, f)
			}
			return Numbers(nums...), nil
		case ValueText:
			texts := make([]string, 0, len(x))
			for _, e := range x {
				ev, err := valueFromRaw(e)
				if err != nil {
					return Value{}, err
				}
				s, ok := ev.Text()
				if !ok {
					return Value{}, fmt.Errorf("mixed list: %v", x)
				}
				texts = append(texts, s)
			}
			return Texts(texts...), nil
		default:
			return Value{}, fmt.Errorf("nested list elements are not supported: %v", x)
		}
	default:
		return Value{}, fmt.Errorf("unsupported response value of type %T", raw)
	}
}

// MarshalJSON encodes the value as a JSON number, string, array or null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.raw())
}

// UnmarshalJSON decodes a JSON number, string, homogeneous array or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := valueFromRaw(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes the value as a YAML scalar or sequence.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.raw(), nil
}

// UnmarshalYAML decodes a YAML scalar or homogeneous sequence.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := valueFromRaw(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}
