package cadhost

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gitlab.com/tozd/go/errors"
)

// ValueKind discriminates the closed set of property value variants
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
)

// Value is a property/parameter value: a string, a number, or a boolean.
// Update payloads are loosely typed on the wire; keeping the variant set
// closed keeps the batch updaters' contracts checkable.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

func String(s string) Value  { return Value{kind: ValueString, str: s} }
func Number(n float64) Value { return Value{kind: ValueNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: ValueBool, b: b} }

// Kind returns the variant discriminator
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string form of any variant
func (v Value) AsString() string {
	switch v.kind {
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// AsNumber returns the numeric payload (zero for non-numbers)
func (v Value) AsNumber() float64 { return v.num }

// AsBool returns the boolean payload (false for non-booleans)
func (v Value) AsBool() bool { return v.b }

// Interface returns the payload as a plain Go value, for codecs
func (v Value) Interface() any {
	switch v.kind {
	case ValueNumber:
		return v.num
	case ValueBool:
		return v.b
	default:
		return v.str
	}
}

// FromAny converts a decoded JSON/msgpack scalar into a Value
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, errors.Errorf("parsing number %q: %w", t.String(), err)
		}
		return Number(f), nil
	default:
		return Value{}, errors.Errorf("unsupported value type %T", raw)
	}
}

// MarshalJSON encodes the value as its bare scalar
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts a bare string, number, or boolean
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Errorf("decoding value: %w", err)
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String implements fmt.Stringer
func (v Value) String() string {
	return fmt.Sprintf("%v", v.Interface())
}
