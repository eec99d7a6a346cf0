package cinehub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the runtime kind of a submitted preference value.
type Kind uint8

// Value kinds. The names returned by Kind.String match the type names reported to API callers.
const (
	KindUndefined Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindObject:
		return "object"
	default:
		return "undefined"
	}
}

// Value is a preference value as it crosses the API boundary: a string, a number or a boolean.
// Absent or null values are KindUndefined; JSON objects and arrays are kept as KindObject only so
// they can be reported as type mismatches.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	raw  json.RawMessage
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue returns a number Value.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Kind returns the runtime kind of v.
func (v Value) Kind() Kind { return v.kind }

// Missing reports whether v counts as not provided: undefined, null, the empty string, false or 0.
func (v Value) Missing() bool {
	switch v.kind {
	case KindUndefined:
		return true
	case KindString:
		return v.str == ""
	case KindNumber:
		return v.num == 0
	case KindBoolean:
		return !v.b
	default:
		return false
	}
}

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Number returns the numeric payload and whether v is a number.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean payload and whether v is a boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBoolean }

// String returns the canonical storage form of v.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindObject:
		return string(v.raw)
	default:
		return ""
	}
}

// Interface returns the payload as a plain Go value (string, float64, bool or nil).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.b
	case KindObject:
		return v.raw
	default:
		return nil
	}
}

// MarshalJSON encodes v with its own kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBoolean:
		return json.Marshal(v.b)
	case KindObject:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON value, recording its kind.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case 'n':
		*v = Value{}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		*v = BoolValue(b)
	case '{', '[':
		*v = Value{kind: KindObject, raw: append(json.RawMessage(nil), data...)}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		*v = NumberValue(n)
	}
	return nil
}
