package cell

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind discriminates the scalar types a unit value may hold.
type Kind uint8

const (
	// KindAbsent marks a unit with no value (an empty cell).
	KindAbsent Kind = iota
	// KindString marks a text value.
	KindString
	// KindNumber marks a numeric value.
	KindNumber
	// KindBool marks a boolean value.
	KindBool
	// KindTime marks a timestamp value.
	KindTime
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Value is the scalar payload of a unit: one of string, number, bool,
// timestamp, or absent. The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value is absent.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean payload and whether the value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the timestamp payload and whether the value is a time.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return false
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// valueJSON is the boundary wire form of a Value.
type valueJSON struct {
	Kind   string   `json:"kind"`
	String *string  `json:"string,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
	Time   *string  `json:"time,omitempty"`
}

// MarshalJSON encodes the value in its boundary wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.kind.String()}
	switch v.kind {
	case KindString:
		out.String = &v.str
	case KindNumber:
		out.Number = &v.num
	case KindBool:
		out.Bool = &v.b
	case KindTime:
		s := v.t.Format(time.RFC3339Nano)
		out.Time = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the boundary wire form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "", "absent":
		*v = Absent()
	case "string":
		if in.String == nil {
			return fmt.Errorf("value: string kind without payload")
		}
		*v = StringValue(*in.String)
	case "number":
		if in.Number == nil {
			return fmt.Errorf("value: number kind without payload")
		}
		*v = Number(*in.Number)
	case "bool":
		if in.Bool == nil {
			return fmt.Errorf("value: bool kind without payload")
		}
		*v = Bool(*in.Bool)
	case "time":
		if in.Time == nil {
			return fmt.Errorf("value: time kind without payload")
		}
		t, err := time.Parse(time.RFC3339Nano, *in.Time)
		if err != nil {
			return fmt.Errorf("value: parse time: %w", err)
		}
		*v = Time(t)
	default:
		return fmt.Errorf("value: unknown kind %q", in.Kind)
	}
	return nil
}
