package param

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the runtime type of a parameter value.
type Kind uint8

const (
	KindInt    Kind = 0x1 // KindInt holds a signed integer.
	KindFloat  Kind = 0x2 // KindFloat holds a 64-bit float.
	KindString Kind = 0x3 // KindString holds free text.
	KindTime   Kind = 0x4 // KindTime holds a timestamp.
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindTime:
		return "Time"
	default:
		return "Unknown"
	}
}

// Value is a tagged union for parameter values. Parameters are persisted as
// text keyed by ParamID; each known key declares the Kind its text parses
// as, and conversions between kinds are explicit and fallible.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Int64Value creates an integer Value.
func Int64Value(v int64) Value { return Value{kind: KindInt, i: v} }

// Float64Value creates a float Value.
func Float64Value(v float64) Value { return Value{kind: KindFloat, f: v} }

// StringValue creates a string Value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// TimeValue creates a timestamp Value.
func TimeValue(v time.Time) Value { return Value{kind: KindTime, t: v} }

// Kind returns the value's runtime type tag.
func (v Value) Kind() Kind { return v.kind }

// Int64 converts the value to an integer. Floats convert only when whole;
// strings convert when they parse as a base-10 integer.
func (v Value) Int64() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		if v.f == float64(int64(v.f)) {
			return int64(v.f), nil
		}
		return 0, fmt.Errorf("param: float %v is not integral", v.f)
	case KindString:
		n, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("param: %q is not an integer: %w", v.s, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("param: cannot convert %s to integer", v.kind)
	}
}

// Float64 converts the value to a float. Integers widen; strings convert
// when they parse as a float.
func (v Value) Float64() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, fmt.Errorf("param: %q is not a float: %w", v.s, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("param: cannot convert %s to float", v.kind)
	}
}

// Time converts the value to a timestamp. Strings convert when they parse
// as RFC 3339.
func (v Value) Time() (time.Time, error) {
	switch v.kind {
	case KindTime:
		return v.t, nil
	case KindString:
		t, err := time.Parse(time.RFC3339, v.s)
		if err != nil {
			return time.Time{}, fmt.Errorf("param: %q is not a timestamp: %w", v.s, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("param: cannot convert %s to timestamp", v.kind)
	}
}

// Text renders the value in its persisted text form.
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindTime:
		return v.t.UTC().Format(time.RFC3339)
	default:
		return v.s
	}
}

// Parse builds a Value of the given kind from its persisted text form.
func Parse(kind Kind, text string) (Value, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("param: parse %q as %s: %w", text, kind, err)
		}
		return Int64Value(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("param: parse %q as %s: %w", text, kind, err)
		}
		return Float64Value(f), nil
	case KindTime:
		t, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return Value{}, fmt.Errorf("param: parse %q as %s: %w", text, kind, err)
		}
		return TimeValue(t), nil
	case KindString:
		return StringValue(text), nil
	default:
		return Value{}, fmt.Errorf("param: unknown kind %d", kind)
	}
}
