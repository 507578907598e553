package model

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	// StringValue holds text as stored
	StringValue ValueKind = iota
	// IntValue holds a signed integer
	IntValue
	// FloatValue holds a float
	FloatValue
)

// Value is one element of a stored sequence: an integer, a float or a string.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
}

// String creates a string value
func String(s string) Value {
	return Value{Kind: StringValue, Str: s}
}

// Int creates an integer value
func Int(i int64) Value {
	return Value{Kind: IntValue, Int: i}
}

// Float creates a float value
func Float(f float64) Value {
	return Value{Kind: FloatValue, Float: f}
}

// Strings wraps every element of ss as a string value
func Strings(ss ...string) []Value {
	values := make([]Value, len(ss))
	for i, s := range ss {
		values[i] = String(s)
	}
	return values
}

// Number returns the numeric reading of v. Strings that do not parse as a
// number, NaN and infinities report false.
func (v Value) Number() (float64, bool) {
	var f float64
	switch v.Kind {
	case IntValue:
		return float64(v.Int), true
	case FloatValue:
		f = v.Float
	case StringValue:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Text returns the value as the store would print it
func (v Value) Text() string {
	switch v.Kind {
	case IntValue:
		return strconv.FormatInt(v.Int, 10)
	case FloatValue:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}
