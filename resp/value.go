// Package resp implements the wire-level value model and codec for the
// RESP (REdis Serialization Protocol) protocol version 2.
package resp

import (
	"strconv"
)

// Kind tags the variant a Value holds.
type Kind int

const (
	SimpleString Kind = iota
	Error
	Integer
	BulkString
	Array
)

// Value is a tagged RESP wire value. Only the field matching Kind is
// meaningful. A nil Bulk means a null bulk string, distinct from a
// non-nil, zero-length Bulk ("" as a bulk string). The same nil-vs-empty
// distinction holds for Array.
type Value struct {
	Kind  Kind
	Str   string  // SimpleString, Error
	Int   int64   // Integer
	Bulk  []byte  // BulkString; nil == null
	Array []Value // Array; nil == null
}

func NewSimpleString(s string) Value { return Value{Kind: SimpleString, Str: s} }
func NewError(s string) Value        { return Value{Kind: Error, Str: s} }
func NewInteger(i int64) Value       { return Value{Kind: Integer, Int: i} }

// NewBulkString wraps b as a bulk string. Passing a nil slice produces a
// null bulk string; use []byte{} for an empty, non-null bulk string.
func NewBulkString(b []byte) Value { return Value{Kind: BulkString, Bulk: b} }

func NullBulkString() Value { return Value{Kind: BulkString, Bulk: nil} }

// NewArray wraps vs as an array. A nil vs produces a null array.
func NewArray(vs []Value) Value { return Value{Kind: Array, Array: vs} }

func NullArray() Value { return Value{Kind: Array, Array: nil} }

func (v Value) IsNilBulk() bool  { return v.Kind == BulkString && v.Bulk == nil }
func (v Value) IsNilArray() bool { return v.Kind == Array && v.Array == nil }

// IsError reports whether v carries a server error frame.
func (v Value) IsError() bool { return v.Kind == Error }

// AsError returns v's error text, or "" if v is not an Error value.
func (v Value) AsError() string {
	if v.Kind != Error {
		return ""
	}
	return v.Str
}

// String renders v for debugging; it is not the wire encoding.
func (v Value) String() string {
	switch v.Kind {
	case SimpleString:
		return v.Str
	case Error:
		return "(error) " + v.Str
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case BulkString:
		if v.Bulk == nil {
			return "(nil)"
		}
		return string(v.Bulk)
	case Array:
		if v.Array == nil {
			return "(nil)"
		}
		out := "["
		for i, e := range v.Array {
			if i > 0 {
				out += " "
			}
			out += e.String()
		}
		return out + "]"
	default:
		return "(unknown)"
	}
}
