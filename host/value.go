// Package host models the dynamic object runtime that generated extension
// code binds into: classes with single inheritance, per-class method tables,
// allocators, live instance counts, collector marking and a wire format for
// instance serialization.
//
// Values are nil, int64, float64, bool, string, Symbol, *Array, *Object and
// *Class. Plain Go ints are normalized to int64 at the API boundary.
package host

import (
	"fmt"
	"strconv"
)

// Value is any host value.
type Value = any

// Symbol is an interned name.
type Symbol string

// Array is a mutable host array.
type Array struct {
	Items []Value
}

// NewArray creates an array holding items.
func NewArray(items ...Value) *Array {
	return &Array{Items: append([]Value(nil), items...)}
}

// Push appends v.
func (a *Array) Push(v Value) { a.Items = append(a.Items, v) }

// Shift removes and returns the first element, or nil when empty.
func (a *Array) Shift() Value {
	if len(a.Items) == 0 {
		return nil
	}
	v := a.Items[0]
	a.Items = a.Items[1:]
	return v
}

// Len reports the number of elements.
func (a *Array) Len() int { return len(a.Items) }

// Normalize converts Go numeric types to the host's int64/float64.
func Normalize(v Value) Value {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case float32:
		return float64(n)
	}
	return v
}

// Truthy follows host truthiness: only nil and false are false.
func Truthy(v Value) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	}
	return true
}

// Inspect renders v for messages.
func Inspect(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case Symbol:
		return ":" + string(x)
	case *Array:
		s := "["
		for i, e := range x.Items {
			if i > 0 {
				s += ", "
			}
			s += Inspect(e)
		}
		return s + "]"
	case *Object:
		return fmt.Sprintf("#<%s>", x.class.name)
	case *Class:
		return x.name
	}
	return fmt.Sprint(v)
}
