// Package plist decodes Apple XML property lists into an ordered, typed value model.
package plist

import (
	"iter"
	"time"
)

// Kind identifies which of the eight plist primitives a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindReal
	KindBoolean
	KindDate
	KindData
	KindArray
	KindDict
)

var kindNames = [...]string{
	KindString:  "string",
	KindInteger: "integer",
	KindReal:    "real",
	KindBoolean: "boolean",
	KindDate:    "date",
	KindData:    "data",
	KindArray:   "array",
	KindDict:    "dict",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Value is one decoded plist value. The set of implementations is closed:
// String, Integer, Real, Boolean, Date, Data, *Array and *Dict.
type Value interface {
	Kind() Kind
	isValue()
}

// String is a <string> value.
type String string

// Integer is an <integer> value.
type Integer int64

// Real is a <real> value. Precision is the number of fractional digits in
// the source text, or -1 when the source used exponent notation.
type Real struct {
	Float     float64
	Precision int
}

// Boolean is a <true/> or <false/> value. Token is the element name it was
// read from.
type Boolean struct {
	Bool  bool
	Token string
}

// Date is a <date> value. Text is the verbatim source text.
type Date struct {
	Time time.Time
	Text string
}

// Data is a <data> value holding the base64-decoded bytes.
type Data struct {
	b []byte
}

// NewData copies b into a Data value.
func NewData(b []byte) Data {
	return Data{b: append([]byte(nil), b...)}
}

// Bytes returns a copy of the blob.
func (d Data) Bytes() []byte {
	return append([]byte(nil), d.b...)
}

// Len returns the blob length in bytes.
func (d Data) Len() int { return len(d.b) }

func (String) Kind() Kind  { return KindString }
func (Integer) Kind() Kind { return KindInteger }
func (Real) Kind() Kind    { return KindReal }
func (Boolean) Kind() Kind { return KindBoolean }
func (Date) Kind() Kind    { return KindDate }
func (Data) Kind() Kind    { return KindData }
func (*Array) Kind() Kind  { return KindArray }
func (*Dict) Kind() Kind   { return KindDict }

func (String) isValue()  {}
func (Integer) isValue() {}
func (Real) isValue()    {}
func (Boolean) isValue() {}
func (Date) isValue()    {}
func (Data) isValue()    {}
func (*Array) isValue()  {}
func (*Dict) isValue()   {}

// Array is an ordered, read-only sequence of values.
type Array struct {
	items []Value
}

// NewArray builds an Array holding items in order.
func NewArray(items ...Value) *Array {
	return &Array{items: append([]Value(nil), items...)}
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns the i-th element.
func (a *Array) At(i int) Value {
	return a.items[i]
}

// All iterates the elements in document order.
func (a *Array) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		if a == nil {
			return
		}
		for i, v := range a.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Entry is one key/value pair of a Dict.
type Entry struct {
	Key   string
	Value Value
}

// Dict is a read-only mapping that remembers key insertion order.
type Dict struct {
	keys   []string
	values map[string]Value
}

// NewDict builds a Dict from entries in order. A repeated key keeps the
// position of its first occurrence and the value of its last.
func NewDict(entries ...Entry) *Dict {
	d := &Dict{
		keys:   make([]string, 0, len(entries)),
		values: make(map[string]Value, len(entries)),
	}
	for _, e := range entries {
		if _, exists := d.values[e.Key]; !exists {
			d.keys = append(d.keys, e.Key)
		}
		d.values[e.Key] = e.Value
	}
	return d
}

// Len returns the number of distinct keys.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (Value, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// All iterates the entries in insertion order.
func (d *Dict) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if d == nil {
			return
		}
		for _, k := range d.keys {
			if !yield(k, d.values[k]) {
				return
			}
		}
	}
}
