package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is one YAML value. Exactly one payload field is meaningful, selected by kind.
// The zero Value is Null.
//
// Values are immutable: constructors and accessors copy container slices, so a
// Value can be shared freely between the tree, snapshots and callers.
type Value struct {
	kind    Kind
	str     string
	integer int64
	float   float64
	boolean bool
	entries []Entry
	items   []Value
}

// Entry is one key/value pair of a Mapping, in document order.
type Entry struct {
	Key   string
	Value Value
}

// Null returns the null value, which is also the zero Value.
func Null() Value { return Value{} }

// String returns a string scalar.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer scalar.
func Int(i int64) Value { return Value{kind: KindInt, integer: i} }

// Float returns a floating point scalar.
func Float(f float64) Value { return Value{kind: KindFloat, float: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Mapping builds an ordered mapping. Keys are expected to be unique; the
// codec and the tree reject duplicates before they get here.
func Mapping(entries ...Entry) Value {
	return Value{kind: KindMapping, entries: append([]Entry{}, entries...)}
}

// Sequence builds a positional list.
func Sequence(items ...Value) Value {
	return Value{kind: KindSequence, items: append([]Value{}, items...)}
}

// E is shorthand for building mapping entries.
func E(key string, v Value) Entry { return Entry{Key: key, Value: v} }

// Kind reports the type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the payload of a String value, or "" for other kinds.
func (v Value) AsString() string { return v.str }

// AsInt returns the payload of an Int value, or 0 for other kinds.
func (v Value) AsInt() int64 { return v.integer }

// AsFloat returns the payload of a Float value, or 0 for other kinds.
func (v Value) AsFloat() float64 { return v.float }

// AsBool returns the payload of a Bool value, or false for other kinds.
func (v Value) AsBool() bool { return v.boolean }

// Entries returns a copy of the mapping entries.
func (v Value) Entries() []Entry {
	if v.kind != KindMapping {
		return nil
	}
	return append([]Entry{}, v.entries...)
}

// Items returns a copy of the sequence items.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return append([]Value{}, v.items...)
}

// Len is the number of children of a container, 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindMapping:
		return len(v.entries)
	case KindSequence:
		return len(v.items)
	}
	return 0
}

// Get looks up a mapping key.
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Index returns the i-th sequence item.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindSequence || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Equal reports deep equality. Mapping order is significant and NaN equals NaN,
// so a document that round-trips through text compares equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.integer == o.integer
	case KindFloat:
		if math.IsNaN(v.float) && math.IsNaN(o.float) {
			return true
		}
		return v.float == o.float
	case KindBool:
		return v.boolean == o.boolean
	case KindMapping:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for i := range v.entries {
			if v.entries[i].Key != o.entries[i].Key || !v.entries[i].Value.Equal(o.entries[i].Value) {
				return false
			}
		}
		return true
	case KindSequence:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders a compact flow representation, meant for logs and test output.
func (v Value) String() string {
	var b strings.Builder
	v.writeFlow(&b)
	return b.String()
}

func (v Value) writeFlow(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindString:
		b.WriteString(strconv.Quote(v.str))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.integer, 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.float, 'g', -1, 64))
	case KindBool:
		b.WriteString(strconv.FormatBool(v.boolean))
	case KindMapping:
		b.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.Key)
			b.WriteString(": ")
			e.Value.writeFlow(b)
		}
		b.WriteByte('}')
	case KindSequence:
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteString(", ")
			}
			item.writeFlow(b)
		}
		b.WriteByte(']')
	}
}

// MarshalJSON encodes the value keeping mapping order. Non-finite floats have no
// JSON form and are written as their YAML spelling.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.integer, 10))
	case KindFloat:
		switch {
		case math.IsNaN(v.float):
			buf.WriteString(`".nan"`)
		case math.IsInf(v.float, 1):
			buf.WriteString(`".inf"`)
		case math.IsInf(v.float, -1):
			buf.WriteString(`"-.inf"`)
		default:
			buf.WriteString(strconv.FormatFloat(v.float, 'g', -1, 64))
		}
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindMapping:
		buf.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(e.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := e.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return &SerializationError{Reason: "unsupported kind " + v.kind.String()}
	}
	return nil
}
