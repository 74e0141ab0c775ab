package domain

import (
	"fmt"
	"strings"
)

// Kind is the type tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindMapping
	KindSequence
)

var kindNames = [...]string{
	KindNull:     "null",
	KindString:   "string",
	KindInt:      "int",
	KindFloat:    "float",
	KindBool:     "bool",
	KindMapping:  "mapping",
	KindSequence: "sequence",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsScalar reports whether values of this kind are leaves.
func (k Kind) IsScalar() bool {
	return k <= KindBool
}

// IsContainer reports whether values of this kind own children.
func (k Kind) IsContainer() bool {
	return k == KindMapping || k == KindSequence
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

// ParseKind resolves a user supplied type name. Common aliases from the
// add-node dialog ("str", "list", "dict", ...) are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str":
		return KindString, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "number":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	case "null", "none", "nil":
		return KindNull, nil
	case "mapping", "map", "dict", "object":
		return KindMapping, nil
	case "sequence", "seq", "list", "array":
		return KindSequence, nil
	}
	return KindNull, fmt.Errorf("%w: unknown type %q", ErrInvalidValue, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrSerialization, k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
