package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("parse error")

	// ErrInvalidValue is returned when edited text cannot be coerced to a node's type.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidTarget is returned when a structural edit does not apply to the
	// addressed node (adding a child to a scalar, renaming a sequence index...).
	// The operation is a no-op.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrSerialization marks an internal invariant violation while rendering a document.
	ErrSerialization = errors.New("serialization failure")

	// ErrNodeNotFound is returned for node handles the tree does not know.
	ErrNodeNotFound = fmt.Errorf("%w: node not found", ErrInvalidTarget)

	// ErrSessionNotFound is returned when a document id cannot be found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when opening a document under an id already in use.
	ErrSessionExists = errors.New("session already exists")

	// ErrTemplateNotFound is returned for unknown template references.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateExists is returned when a user template name is already taken.
	ErrTemplateExists = errors.New("template already exists")

	// ErrReadOnlyTemplate is returned when modifying a builtin template.
	ErrReadOnlyTemplate = errors.New("builtin templates are read-only")

	// ErrUnsavedChanges is returned when closing a dirty document without forcing.
	ErrUnsavedChanges = errors.New("document has unsaved changes")
)

// ParseError reports text that is not valid YAML. Line is 1-based, 0 when unknown.
type ParseError struct {
	Message string
	Line    int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("yaml: line %d: %s", e.Line, e.Message)
	}
	return "yaml: " + e.Message
}

func (e *ParseError) Unwrap() error { return ErrParse }

// CoercionError reports raw text that does not convert to the target kind.
type CoercionError struct {
	Text string
	Kind Kind
	Err  error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot use %q as %s", e.Text, e.Kind)
}

func (e *CoercionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidValue}
	}
	return []error{ErrInvalidValue, e.Err}
}

// SerializationError reports a tree or value that cannot be rendered as YAML.
type SerializationError struct {
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serialization failure: %s: %v", e.Reason, e.Err)
	}
	return "serialization failure: " + e.Reason
}

func (e *SerializationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSerialization}
	}
	return []error{ErrSerialization, e.Err}
}
