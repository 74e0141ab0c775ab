package synchronizer

import (
	"fmt"

	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
)

// Codec converts between YAML text and values.
type Codec interface {
	Parse(text string) (domain.Value, error)
	Serialize(v domain.Value) (string, error)
}

// Mirror decides when tree edits reach the text buffer.
type Mirror uint8

const (
	// MirrorLazy regenerates the text only when the text view is entered or
	// the canonical text is requested.
	MirrorLazy Mirror = iota
	// MirrorEager refreshes the text buffer once after every tree edit.
	MirrorEager
)

func (m Mirror) String() string {
	if m == MirrorEager {
		return "eager"
	}
	return "lazy"
}

// ParseMirror resolves "lazy" or "eager". An empty name is lazy.
func ParseMirror(name string) (Mirror, error) {
	switch name {
	case "", "lazy":
		return MirrorLazy, nil
	case "eager":
		return MirrorEager, nil
	}
	return MirrorLazy, fmt.Errorf("%w: unknown mirror policy %q", domain.ErrInvalidValue, name)
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithCodec replaces the YAML codec.
func WithCodec(c Codec) Option {
	return func(s *Synchronizer) {
		s.codec = c
	}
}

// WithMirror selects the mirror policy.
func WithMirror(m Mirror) Option {
	return func(s *Synchronizer) {
		s.mirror = m
	}
}

// WithHooks installs observability callbacks.
func WithHooks(h domain.SyncHooks) Option {
	return func(s *Synchronizer) {
		s.hooks = h
	}
}

// WithListener registers an event listener.
func WithListener(l domain.Listener) Option {
	return func(s *Synchronizer) {
		s.listeners = append(s.listeners, l)
	}
}

// WithTextObserver is called after every replacement of the text buffer.
func WithTextObserver(fn func(text string)) Option {
	return func(s *Synchronizer) {
		s.textObservers = append(s.textObservers, fn)
	}
}

var defaultCodec Codec = codec.YAML{}
