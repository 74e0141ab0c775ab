package domain

import (
	"fmt"
	"strings"
	"time"
)

// NodeID is a stable handle to a tree node. It stays valid until the node is
// deleted or the tree is rebuilt from text. The zero NodeID addresses nothing.
type NodeID int64

// View selects a projection of a document.
type View uint8

const (
	ViewText View = iota // raw text buffer
	ViewTree             // structured tree model
)

func (v View) String() string {
	switch v {
	case ViewText:
		return "text"
	case ViewTree:
		return "tree"
	}
	return fmt.Sprintf("view(%d)", uint8(v))
}

// ParseView resolves "text" or "tree".
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ViewText, nil
	case "tree":
		return ViewTree, nil
	}
	return ViewText, fmt.Errorf("%w: unknown view %q", ErrInvalidValue, s)
}

func (v View) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *View) UnmarshalText(b []byte) error {
	parsed, err := ParseView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// EventType defines the category of the event.
type EventType string

const (
	// EventContentChanged fires after any tree mutation or a text replacement
	// caused by a view switch.
	EventContentChanged EventType = "content_changed"
	// EventParseFailed fires when switching to the tree view is rejected.
	EventParseFailed EventType = "parse_failed"
	// EventValueCoercionFailed fires when a scalar edit does not fit the node type.
	EventValueCoercionFailed EventType = "value_coercion_failed"
	// EventViewSwitched fires after the active view changed.
	EventViewSwitched EventType = "view_switched"
)

// Event is a notification produced by a document for its host.
type Event struct {
	Type EventType `json:"type"`
	View View      `json:"view"`

	// Message and Line describe a parse failure.
	Message string `json:"message,omitempty"`
	Line    int    `json:"line,omitempty"`

	// Node and Text describe a failed scalar edit.
	Node NodeID `json:"node,omitempty"`
	Text string `json:"text,omitempty"`
}

// Listener receives events synchronously, on the caller's goroutine.
type Listener func(Event)

// SyncHooks defines callbacks for synchronizer observability.
type SyncHooks struct {
	OnSwitch    func(from, to View, err error)
	OnPropagate func(source View)
	OnDropped   func(source View)
	OnSerialize func(elapsed time.Duration, err error)
}

// MergeHooks returns hooks that call each of the given hooks in order.
func MergeHooks(all ...SyncHooks) SyncHooks {
	return SyncHooks{
		OnSwitch: func(from, to View, err error) {
			for _, h := range all {
				if h.OnSwitch != nil {
					h.OnSwitch(from, to, err)
				}
			}
		},
		OnPropagate: func(source View) {
			for _, h := range all {
				if h.OnPropagate != nil {
					h.OnPropagate(source)
				}
			}
		},
		OnDropped: func(source View) {
			for _, h := range all {
				if h.OnDropped != nil {
					h.OnDropped(source)
				}
			}
		},
		OnSerialize: func(elapsed time.Duration, err error) {
			for _, h := range all {
				if h.OnSerialize != nil {
					h.OnSerialize(elapsed, err)
				}
			}
		},
	}
}

// Draft is a persisted snapshot of an open document.
type Draft struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Path    string    `json:"path,omitempty"`
	Text    string    `json:"text"`
	View    View      `json:"view"`
	Dirty   bool      `json:"dirty"`
	SavedAt time.Time `json:"saved_at"`
}
