package synchronizer

// TextBuffer is the raw text projection of a document. Observers are called
// synchronously after every replacement, in registration order.
type TextBuffer struct {
	text      string
	observers []func(text string)
}

// NewTextBuffer returns a buffer holding text.
func NewTextBuffer(text string) *TextBuffer {
	return &TextBuffer{text: text}
}

// Text returns the current contents.
func (b *TextBuffer) Text() string { return b.text }

// Replace swaps the contents and notifies observers.
func (b *TextBuffer) Replace(text string) {
	b.text = text
	for _, fn := range b.observers {
		fn(text)
	}
}

// Observe registers fn to be called after each replacement.
func (b *TextBuffer) Observe(fn func(text string)) {
	b.observers = append(b.observers, fn)
}
