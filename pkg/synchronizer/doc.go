/*
Package synchronizer reconciles the text and tree projections of a YAML document.

The Synchronizer is a two-state machine. In the text view the TextBuffer is the
editing surface and the tree is stale until the next switch; in the tree view the
tree model is edited and the text is regenerated from it, either on demand
(MirrorLazy) or once after every edit (MirrorEager).

Every propagation between the views runs under a single boolean guard. A
propagation attempted while the guard is held, such as the buffer's own change
notification while the tree is being rendered into it, is dropped and counted in
Stats.Dropped. This breaks update cycles without locks: the synchronizer is
single-threaded by contract.

Failures never destroy content. Text that does not parse keeps the text view
active and is reported as a ParseError and an EventParseFailed. A tree that cannot
be serialized keeps the tree view active and leaves the text untouched.
*/
package synchronizer
