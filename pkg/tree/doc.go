/*
Package tree implements the structured projection of a YAML document.

A Tree is an arena of nodes addressed by stable NodeIDs. Parents own their
children through ordered id lists and every node keeps a non-owning
back-reference to its parent. Mapping children carry their key; sequence
children carry no key at all, their position is derived from the parent's
child order whenever it is displayed, so deletes and reorders never leave
gaps or stale indices.

Every mutating operation validates its input first and either applies fully
or returns an error with the tree unchanged.
*/
package tree
