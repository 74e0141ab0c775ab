/*
Package domain contains the core domain models shared by every easyyaml package.

It defines the typed document value, the errors surfaced by editing operations and
the events a document produces for its host. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Value: A tagged union holding one YAML value (String, Int, Float, Bool, Null,
    Mapping or Sequence). Mappings keep their insertion order.
  - Kind: The type tag carried by every Value and every tree node.
  - View: Which projection of a document (text or tree) is the editing surface.
  - Event: A notification produced for the host (content changed, parse failed,
    value coercion failed).
  - Draft: A persisted snapshot of an open document.
*/
package domain
