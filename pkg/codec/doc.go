/*
Package codec is the boundary between YAML text and domain.Value.

Parsing goes through gopkg.in/yaml.v3's node API so that mapping key order,
duplicate keys and the scalar tag of every value are visible. Serializing builds a
yaml.Node tree and lets the yaml.v3 encoder pick quoting, with a fixed policy:

  - mapping keys keep insertion order and are never sorted;
  - block style with 2-space indentation (empty containers print as {} and []);
  - non-ASCII text is emitted literally, not escaped;
  - strings that would read back as another type ("123", "true", "null", "1.5")
    are quoted, floats always carry a decimal point or exponent.

The round-trip law holds for every value: Parse(Serialize(v)) equals v.
Comments, anchors and custom tags are not preserved: aliases are expanded,
merge keys are applied and unknown tags decode as strings.
*/
package codec
