package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/scalar"
	"gopkg.in/yaml.v3"
)

// Indent is the block indentation used by Serialize.
const Indent = 2

// maxExpandedNodes bounds alias expansion ("billion laughs" documents).
const maxExpandedNodes = 1 << 20

// YAML implements the synchronizer codec with Parse and Serialize.
type YAML struct{}

func (YAML) Parse(text string) (domain.Value, error) { return Parse(text) }

func (YAML) Serialize(v domain.Value) (string, error) { return Serialize(v) }

// Parse decodes a single YAML document. Empty or comment-only text is Null.
func Parse(text string) (domain.Value, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Null(), nil
		}
		return domain.Value{}, toParseError(err)
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case err == nil:
		return domain.Value{}, &domain.ParseError{Message: "expected a single document in the stream", Line: extra.Line}
	case !errors.Is(err, io.EOF):
		return domain.Value{}, toParseError(err)
	}

	c := &converter{budget: maxExpandedNodes}
	return c.value(&doc)
}

// FromNode converts a decoded node with the same rules as Parse.
func FromNode(n *yaml.Node) (domain.Value, error) {
	c := &converter{budget: maxExpandedNodes}
	return c.value(n)
}

var lineError = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

func toParseError(err error) *domain.ParseError {
	msg := err.Error()
	if m := lineError.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &domain.ParseError{Message: m[2], Line: line}
	}
	return &domain.ParseError{Message: strings.TrimPrefix(msg, "yaml: ")}
}

type converter struct {
	budget int
}

func (c *converter) value(n *yaml.Node) (domain.Value, error) {
	c.budget--
	if c.budget < 0 {
		return domain.Value{}, &domain.ParseError{Message: "document expands too far through aliases", Line: n.Line}
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return domain.Null(), nil
		}
		return c.value(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return domain.Value{}, &domain.ParseError{Message: "unknown anchor " + n.Value, Line: n.Line}
		}
		return c.value(n.Alias)
	case yaml.ScalarNode:
		return scalarValue(n)
	case yaml.SequenceNode:
		items := make([]domain.Value, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := c.value(child)
			if err != nil {
				return domain.Value{}, err
			}
			items = append(items, v)
		}
		return domain.Sequence(items...), nil
	case yaml.MappingNode:
		return c.mapping(n)
	}
	return domain.Null(), nil
}

func (c *converter) mapping(n *yaml.Node) (domain.Value, error) {
	entries := make([]domain.Entry, 0, len(n.Content)/2)
	seen := make(map[string]int, len(n.Content)/2)
	var merged []domain.Entry

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.AliasNode && k.Alias != nil {
			k = k.Alias
		}
		if k.Kind != yaml.ScalarNode {
			return domain.Value{}, &domain.ParseError{Message: "mapping keys must be scalars", Line: k.Line}
		}

		if k.ShortTag() == "!!merge" {
			more, err := c.mergeSources(v)
			if err != nil {
				return domain.Value{}, err
			}
			merged = append(merged, more...)
			continue
		}

		key := k.Value
		if line, dup := seen[key]; dup {
			return domain.Value{}, &domain.ParseError{
				Message: fmt.Sprintf("mapping key %q already defined at line %d", key, line),
				Line:    k.Line,
			}
		}
		seen[key] = k.Line

		val, err := c.value(v)
		if err != nil {
			return domain.Value{}, err
		}
		entries = append(entries, domain.E(key, val))
	}

	// Explicit keys win over merged ones; the first merge source wins among sources.
	for _, e := range merged {
		if _, ok := seen[e.Key]; ok {
			continue
		}
		seen[e.Key] = 0
		entries = append(entries, e)
	}
	return domain.Mapping(entries...), nil
}

func (c *converter) mergeSources(v *yaml.Node) ([]domain.Entry, error) {
	var sources []*yaml.Node
	if v.Kind == yaml.SequenceNode {
		sources = v.Content
	} else {
		sources = []*yaml.Node{v}
	}

	var out []domain.Entry
	for _, src := range sources {
		val, err := c.value(src)
		if err != nil {
			return nil, err
		}
		if val.Kind() != domain.KindMapping {
			return nil, &domain.ParseError{Message: "map merge requires a mapping or a list of mappings", Line: src.Line}
		}
		out = append(out, val.Entries()...)
	}
	return out, nil
}

func scalarValue(n *yaml.Node) (domain.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return domain.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return domain.Value{}, &domain.ParseError{Message: err.Error(), Line: n.Line}
		}
		return domain.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return domain.Value{}, &domain.ParseError{Message: fmt.Sprintf("integer %s does not fit in 64 bits", n.Value), Line: n.Line}
		}
		return domain.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return domain.Value{}, &domain.ParseError{Message: err.Error(), Line: n.Line}
		}
		return domain.Float(f), nil
	}
	// !!str, !!timestamp, !!binary and custom tags keep their text.
	return domain.String(n.Value), nil
}

// Serialize renders v as a block-style YAML document.
func Serialize(v domain.Value) (string, error) {
	node, err := toNode(v)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(node); err != nil {
		return "", &domain.SerializationError{Reason: "encode", Err: err}
	}
	if err := enc.Close(); err != nil {
		return "", &domain.SerializationError{Reason: "encode", Err: err}
	}
	return buf.String(), nil
}

func toNode(v domain.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case domain.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case domain.KindString:
		s := v.AsString()
		if !utf8.ValidString(s) {
			return nil, &domain.SerializationError{Reason: "string is not valid UTF-8"}
		}
		// The !!str tag makes the encoder quote text that would resolve to another type.
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}, nil
	case domain.KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.AsInt(), 10)}, nil
	case domain.KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: scalar.FormatFloat(v.AsFloat())}, nil
	case domain.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.AsBool())}, nil
	case domain.KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items() {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case domain.KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.Entries() {
			key, err := keyNode(e.Key)
			if err != nil {
				return nil, err
			}
			child, err := toNode(e.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, key, child)
		}
		return n, nil
	}
	return nil, &domain.SerializationError{Reason: "unsupported kind " + v.Kind().String()}
}

// keyNode leaves keys untagged: keys are read back from their raw text, so a
// plain `1:` or `null:` key survives as written.
func keyNode(key string) (*yaml.Node, error) {
	if !utf8.ValidString(key) {
		return nil, &domain.SerializationError{Reason: "mapping key is not valid UTF-8"}
	}
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	if key == "<<" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n, nil
}
