// Package query evaluates JSONPath expressions against YAML text and maps
// the matches back to tree paths.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

// Match is one node selected by an expression.
type Match struct {
	// Path addresses the node in the tree view: mapping keys and sequence
	// positions from the root. It is nil for nodes only reachable through
	// an alias.
	Path  []string `json:"path"`
	Line  int      `json:"line"`
	Value string   `json:"value"` // the node rendered as YAML
}

// Compile checks an expression.
func Compile(expr string) (*yamlpath.Path, error) {
	p, err := yamlpath.NewPath(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid path %q: %v", domain.ErrInvalidValue, expr, err)
	}
	return p, nil
}

// Find evaluates expr (e.g. "$.spec.containers[*].image") against text.
func Find(text, expr string) ([]Match, error) {
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}

	v, err := codec.Parse(text)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return []Match{}, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	found, err := p.Find(&doc)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	paths := make(map[*yaml.Node][]string)
	index(doc.Content[0], []string{}, paths)

	out := make([]Match, 0, len(found))
	for _, n := range found {
		v, err := codec.FromNode(n)
		if err != nil {
			return nil, err
		}
		rendered, err := codec.Serialize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, Match{
			Path:  paths[n],
			Line:  n.Line,
			Value: strings.TrimSuffix(rendered, "\n"),
		})
	}
	return out, nil
}

// index records the tree path of every node that is not behind an alias.
func index(n *yaml.Node, path []string, paths map[*yaml.Node][]string) {
	paths[n] = path
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if key == "<<" {
				continue
			}
			index(n.Content[i+1], append(clone(path), key), paths)
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			index(c, append(clone(path), strconv.Itoa(i)), paths)
		}
	}
}

func clone(s []string) []string {
	return append(make([]string, 0, len(s)+1), s...)
}
