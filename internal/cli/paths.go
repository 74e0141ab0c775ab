package cli

import (
	"fmt"
	"strings"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/tree"
)

// SplitPath splits a dot separated node path. Sequence positions are
// numbers: "items.0.name". The empty path and "." address the root.
func SplitPath(p string) ([]string, error) {
	p = strings.TrimSpace(p)
	if p == "" || p == "." {
		return nil, nil
	}
	segs := strings.Split(p, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in path %q", domain.ErrInvalidValue, p)
		}
	}
	return segs, nil
}

// Resolve finds the node at a dot separated path.
func Resolve(t tree.Reader, p string) (tree.NodeID, error) {
	segs, err := SplitPath(p)
	if err != nil {
		return 0, err
	}
	id, err := t.Lookup(segs...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p, err)
	}
	return id, nil
}

// JoinPath is the inverse of SplitPath.
func JoinPath(segs []string) string {
	if len(segs) == 0 {
		return "."
	}
	return strings.Join(segs, ".")
}
