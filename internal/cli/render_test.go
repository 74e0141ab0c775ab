package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTree(t *testing.T, text string) *tree.Tree {
	t.Helper()
	v, err := codec.Parse(text)
	require.NoError(t, err)
	return tree.FromValue(v)
}

func TestRenderTree(t *testing.T) {
	tr := parseTree(t, appYAML)

	t.Run("outline", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, cli.RenderTree(&out, tr, cli.RenderOptions{}))
		assert.Equal(t, "{2} (mapping)\nname: app (string)\nports: [2] (sequence)\n  0: 80 (int)\n  1: 443 (int)\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, cli.RenderTree(&out, tr, cli.RenderOptions{Format: cli.FormatJSON}))
		var snap struct {
			Type     string `json:"type"`
			Children []struct {
				Key string `json:"key"`
			} `json:"children"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
		assert.Equal(t, "mapping", snap.Type)
		require.Len(t, snap.Children, 2)
		assert.Equal(t, "ports", snap.Children[1].Key)
	})

	t.Run("mermaid with highlight", func(t *testing.T) {
		var out bytes.Buffer
		err := cli.RenderTree(&out, tr, cli.RenderOptions{Format: cli.FormatMermaid, Text: appYAML, Highlight: "$.ports[1]"})
		require.NoError(t, err)
		id, err := tr.Lookup("ports", "1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out.String(), "graph TD\n"))
		assert.Contains(t, out.String(), fmt.Sprintf("class n%d matched;", id))
	})

	t.Run("rich", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, cli.RenderTree(&out, tr, cli.RenderOptions{Format: cli.FormatRich, Title: "app.yaml"}))
		assert.Contains(t, out.String(), "ports")
	})

	t.Run("unknown format", func(t *testing.T) {
		err := cli.RenderTree(&bytes.Buffer{}, tr, cli.RenderOptions{Format: "svg"})
		assert.ErrorIs(t, err, domain.ErrInvalidValue)
	})
}

func TestHighlight(t *testing.T) {
	text := "base: &b\n  image: nginx\nweb:\n  <<: *b\n  port: 80\n"
	tr := parseTree(t, text)

	ids, err := cli.Highlight(tr, text, "$..port")
	require.NoError(t, err)
	want, err := tr.Lookup("web", "port")
	require.NoError(t, err)
	assert.Equal(t, []tree.NodeID{want}, ids)

	_, err = cli.Highlight(tr, text, "$.ports[")
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestQuery(t *testing.T) {
	var out bytes.Buffer
	n, err := cli.Query(&out, appYAML, "$.ports[*]")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "ports.0 (line 3)\n  80\nports.1 (line 4)\n  443\n", out.String())
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: app\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- cli.Watch(ctx, path, cli.WatchOptions{Debounce: 10 * time.Millisecond, Out: out})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "name: app (string)")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("name: [broken\n"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), path+": ")
	}, 2*time.Second, 10*time.Millisecond, "parse errors are reported")

	require.NoError(t, os.WriteFile(path, []byte("name: web\n"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "name: web (string)")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
