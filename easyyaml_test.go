package easyyaml_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/synchronizer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestEditor_OpenEditSave(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "app.yaml", "# settings\nname: app\nports:\n- 80\n")

	editor, err := easyyaml.New()
	require.NoError(t, err)

	doc, err := editor.OpenFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path())
	assert.Equal(t, "app.yaml", doc.Title())
	assert.False(t, doc.IsDirty())

	require.NoError(t, doc.SwitchTo(domain.ViewTree))
	tr, err := doc.Tree()
	require.NoError(t, err)
	ports, err := tr.Lookup("ports")
	require.NoError(t, err)
	_, err = doc.AddNode(ports, "", domain.KindInt, "443")
	require.NoError(t, err)
	assert.True(t, doc.IsDirty())

	require.NoError(t, editor.Save(ctx, doc.ID()))
	assert.False(t, doc.IsDirty())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name: app\nports:\n  - 80\n  - 443\n", string(data), "comments are dropped by the tree view")
}

func TestEditor_OpenFileErrors(t *testing.T) {
	editor, err := easyyaml.New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = editor.OpenFile(ctx, writeFile(t, "notes.txt", "a: 1\n"))
	assert.Error(t, err)

	_, err = editor.OpenFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, "twice.yaml", "a: 1\n")
	_, err = editor.OpenFile(ctx, path)
	require.NoError(t, err)
	_, err = editor.OpenFile(ctx, path)
	assert.ErrorIs(t, err, domain.ErrSessionExists)
}

func TestEditor_SaveRequiresPath(t *testing.T) {
	ctx := context.Background()
	editor, err := easyyaml.New()
	require.NoError(t, err)

	doc, err := editor.Docs.New(ctx, "scratch")
	require.NoError(t, err)
	require.NoError(t, doc.SetText("a: 1\n"))

	err = editor.Save(ctx, doc.ID())
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)

	out := filepath.Join(t.TempDir(), "out.yml")
	require.NoError(t, editor.SaveAs(ctx, doc.ID(), out))
	assert.Equal(t, "out.yml", doc.Title())
	assert.False(t, doc.IsDirty())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(data))
}

func TestEditor_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	var switches int
	editor, err := easyyaml.New(
		easyyaml.WithMetrics(reg),
		easyyaml.WithSyncHooks(domain.SyncHooks{
			OnSwitch: func(from, to domain.View, err error) { switches++ },
		}),
	)
	require.NoError(t, err)
	require.NotNil(t, editor.Metrics)

	doc, err := editor.Docs.Open(context.Background(), "bad", "", "a: [")
	require.NoError(t, err)
	assert.Error(t, doc.SwitchTo(domain.ViewTree))

	assert.Equal(t, 1, switches)
	assert.Equal(t, 1.0, testutil.ToFloat64(editor.Metrics.ParseFailures))
}

func TestEditor_EagerMirror(t *testing.T) {
	drafts := memory.NewDraftStore()
	editor, err := easyyaml.New(
		easyyaml.WithMirror(synchronizer.MirrorEager),
		easyyaml.WithManagerOptions(session.WithDraftStore(drafts)),
	)
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := editor.Docs.Open(ctx, "doc", "", "a: 1\n")
	require.NoError(t, err)
	require.NoError(t, doc.SwitchTo(domain.ViewTree))
	tr, _ := doc.Tree()
	a, _ := tr.Lookup("a")
	_, err = doc.SetScalar(a, "2")
	require.NoError(t, err)

	assert.Equal(t, "a: 2\n", doc.Text(), "the buffer follows every tree edit")

	require.NoError(t, editor.Docs.Persist(ctx, "doc"))
	ids, err := editor.Docs.Drafts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, ids)
}
