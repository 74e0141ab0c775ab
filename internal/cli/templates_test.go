package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	editor := newEditor(t)

	src := filepath.Join(t.TempDir(), "svc.yaml")
	require.NoError(t, os.WriteFile(src, []byte("kind: Service\n"), 0644))
	entry, err := cli.AddTemplate(ctx, editor.Templates, "service", "k8s", "A service", src)
	require.NoError(t, err)
	assert.True(t, entry.User)

	var out bytes.Buffer
	require.NoError(t, cli.ListTemplates(ctx, editor.Templates, "", &out))
	assert.Contains(t, out.String(), "REF")
	assert.Contains(t, out.String(), "Docker > Compose")
	assert.Contains(t, out.String(), entry.Ref)

	out.Reset()
	require.NoError(t, cli.ListTemplates(ctx, editor.Templates, "compose", &out))
	assert.Contains(t, out.String(), "Docker > Compose")
	assert.NotContains(t, out.String(), entry.Ref)
}

func TestCreateFromTemplate(t *testing.T) {
	ctx := context.Background()
	editor := newEditor(t)
	path := filepath.Join(t.TempDir(), "compose.yaml")

	require.NoError(t, cli.CreateFromTemplate(ctx, editor, "docker/compose.yaml", path, false))
	assert.Equal(t, "services:\n  web:\n    image: nginx\n", readFile(t, path))
	assert.Empty(t, editor.Docs.Tabs())

	err := cli.CreateFromTemplate(ctx, editor, "docker/compose.yaml", path, false)
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
	require.NoError(t, cli.CreateFromTemplate(ctx, editor, "docker/compose.yaml", path, true))

	err = cli.CreateFromTemplate(ctx, editor, "docker/missing.yaml", filepath.Join(t.TempDir(), "x.yaml"), false)
	assert.Error(t, err)
}
