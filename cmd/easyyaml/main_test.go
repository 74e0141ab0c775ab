package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/easyyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "easyyaml version "+strings.TrimSpace(easyyaml.Version)+"\n", out)
}

func TestEditCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: app\nports: [80]\n"), 0644))

	_, err := run(t, "set", "--write", path, "name", "web")
	require.NoError(t, err)

	out, err := run(t, "get", path, "name")
	require.NoError(t, err)
	assert.Equal(t, "web\n", out)

	out, err = run(t, "add", path, "ports", "-", "int", "443")
	require.NoError(t, err)
	assert.Equal(t, "name: web\nports:\n  - 80\n  - 443\n", out)

	out, err = run(t, "query", path, "$.ports[0]")
	require.NoError(t, err)
	assert.Equal(t, "ports.0 (line 3)\n  80\n", out)

	_, err = run(t, "mv", path, ".", "one", "0")
	assert.Error(t, err)

	_, err = run(t, "get", path, "missing")
	assert.Error(t, err)
}

func TestUnknownTransport(t *testing.T) {
	_, err := run(t, "mcp", "--transport", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown transport")
}
