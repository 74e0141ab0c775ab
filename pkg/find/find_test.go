package find_test

import (
	"testing"

	"github.com/aretw0/easyyaml/pkg/find"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const text = "name: Test\nnote: test the tester\n"

func TestFind_Forward(t *testing.T) {
	m, ok, err := find.Find(text, "test", 0, find.Options{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Test", text[m.Start:m.End], "case-insensitive by default")

	m, ok, err = find.Find(text, "test", 0, find.Options{CaseSensitive: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 17, m.Start)

	_, ok, err = find.Find(text, "test", 30, find.Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.False(t, ok, "no wrap around")
}

func TestFind_Backward(t *testing.T) {
	m, ok, err := find.Find(text, "test", len(text), find.Options{Backward: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test", text[m.Start:m.End])
	assert.Equal(t, 26, m.Start)

	prev, ok, err := find.Find(text, "test", m.Start, find.Options{Backward: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 17, prev.Start)

	_, ok, err = find.Find(text, "test", 3, find.Options{Backward: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFind_Unicode(t *testing.T) {
	src := "título: ÁRVORE\nnome: árvore\n"
	all, err := find.All(src, "árvore", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ÁRVORE", src[all[0].Start:all[0].End])
}

func TestFind_EmptyQuery(t *testing.T) {
	_, _, err := find.Find(text, "", 0, find.Options{})
	assert.ErrorIs(t, err, find.ErrEmptyQuery)

	_, _, err = find.ReplaceAll(text, "", "x", false)
	assert.ErrorIs(t, err, find.ErrEmptyQuery)
}

func TestReplace(t *testing.T) {
	m, ok, err := find.Find(text, "Test", 0, find.Options{CaseSensitive: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "name: Demo\nnote: test the tester\n", find.Replace(text, m, "Demo"))
}

func TestReplaceAll(t *testing.T) {
	out, n, err := find.ReplaceAll(text, "test", "$1.*", false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "name: $1.*\nnote: $1.* the $1.*er\n", out, "query and replacement are literal")

	out, n, err = find.ReplaceAll(text, "missing", "x", true)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, text, out)
}
