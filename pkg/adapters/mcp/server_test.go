package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/templates"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	ID       int64  `json:"id"`
	Key      string `json:"key"`
	Type     string `json:"type"`
	Text     string `json:"text"`
	Children []node `json:"children"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	builtins := memory.NewTemplateStore()
	builtins.Seed("k8s", "deployment.yaml", "kind: Deployment\n")
	return NewServer(session.NewManager(), WithCatalog(templates.New(memory.NewTemplateStore(), builtins)))
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func treeOf(t *testing.T, res *mcp.CallToolResult) node {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var n node
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &n))
	return n
}

func TestOpenAndText(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleOpen(ctx, call("open_document", nil), map[string]any{"id": "doc", "text": "a: 1\n"})
	require.NoError(t, err)
	assert.Equal(t, "doc", resp.ID)
	assert.Equal(t, "text", resp.View)
	assert.False(t, resp.Dirty)

	resp, err = s.handleOpen(ctx, call("open_document", nil), map[string]any{"template": "k8s/deployment.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "kind: Deployment\n", resp.Text)
	assert.NotEmpty(t, resp.ID)

	_, err = s.handleOpen(ctx, call("open_document", nil), map[string]any{"template": "nope.yaml"})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	resp, err = s.handleGetText(ctx, call("get_text", nil), map[string]any{"id": "doc"})
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", resp.Text)

	_, err = s.handleGetText(ctx, call("get_text", nil), map[string]any{"id": "missing"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSwitchView_ParseFailure(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleOpen(ctx, call("open_document", nil), map[string]any{"id": "bad", "text": "a: [1"})
	require.NoError(t, err)

	_, err = s.handleSwitchView(ctx, call("switch_view", nil), map[string]any{"id": "bad", "view": "tree"})
	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)

	resp, err := s.handleGetText(ctx, call("get_text", nil), map[string]any{"id": "bad"})
	require.NoError(t, err)
	assert.Equal(t, "a: [1", resp.Text)
	assert.Equal(t, "text", resp.View)

	_, err = s.handleSwitchView(ctx, call("switch_view", nil), map[string]any{"id": "bad", "view": "graph"})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestTreeTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleOpen(ctx, call("open_document", nil), map[string]any{"id": "doc", "text": "name: app\nport: 80\n"})
	require.NoError(t, err)

	res, err := s.handleGetTree(ctx, call("get_tree", map[string]any{"id": "doc"}))
	require.NoError(t, err)
	root := treeOf(t, res)
	require.Len(t, root.Children, 2)
	port := root.Children[1]
	assert.Equal(t, "port", port.Key)

	res, err = s.handleSetValue(ctx, call("set_value", map[string]any{"id": "doc", "node": float64(port.ID), "value": "8080"}))
	require.NoError(t, err)
	assert.Equal(t, "8080", treeOf(t, res).Text)

	res, err = s.handleSetValue(ctx, call("set_value", map[string]any{"id": "doc", "node": float64(port.ID), "value": "http"}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "coercion failures are tool errors")

	res, err = s.handleAddNode(ctx, call("add_node", map[string]any{"id": "doc", "parent": float64(root.ID), "key": "tags", "type": "sequence"}))
	require.NoError(t, err)
	tags := treeOf(t, res)
	assert.Equal(t, "sequence", tags.Type)

	res, err = s.handleRenameKey(ctx, call("rename_key", map[string]any{"id": "doc", "node": float64(port.ID), "key": "listen"}))
	require.NoError(t, err)
	assert.Equal(t, "listen", treeOf(t, res).Key)

	res, err = s.handleDeleteNode(ctx, call("delete_node", map[string]any{"id": "doc", "node": float64(root.Children[0].ID)}))
	require.NoError(t, err)
	assert.Len(t, treeOf(t, res).Children, 2, "answers with the parent")

	res, err = s.handleDeleteNode(ctx, call("delete_node", map[string]any{"id": "doc", "node": 0.5}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	text, err := s.handleGetText(ctx, call("get_text", nil), map[string]any{"id": "doc"})
	require.NoError(t, err)
	assert.Equal(t, "listen: 8080\ntags: []\n", text.Text)
	assert.True(t, text.Dirty)
}

func TestListTemplates(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleListTemplates(context.Background(), call("list_templates", nil), map[string]any{"query": "deploy"})
	require.NoError(t, err)
	require.Len(t, resp.Templates, 1)
	assert.Equal(t, "K8s > Deployment", resp.Templates[0].Display)

	bare := NewServer(session.NewManager())
	resp, err = bare.handleListTemplates(context.Background(), call("list_templates", nil), map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, resp.Templates)
}

func TestToolsAreRegistered(t *testing.T) {
	s := newTestServer(t)

	msg := s.MCPServer().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(msg)
	require.NoError(t, err)

	for _, name := range []string{"open_document", "get_text", "switch_view", "get_tree", "set_value", "add_node", "delete_node", "rename_key", "list_templates"} {
		assert.Contains(t, string(out), `"name":"`+name+`"`)
	}
}
