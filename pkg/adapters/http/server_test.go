package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/aretw0/easyyaml/pkg/adapters/http"
	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/observability"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/templates"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

func (n node) child(key string) node {
	for _, c := range n.Children {
		if c.Key == key {
			return c
		}
	}
	return node{}
}

func newHandler(t *testing.T, opts ...httpadapter.Option) (http.Handler, *session.Manager) {
	t.Helper()
	docs := session.NewManager()
	h, err := httpadapter.NewHandler(docs, opts...)
	require.NoError(t, err)
	return h, docs
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSpecIsValid(t *testing.T) {
	doc, err := httpadapter.GetSwagger()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", doc.Info.Version)
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newHandler(t, httpadapter.WithVersion("1.2.3\n"))

	w := do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "GET", "/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[map[string]string](t, w)
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = do(t, h, "GET", "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestEditScenario(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, "POST", "/documents", map[string]string{"id": "doc", "text": "name: test\ncount: 3\nactive: true\n"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "doc", decode[httpadapter.DocumentRef](t, w).ID)

	w = do(t, h, "GET", "/documents/doc/tree", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "tree requires the tree view")

	w = do(t, h, "POST", "/documents/doc/view", map[string]string{"view": "tree"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, "GET", "/documents/doc/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	root := decode[node](t, w)
	require.Len(t, root.Children, 3)
	count := root.child("count")
	assert.Equal(t, "int", count.Type)

	w = do(t, h, "PATCH", "/documents/doc/nodes/"+itoa(count.ID), map[string]string{"value": "5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "5", decode[node](t, w).Text)

	w = do(t, h, "PATCH", "/documents/doc/nodes/"+itoa(count.ID), map[string]string{"value": "five"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, "POST", "/documents/doc/view", map[string]string{"view": "text"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "GET", "/documents/doc/text", nil)
	require.Equal(t, http.StatusOK, w.Code)
	text := decode[httpadapter.TextResponse](t, w)
	assert.Equal(t, "name: test\ncount: 5\nactive: true\n", text.Text)
	assert.True(t, text.Dirty)

	w = do(t, h, "POST", "/documents/doc/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[httpadapter.TextResponse](t, w).Dirty)
}

func TestTreeEdits(t *testing.T) {
	h, _ := newHandler(t)

	do(t, h, "POST", "/documents", map[string]string{"id": "doc", "text": "items:\n  - a\n  - b\n"})
	do(t, h, "POST", "/documents/doc/view", map[string]string{"view": "tree"})
	root := decode[node](t, do(t, h, "GET", "/documents/doc/tree", nil))
	items := root.child("items")

	w := do(t, h, "POST", "/documents/doc/nodes/"+itoa(items.ID)+"/children", map[string]string{"type": "int", "value": "3"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "2", decode[node](t, w).Key)

	w = do(t, h, "POST", "/documents/doc/nodes/"+itoa(items.ID)+"/reorder", map[string]int{"from": 2, "to": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reordered := decode[node](t, w)
	assert.Equal(t, "3", reordered.Children[0].Text)

	w = do(t, h, "PATCH", "/documents/doc/nodes/"+itoa(reordered.Children[1].ID), map[string]string{"key": "first"})
	assert.Equal(t, http.StatusConflict, w.Code, "sequence positions cannot be renamed")

	w = do(t, h, "DELETE", "/documents/doc/nodes/"+itoa(reordered.Children[1].ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "DELETE", "/documents/doc/nodes/"+itoa(reordered.Children[1].ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "PATCH", "/documents/doc/nodes/"+itoa(items.ID), map[string]string{"type": "mapping", "key": "things"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	changed := decode[node](t, w)
	assert.Equal(t, "things", changed.Key)
	assert.Equal(t, "mapping", changed.Type)

	w = do(t, h, "GET", "/documents/doc/text", nil)
	assert.Equal(t, "things: {}\n", decode[httpadapter.TextResponse](t, w).Text)
}

func TestUpdateNodeIsAtomic(t *testing.T) {
	h, docs := newHandler(t)

	do(t, h, "POST", "/documents", map[string]string{"id": "doc", "text": "a: x\nb: 1\n"})
	do(t, h, "POST", "/documents/doc/view", map[string]string{"view": "tree"})
	root := decode[node](t, do(t, h, "GET", "/documents/doc/tree", nil))
	a := root.child("a")

	w := do(t, h, "PATCH", "/documents/doc/nodes/"+itoa(a.ID), map[string]string{"value": "changed", "key": "b"})
	assert.Equal(t, http.StatusConflict, w.Code, "duplicate key")

	w = do(t, h, "PATCH", "/documents/doc/nodes/"+itoa(a.ID), map[string]string{"type": "bool", "value": "yes", "key": "b"})
	assert.Equal(t, http.StatusConflict, w.Code)

	root = decode[node](t, do(t, h, "GET", "/documents/doc/tree", nil))
	assert.Equal(t, "x", root.child("a").Text)
	assert.Equal(t, "string", root.child("a").Type)

	text := decode[httpadapter.TextResponse](t, do(t, h, "GET", "/documents/doc/text", nil))
	assert.Equal(t, "a: x\nb: 1\n", text.Text)
	assert.False(t, text.Dirty)
	assert.Len(t, docs.Tabs(), 1)
}

func TestParseFailureKeepsText(t *testing.T) {
	h, _ := newHandler(t)

	do(t, h, "POST", "/documents", map[string]string{"id": "bad", "text": "key: [unterminated"})
	w := do(t, h, "POST", "/documents/bad/view", map[string]string{"view": "tree"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, decode[httpadapter.ErrorResponse](t, w).Error)

	w = do(t, h, "GET", "/documents/bad/text", nil)
	text := decode[httpadapter.TextResponse](t, w)
	assert.Equal(t, "key: [unterminated", text.Text)
	assert.Equal(t, "text", text.View)
}

func TestRequestValidation(t *testing.T) {
	h, _ := newHandler(t)
	do(t, h, "POST", "/documents", map[string]string{"id": "doc", "text": "a: 1\n"})

	tests := []struct {
		name   string
		method string
		target string
		body   any
	}{
		{"text must be a string", "POST", "/documents", map[string]int{"text": 5}},
		{"unknown view", "POST", "/documents/doc/view", map[string]string{"view": "graph"}},
		{"empty patch", "PATCH", "/documents/doc/nodes/2", map[string]string{}},
		{"node ids start at 1", "DELETE", "/documents/doc/nodes/0", nil},
		{"node id is numeric", "DELETE", "/documents/doc/nodes/abc", nil},
		{"unknown type", "POST", "/documents/doc/nodes/1/children", map[string]string{"type": "date"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestDocumentsLifecycle(t *testing.T) {
	h, docs := newHandler(t)

	do(t, h, "POST", "/documents", map[string]string{"id": "a", "text": "a: 1\n"})
	do(t, h, "POST", "/documents", map[string]string{"title": "scratch"})

	w := do(t, h, "POST", "/documents", map[string]string{"id": "a"})
	assert.Equal(t, http.StatusConflict, w.Code)

	tabs := decode[[]session.Tab](t, do(t, h, "GET", "/documents", nil))
	require.Len(t, tabs, 2)
	assert.Equal(t, "scratch", tabs[1].Title)

	w = do(t, h, "PUT", "/documents/a/text", map[string]string{"text": "a: 2\n"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "DELETE", "/documents/a", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "dirty documents are kept")

	w = do(t, h, "DELETE", "/documents/a?force=true", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, docs.Tabs(), 1)

	w = do(t, h, "GET", "/documents/a/text", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplates(t *testing.T) {
	store := memory.NewTemplateStore()
	store.Seed("docker", "compose.yaml", "services: {}\n")
	catalog := templates.New(memory.NewTemplateStore(), store)
	h, _ := newHandler(t, httpadapter.WithCatalog(catalog))

	w := do(t, h, "GET", "/templates?q=comp", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]templates.Entry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, "Docker > Compose", entries[0].Display)

	w = do(t, h, "POST", "/documents", map[string]string{"id": "c", "template": "docker/compose.yaml"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(t, h, "GET", "/documents/c/text", nil)
	assert.Equal(t, "services: {}\n", decode[httpadapter.TextResponse](t, w).Text)

	w = do(t, h, "POST", "/documents", map[string]string{"template": "missing.yaml"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	docs := session.NewManager(session.WithSyncOptions(m.SyncOptions()...))
	h, err := httpadapter.NewHandler(docs, httpadapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	require.NoError(t, err)

	do(t, h, "POST", "/documents", map[string]string{"id": "doc", "text": "a: 1\n"})
	do(t, h, "POST", "/documents/doc/view", map[string]string{"view": "tree"})

	w := do(t, h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `easyyaml_view_switches_total{result="ok",to="tree"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	streams := httpadapter.NewStreamManager(nil)
	docs := session.NewManager(session.WithEvents(streams.Publish))
	h, err := httpadapter.NewHandler(docs, httpadapter.WithStreams(streams))
	require.NoError(t, err)

	do(t, h, "POST", "/documents", map[string]string{"id": "doc", "text": "a: [1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/documents/doc/events?types=parse_failed", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(wSub, reqSub)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	do(t, h, "PUT", "/documents/doc/text", map[string]string{"text": "a: [1"})
	do(t, h, "POST", "/documents/doc/view", map[string]string{"view": "tree"})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"type":"parse_failed"`)
	assert.False(t, strings.Contains(output, `"content_changed"`), "filtered out")

	w := do(t, h, "GET", "/documents/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
