package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/internal/logging"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/templates"
	"github.com/aretw0/easyyaml/pkg/tree"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DocumentsURI is the resource listing the open documents.
const DocumentsURI = "easyyaml://documents"

// TextResponse aligns with the OpenAPI schema and provides a unified structure across adapters.
type TextResponse struct {
	ID    string `json:"id" jsonschema_description:"The document ID"`
	Text  string `json:"text" jsonschema_description:"The canonical YAML text"`
	View  string `json:"view" jsonschema_description:"The active view (text or tree)"`
	Dirty bool   `json:"dirty" jsonschema_description:"Indicates unsaved changes"`
}

// TemplatesResponse lists catalog entries.
type TemplatesResponse struct {
	Templates []templates.Entry `json:"templates" jsonschema_description:"Matching templates in display order"`
}

// Server exposes a document workspace as an MCP Server.
type Server struct {
	docs      *session.Manager
	catalog   *templates.Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithCatalog enables list_templates and template based documents.
func WithCatalog(c *templates.Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(docs *session.Manager, opts ...Option) *Server {
	s := &Server{
		docs:   docs,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("easyyaml-mcp", strings.TrimSpace(easyyaml.Version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: open_document
	openTool := mcp.NewTool("open_document",
		mcp.WithDescription("Open a YAML document from text or from a template. Returns the document in the text view."),
		mcp.WithString("id", mcp.Description("Document ID (generated when omitted)")),
		mcp.WithString("title", mcp.Description("Tab title")),
		mcp.WithString("text", mcp.Description("Initial YAML text")),
		mcp.WithString("template", mcp.Description("Template reference, used when text is omitted")),
		mcp.WithOutputSchema[TextResponse](),
	)
	s.mcpServer.AddTool(openTool, mcp.NewStructuredToolHandler(s.handleOpen))

	// TOOL: get_text
	getTextTool := mcp.NewTool("get_text",
		mcp.WithDescription("Get the canonical text of a document. Tree edits are rendered first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithOutputSchema[TextResponse](),
	)
	s.mcpServer.AddTool(getTextTool, mcp.NewStructuredToolHandler(s.handleGetText))

	// TOOL: switch_view
	switchTool := mcp.NewTool("switch_view",
		mcp.WithDescription("Make the text or the tree view active. Switching to the tree fails when the text is not valid YAML."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("view", mcp.Required(), mcp.Enum("text", "tree"), mcp.Description("Target view")),
		mcp.WithOutputSchema[TextResponse](),
	)
	s.mcpServer.AddTool(switchTool, mcp.NewStructuredToolHandler(s.handleSwitchView))

	// Tree tools answer with JSON text: node snapshots are recursive.

	// TOOL: get_tree
	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the document tree (id, key, type, value, children). Switches to the tree view."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
	), s.handleGetTree)

	// TOOL: set_value
	s.mcpServer.AddTool(mcp.NewTool("set_value",
		mcp.WithDescription("Set the value of a scalar node. The text is converted to the node type."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithNumber("node", mcp.Required(), mcp.Description("Node ID from get_tree")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value as text")),
	), s.handleSetValue)

	// TOOL: add_node
	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Append a child to a mapping or sequence node."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithNumber("parent", mcp.Required(), mcp.Description("Parent node ID")),
		mcp.WithString("key", mcp.Description("Mapping key (ignored for sequences)")),
		mcp.WithString("type", mcp.Required(),
			mcp.Enum("string", "int", "float", "bool", "null", "mapping", "sequence"),
			mcp.Description("Type of the new node")),
		mcp.WithString("value", mcp.Description("Initial scalar value as text")),
	), s.handleAddNode)

	// TOOL: delete_node
	s.mcpServer.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node and its subtree."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithNumber("node", mcp.Required(), mcp.Description("Node ID")),
	), s.handleDeleteNode)

	// TOOL: rename_key
	s.mcpServer.AddTool(mcp.NewTool("rename_key",
		mcp.WithDescription("Rename a mapping key. Sequence positions cannot be renamed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithNumber("node", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("key", mcp.Required(), mcp.Description("New key")),
	), s.handleRenameKey)

	// TOOL: list_templates
	templatesTool := mcp.NewTool("list_templates",
		mcp.WithDescription("List document templates, optionally filtered by a fuzzy query."),
		mcp.WithString("query", mcp.Description("Filter")),
		mcp.WithOutputSchema[TemplatesResponse](),
	)
	s.mcpServer.AddTool(templatesTool, mcp.NewStructuredToolHandler(s.handleListTemplates))
}

// Handler methods for structured tools

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TextResponse, error) {
	id, _ := args["id"].(string)
	title, _ := args["title"].(string)
	text, hasText := args["text"].(string)

	if ref, ok := args["template"].(string); ok && !hasText {
		if s.catalog == nil {
			return TextResponse{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
		}
		t, err := s.catalog.Text(ctx, ref)
		if err != nil {
			return TextResponse{}, err
		}
		text = t
	}

	doc, err := s.docs.Open(ctx, id, title, text)
	if err != nil {
		return TextResponse{}, err
	}
	return s.text(ctx, doc.ID(), nil)
}

func (s *Server) handleGetText(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TextResponse, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return TextResponse{}, err
	}
	return s.text(ctx, id, nil)
}

func (s *Server) handleSwitchView(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TextResponse, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return TextResponse{}, err
	}
	name, err := stringArg(args, "view")
	if err != nil {
		return TextResponse{}, err
	}
	view, err := domain.ParseView(name)
	if err != nil {
		return TextResponse{}, err
	}
	return s.text(ctx, id, func(doc *session.Session) error {
		err := doc.SwitchTo(view)
		var perr *domain.ParseError
		if errors.As(err, &perr) {
			s.logger.Warn("MCP switch_view: text does not parse", "document_id", id, "line", perr.Line)
		}
		return err
	})
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TemplatesResponse, error) {
	if s.catalog == nil {
		return TemplatesResponse{Templates: []templates.Entry{}}, nil
	}
	query, _ := args["query"].(string)
	entries, err := s.catalog.Search(ctx, query)
	if err != nil {
		return TemplatesResponse{}, err
	}
	return TemplatesResponse{Templates: entries}, nil
}

// text runs fn, when set, and reports the document text, all under the
// document lock.
func (s *Server) text(ctx context.Context, id string, fn func(*session.Session) error) (TextResponse, error) {
	var resp TextResponse
	err := s.docs.WithLock(ctx, id, func(ctx context.Context, doc *session.Session) error {
		if fn != nil {
			if err := fn(doc); err != nil {
				return err
			}
		}
		text, err := doc.CanonicalText()
		if err != nil {
			return err
		}
		resp = TextResponse{ID: id, Text: text, View: doc.View().String(), Dirty: doc.IsDirty()}
		return nil
	})
	return resp, err
}

// Handler methods for tree tools

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	return s.treeResult(ctx, args, func(doc *session.Session) (tree.NodeID, error) {
		if err := doc.SwitchTo(domain.ViewTree); err != nil {
			return 0, err
		}
		t, err := doc.Tree()
		if err != nil {
			return 0, err
		}
		return t.Root(), nil
	})
}

func (s *Server) handleSetValue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	return s.treeResult(ctx, args, func(doc *session.Session) (tree.NodeID, error) {
		node, err := nodeArg(args, "node")
		if err != nil {
			return 0, err
		}
		value, err := stringArg(args, "value")
		if err != nil {
			return 0, err
		}
		_, err = doc.SetScalar(node, value)
		return node, err
	})
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	return s.treeResult(ctx, args, func(doc *session.Session) (tree.NodeID, error) {
		parent, err := nodeArg(args, "parent")
		if err != nil {
			return 0, err
		}
		typeName, err := stringArg(args, "type")
		if err != nil {
			return 0, err
		}
		kind, err := domain.ParseKind(typeName)
		if err != nil {
			return 0, err
		}
		key, _ := args["key"].(string)
		value, _ := args["value"].(string)
		return doc.AddNode(parent, key, kind, value)
	})
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	return s.treeResult(ctx, args, func(doc *session.Session) (tree.NodeID, error) {
		node, err := nodeArg(args, "node")
		if err != nil {
			return 0, err
		}
		t, err := doc.Tree()
		if err != nil {
			return 0, err
		}
		item, err := t.Item(node)
		if err != nil {
			return 0, err
		}
		if err := doc.Delete(node); err != nil {
			return 0, err
		}
		return item.Parent, nil
	})
}

func (s *Server) handleRenameKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	return s.treeResult(ctx, args, func(doc *session.Session) (tree.NodeID, error) {
		node, err := nodeArg(args, "node")
		if err != nil {
			return 0, err
		}
		key, err := stringArg(args, "key")
		if err != nil {
			return 0, err
		}
		return node, doc.Rename(node, key)
	})
}

// treeResult runs fn under the document lock and answers with the JSON
// snapshot of the node it returns. Failures are tool errors, not protocol
// errors.
func (s *Server) treeResult(ctx context.Context, args map[string]any, fn func(*session.Session) (tree.NodeID, error)) (*mcp.CallToolResult, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var snap tree.Snapshot
	err = s.docs.WithLock(ctx, id, func(ctx context.Context, doc *session.Session) error {
		node, err := fn(doc)
		if err != nil {
			return err
		}
		t, err := doc.Tree()
		if err != nil {
			return err
		}
		snap, err = t.Snapshot(node)
		return err
	})
	if err != nil {
		s.logger.Debug("MCP tree tool failed", "document_id", id, "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	jsonBytes, err := json.Marshal(snap)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: easyyaml://documents
	s.mcpServer.AddResource(mcp.NewResource(DocumentsURI, "Open Documents",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.docs.Tabs())
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      DocumentsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is required", domain.ErrInvalidValue, name)
	}
	return v, nil
}

// nodeArg reads a node id. JSON numbers arrive as float64.
func nodeArg(args map[string]any, name string) (tree.NodeID, error) {
	switch v := args[name].(type) {
	case float64:
		if v < 1 || v != float64(int64(v)) {
			return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidValue, name)
		}
		return tree.NodeID(v), nil
	case int:
		if v < 1 {
			return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidValue, name)
		}
		return tree.NodeID(v), nil
	}
	return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidValue, name)
}
