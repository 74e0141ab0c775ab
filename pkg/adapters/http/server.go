package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/easyyaml/internal/logging"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/templates"
	"github.com/aretw0/easyyaml/pkg/tree"
	"github.com/go-chi/chi/v5"
)

// Server implements ServerInterface on a document workspace.
type Server struct {
	Docs    *session.Manager
	Catalog *templates.Catalog
	Streams *StreamManager

	version string
	metrics http.Handler
	logger  *slog.Logger
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

// Option configures the Server.
type Option func(*Server)

// WithCatalog enables template listing and template based documents.
func WithCatalog(c *templates.Catalog) Option {
	return func(s *Server) {
		s.Catalog = c
	}
}

// WithStreams serves document events over SSE. The manager must forward
// its events to the stream manager with session.WithEvents(streams.Publish).
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for docs.
func NewServer(docs *session.Manager, opts ...Option) *Server {
	s := &Server{
		Docs:    docs,
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates the HTTP handler: the document API validated against
// the embedded OpenAPI document, the spec itself and, optionally, metrics.
func NewHandler(docs *session.Manager, opts ...Option) (http.Handler, error) {
	server := NewServer(docs, opts...)

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := ValidateRequests(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build request validator: %w", err)
	}

	r := chi.NewRouter()
	r.Use(validate)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Write(spec)
	})
	if server.metrics != nil {
		r.Handle("/metrics", server.metrics)
	}

	return HandlerFromMux(server, r), nil
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "easyyaml-http",
		"version":     strings.TrimSpace(s.version),
		"api_version": apiVersion,
	})
}

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Docs.Tabs())
}

// CreateDocument handles the POST /documents request.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var body CreateDocumentRequest
	if !s.decode(w, r, &body) {
		return
	}

	var id, title, text string
	if body.ID != nil {
		id = *body.ID
	}
	if body.Title != nil {
		title = *body.Title
	}
	switch {
	case body.Text != nil:
		text = *body.Text
	case body.Template != nil:
		if s.Catalog == nil {
			s.fail(w, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, *body.Template))
			return
		}
		t, err := s.Catalog.Text(r.Context(), *body.Template)
		if err != nil {
			s.fail(w, err)
			return
		}
		text = t
	}

	doc, err := s.Docs.Open(r.Context(), id, title, text)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DocumentRef{ID: doc.ID()})
}

// CloseDocument handles the DELETE /documents/{id} request.
func (s *Server) CloseDocument(w http.ResponseWriter, r *http.Request, id string, params CloseDocumentParams) {
	force := params.Force != nil && *params.Force
	if err := s.Docs.Close(r.Context(), id, force); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetText handles the GET /documents/{id}/text request.
func (s *Server) GetText(w http.ResponseWriter, r *http.Request, id string) {
	s.respond(w, r, id, http.StatusOK, func(doc *session.Session) (any, error) {
		return textResponse(doc)
	})
}

// PutText handles the PUT /documents/{id}/text request.
func (s *Server) PutText(w http.ResponseWriter, r *http.Request, id string) {
	var body TextRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.respond(w, r, id, http.StatusOK, func(doc *session.Session) (any, error) {
		if err := doc.SetText(body.Text); err != nil {
			return nil, err
		}
		return textResponse(doc)
	})
}

// SwitchView handles the POST /documents/{id}/view request.
func (s *Server) SwitchView(w http.ResponseWriter, r *http.Request, id string) {
	var body ViewRequest
	if !s.decode(w, r, &body) {
		return
	}
	view, err := domain.ParseView(body.View)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, id, http.StatusOK, func(doc *session.Session) (any, error) {
		if err := doc.SwitchTo(view); err != nil {
			return nil, err
		}
		return ViewRequest{View: doc.View().String()}, nil
	})
}

// GetTree handles the GET /documents/{id}/tree request.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request, id string) {
	s.respond(w, r, id, http.StatusOK, func(doc *session.Session) (any, error) {
		t, err := doc.Tree()
		if err != nil {
			return nil, err
		}
		return t.Snapshot(t.Root())
	})
}

// SaveDocument handles the POST /documents/{id}/save request.
func (s *Server) SaveDocument(w http.ResponseWriter, r *http.Request, id string) {
	s.respond(w, r, id, http.StatusOK, func(doc *session.Session) (any, error) {
		resp, err := textResponse(doc)
		if err != nil {
			return nil, err
		}
		doc.MarkSaved()
		resp.Dirty = false
		return resp, nil
	})
}

// UpdateNode handles the PATCH /documents/{id}/nodes/{node} request.
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request, id string, node int64) {
	var body UpdateNodeRequest
	if !s.decode(w, r, &body) {
		return
	}
	nid := tree.NodeID(node)
	s.respond(w, r, id, http.StatusOK, func(doc *session.Session) (any, error) {
		if body.Type == nil && body.Key == nil {
			if body.Value != nil {
				if _, err := doc.SetScalar(nid, *body.Value); err != nil {
					return nil, err
				}
			}
			return snapshot(doc, nid)
		}
		var kind domain.Kind
		if body.Type != nil {
			var err error
			if kind, err = domain.ParseKind(*body.Type); err != nil {
				return nil, err
			}
		}
		err := doc.Batch(func(t *tree.Tree) error {
			if body.Type != nil {
				if err := t.ChangeType(nid, kind); err != nil {
					return err
				}
			}
			if body.Value != nil {
				if _, err := t.SetScalar(nid, *body.Value); err != nil {
					return err
				}
			}
			if body.Key != nil {
				return t.Rename(nid, *body.Key)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return snapshot(doc, nid)
	})
}

// DeleteNode handles the DELETE /documents/{id}/nodes/{node} request.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request, id string, node int64) {
	s.respond(w, r, id, http.StatusNoContent, func(doc *session.Session) (any, error) {
		return nil, doc.Delete(tree.NodeID(node))
	})
}

// AddNode handles the POST /documents/{id}/nodes/{node}/children request.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request, id string, node int64) {
	var body AddNodeRequest
	if !s.decode(w, r, &body) {
		return
	}
	kind, err := domain.ParseKind(body.Type)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, id, http.StatusCreated, func(doc *session.Session) (any, error) {
		child, err := doc.AddNode(tree.NodeID(node), body.Key, kind, body.Value)
		if err != nil {
			return nil, err
		}
		return snapshot(doc, child)
	})
}

// ReorderNode handles the POST /documents/{id}/nodes/{node}/reorder request.
func (s *Server) ReorderNode(w http.ResponseWriter, r *http.Request, id string, node int64) {
	var body ReorderRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.respond(w, r, id, http.StatusOK, func(doc *session.Session) (any, error) {
		if err := doc.Reorder(tree.NodeID(node), body.From, body.To); err != nil {
			return nil, err
		}
		return snapshot(doc, tree.NodeID(node))
	})
}

// ListTemplates handles the GET /templates request.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request, params ListTemplatesParams) {
	if s.Catalog == nil {
		writeJSON(w, http.StatusOK, []templates.Entry{})
		return
	}
	query := ""
	if params.Q != nil {
		query = *params.Q
	}
	entries, err := s.Catalog.Search(r.Context(), query)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// SubscribeEvents handles the GET /documents/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, id string, params SubscribeEventsParams) {
	if _, err := s.Docs.Get(id); err != nil {
		s.fail(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var keep map[string]bool
	if params.Types != nil && *params.Types != "" {
		keep = make(map[string]bool)
		for _, t := range strings.Split(*params.Types, ",") {
			keep[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE: Subscribing to document events", "document_id", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "document_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if keep != nil {
				var e domain.Event
				if err := json.Unmarshal([]byte(msg), &e); err == nil && !keep[string(e.Type)] {
					continue
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

// respond runs fn under the document lock and writes its result.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, id string, status int, fn func(*session.Session) (any, error)) {
	var out any
	err := s.Docs.WithLock(r.Context(), id, func(ctx context.Context, doc *session.Session) error {
		var err error
		out, err = fn(doc)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, out)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var perr *domain.ParseError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrTemplateNotFound):
		status = http.StatusNotFound
	case errors.As(err, &perr):
		status = http.StatusUnprocessableEntity
		resp.Line = perr.Line
	case errors.Is(err, domain.ErrInvalidValue):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrSessionExists),
		errors.Is(err, domain.ErrUnsavedChanges):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func textResponse(doc *session.Session) (TextResponse, error) {
	text, err := doc.CanonicalText()
	if err != nil {
		return TextResponse{}, err
	}
	return TextResponse{Text: text, View: doc.View().String(), Dirty: doc.IsDirty()}, nil
}

func snapshot(doc *session.Session, id tree.NodeID) (tree.Snapshot, error) {
	t, err := doc.Tree()
	if err != nil {
		return tree.Snapshot{}, err
	}
	return t.Snapshot(id)
}
