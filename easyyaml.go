package easyyaml

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/easyyaml/internal/logging"
	"github.com/aretw0/easyyaml/pkg/adapters/file"
	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/observability"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/synchronizer"
	"github.com/aretw0/easyyaml/pkg/templates"
	"github.com/prometheus/client_golang/prometheus"
)

// Editor is the high-level entry point for the library.
// It wires the document workspace, the template catalog and, optionally,
// the metrics collectors.
type Editor struct {
	Docs      *session.Manager
	Templates *templates.Catalog
	Metrics   *observability.Metrics

	registerer  prometheus.Registerer
	mirror      synchronizer.Mirror
	hooks       domain.SyncHooks
	managerOpts []session.Option
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithLogger sets a custom structured logger for the editor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithTemplates sets the template catalog. The default is an empty
// in-memory catalog.
func WithTemplates(c *templates.Catalog) Option {
	return func(e *Editor) {
		e.Templates = c
	}
}

// WithMetrics registers the synchronizer collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Editor) {
		e.registerer = reg
	}
}

// WithMirror sets how tree edits reach the text buffer.
func WithMirror(m synchronizer.Mirror) Option {
	return func(e *Editor) {
		e.mirror = m
	}
}

// WithSyncHooks registers synchronizer hooks on every document.
func WithSyncHooks(h domain.SyncHooks) Option {
	return func(e *Editor) {
		e.hooks = domain.MergeHooks(e.hooks, h)
	}
}

// WithManagerOptions passes options through to the session manager
// (draft store, locker, event forwarding).
func WithManagerOptions(opts ...session.Option) Option {
	return func(e *Editor) {
		e.managerOpts = append(e.managerOpts, opts...)
	}
}

// New initializes an Editor.
func New(opts ...Option) (*Editor, error) {
	e := &Editor{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.Templates == nil {
		e.Templates = templates.New(memory.NewTemplateStore())
	}

	syncOpts := []synchronizer.Option{synchronizer.WithMirror(e.mirror)}
	if e.registerer != nil {
		m, err := observability.NewMetrics(e.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		e.Metrics = m
		syncOpts = append(syncOpts, m.SyncOptions(e.hooks)...)
	} else {
		syncOpts = append(syncOpts, synchronizer.WithHooks(e.hooks))
	}

	managerOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithSyncOptions(syncOpts...),
	}
	e.Docs = session.NewManager(append(managerOpts, e.managerOpts...)...)
	return e, nil
}

// OpenFile reads a YAML file into a new document. The document id is the
// cleaned path and the title its base name.
func (e *Editor) OpenFile(ctx context.Context, path string) (*session.Session, error) {
	text, err := file.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)

	doc, err := e.Docs.Open(ctx, path, filepath.Base(path), text)
	if err != nil {
		return nil, err
	}
	err = e.Docs.WithLock(ctx, doc.ID(), func(ctx context.Context, s *session.Session) error {
		s.SetPath(path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("document opened", "path", path)
	return doc, nil
}

// NewFromTemplate opens a document holding the text of a template. The new
// document is clean: nothing is lost by closing it unedited.
func (e *Editor) NewFromTemplate(ctx context.Context, ref, title string) (*session.Session, error) {
	text, err := e.Templates.Text(ctx, ref)
	if err != nil {
		return nil, err
	}
	return e.Docs.Open(ctx, "", title, text)
}

// Save writes the canonical text of a document to its file and clears the
// dirty flag.
func (e *Editor) Save(ctx context.Context, id string) error {
	return e.Docs.WithLock(ctx, id, func(ctx context.Context, doc *session.Session) error {
		if doc.Path() == "" {
			return fmt.Errorf("%w: document %s has no file", domain.ErrInvalidTarget, id)
		}
		return e.write(doc, doc.Path())
	})
}

// SaveAs writes a document to path and makes path its file.
func (e *Editor) SaveAs(ctx context.Context, id, path string) error {
	return e.Docs.WithLock(ctx, id, func(ctx context.Context, doc *session.Session) error {
		if err := e.write(doc, path); err != nil {
			return err
		}
		doc.SetPath(filepath.Clean(path))
		doc.SetTitle(filepath.Base(path))
		return nil
	})
}

func (e *Editor) write(doc *session.Session, path string) error {
	text, err := doc.CanonicalText()
	if err != nil {
		return err
	}
	if err := file.WriteDocument(path, text); err != nil {
		return err
	}
	doc.MarkSaved()
	e.logger.Info("document saved", "document_id", doc.ID(), "path", path)
	return nil
}
