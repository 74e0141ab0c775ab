package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/internal/config"
	"github.com/aretw0/easyyaml/pkg/adapters/file"
	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/adapters/redis"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/persistence/middleware"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/templates"
	"github.com/prometheus/client_golang/prometheus"
)

// EditorOptions tunes CreateEditor beyond the config file.
type EditorOptions struct {
	Debug   bool
	Metrics prometheus.Registerer
	Events  func(id string, e domain.Event)
}

// CreateEditor initializes an editor with standard CLI conventions: file
// based templates, the configured draft store and, when requested, metrics.
// The returned func releases store connections.
func CreateEditor(cfg config.Config, opts EditorOptions, logger *slog.Logger) (*easyyaml.Editor, func() error, error) {
	closer := func() error { return nil }

	editorOpts := []easyyaml.Option{
		easyyaml.WithLogger(logger),
		easyyaml.WithMirror(cfg.MirrorPolicy()),
		easyyaml.WithTemplates(templates.New(file.NewTemplateStore(cfg.Templates.BuiltinDir, cfg.Templates.UserDir))),
	}

	// 1. Logger & Hooks
	if opts.Debug {
		editorOpts = append(editorOpts, easyyaml.WithSyncHooks(createDebugHooks(logger)))
	}
	if opts.Metrics != nil {
		editorOpts = append(editorOpts, easyyaml.WithMetrics(opts.Metrics))
	}
	if opts.Events != nil {
		editorOpts = append(editorOpts, easyyaml.WithManagerOptions(session.WithEvents(opts.Events)))
	}

	// 2. Draft persistence
	mws, err := draftMiddlewares(cfg)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Store.Backend {
	case config.BackendFile:
		editorOpts = append(editorOpts, easyyaml.WithManagerOptions(
			session.WithDraftStore(middleware.Chain(file.NewDraftStore(cfg.Store.Path), mws...)),
		))
	case config.BackendRedis:
		rc := cfg.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		editorOpts = append(editorOpts, easyyaml.WithManagerOptions(
			session.WithDraftStore(middleware.Chain(store, mws...)),
			session.WithLocker(redis.NewLocker(store.Client(), rc.Prefix), 0),
		))
		closer = store.Close
		logger.Debug("Using redis draft store", "addr", rc.Addr, "prefix", rc.Prefix)
	default:
		editorOpts = append(editorOpts, easyyaml.WithManagerOptions(
			session.WithDraftStore(middleware.Chain(memory.NewDraftStore(), mws...)),
		))
	}

	// 3. Initialize
	editor, err := easyyaml.New(editorOpts...)
	if err != nil {
		_ = closer()
		return nil, nil, fmt.Errorf("error initializing editor: %w", err)
	}
	return editor, closer, nil
}

// draftMiddlewares builds the redaction and encryption layers configured
// for stored drafts. Redaction runs before encryption.
func draftMiddlewares(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Store.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Store.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.Store.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.Store.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}
