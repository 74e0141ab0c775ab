package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/easyyaml/internal/logging"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/ports"
	"github.com/aretw0/easyyaml/pkg/synchronizer"
)

// DefaultTitle is the title of documents created without one.
const DefaultTitle = "untitled"

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Tab describes an open document in workspace order.
type Tab struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Path   string      `json:"path,omitempty"`
	View   domain.View `json:"view"`
	Dirty  bool        `json:"dirty"`
	Active bool        `json:"active"`
}

// Manager is the workspace: the ordered set of open documents.
// It is safe for concurrent use; each document is used by one caller at a
// time through WithLock.
type Manager struct {
	mu     sync.Mutex            // Global lock for the maps and tab order
	docs   map[string]*Session   // Open documents
	order  []string              // Tab order
	active string                // Active tab id
	locks  map[string]*lockEntry // Map of active locks
	seq    int

	drafts   ports.DraftStore        // Optional draft persistence
	locker   ports.DistributedLocker // Optional distributed locker
	lockTTL  time.Duration
	syncOpts []synchronizer.Option
	events   func(id string, e domain.Event)
	logger   *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithDraftStore enables Persist and Restore.
func WithDraftStore(store ports.DraftStore) Option {
	return func(m *Manager) {
		m.drafts = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSyncOptions applies synchronizer options to every document.
func WithSyncOptions(opts ...synchronizer.Option) Option {
	return func(m *Manager) {
		m.syncOpts = append(m.syncOpts, opts...)
	}
}

// WithEvents forwards the events of every document, tagged with its id.
func WithEvents(fn func(id string, e domain.Event)) Option {
	return func(m *Manager) {
		m.events = fn
	}
}

// NewManager creates an empty workspace.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		docs:    make(map[string]*Session),
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// lock serializes fn with every other locked operation on id.
func (m *Manager) lock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"document_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// WithLock runs fn with exclusive access to an open document.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	return m.lock(ctx, id, func(ctx context.Context) error {
		s, err := m.Get(id)
		if err != nil {
			return err
		}
		return fn(ctx, s)
	})
}

// Open adds a document holding text and makes it the active tab. An empty id
// is replaced by a generated one.
func (m *Manager) Open(ctx context.Context, id, title, text string) (*Session, error) {
	m.mu.Lock()
	if id == "" {
		id = m.nextID()
	}
	m.mu.Unlock()
	if title == "" {
		title = DefaultTitle
	}

	s := New(id, title, text, m.syncOpts...)
	if err := m.add(s); err != nil {
		return nil, err
	}
	m.logger.Debug("document opened", "document_id", id, "title", title)
	return s, nil
}

// New opens an empty document.
func (m *Manager) New(ctx context.Context, title string) (*Session, error) {
	return m.Open(ctx, "", title, "")
}

func (m *Manager) nextID() string {
	for {
		m.seq++
		id := fmt.Sprintf("doc-%d", m.seq)
		if _, taken := m.docs[id]; !taken {
			return id
		}
	}
}

func (m *Manager) add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[s.ID()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, s.ID())
	}
	if m.events != nil {
		id, fn := s.ID(), m.events
		s.Subscribe(func(e domain.Event) { fn(id, e) })
	}
	m.docs[s.ID()] = s
	m.order = append(m.order, s.ID())
	m.active = s.ID()
	return nil
}

// Get returns an open document.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// Close closes a document. A dirty document is kept open unless force is
// set, and ErrUnsavedChanges is returned. Its draft, if any, is discarded.
func (m *Manager) Close(ctx context.Context, id string, force bool) error {
	err := m.lock(ctx, id, func(ctx context.Context) error {
		s, err := m.Get(id)
		if err != nil {
			return err
		}
		if s.IsDirty() && !force {
			return fmt.Errorf("%w: %s", domain.ErrUnsavedChanges, id)
		}
		m.remove(id)
		return nil
	})
	if err != nil {
		return err
	}

	if m.drafts != nil {
		if err := m.drafts.Delete(ctx, id); err != nil {
			m.logger.Warn("Failed to discard draft", "document_id", id, "err", err)
		}
	}
	m.logger.Debug("document closed", "document_id", id)
	return nil
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.order, id)
	delete(m.docs, id)
	m.order = slices.Delete(m.order, i, i+1)

	if m.active != id {
		return
	}
	m.active = ""
	if len(m.order) > 0 {
		m.active = m.order[min(i, len(m.order)-1)]
	}
}

// CloseOthers closes every document except keep. Dirty documents stay open
// unless force is set; the returned error then wraps ErrUnsavedChanges once
// per document kept.
func (m *Manager) CloseOthers(ctx context.Context, keep string, force bool) error {
	var errs []error
	for _, id := range m.ids() {
		if id == keep {
			continue
		}
		if err := m.Close(ctx, id, force); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes every document, with the same rules as CloseOthers.
func (m *Manager) CloseAll(ctx context.Context, force bool) error {
	return m.CloseOthers(ctx, "", force)
}

func (m *Manager) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// Tabs lists open documents in tab order. Each entry is read under the
// document's lock, so it must not be called from inside WithLock.
func (m *Manager) Tabs() []Tab {
	m.mu.Lock()
	ids, active := slices.Clone(m.order), m.active
	m.mu.Unlock()

	tabs := make([]Tab, 0, len(ids))
	for _, id := range ids {
		if tab, ok := m.tab(id, id == active); ok {
			tabs = append(tabs, tab)
		}
	}
	return tabs
}

// tab snapshots one document under its local lock. It reports false when the
// document was closed in the meantime.
func (m *Manager) tab(id string, active bool) (Tab, bool) {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	s, err := m.Get(id)
	if err != nil {
		return Tab{}, false
	}
	return Tab{
		ID:     id,
		Title:  s.Title(),
		Path:   s.Path(),
		View:   s.View(),
		Dirty:  s.IsDirty(),
		Active: active,
	}, true
}

// Move reorders the tabs.
func (m *Manager) Move(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	last := len(m.order) - 1
	if from < 0 || from > last || to < 0 || to > last {
		return fmt.Errorf("%w: no tab move from %d to %d", domain.ErrInvalidTarget, from, to)
	}
	id := m.order[from]
	m.order = slices.Delete(m.order, from, from+1)
	m.order = slices.Insert(m.order, to, id)
	return nil
}

// Activate makes id the active tab.
func (m *Manager) Activate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	m.active = id
	return nil
}

// Active returns the active document.
func (m *Manager) Active() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.docs[m.active]
	if !ok {
		return nil, fmt.Errorf("%w: no open documents", domain.ErrSessionNotFound)
	}
	return s, nil
}

// Next activates the tab after the active one, wrapping around.
func (m *Manager) Next() (*Session, error) { return m.step(1) }

// Prev activates the tab before the active one, wrapping around.
func (m *Manager) Prev() (*Session, error) { return m.step(-1) }

func (m *Manager) step(delta int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.order)
	if n == 0 {
		return nil, fmt.Errorf("%w: no open documents", domain.ErrSessionNotFound)
	}
	i := slices.Index(m.order, m.active)
	m.active = m.order[((i+delta)%n+n)%n]
	return m.docs[m.active], nil
}

// Persist saves a draft of an open document.
func (m *Manager) Persist(ctx context.Context, id string) error {
	if m.drafts == nil {
		return errors.New("no draft store configured")
	}
	return m.WithLock(ctx, id, func(ctx context.Context, s *Session) error {
		d, err := s.Draft()
		if err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", id, err)
		}
		if err := m.drafts.Save(ctx, id, d); err != nil {
			return fmt.Errorf("failed to save draft: %w", err)
		}
		return nil
	})
}

// PersistAll saves a draft of every dirty document.
func (m *Manager) PersistAll(ctx context.Context) error {
	var errs []error
	for _, tab := range m.Tabs() {
		if !tab.Dirty {
			continue
		}
		if err := m.Persist(ctx, tab.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Restore reopens a document from its draft.
func (m *Manager) Restore(ctx context.Context, id string) (*Session, error) {
	if m.drafts == nil {
		return nil, errors.New("no draft store configured")
	}
	var s *Session
	err := m.lock(ctx, id, func(ctx context.Context) error {
		d, err := m.drafts.Load(ctx, id)
		if err != nil {
			return err
		}
		s, err = Restore(d, m.syncOpts...)
		if err != nil {
			return err
		}
		return m.add(s)
	})
	return s, err
}

// Drafts lists the ids of stored drafts.
func (m *Manager) Drafts(ctx context.Context) ([]string, error) {
	if m.drafts == nil {
		return nil, nil
	}
	return m.drafts.List(ctx)
}
