package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ConfigFile is the name of the user template index.
const ConfigFile = "template_config.json"

const userPrefix = "user/"

// userEntry is one user template in the index.
type userEntry struct {
	Path        string `json:"path" mapstructure:"path"`
	Description string `json:"description" mapstructure:"description"`
}

// userIndex maps category -> name -> entry.
type userIndex map[string]map[string]userEntry

// TemplateStore implements ports.TemplateStore on two directories: builtin
// templates organised by category sub-directory (read-only), and user
// templates indexed by a JSON config file.
type TemplateStore struct {
	BuiltinDir string
	UserDir    string
	ConfigPath string

	mu sync.Mutex
}

// TemplateOption configures a TemplateStore.
type TemplateOption func(*TemplateStore)

// WithConfigPath overrides the location of the user template index, which
// defaults to ConfigFile next to the user directory.
func WithConfigPath(path string) TemplateOption {
	return func(s *TemplateStore) {
		s.ConfigPath = path
	}
}

// NewTemplateStore creates a template store. An empty builtinDir disables
// builtin templates.
func NewTemplateStore(builtinDir, userDir string, opts ...TemplateOption) *TemplateStore {
	s := &TemplateStore{
		BuiltinDir: builtinDir,
		UserDir:    userDir,
		ConfigPath: filepath.Join(filepath.Dir(userDir), ConfigFile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns builtin templates followed by user templates, each sorted by
// reference.
func (s *TemplateStore) List(ctx context.Context) ([]domain.Template, error) {
	builtins, err := s.builtins()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx, err := s.loadIndex()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var users []domain.Template
	for category, names := range idx {
		for name, e := range names {
			users = append(users, userTemplate(category, name, e))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Ref < users[j].Ref })
	return append(builtins, users...), nil
}

func (s *TemplateStore) builtins() ([]domain.Template, error) {
	out := []domain.Template{}
	if s.BuiltinDir == "" {
		return out, nil
	}

	err := filepath.WalkDir(s.BuiltinDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsYAML(path) {
			return nil
		}
		rel, err := filepath.Rel(s.BuiltinDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		category := ""
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			category = rel[:i]
		}
		out = append(out, domain.Template{
			Ref:      rel,
			Name:     strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
			Category: category,
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list builtin templates: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}

// Read returns the text of a template.
func (s *TemplateStore) Read(ctx context.Context, ref string) (string, error) {
	var path string
	if category, name, ok := splitUserRef(ref); ok {
		s.mu.Lock()
		idx, err := s.loadIndex()
		s.mu.Unlock()
		if err != nil {
			return "", err
		}
		e, ok := idx[category][name]
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
		}
		path = filepath.Join(s.UserDir, filepath.FromSlash(e.Path))
	} else {
		p, err := s.builtinPath(ref)
		if err != nil {
			return "", err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
		}
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}

func (s *TemplateStore) builtinPath(ref string) (string, error) {
	if s.BuiltinDir == "" || !IsYAML(ref) || !fs.ValidPath(ref) {
		return "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
	}
	return filepath.Join(s.BuiltinDir, filepath.FromSlash(ref)), nil
}

// Add copies text into the user directory as <category>/<name>.yaml and
// records it in the index.
func (s *TemplateStore) Add(ctx context.Context, tmpl domain.Template, text string) (domain.Template, error) {
	if err := validName(tmpl.Category); err != nil {
		return domain.Template{}, err
	}
	if err := validName(tmpl.Name); err != nil {
		return domain.Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex()
	if err != nil {
		return domain.Template{}, err
	}
	if _, exists := idx[tmpl.Category][tmpl.Name]; exists {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateExists, userPrefix+tmpl.Category+"/"+tmpl.Name)
	}

	e := userEntry{Path: tmpl.Category + "/" + tmpl.Name + ".yaml", Description: tmpl.Description}
	if err := writeAtomic(filepath.Join(s.UserDir, filepath.FromSlash(e.Path)), []byte(text)); err != nil {
		return domain.Template{}, fmt.Errorf("failed to add template: %w", err)
	}
	if idx[tmpl.Category] == nil {
		idx[tmpl.Category] = make(map[string]userEntry)
	}
	idx[tmpl.Category][tmpl.Name] = e
	if err := s.saveIndex(idx); err != nil {
		return domain.Template{}, err
	}
	return userTemplate(tmpl.Category, tmpl.Name, e), nil
}

// Delete removes a user template and its file.
func (s *TemplateStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, category, name, e, err := s.lookupUser(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.UserDir, filepath.FromSlash(e.Path))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete template file: %w", err)
	}
	delete(idx[category], name)
	if len(idx[category]) == 0 {
		delete(idx, category)
	}
	return s.saveIndex(idx)
}

// Rename gives a user template a new name in the same category.
func (s *TemplateStore) Rename(ctx context.Context, ref, newName string) (domain.Template, error) {
	if err := validName(newName); err != nil {
		return domain.Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, category, name, e, err := s.lookupUser(ref)
	if err != nil {
		return domain.Template{}, err
	}
	if newName == name {
		return userTemplate(category, name, e), nil
	}
	if _, taken := idx[category][newName]; taken {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateExists, userPrefix+category+"/"+newName)
	}

	renamed := userEntry{Path: category + "/" + newName + ".yaml", Description: e.Description}
	from := filepath.Join(s.UserDir, filepath.FromSlash(e.Path))
	to := filepath.Join(s.UserDir, filepath.FromSlash(renamed.Path))
	if err := os.Rename(from, to); err != nil {
		return domain.Template{}, fmt.Errorf("failed to rename template file: %w", err)
	}
	delete(idx[category], name)
	idx[category][newName] = renamed
	if err := s.saveIndex(idx); err != nil {
		return domain.Template{}, err
	}
	return userTemplate(category, newName, renamed), nil
}

// lookupUser resolves a user reference. The caller holds s.mu.
func (s *TemplateStore) lookupUser(ref string) (userIndex, string, string, userEntry, error) {
	category, name, ok := splitUserRef(ref)
	if !ok {
		if _, err := s.builtinPath(ref); err == nil {
			return nil, "", "", userEntry{}, fmt.Errorf("%w: %s", domain.ErrReadOnlyTemplate, ref)
		}
		return nil, "", "", userEntry{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
	}
	idx, err := s.loadIndex()
	if err != nil {
		return nil, "", "", userEntry{}, err
	}
	e, ok := idx[category][name]
	if !ok {
		return nil, "", "", userEntry{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
	}
	return idx, category, name, e, nil
}

// loadIndex reads the user index. A missing file is an empty index.
func (s *TemplateStore) loadIndex() (userIndex, error) {
	idx := userIndex{}
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("failed to read template config: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse template config: %w", err)
	}
	if err := mapstructure.Decode(raw, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode template config: %w", err)
	}
	return idx, nil
}

func (s *TemplateStore) saveIndex(idx userIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template config: %w", err)
	}
	if err := writeAtomic(s.ConfigPath, data); err != nil {
		return fmt.Errorf("failed to save template config: %w", err)
	}
	return nil
}

func userTemplate(category, name string, e userEntry) domain.Template {
	return domain.Template{
		Ref:         userPrefix + category + "/" + name,
		Name:        name,
		Category:    category,
		Description: e.Description,
		User:        true,
	}
}

func splitUserRef(ref string) (category, name string, ok bool) {
	rest, ok := strings.CutPrefix(ref, userPrefix)
	if !ok {
		return "", "", false
	}
	category, name, ok = strings.Cut(rest, "/")
	return category, name, ok && category != "" && name != ""
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid template name %q", domain.ErrInvalidValue, name)
	}
	return nil
}
