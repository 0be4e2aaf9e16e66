package categories

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fintrack-dev/fintrack/internal/model"
)

var (
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrEmptyName        = errors.New("name cannot be empty")
)

// Category is one registry entry: a name and its match keywords in insertion order.
type Category struct {
	Name     string
	Keywords []string
}

// Registry is the ordered category -> keywords mapping that drives
// automatic categorization. Every mutation is written to path before
// the mutating call returns.
type Registry struct {
	mu   sync.RWMutex
	path string
	cats []Category
}

// NewRegistry creates a Registry backed by path. Names must be unique.
func NewRegistry(path string, cats []Category) *Registry {
	return &Registry{path: path, cats: cloneCategories(cats)}
}

// Load reads the registry file at path. A missing file yields the default
// registry, which is not written until the first mutation or Save.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRegistry(path, Default()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}

	cats, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing categories %s: %w", path, err)
	}
	return NewRegistry(path, cats), nil
}

// Path returns the backing file.
func (r *Registry) Path() string { return r.path }

// Save writes the full registry to its file.
func (r *Registry) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	data, err := Marshal(r.cats)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}

// All returns a copy of every category in registry order.
func (r *Registry) All() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneCategories(r.cats)
}

// Names returns category names in registry order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.cats))
	for i, c := range r.cats {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a category exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(name) >= 0
}

// Keywords returns a copy of a category's keywords.
func (r *Registry) Keywords(name string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(name)
	if i < 0 {
		return nil, false
	}
	return slices.Clone(r.cats[i].Keywords), true
}

// Snapshot returns the registry as a plain map, e.g. for syncing to the store.
func (r *Registry) Snapshot() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := make(map[string][]string, len(r.cats))
	for _, c := range r.cats {
		m[c.Name] = slices.Clone(c.Keywords)
	}
	return m
}

// AddCategory appends an empty category and persists the registry.
func (r *Registry) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("category %w", ErrEmptyName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrCategoryExists, name)
	}
	r.cats = append(r.cats, Category{Name: name, Keywords: []string{}})
	if err := r.saveLocked(); err != nil {
		r.cats = r.cats[:len(r.cats)-1]
		return err
	}
	return nil
}

// AddKeyword appends a trimmed keyword to a category and persists the
// registry. It reports false when the keyword is already present.
func (r *Registry) AddKeyword(category, keyword string) (bool, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false, fmt.Errorf("keyword %w", ErrEmptyName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(category)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
	}
	if slices.Contains(r.cats[i].Keywords, keyword) {
		return false, nil
	}
	prev := r.cats[i].Keywords
	r.cats[i].Keywords = append(slices.Clone(prev), keyword)
	if err := r.saveLocked(); err != nil {
		r.cats[i].Keywords = prev
		return false, err
	}
	return true, nil
}

// Merge adds suggested keywords to existing categories. It never removes
// keywords, skips categories that are not registered and keywords already
// present, and persists the registry when anything was added. It returns the
// number of keywords added.
func (r *Registry) Merge(suggestions map[string][]string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := cloneCategories(r.cats)
	added := 0
	for i := range r.cats {
		for _, kw := range suggestions[r.cats[i].Name] {
			kw = strings.TrimSpace(kw)
			if kw == "" || slices.Contains(r.cats[i].Keywords, kw) {
				continue
			}
			r.cats[i].Keywords = append(r.cats[i].Keywords, kw)
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}
	if err := r.saveLocked(); err != nil {
		r.cats = before
		return 0, err
	}
	return added, nil
}

// Match returns the category for a transaction description: the first
// category in registry order with a keyword that is a case-insensitive
// substring of the trimmed description. Uncategorized when nothing matches.
func (r *Registry) Match(description string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return match(r.cats, description)
}

// Categorize is the free-function form of (*Registry).Match.
func Categorize(description string, r *Registry) string {
	return r.Match(description)
}

func match(cats []Category, description string) string {
	details := strings.ToLower(strings.TrimSpace(description))
	for _, c := range cats {
		if c.Name == model.Uncategorized {
			continue
		}
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(details, kw) {
				return c.Name
			}
		}
	}
	return model.Uncategorized
}

func (r *Registry) indexLocked(name string) int {
	return slices.IndexFunc(r.cats, func(c Category) bool { return c.Name == name })
}

func cloneCategories(cats []Category) []Category {
	out := make([]Category, len(cats))
	for i, c := range cats {
		kws := slices.Clone(c.Keywords)
		if kws == nil {
			kws = []string{}
		}
		out[i] = Category{Name: c.Name, Keywords: kws}
	}
	return out
}
