package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed manifests/*.yaml
var manifestFS embed.FS

var (
	ErrNotFound        = errors.New("template_not_found")
	ErrDuplicateID     = errors.New("duplicate_template_id")
	ErrInvalidManifest = errors.New("invalid_template_manifest")
)

// Registry is a read-only catalogue of manifests. It is built once and only
// hands out copies, so callers can never mutate a shared manifest.
type Registry struct {
	byID  map[string]*Manifest
	order []string
}

// NewRegistry loads every manifest compiled into the binary.
func NewRegistry() (*Registry, error) {
	return LoadFS(manifestFS, "manifests")
}

// LoadFS builds a registry from the *.yaml files found in dir.
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	manifests := make([]*Manifest, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var m Manifest
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, entry.Name(), err)
		}
		manifests = append(manifests, &m)
	}
	return New(manifests...)
}

// New builds a registry from already decoded manifests.
func New(manifests ...*Manifest) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Manifest, len(manifests))}
	for _, m := range manifests {
		if m == nil {
			continue
		}
		id := strings.TrimSpace(m.ID)
		if id == "" || strings.TrimSpace(m.Version) == "" {
			return nil, fmt.Errorf("%w: manifest %q needs id and version", ErrInvalidManifest, m.Name)
		}
		if _, exists := r.byID[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		r.byID[id] = m
		r.order = append(r.order, id)
	}
	sort.Strings(r.order)
	return r, nil
}

// Get returns a copy of the manifest registered under id.
func (r *Registry) Get(id string) (*Manifest, error) {
	m, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[strings.TrimSpace(id)]
	return ok
}

// Summary is the listing shape of a manifest.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Category    string `json:"category"`
	Locale      string `json:"locale"`
}

func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		m := r.byID[id]
		out = append(out, Summary{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Version:     m.Version,
			Category:    m.Category,
			Locale:      m.Locale,
		})
	}
	return out
}
