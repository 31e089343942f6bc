package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed prompts/*.md
var embeddedPrompts embed.FS

// Registry looks prompts up by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry is a Registry over a fixed prompt set.
type InMemoryRegistry struct {
	prompts map[string]*Prompt
}

// LoadDefaults loads the prompts compiled into the binary.
func LoadDefaults() ([]*Prompt, error) {
	return loadFS(embeddedPrompts, "prompts", "embedded ")
}

// LoadFromDir loads every *.md prompt in dir. It replaces the embedded set
// when ailink.prompts_dir is configured.
func LoadFromDir(dir string) ([]*Prompt, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	return loadFS(os.DirFS(dir), ".", dir+string(os.PathSeparator))
}

// loadFS parses the *.md files of dir in name order. label prefixes the
// source recorded on each prompt.
func loadFS(fsys fs.FS, dir, label string) ([]*Prompt, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	sort.Strings(names)

	prompts := make([]*Prompt, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %sprompt %s: %w", label, name, err)
		}
		p, err := Load(label+path.Base(name), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// NewRegistry indexes prompts by slug. Slugs must be present and unique.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{prompts: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		if slug == "" {
			return nil, fmt.Errorf("prompt %s missing slug", p.Source)
		}
		if existing, ok := reg.prompts[slug]; ok {
			return nil, fmt.Errorf("duplicate prompt slug %s in %s and %s", slug, existing.Source, p.Source)
		}
		reg.prompts[slug] = p
	}
	return reg, nil
}

// Get returns the prompt for slug.
func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	p, ok := r.prompts[slug]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", slug)
	}
	return p, nil
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	list := make([]*Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Config.Slug < list[j].Config.Slug })
	return list
}
