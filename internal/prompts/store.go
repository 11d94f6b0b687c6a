// Package prompts manages the runtime's prompt templates. Templates live in a
// JSON file so the self-evolution cycle can rewrite them between runs; missing
// entries resolve to an explicit error template rather than an empty string so
// a misconfigured pipeline produces a visible artifact instead of silence.
package prompts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// NotFoundTemplate is returned for any unknown template name.
const NotFoundTemplate = "ERROR: Prompt not found."

// Store holds the named prompt templates, persisted as a JSON object.
type Store struct {
	mu        sync.RWMutex
	path      string
	templates map[string]string
}

// NewStore loads the store from path. A missing file yields the built-in
// defaults; the file is created on the first Update.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:      path,
		templates: defaultTemplates(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read prompt store: %w", err)
	}

	var loaded map[string]string
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse prompt store: %w", err)
	}
	// Stored templates override defaults; defaults fill gaps so new
	// template names added in code keep working with old files.
	for name, tmpl := range loaded {
		s.templates[name] = tmpl
	}
	return s, nil
}

// Get returns the template for name, or NotFoundTemplate when absent.
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tmpl, ok := s.templates[name]; ok {
		return tmpl
	}
	return NotFoundTemplate
}

// Has reports whether a template exists.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.templates[name]
	return ok
}

// Names returns all template names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	return names
}

// Update sets a template and persists the whole store atomically.
func (s *Store) Update(name, template string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = template
	return s.saveLocked()
}

// saveLocked writes the store via temp file and rename so a crash mid-write
// never leaves a truncated store on disk.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.templates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prompt store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prompt store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prompts-*.json")
	if err != nil {
		return fmt.Errorf("create temp prompt store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp prompt store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp prompt store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp prompt store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace prompt store: %w", err)
	}
	return nil
}
