package notifier

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var defaultTemplates embed.FS

// TemplateStore хранилище шаблонов уведомлений.
// Шаблон "<label>/<name>" переопределяет "<name>" для конкретного типа уведомления.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewTemplateStore загружает встроенные шаблоны и, если задан overrideDir, шаблоны из него.
func NewTemplateStore(overrideDir string) (*TemplateStore, error) {
	s := &TemplateStore{
		templates: make(map[string]*template.Template),
	}
	if err := s.loadFS(defaultTemplates, "templates"); err != nil {
		return nil, err
	}
	if overrideDir != "" {
		if err := s.loadFS(os.DirFS(overrideDir), "."); err != nil {
			return nil, fmt.Errorf("load templates from %s: %w", overrideDir, err)
		}
	}
	return s, nil
}

func (s *TemplateStore) loadFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(p, root+"/")
		return s.Register(name, string(body))
	})
}

// Register добавляет или заменяет шаблон.
func (s *TemplateStore) Register(name, body string) error {
	tmpl, err := template.New(name).Parse(body)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = tmpl
	return nil
}

// Render выполняет шаблон с переданными данными.
func (s *TemplateStore) Render(name string, data any) (string, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return out.String(), nil
}

// RenderNotice выполняет шаблон типа уведомления label, а при его отсутствии общий шаблон name.
func (s *TemplateStore) RenderNotice(label, name string, data any) (string, error) {
	specific := path.Join(label, name)
	s.mu.RLock()
	_, ok := s.templates[specific]
	s.mu.RUnlock()
	if ok {
		return s.Render(specific, data)
	}
	return s.Render(name, data)
}
