package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	corefuncs "github.com/eduassist/portal/internal/http/templates/core"
)

// templatePatterns are parsed relative to the template root.
//
//nolint:gochecknoglobals // static read-only list
var templatePatterns = []string{"*.tmpl", "pages/*.tmpl", "partials/*.tmpl"}

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	mu     sync.RWMutex
	t      *template.Template
	fsys   fs.FS
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing templates (required)
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer parses every template in cfg.TemplateFS.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &TemplateRenderer{fsys: cfg.TemplateFS, logger: logger}
	if err := r.reload(); err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "initialization"))
		return nil, err
	}
	return r, nil
}

func (r *TemplateRenderer) current() *template.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.t
}

// reload parses the template set and swaps it in. On failure the previous
// set stays live.
func (r *TemplateRenderer) reload() error {
	funcs := corefuncs.Funcs(corefuncs.Deps{
		Execute:            corefuncs.TemplateExecutor(r.current),
		ContentTemplateFor: ContentTemplateFor,
	})
	t, err := template.New("root").Funcs(funcs).ParseFS(r.fsys, templatePatterns...)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.t = t
	r.mu.Unlock()
	return nil
}

// Watch re-parses templates whenever a .tmpl file under dir changes. It is
// meant for development with an os.DirFS template root and blocks until ctx
// ends.
func (r *TemplateRenderer) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer w.Close()

	for _, sub := range []string{"", "pages", "partials"} {
		p := filepath.Join(dir, sub)
		if _, statErr := os.Stat(p); statErr != nil {
			continue
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".tmpl") || ev.Op == fsnotify.Chmod {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Warn("template reload failed; keeping previous templates",
					slog.String("file", ev.Name), slog.Any("error", err))
				continue
			}
			r.logger.Info("templates reloaded", slog.String("file", ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("template watcher error", slog.Any("error", err))
		}
	}
}

// RenderFull renders the full page (layout + page content).
func (r *TemplateRenderer) RenderFull(w http.ResponseWriter, _ *http.Request, data any) error {
	return r.renderTemplate(w, "layout", data)
}

// RenderPartial renders only the main content area of the current page.
func (r *TemplateRenderer) RenderPartial(w http.ResponseWriter, _ *http.Request, data any) error {
	return r.renderTemplate(w, "content", data)
}

// RenderNamed renders a single named template, typically a fragment swapped by htmx.
func (r *TemplateRenderer) RenderNamed(w http.ResponseWriter, name string, data any) error {
	return r.renderTemplate(w, name, data)
}

func (r *TemplateRenderer) renderTemplate(w http.ResponseWriter, templateName string, data any) error {
	var buf bytes.Buffer
	if err := r.current().ExecuteTemplate(&buf, templateName, data); err != nil {
		r.logger.Error("template execution failed",
			slog.String("template", templateName),
			slog.Any("error", err),
		)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("failed to write rendered template",
			slog.String("template", templateName),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
