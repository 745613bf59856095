// Package core provides template helpers shared by every page.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eduassist/portal/internal/rolegate"
)

// Executor renders a named template from the live template set.
type Executor func(name string, data any) (string, error)

// Deps holds dependencies for the core template func map.
type Deps struct {
	Execute            Executor
	ContentTemplateFor func(string) string
}

// Funcs returns the helpers available to all templates.
func Funcs(deps Deps) template.FuncMap {
	return template.FuncMap{
		"sectionTmpl":  deps.ContentTemplateFor,
		"add":          func(a, b int) int { return a + b },
		"contains":     strings.Contains,
		"truncateText": TruncateText,
		"friendlyTime": FriendlyTime,
		"duration":     Duration,
		"statusClass":  StatusClass,
		"dict":         Dict,
		"toJSON": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"renderSection": func(page string, data any) (template.HTML, error) {
			return render(deps.Execute, deps.ContentTemplateFor(page), data)
		},
		"roleGate": func(viewer rolegate.Viewer, data any, pairs ...string) (template.HTML, error) {
			g, err := ParseGate(pairs...)
			if err != nil {
				return "", err
			}
			name := g.Resolve(viewer)
			if name == "" {
				return "", nil
			}
			return render(deps.Execute, name, data)
		},
	}
}

func render(exec Executor, name string, data any) (template.HTML, error) {
	if exec == nil {
		return "", errors.New("template not initialized")
	}
	out, err := exec(name, data)
	if err != nil {
		return "", err
	}
	// #nosec G203 - produced by our own html/template set, already escaped.
	return template.HTML(out), nil
}

// ParseGate builds a gate of template names from key/value pairs:
// showFor, faculty, student, children and fallback.
func ParseGate(pairs ...string) (rolegate.Gate[string], error) {
	var g rolegate.Gate[string]
	if len(pairs)%2 != 0 {
		return g, errors.New("roleGate: odd number of key/value arguments")
	}
	for i := 0; i < len(pairs); i += 2 {
		v := pairs[i+1]
		switch strings.ToLower(pairs[i]) {
		case "showfor":
			g.ShowFor = rolegate.ParseShowFor(v)
		case "faculty":
			g.Faculty = &v
		case "student":
			g.Student = &v
		case "children":
			g.Children = &v
		case "fallback":
			g.Fallback = v
		default:
			return g, fmt.Errorf("roleGate: unknown key %q", pairs[i])
		}
	}
	return g, nil
}

// Dict builds a map from alternating keys and values for passing several
// values to a nested template.
func Dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// TruncateText shortens s to n runes with an ellipsis.
func TruncateText(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// FriendlyTimeLayout is the display layout for backend timestamps.
const FriendlyTimeLayout = "Jan 2, 2006 3:04 PM"

// FriendlyTime formats an RFC 3339 timestamp; other strings pass through.
func FriendlyTime(raw string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Local().Format(FriendlyTimeLayout)
		}
	}
	return raw
}

// Duration renders seconds as m:ss or h:mm:ss.
func Duration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// StatusClass maps a status label to a badge class. Any string-kinded value
// is accepted so named status types work in templates.
func StatusClass(status any) string {
	switch strings.ToUpper(fmt.Sprint(status)) {
	case "COMPLETED", "READY", "PUBLISHED", "ACTIVE":
		return "badge-success"
	case "RUNNING", "PROCESSING", "PENDING":
		return "badge-info"
	case "ERROR", "FAILED":
		return "badge-danger"
	case "ARCHIVED":
		return "badge-muted"
	default:
		return "badge-neutral"
	}
}

// buffer is a helper for executors.
func buffer(fn func(*bytes.Buffer) error) (string, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TemplateExecutor adapts a template getter to an Executor.
func TemplateExecutor(current func() *template.Template) Executor {
	return func(name string, data any) (string, error) {
		t := current()
		if t == nil {
			return "", errors.New("template not initialized")
		}
		return buffer(func(b *bytes.Buffer) error { return t.ExecuteTemplate(b, name, data) })
	}
}
