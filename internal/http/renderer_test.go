package httpx

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalTemplates(content string) fstest.MapFS {
	return fstest.MapFS{
		"layout.tmpl":        {Data: []byte(`{{define "layout"}}<main>{{template "content" .}}</main>{{end}}`)},
		"pages/home.tmpl":    {Data: []byte(`{{define "content"}}` + content + `{{end}}`)},
		"partials/item.tmpl": {Data: []byte(`{{define "item"}}<li>{{.}}</li>{{end}}`)},
	}
}

func TestTemplateRenderer_Render(t *testing.T) {
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: minimalTemplates(`hello {{.}}`), Logger: discardLogger()})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, r.RenderFull(w, nil, "<world>"))
	assert.Equal(t, "<main>hello &lt;world&gt;</main>", w.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	require.NoError(t, r.RenderNamed(w, "item", "one"))
	assert.Equal(t, "<li>one</li>", w.Body.String())

	w = httptest.NewRecorder()
	assert.Error(t, r.RenderNamed(w, "missing", nil))
	assert.Empty(t, w.Body.String())
}

func TestTemplateRenderer_RequiresFS(t *testing.T) {
	_, err := NewTemplateRenderer(TemplateRendererConfig{})
	assert.Error(t, err)
}

func TestTemplateRenderer_ParseError(t *testing.T) {
	_, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: minimalTemplates(`{{if}}`), Logger: discardLogger()})
	assert.Error(t, err)
}

func writeTemplates(t *testing.T, dir, content string) {
	t.Helper()
	for name, f := range minimalTemplates(content) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, f.Data, 0o600))
	}
}

func TestTemplateRenderer_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	writeTemplates(t, dir, "v1")

	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: os.DirFS(dir), Logger: discardLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, dir) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	render := func() string {
		w := httptest.NewRecorder()
		if err := r.RenderPartial(w, nil, nil); err != nil {
			return ""
		}
		return w.Body.String()
	}
	require.Equal(t, "v1", render())

	// A broken edit keeps the previous set live.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "pages", "home.tmpl"), []byte(`{{define "content"}}{{if}}{{end}}`), 0o600)
		time.Sleep(20 * time.Millisecond)
		return render() == "v1"
	}, time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "pages", "home.tmpl"), []byte(`{{define "content"}}v2{{end}}`), 0o600)
		time.Sleep(20 * time.Millisecond)
		return render() == "v2"
	}, 3*time.Second, 100*time.Millisecond)
}
