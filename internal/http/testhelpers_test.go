package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/eduassist/portal/internal/adapters/memstore"
	"github.com/eduassist/portal/internal/backend"
	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/guard"
	"github.com/eduassist/portal/internal/service"
	"github.com/eduassist/portal/internal/session"
)

const testCSRF = "csrf-test-token"

// RequireTemplateRenderer creates a TemplateRenderer for tests, skipping the
// test if templates are not available.
func RequireTemplateRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: os.DirFS(TemplatePathFromTest),
	})
	if err != nil {
		t.Skipf("Templates not available, skipping: %v", err)
		return nil
	}
	return tr
}

// fakeBackend is a canned REST backend that records what it saw.
type fakeBackend struct {
	mu      sync.Mutex
	auth    []string
	paths   []string
	bodies  map[string]string
	handler map[string]http.HandlerFunc
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{bodies: map[string]string{}, handler: map[string]http.HandlerFunc{}}
}

// on registers a handler for "METHOD /path".
func (f *fakeBackend) on(route string, h http.HandlerFunc) { f.handler[route] = h }

// json registers a fixed JSON reply for "METHOD /path".
func (f *fakeBackend) json(route string, status int, body string) {
	f.on(route, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.paths = append(f.paths, route)
	f.bodies[route] = string(body)
	h, ok := f.handler[route]
	f.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"not found"}`)
		return
	}
	h(w, r)
}

func (f *fakeBackend) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auth) == 0 {
		return ""
	}
	return f.auth[len(f.auth)-1]
}

func (f *fakeBackend) body(route string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[route]
}

func (f *fakeBackend) called(route string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.paths {
		if p == route {
			return true
		}
	}
	return false
}

// testEnv is a fully wired router against a fake backend.
type testEnv struct {
	t        *testing.T
	backend  *fakeBackend
	storage  *memstore.Storage
	sessions *session.Manager
	handler  http.Handler
}

type envOption func(*RouterServices)

// withSessions swaps in a session manager, e.g. one with a small capacity.
func withSessions(t *testing.T, opts session.ManagerOptions) envOption {
	return func(s *RouterServices) {
		m := session.NewManager(opts)
		t.Cleanup(m.Wait)
		s.Sessions = m
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	renderer := RequireTemplateRenderer(t)

	fb := newFakeBackend()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	client, err := backend.NewClient(backend.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	storage := memstore.New()
	sessions := session.NewManager(session.ManagerOptions{Storage: storage})
	t.Cleanup(sessions.Wait)

	services := RouterServices{
		Auth:      service.NewAuthService(service.AuthServiceOptions{Authenticator: client, Registrar: client}),
		Classroom: service.NewClassroomService(service.ClassroomServiceOptions{API: client}),
		TestPilot: service.NewTestPilotService(service.TestPilotServiceOptions{API: client}),
		Backend:   client,
		Sessions:  sessions,
		Guard:     guard.New(guard.Config{}),
		Renderer:  renderer,
	}
	for _, o := range opts {
		o(&services)
	}
	h, err := NewRouter(services)
	require.NoError(t, err)

	return &testEnv{t: t, backend: fb, storage: storage, sessions: services.Sessions, handler: h}
}

// signIn records a session for a fresh client id and returns the id.
func (e *testEnv) signIn(role domainauth.Role, token string) string {
	e.t.Helper()
	id := uuid.NewString()
	st := e.sessions.Store(id)
	<-st.Ready()
	require.NoError(e.t, st.LoginSuccess(context.Background(),
		domainauth.User{Email: "u@example.com", Name: "Uma", Role: role}, token))
	return id
}

// request builds a browser request for clientID. Mutations carry a valid CSRF pair.
func (e *testEnv) request(method, target, clientID string, body io.Reader) *http.Request {
	r := httptest.NewRequest(method, target, body)
	r.Header.Set("Accept", "text/html")
	if clientID != "" {
		r.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: clientID})
	}
	r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRF})
	if method != http.MethodGet {
		r.Header.Set(DefaultCSRFHeaderName, testCSRF)
	}
	return r
}

func (e *testEnv) htmx(method, target, clientID, form string) *http.Request {
	var body io.Reader
	if form != "" {
		body = strings.NewReader(form)
	}
	r := e.request(method, target, clientID, body)
	r.Header.Set("Hx-Request", "true")
	if form != "" {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return r
}

func (e *testEnv) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

// triggeredToast decodes the showToast payload of an Hx-Trigger header.
func triggeredToast(t *testing.T, h http.Header) Toast {
	t.Helper()
	var payload map[string]Toast
	require.NoError(t, json.Unmarshal([]byte(h.Get("Hx-Trigger")), &payload))
	return payload["showToast"]
}

// ContainsAll checks if a string contains all the given substrings.
func ContainsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
