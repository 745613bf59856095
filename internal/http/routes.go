package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	portal "github.com/eduassist/portal"
	"github.com/eduassist/portal/internal/backend"
	"github.com/eduassist/portal/internal/guard"
	"github.com/eduassist/portal/internal/service"
	"github.com/eduassist/portal/internal/session"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth      *service.AuthService
	Classroom *service.ClassroomService
	TestPilot *service.TestPilotService
	// Backend is rebound per request to the client's session token.
	Backend  *backend.Client
	Sessions *session.Manager
	Guard    guard.Guard
	Cookies  CookieConfig

	// Renderer is optional; by default templates load from the embedded FS
	// (or from disk in dev mode).
	Renderer *TemplateRenderer

	// Capture exposes the in-process capture queue to agents. Optional.
	Capture      CaptureAgentQueue
	CaptureToken string
	CapturePoll  time.Duration

	OAuthCallbackURL string
	IsDev            bool         // Development mode flag for disk assets and error detail
	Logger           *slog.Logger // Logger for template and HTTP errors (optional)
}

// NewRouter creates the HTTP handler with the full middleware chain.
func NewRouter(services RouterServices) (http.Handler, error) {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := services.Renderer
	if renderer == nil {
		var err error
		renderer, err = NewTemplateRenderer(TemplateRendererConfig{TemplateFS: TemplateFS(services.IsDev), Logger: logger})
		if err != nil {
			return nil, err
		}
	}

	ui := &UIHandlers{
		T:         renderer,
		Classroom: services.Classroom,
		TestPilot: services.TestPilot,
		Backend:   services.Backend,
		Cookies:   services.Cookies,
		IsDev:     services.IsDev,
		Logger:    logger,
	}
	authHandlers := &AuthHandlers{
		Svc:         services.Auth,
		UI:          ui,
		CallbackURL: services.OAuthCallbackURL,
		Logger:      logger,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /static/", staticHandler(services.IsDev))

	// Only routes that read or write the session get one; health checks,
	// assets and capture agents never mint a client id.
	withSession := ClientSession(ClientSessionConfig{Manager: services.Sessions, Cookies: services.Cookies})
	csrf := CSRFProtection(services.Cookies)
	registerAuthRoutes(mux, authHandlers, withSession, csrf)
	if services.Capture != nil {
		registerCaptureRoutes(mux, &CaptureHandlers{
			Queue:       services.Capture,
			Token:       services.CaptureToken,
			PollTimeout: services.CapturePoll,
			Logger:      logger,
		})
	}

	guarded := func(h http.HandlerFunc) http.Handler {
		return withSession(RequireSession(services.Guard)(csrf(h)))
	}
	registerClassroomRoutes(mux, ui, guarded)
	registerTestPilotRoutes(mux, ui, guarded)

	var handler http.Handler = &notFoundHandler{
		mux: mux,
		ui:  ui,
		// The not-found page shows a known client as signed in, without
		// creating sessions for unknown ones.
		session: ClientSession(ClientSessionConfig{
			Manager: services.Sessions, Cookies: services.Cookies, ExistingOnly: true,
		}),
	}
	handler = BrowserDetection()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler, nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, withSession, csrf func(http.Handler) http.Handler) {
	form := func(fn http.HandlerFunc) http.Handler { return withSession(csrf(fn)) }
	mux.Handle("GET /signin", form(h.SignInPage))
	mux.Handle("POST /signin", form(h.SignIn))
	mux.Handle("GET /signup", form(h.SignUpPage))
	mux.Handle("POST /signup", form(h.SignUp))
	mux.Handle("POST /signout", form(h.SignOut))
	mux.Handle("GET /auth/status", withSession(http.HandlerFunc(h.Status)))
	if h.Svc.OAuthEnabled() {
		mux.Handle("GET /auth/login", withSession(http.HandlerFunc(h.Login)))
		mux.Handle("GET /auth/callback", withSession(http.HandlerFunc(h.Callback)))
	}
}

func registerCaptureRoutes(mux *http.ServeMux, h *CaptureHandlers) {
	mux.HandleFunc("GET /api/capture/requests", h.NextRequest)
	mux.HandleFunc("POST /api/capture/responses", h.PostResponse)
}

func registerClassroomRoutes(mux *http.ServeMux, h *UIHandlers, guarded func(http.HandlerFunc) http.Handler) {
	mux.Handle("GET /{$}", guarded(h.Dashboard))
	mux.Handle("POST /courses", guarded(h.CreateCourse))
	mux.Handle("GET /courses/{id}", guarded(h.CourseView))
	mux.Handle("PUT /courses/{id}", guarded(h.UpdateCourse))
	mux.Handle("DELETE /courses/{id}", guarded(h.DeleteCourse))
	mux.Handle("POST /courses/{id}/modules", guarded(h.CreateModule))

	mux.Handle("GET /modules/{id}", guarded(h.ModuleView))
	mux.Handle("PUT /modules/{id}", guarded(h.UpdateModule))
	mux.Handle("DELETE /modules/{id}", guarded(h.DeleteModule))
	mux.Handle("POST /modules/{id}/videos", guarded(h.UploadVideo))
	mux.Handle("POST /modules/{id}/resources", guarded(h.UploadResource))
	mux.Handle("POST /modules/{id}/chat", guarded(h.ModuleChat))

	mux.Handle("PUT /resources/{id}", guarded(h.UpdateResource))
	mux.Handle("DELETE /resources/{id}", guarded(h.DeleteResource))
	mux.Handle("POST /videos/{id}/chat", guarded(h.VideoChat))
	mux.Handle("POST /rag/prompt", guarded(h.RAGPrompt))
}

func registerTestPilotRoutes(mux *http.ServeMux, h *UIHandlers, guarded func(http.HandlerFunc) http.Handler) {
	mux.Handle("GET /test-suites", guarded(h.Suites))
	mux.Handle("POST /test-suites", guarded(h.CreateSuite))
	mux.Handle("GET /test-suites/{id}", guarded(h.SuiteView))
	mux.Handle("PUT /test-suites/{id}", guarded(h.UpdateSuite))
	mux.Handle("DELETE /test-suites/{id}", guarded(h.DeleteSuite))
	mux.Handle("GET /test-suites/{id}/export.csv", guarded(h.ExportCases))
	mux.Handle("POST /test-suites/{id}/cases", guarded(h.CreateCase))

	mux.Handle("PUT /test-cases/{id}", guarded(h.UpdateCase))
	mux.Handle("DELETE /test-cases/{id}", guarded(h.DeleteCase))
	mux.Handle("POST /test-cases/{id}/generate", guarded(h.GenerateCode))
	mux.Handle("POST /test-cases/{id}/record-ir", guarded(h.RecordIR))
}

// TemplateFS returns the template root: the working tree in dev mode, the
// embedded copy otherwise.
func TemplateFS(isDev bool) fs.FS {
	if isDev {
		return os.DirFS(TemplatePathFromRoot)
	}
	sub, err := fs.Sub(portal.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		slog.Default().Warn("embedded templates unavailable; falling back to disk", "error", err)
		return os.DirFS(TemplatePathFromRoot)
	}
	return sub
}

// staticHandler serves /static/* from disk in dev mode and from the embedded
// FS otherwise.
func staticHandler(isDev bool) http.Handler {
	if isDev {
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}
	staticSub, err := fs.Sub(portal.StaticFS, "frontend/static")
	if err != nil {
		slog.Default().Warn("embedded static assets unavailable; falling back to disk", "error", err)
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}
	return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
}

//nolint:gochecknoglobals // compiled once
var hashedFilePattern = regexp.MustCompile(`\.[a-f0-9]{8}\.(?:js|css)(?:\.map)?$`)

// staticWithCacheHeaders caches content-hashed assets for a year and
// everything else not at all.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hashedFilePattern.MatchString(r.URL.Path) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}
		handler.ServeHTTP(w, r)
	})
}

// notFoundHandler renders the not-found page for browser requests the mux
// did not match.
type notFoundHandler struct {
	mux     *http.ServeMux
	ui      *UIHandlers
	session func(http.Handler) http.Handler
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, pattern := h.mux.Handler(r)
	if pattern == "" && IsBrowserRequest(r) && !strings.HasPrefix(r.URL.Path, "/static/") {
		h.session(http.HandlerFunc(h.ui.NotFound)).ServeHTTP(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}
