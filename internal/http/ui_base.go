package httpx

import (
	"context"
	"html"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/eduassist/portal/internal/backend"
	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/service"
)

// UIHandlers serves browser-facing routes.
type UIHandlers struct {
	T         *TemplateRenderer
	Classroom *service.ClassroomService
	TestPilot *service.TestPilotService
	// Backend, when set, is rebound per request to the client's session so
	// every call carries that client's bearer token.
	Backend *backend.Client
	Cookies CookieConfig
	IsDev   bool // Development mode flag for enhanced error reporting
	Logger  *slog.Logger
}

// logger returns the configured logger or falls back to slog.Default().
func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// client returns the backend client bound to the request's session, or nil.
func (h *UIHandlers) client(r *http.Request) *backend.Client {
	if h.Backend == nil {
		return nil
	}
	st, ok := GetSessionFromContext(r.Context())
	if !ok {
		return h.Backend
	}
	return h.Backend.WithTokens(st)
}

func (h *UIHandlers) classroom(r *http.Request) *service.ClassroomService {
	if c := h.client(r); c != nil {
		return h.Classroom.WithAPI(c)
	}
	return h.Classroom
}

func (h *UIHandlers) testPilot(r *http.Request) *service.TestPilotService {
	if c := h.client(r); c != nil {
		return h.TestPilot.WithAPI(c)
	}
	return h.TestPilot
}

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

// basePageData constructs the common page data map with user context.
func (h *UIHandlers) basePageData(w http.ResponseWriter, r *http.Request, meta PageMeta) map[string]any {
	facts := AuthFacts(r.Context())
	data := map[string]any{
		"Title":           meta.Title,
		"PageTitle":       meta.PageTitle,
		"CurrentPage":     meta.CurrentPage,
		"Auth":            facts,
		"IsAuthenticated": facts.Authenticated,
		"CSRFToken":       GetCSRFToken(r),
	}
	if facts.User != nil {
		data["User"] = facts.User
		data["DisplayName"] = facts.DisplayName()
	}
	if flash := popFlash(w, r, h.Cookies); flash != nil {
		data["Flash"] = flash
	}
	return data
}

// PageSpec defines metadata and an optional fetch for page-specific data.
type PageSpec struct {
	Meta  PageMeta
	Fetch func(ctx context.Context, data map[string]any) error
	// ErrorMessage is shown when Fetch fails without a backend detail.
	ErrorMessage string
}

// Page builds base data, optionally fetches content data, and renders.
// A NotFound fetch error renders the not-found page instead.
func (h *UIHandlers) Page(w http.ResponseWriter, r *http.Request, spec PageSpec) {
	data := h.basePageData(w, r, spec.Meta)
	if spec.Fetch != nil {
		if err := spec.Fetch(r.Context(), data); err != nil {
			if apperrors.IsNotFound(err) {
				h.NotFound(w, r)
				return
			}
			h.logger().WarnContext(r.Context(), "page data fetch failed",
				"page", spec.Meta.CurrentPage, "error", err)
			fallback := spec.ErrorMessage
			if fallback == "" {
				fallback = "An unexpected error occurred. Please try again."
			}
			data["Error"] = true
			data["ErrorMessage"] = toastMessage(err, fallback)
		}
	}
	h.renderPage(w, r, data)
}

// NotFound renders the not-found page with a 404 status.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	data := h.basePageData(w, r, PageMeta{Title: "Not Found", PageTitle: "Not Found", CurrentPage: PageNotFound})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	h.renderPage(w, r, data)
}

// renderPage renders a page with HTMX partial support.
func (h *UIHandlers) renderPage(w http.ResponseWriter, r *http.Request, data map[string]any) {
	if !WantsPartial(r) {
		if err := h.T.RenderFull(w, r, data); err != nil {
			h.logAndRenderTemplateError(w, r, err, "full page render")
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	SetHXTrigger(w, "nav:activate", map[string]string{"path": r.URL.Path})

	title, _ := data["Title"].(string)
	pageTitle, _ := data["PageTitle"].(string)
	// Keep document.title and the header in sync on partial swaps.
	if _, err := w.Write([]byte(`<title>` + html.EscapeString(title) + `</title>` +
		`<h1 id="header-title" class="header-title" hx-swap-oob="outerHTML">` + html.EscapeString(pageTitle) + `</h1>`)); err != nil {
		h.logger().Error("failed to write partial header", "error", err)
		return
	}
	if err := h.T.RenderPartial(w, r, data); err != nil {
		h.logAndRenderTemplateError(w, r, err, "partial content render")
	}
}

// renderFragment renders one named template for an htmx swap.
func (h *UIHandlers) renderFragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := h.T.RenderNamed(w, name, data); err != nil {
		h.logAndRenderTemplateError(w, r, err, "fragment "+name)
	}
}

// mutationSucceeded queues a success toast and sends the client to target.
func (h *UIHandlers) mutationSucceeded(w http.ResponseWriter, r *http.Request, message, target string) {
	if message != "" {
		setFlash(w, r, h.Cookies, Toast{Type: toastSuccess, Message: message})
	}
	if IsHTMX(r) {
		HTMX(w).Redirect(target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// mutationFailed reports err as an error toast without changing the page.
// HTMX requests get Hx-Reswap: none; plain form posts go back with a flash.
func (h *UIHandlers) mutationFailed(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	msg := toastMessage(err, fallback)
	h.logger().WarnContext(r.Context(), "mutation failed",
		"method", r.Method, "path", r.URL.Path, "error", err)

	if IsHTMX(r) {
		HTMX(w).NoSwap().Trigger("showToast", Toast{Type: toastError, Message: msg})
		w.WriteHeader(http.StatusOK)
		return
	}
	setFlash(w, r, h.Cookies, Toast{Type: toastError, Message: msg})
	http.Redirect(w, r, refererPath(r), http.StatusSeeOther)
}

// refererPath is the local page the request came from, or "/".
func refererPath(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return "/"
	}
	if u.RequestURI() == "" {
		return "/"
	}
	return u.RequestURI()
}

// logAndRenderTemplateError logs template errors and renders them in dev mode.
func (h *UIHandlers) logAndRenderTemplateError(w http.ResponseWriter, r *http.Request, err error, context string) {
	h.logger().Error("template rendering failed",
		"error", err,
		"context", context,
		"path", r.URL.Path,
		"method", r.Method,
	)

	if h.IsDev {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		if _, writeErr := w.Write([]byte(`<div class="template-error"><h2>Template Rendering Error</h2>` +
			`<p><strong>Context:</strong> ` + html.EscapeString(context) + `</p>` +
			`<p><strong>Path:</strong> ` + html.EscapeString(r.URL.Path) + `</p>` +
			`<pre>` + html.EscapeString(err.Error()) + `</pre></div>`)); writeErr != nil {
			h.logger().Error("failed to write template error response", "error", writeErr)
		}
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
