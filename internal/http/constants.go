package httpx

// Page identifiers used in templates and navigation.
const (
	PageSignIn    = "signin"
	PageSignUp    = "signup"
	PageDashboard = "dashboard"
	PageCourse    = "course"
	PageModule    = "module"
	PageSuites    = "suites"
	PageSuite     = "suite"
	PageNotFound  = "not-found"
)

// Template paths used for loading templates in tests and development.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates" // from internal/http
)

// Cookie names.
const (
	ClientIDCookie = "client_id"
	FlashCookie    = "flash"
)

//nolint:gochecknoglobals // static read-only lookup
var contentTemplates = map[string]string{
	PageSignIn:    "signin-content",
	PageSignUp:    "signup-content",
	PageDashboard: "dashboard-content",
	PageCourse:    "course-content",
	PageModule:    "module-content",
	PageSuites:    "suites-content",
	PageSuite:     "suite-content",
	PageNotFound:  "not-found-content",
}

// ContentTemplateFor returns the content template for the given page.
// Unknown pages fall back to the dashboard.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "dashboard-content"
}
