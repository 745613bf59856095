package config

import (
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 15 * time.Second
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the public base URL of the portal (e.g., "https://portal.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for client and CSRF cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// ReadHeaderTimeout bounds slow clients sending headers.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// TemplateDir points at templates on disk for hot reload in dev mode.
	TemplateDir string `env:"HTTP_TEMPLATE_DIR" envDefault:"frontend/templates"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	h.CookieDomain = sanitizeCookieDomain(h.CookieDomain)
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = defaultShutdownTimeout
	}
}

// sanitizeCookieDomain drops domains browsers would reject: bare public
// suffixes such as "co.uk" and hosts without a registrable part.
func sanitizeCookieDomain(domain string) string {
	d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	if d == "" || d == "localhost" {
		return ""
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
		return ""
	}
	return d
}
