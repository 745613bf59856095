package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/eduassist/portal/config"
	httpx "github.com/eduassist/portal/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler wires the router for the portal UI, auth and capture routes.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("http server config is incomplete")
	}
	appCfg := cfg.Config
	svc := cfg.Services

	services := httpx.RouterServices{
		Auth:      svc.Auth,
		Classroom: svc.Classroom,
		TestPilot: svc.TestPilot,
		Backend:   svc.Backend,
		Sessions:  svc.Sessions,
		Guard:     svc.Guard,
		Renderer:  svc.Renderer,
		Cookies: httpx.CookieConfig{
			Domain: appCfg.HTTP.CookieDomain,
		},
		// Agents poll over HTTP only when the queue lives in this process.
		Capture:          svc.CaptureQueue,
		CaptureToken:     appCfg.Capture.Token,
		CapturePoll:      appCfg.Capture.PollTimeout,
		OAuthCallbackURL: appCfg.Auth.OAuth.RedirectURL,
		IsDev:            appCfg.IsDev,
		Logger:           cfg.Logger,
	}
	return httpx.NewRouter(services)
}

// NewTemplateRenderer loads templates from disk in dev mode (so Watch can
// reload them) and from the embedded copy otherwise.
func NewTemplateRenderer(cfg *config.AppConfig, logger *slog.Logger) (*httpx.TemplateRenderer, error) {
	fsys := httpx.TemplateFS(false)
	if cfg.IsDev {
		fsys = os.DirFS(cfg.HTTP.TemplateDir)
	}
	return httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{TemplateFS: fsys, Logger: logger})
}

func startServer(logger *slog.Logger, handler http.Handler, cfg config.HTTPConfig, errCh chan<- error) *http.Server {
	addr := cfg.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		// Capture long polls and chat replies both run close to the backend timeout.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
