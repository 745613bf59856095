package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduassist/portal/config"
	redisadapter "github.com/eduassist/portal/internal/adapters/redis"
	"github.com/eduassist/portal/internal/backend"
	"github.com/eduassist/portal/internal/capture"
	"github.com/eduassist/portal/internal/guard"
	httpx "github.com/eduassist/portal/internal/http"
	"github.com/eduassist/portal/internal/service"
	"github.com/eduassist/portal/internal/session"
)

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// ServiceContainer holds every component the HTTP layer depends on.
type ServiceContainer struct {
	Backend   *backend.Client
	Sessions  *session.Manager
	Guard     guard.Guard
	Auth      *service.AuthService
	Classroom *service.ClassroomService
	TestPilot *service.TestPilotService
	Renderer  *httpx.TemplateRenderer

	Bridge *capture.Bridge
	// CaptureQueue is set for the in-process transport only.
	CaptureQueue httpx.CaptureAgentQueue
}

// ServiceDeps contains dependencies for NewServices.
type ServiceDeps struct {
	Config *config.AppConfig
	Infra  *Infrastructure
	Logger *slog.Logger
}

// NewServices builds the backend client, session registry, guard, capture
// bridge and domain services.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.Infra == nil {
		return nil, errors.New("service deps are incomplete")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		ReplyPath: cfg.Backend.ReplyPath,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	c := &ServiceContainer{
		Backend: client,
		Sessions: session.NewManager(session.ManagerOptions{
			Storage:        deps.Infra.Storage,
			Capacity:       cfg.Session.Capacity,
			HydrateTimeout: cfg.Session.HydrateTimeout,
			Logger:         logger,
		}),
		Guard: guard.New(guard.Config{
			HydrationTimeout:    cfg.Guard.HydrationTimeout,
			PreserveDestination: cfg.Guard.PreserveDestination,
			Logger:              logger,
		}),
		Classroom: service.NewClassroomService(service.ClassroomServiceOptions{API: client, Logger: logger}),
	}

	c.Bridge, c.CaptureQueue = buildCapture(cfg, deps.Infra, logger)
	c.TestPilot = service.NewTestPilotService(service.TestPilotServiceOptions{
		API:      client,
		Recorder: c.Bridge,
		Logger:   logger,
	})

	c.Auth, err = BuildAuthService(ctx, AuthConfig{
		Auth:             cfg.Auth,
		Backend:          client,
		OAuthRedirectURL: cfg.HTTP.BaseURL + "/auth/callback",
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth service: %w", err)
	}

	c.Renderer, err = NewTemplateRenderer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return c, nil
}

func buildCapture(cfg *config.AppConfig, infra *Infrastructure, logger *slog.Logger) (*capture.Bridge, httpx.CaptureAgentQueue) {
	if cfg.Capture.Transport == config.CaptureTransportRedis && infra.RedisClient != nil {
		transport := redisadapter.NewCaptureTransport(infra.RedisClient, cfg.Redis.KeyPrefix+":capture:")
		return capture.NewBridge(capture.BridgeOptions{Transport: transport, Timeout: cfg.Capture.Timeout, Logger: logger}), nil
	}
	local := capture.NewLocalTransport(cfg.Capture.QueueSize)
	return capture.NewBridge(capture.BridgeOptions{Transport: local, Timeout: cfg.Capture.Timeout, Logger: logger}), local
}

// ServiceOrchestrationConfig contains everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, logger *slog.Logger, errCh chan<- error, descriptor backgroundService) backgroundServiceHandle {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case errCh <- errMsg:
			case <-ctx.Done():
			default:
				logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	logger.InfoContext(ctx, "background service started", "service", descriptor.name)
	return backgroundServiceHandle{name: descriptor.name, done: done}
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig) []backgroundService {
	services := []backgroundService{{name: "capture bridge", start: cfg.Services.Bridge.Run}}
	if cfg.Config.IsDev && cfg.Services.Renderer != nil {
		dir := cfg.Config.HTTP.TemplateDir
		services = append(services, backgroundService{
			name:  "template watcher",
			start: func(ctx context.Context) error { return cfg.Services.Renderer.Watch(ctx, dir) },
		})
	}
	return services
}

// RunServicesWithShutdown starts the HTTP server and background services and
// blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config is incomplete")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, err := BuildHTTPHandler(&HTTPServerConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})
	if err != nil {
		return fmt.Errorf("build http handler: %w", err)
	}

	background := buildBackgroundServices(cfg)
	errCh := make(chan error, len(background)+1)

	handles := make([]backgroundServiceHandle, 0, len(background))
	for _, svc := range background {
		handles = append(handles, launchBackground(serviceCtx, logger, errCh, svc))
	}
	server := startServer(logger, handler, cfg.Config.HTTP, errCh)

	return waitForShutdown(shutdownConfig{
		cancel:          cancel,
		errCh:           errCh,
		httpServer:      server,
		sessions:        cfg.Services.Sessions,
		shutdownTimeout: cfg.Config.HTTP.ShutdownTimeout,
		logger:          logger,
		backgrounds:     handles,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel          context.CancelFunc
	errCh           <-chan error
	httpServer      *http.Server
	sessions        *session.Manager
	shutdownTimeout time.Duration
	logger          *slog.Logger
	backgrounds     []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains HTTP before cancelling background services; in-flight
// record-IR requests still need the bridge.
func gracefulStop(cfg shutdownConfig) error {
	err := ShutdownHTTPServer(ShutdownConfig{
		Context: context.Background(),
		Server:  cfg.httpServer,
		Timeout: cfg.shutdownTimeout,
		Logger:  cfg.logger,
	})

	cfg.cancel()
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	if cfg.sessions != nil {
		cfg.sessions.Wait()
	}
	return err
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
