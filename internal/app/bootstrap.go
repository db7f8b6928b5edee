package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hirelane/internal/config"
	"hirelane/internal/delivery/http/handler"
	"hirelane/internal/delivery/http/middleware"
	"hirelane/internal/delivery/http/routes"
	v1 "hirelane/internal/delivery/http/routes/v1"
	"hirelane/internal/delivery/ops"
	"hirelane/internal/ws"
)

type App struct {
	Fiber     *fiber.App
	Container *Container

	ops      *http.Server
	realtime *http.Server
}

// New builds the HTTP surface over an existing container.
func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName:   c.Config.App.AppName,
		BodyLimit: 8 << 20,
	})

	registerGlobalMiddleware(f, c.Logger)
	registerRoutes(f, c)

	wsHandler := ws.NewHandler(c.Hub, c.JWT, c.Config.Realtime.AllowedOrigins, c.Logger.Named("ws"))

	return &App{
		Fiber:     f,
		Container: c,
		ops: &http.Server{
			Addr:              c.Config.Ops.Addr,
			Handler:           ops.NewRouter(c.Metrics, c.Pinger()),
			ReadHeaderTimeout: 5 * time.Second,
		},
		realtime: &http.Server{
			Addr:              c.Config.Realtime.Addr,
			Handler:           wsHandler.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func Bootstrap(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return New(c), c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, logger *zap.Logger) {
	if app == nil {
		return
	}

	accessMw := middleware.NewAccessLogMiddleware(logger.Named("http"))
	app.Use(accessMw.Middleware())

	errMw := middleware.NewErrorMiddleware(logger.Named("http"))
	app.Use(errMw.Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	s := c.Services
	registry := routes.NewRegistry(
		handler.NewHealthHandler(c.Pinger(), c.Redis),
		middleware.NewAuthMiddleware(c.JWT),
		v1.Handlers{
			Jobs:          handler.NewJobsHandler(s.Jobs, s.Payments),
			Applications:  handler.NewApplicationsHandler(s.Applications),
			Offers:        handler.NewOffersHandler(s.Offers),
			Notifications: handler.NewNotificationsHandler(s.Notifications),
			Payments:      handler.NewPaymentsHandler(s.Payments),
		},
	)
	registry.Register(app)
}

// Serve runs the API, ops and realtime listeners plus the background loops
// until ctx is cancelled or a listener fails.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Container.Config
	logger := a.Container.Logger

	addr, err := ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.Container.Hub.Run(ctx)
	go func() {
		if err := a.Container.Hub.Bridge(ctx, a.Container.Redis); err != nil && !errors.Is(err, context.Canceled) {
			logger.Info("ws bridge not running, delivering locally only", zap.Error(err))
		}
	}()
	if !cfg.Sweep.DisableInServe {
		go a.Container.Services.Sweep.Loop(ctx, cfg.Sweep.Interval)
	}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("api listening", zap.String("addr", addr))
		errCh <- a.Fiber.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	go func() {
		logger.Info("ops listening", zap.String("addr", a.ops.Addr))
		errCh <- ignoreClosed(a.ops.ListenAndServe())
	}()
	go func() {
		logger.Info("realtime listening", zap.String("addr", a.realtime.Addr))
		errCh <- ignoreClosed(a.realtime.ListenAndServe())
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	err = multierr.Combine(
		serveErr,
		a.Fiber.ShutdownWithContext(shutdownCtx),
		a.ops.Shutdown(shutdownCtx),
		a.realtime.Shutdown(shutdownCtx),
	)
	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
