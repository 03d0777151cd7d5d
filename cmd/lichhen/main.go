// Command lichhen serves the Vietnamese calendar event API and delivers
// reminders in the background.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/lichhen/internal/adapters/http/api"
	"github.com/okian/lichhen/internal/adapters/http/swagger"
	workerpool "github.com/okian/lichhen/internal/adapters/mq/worker"
	"github.com/okian/lichhen/internal/adapters/notify"
	repository "github.com/okian/lichhen/internal/adapters/repository"
	service "github.com/okian/lichhen/internal/app"
	"github.com/okian/lichhen/internal/config"
	"github.com/okian/lichhen/pkg/logger"
	"github.com/okian/lichhen/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "lichhen exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run loads configuration, serves until ctx is cancelled and then shuts
// everything down in reverse order.
func run(ctx context.Context) error {
	log := logger.Get()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn(ctx, "could not read .env", logger.Error(err))
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		log.Warn(ctx, "invalid log_format; keeping text", logger.String("log_format", cfg.LogFormat), logger.Error(err))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	log = logger.Get()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	if err := a.svc.Start(ctx); err != nil {
		_ = a.store.Close()
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.Store.Driver),
			logger.String("timezone", a.svc.Location().String()),
			logger.Bool("smtp", cfg.MailEnabled()))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if sErr := a.shutdown(shutdownCtx); sErr != nil {
		log.Error(ctx, "shutdown failed", logger.Error(sErr))
	}
	log.Info(ctx, "server stopped")
	return err
}

// application is the wired process: store, service and HTTP server.
type application struct {
	store repository.Store
	svc   *service.Service
	srv   *http.Server
}

// build opens the store and wires the service and routes without starting
// anything.
func build(ctx context.Context, cfg *config.Config) (*application, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, repository.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	svc := service.New(
		service.WithLogger(logger.Get()),
		service.WithStore(store),
		service.WithNotifier(newNotifier(cfg)),
		service.WithLocation(loc),
		service.WithDefaultReminderMinutes(cfg.Reminder.DefaultMinutes),
		service.WithScanSchedule(cfg.Reminder.ScanSchedule),
		service.WithWorkerCount(cfg.Reminder.WorkerCount),
		service.WithQueueSize(cfg.Reminder.QueueSize),
		service.WithDedupeSize(cfg.Reminder.DedupeSize),
	)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithParseRateLimit(cfg.HTTP.ParseRate, cfg.HTTP.ParseBurst),
		api.WithMaxTextLength(cfg.HTTP.MaxTextLength),
		api.WithTrustedProxy(cfg.HTTP.TrustForwarded),
	).Register(ctx, mux)

	return &application{
		store: store,
		svc:   svc,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// shutdown stops accepting requests, drains the reminder pool and closes
// the store.
func (a *application) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := a.svc.Stop(ctx); err != nil && !errors.Is(err, service.ErrNotStarted) {
		errs = append(errs, fmt.Errorf("service: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	return errors.Join(errs...)
}

func newNotifier(cfg *config.Config) workerpool.Notifier {
	if !cfg.MailEnabled() {
		return notify.NewLogNotifier()
	}
	var opts []notify.SMTPOption
	if cfg.SMTP.Username != "" {
		opts = append(opts, notify.WithAuth(cfg.SMTP.Username, cfg.SMTP.Password))
	}
	return notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.To, opts...)
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
