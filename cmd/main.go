package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/scoreimport/internal/adapters/charts"
	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/internal/adapters/http/api"
	"github.com/okian/scoreimport/internal/adapters/http/swagger"
	"github.com/okian/scoreimport/internal/adapters/kaiclient"
	app "github.com/okian/scoreimport/internal/app"
	"github.com/okian/scoreimport/internal/config"
	"github.com/okian/scoreimport/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 30 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
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
		logger.Get().Error(ctx, "exiting", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts, err := serviceOptions(ctx, cfg, log)
	if err != nil {
		return err
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// serviceOptions turns configuration into service options: partner base
// URLs, the partner HTTP client with its token refresh registrations, and
// the optional chart table.
func serviceOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]app.Option, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithLocation(loc),
		app.WithMaxPages(cfg.KaiMaxPages),
		app.WithPartners(partners(cfg)...),
		app.WithFetcher(kaiclient.New(kaiclient.Config{
			Timeout:       cfg.KaiTimeout(),
			RatePerSecond: cfg.KaiRatePerSec,
			Burst:         cfg.KaiBurst,
			OAuth:         oauthRegistrations(cfg),
			Logger:        log,
		})),
	}
	if cfg.ChartTableFile != "" {
		tbl, err := charts.Load(cfg.ChartTableFile)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "chart table loaded", logger.String("path", cfg.ChartTableFile), logger.Int("charts", tbl.Len()))
		opts = append(opts, app.WithChartMaxima(tbl))
	}
	return opts, nil
}

func partners(cfg *config.Config) []kai.Partner {
	return []kai.Partner{
		kai.FLO.WithBaseURL(cfg.FloBaseURL),
		kai.EAG.WithBaseURL(cfg.EagBaseURL),
		kai.MIN.WithBaseURL(cfg.MinBaseURL),
	}
}

func oauthRegistrations(cfg *config.Config) map[string]kaiclient.OAuth {
	out := make(map[string]kaiclient.OAuth)
	for name, tokenURL := range map[string]string{kai.FLO.Name: cfg.FloTokenURL, kai.EAG.Name: cfg.EagTokenURL} {
		if tokenURL == "" {
			continue
		}
		out[name] = kaiclient.OAuth{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			TokenURL:     tokenURL,
		}
	}
	return out
}

func newMux(ctx context.Context, svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithMaxUploadBytes(cfg.MaxUploadBytes)).Register(ctx, mux)
	return mux
}

// startServiceMetricsUpdater refreshes queue and store gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
