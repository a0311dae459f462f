package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/saberlens/internal/adapters/http/api"
	"github.com/okian/saberlens/internal/adapters/http/swagger"
	"github.com/okian/saberlens/internal/adapters/upstream"
	app "github.com/okian/saberlens/internal/app"
	"github.com/okian/saberlens/internal/config"
	"github.com/okian/saberlens/internal/supervisor"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enrichment service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()

	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	)

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithDataDir(cfg.DataDir),
		app.WithBeatSaverBaseURL(cfg.BeatSaverBaseURL),
		app.WithBeatLeaderBaseURL(cfg.BeatLeaderBaseURL),
		app.WithUpstreamOptions(
			upstream.WithTimeout(cfg.HTTPTimeout()),
			upstream.WithRateLimit(cfg.UpstreamRPS, cfg.UpstreamBurst),
			upstream.WithBreaker(cfg.BreakerFailureRatio, cfg.BreakerMinRequests, cfg.BreakerOpenTimeout),
		),
		app.WithSettleDelay(cfg.SettleDelay()),
		app.WithNavigationDelay(cfg.NavigationDelay()),
		app.WithPersistDebounce(cfg.PersistDebounce()),
		app.WithReplayCacheTTL(cfg.ReplayCacheTTL),
		app.WithReplayPageSize(cfg.ReplayPageSize),
		app.WithFallbackRankThreshold(cfg.FallbackRankThreshold),
		app.WithWorkerCount(cfg.ReplayWorkerCount),
		app.WithQueueSize(cfg.ReplayQueueSize),
		app.WithBatchStoreSize(cfg.BatchStoreSize),
		app.WithAllowedOrigins(cfg.AllowedOrigins...),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	if metrics.Enabled() {
		go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	}

	hub := svc.Hub()
	apiServer := api.NewServer(svc, svc,
		api.WithStream(hub),
		api.WithDocs(swagger.Register),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
		api.WithObserveRateLimit(cfg.ObserveRateLimit, cfg.ObserveRateWindow),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	tree := supervisor.NewTree(
		supervisor.WithLogger(log.Named("supervisor")),
		supervisor.WithShutdownTimeout(shutdownTimeout),
	)
	tree.AddMessagingService(hub)
	tree.AddAPIService(supervisor.NewHTTPService(srv, shutdownTimeout))

	log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
	err = tree.Serve(ctx)
	log.Info(context.WithoutCancel(ctx), "server stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// startSystemMetricsUpdater updates system metrics every interval until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
