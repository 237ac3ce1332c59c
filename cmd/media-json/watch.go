package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-json/internal/engine"
	"media-json/internal/handlers"
	"media-json/internal/logging"
	"media-json/internal/metrics"
	"media-json/internal/middleware"
	"media-json/internal/output"
	"media-json/internal/source"
	"media-json/internal/startup"
	"media-json/internal/watch"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newWatchCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [src patterns...]",
		Short: "Rebuild the media document whenever a source file changes",
		Long: `Watch builds the document, then watches the directories the source patterns
start from and rebuilds after every burst of changes to a matching file.
Image dimensions are cached by path, size and modification time between
rebuilds.

With --metrics-addr an HTTP server exposes the latest document at /document,
health probes at /healthz, /livez and /readyz, and Prometheus metrics at
/metrics.`,
		Example: `  media-json watch 'content/**/*.{jpg,png,mp4}' --dest public --metrics-addr :9090`,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, *configFile, args)
		},
	}
	cmd.Flags().String("metrics-addr", "", "serve the document, health and metrics on this address")
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before a rebuild")
	return cmd
}

func runWatch(cmd *cobra.Command, configFile string, args []string) error {
	startTime := time.Now()

	cfg, err := loadConfig(cmd, configFile, args)
	if err != nil {
		return err
	}
	if cfg.Dest == output.Stdout {
		return errors.New("watch needs a destination directory, not stdout")
	}

	startup.PrintBanner(cmd.ErrOrStderr())
	startup.LogSystemInfo()
	startup.LogConfig(cfg)
	initMetrics()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, cleanup, err := newBuilder(ctx, cfg, cmd.OutOrStdout(), true)
	if err != nil {
		return err
	}
	defer cleanup()

	status := handlers.NewStatus()
	rebuild := func(ctx context.Context) error {
		err := b.rebuild(ctx, status)
		if cfg.MetricsTextfile != "" {
			if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
				logging.Warn("failed to write metrics to %s: %v", cfg.MetricsTextfile, werr)
			}
		}
		return err
	}

	if err := rebuild(ctx); err != nil {
		logging.Error("Initial build failed: %v", err)
	}

	ignore := []string{output.Path(cfg.Dest, cfg.FileName, cfg.Gzip)}
	if cfg.MetricsTextfile != "" {
		ignore = append(ignore, cfg.MetricsTextfile)
	}
	if cfg.CacheFile != "" {
		ignore = append(ignore, cfg.CacheFile, cfg.CacheFile+"-wal", cfg.CacheFile+"-shm", cfg.CacheFile+"-journal")
	}
	watcher, err := watch.New(watch.Config{
		Patterns: cfg.Src,
		Debounce: cfg.WatchDebounce,
		Ignore:   ignore,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = newServer(cfg.MetricsAddr, status)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("HTTP server failed: %v", err)
				cancel()
			}
		}()
	}

	go handleShutdown(ctx, cancel)

	startup.LogWatchStarted(startup.WatchConfig{
		Roots:           source.Roots(cfg.Src),
		MetricsAddr:     cfg.MetricsAddr,
		Debounce:        cfg.WatchDebounce,
		StartupDuration: time.Since(startTime),
	})

	runErr := watcher.Run(ctx, rebuild)

	startup.LogShutdownStep("Closing file watcher")
	if err := watcher.Close(); err != nil {
		logging.Warn("Error closing watcher: %v", err)
	} else {
		startup.LogShutdownStepComplete("File watcher closed")
	}

	if srv != nil {
		startup.LogShutdownStep("Shutting down HTTP server")
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("HTTP server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("HTTP server stopped")
		}
	}

	startup.LogShutdownComplete()
	return runErr
}

// rebuild runs one build and records its outcome in status.
func (b *builder) rebuild(ctx context.Context, status *handlers.Status) error {
	res, _, err := b.build(ctx)
	if err != nil {
		if engine.IsCanceled(err) && ctx.Err() != nil {
			// Shutting down; the last result stays current.
			return nil
		}
		status.Failed(err)
		return err
	}

	report := handlers.Build{
		RunID:      res.RunID,
		Assets:     res.State.Observed,
		Warnings:   len(res.Warnings),
		JavaScript: b.opts.Document.Export != "",
	}
	if !res.Empty() {
		report.Document = res.Document
	}
	status.Succeeded(report)

	if n := len(res.Errors); n > 0 {
		logging.Warn("%d asset(s) could not be processed", n)
	}
	return nil
}

// newServer wires the watch-mode endpoints. Route metrics sit inside the
// router so they can label by route template.
func newServer(addr string, status *handlers.Status) *http.Server {
	router := handlers.NewRouter(handlers.New(status))
	router.Use(middleware.Metrics)
	startup.LogHTTPRoutes(router)

	handler := middleware.Logger(middleware.DefaultLoggingConfig())(
		middleware.Compression(middleware.DefaultCompressionConfig())(router),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func handleShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
		cancel()
	case <-ctx.Done():
	}
}
