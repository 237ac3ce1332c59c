package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-json/internal/database"
	"media-json/internal/engine"
	"media-json/internal/filesystem"
	"media-json/internal/logging"
	"media-json/internal/media"
	"media-json/internal/memory"
	"media-json/internal/metrics"
	"media-json/internal/output"
	"media-json/internal/source"
	"media-json/internal/startup"

	"github.com/spf13/cobra"
)

func newBuildCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "build [src patterns...]",
		Short: "Build the media document once",
		Long: `Build expands the source patterns, aggregates every matched file and
writes the document to dest/fileName. Patterns starting with "!" exclude.
Nothing is written when no file matches.

The exit status is non-zero when an asset could not be processed at all, or,
with --fail-on-warnings, when any asset produced a warning.`,
		Example: `  media-json build 'images/**/*.{jpg,png}' --dest build/data
  media-json build --config site.yaml --gzip
  media-json build 'assets/**' '!assets/private/**' --dest - --json-space 0`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, *configFile, args)
		},
	}
}

func runBuild(cmd *cobra.Command, configFile string, args []string) error {
	cfg, err := loadConfig(cmd, configFile, args)
	if err != nil {
		return err
	}
	initMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, cleanup, err := newBuilder(ctx, cfg, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	res, _, buildErr := b.build(ctx)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logging.Warn("failed to write metrics to %s: %v", cfg.MetricsTextfile, err)
		}
	}

	if buildErr != nil {
		if engine.IsCanceled(buildErr) && ctx.Err() != nil {
			logging.Warn("Build interrupted, nothing written")
			return nil
		}
		return buildErr
	}
	if n := len(res.Errors); n > 0 {
		return fmt.Errorf("%d asset(s) could not be processed", n)
	}
	if n := len(res.Warnings); n > 0 && cfg.FailOnWarnings {
		return fmt.Errorf("%d asset(s) produced warnings", n)
	}
	return nil
}

func initMetrics() {
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
}

// builder runs builds with one resolved configuration.
type builder struct {
	cfg    *startup.Config
	opts   engine.Options
	stdout io.Writer
	db     *database.Database
	// prune drops cache file entries the build did not touch. Watch mode
	// serves repeats from memory without touching them, so it never prunes.
	prune bool
}

// newBuilder resolves engine options and starts what they depend on: libvips
// for the vips decoder, the dimension cache and the memory monitor when a
// limit is known. Watch mode always caches dimensions in memory. The
// returned cleanup stops everything that was started.
func newBuilder(ctx context.Context, cfg *startup.Config, stdout io.Writer, watching bool) (*builder, func(), error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Dest != output.Stdout {
		if err := startup.EnsureDirectory(cfg.Dest, "dest"); err != nil {
			return nil, nil, err
		}
	}

	var stops []func()
	cleanup := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}
	b := &builder{cfg: cfg, stdout: stdout, prune: !watching}

	if cfg.Decoder == "vips" {
		if err := media.InitVips(opts.Workers); err != nil {
			return nil, nil, fmt.Errorf("failed to start libvips: %w", err)
		}
		stops = append(stops, media.ShutdownVips)
	}

	if watching || cfg.CacheFile != "" {
		cached, err := media.NewCachingDecoder(opts.Decoder, cfg.DecoderCacheSize)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if cfg.CacheFile != "" {
			db, err := database.New(ctx, cfg.CacheFile)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("failed to open cache file: %w", err)
			}
			stops = append(stops, func() {
				if err := db.Close(); err != nil {
					logging.Warn("Error closing cache file: %v", err)
				}
			})
			cached.WithStore(db)
			b.db = db
		}
		opts.Decoder = cached
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	if monitor.Enabled() {
		monitor.Start()
		stops = append(stops, monitor.Stop)
		opts.Backpressure = monitor
	}

	b.opts = opts
	return b, cleanup, nil
}

// build globs the sources, runs the engine and writes the document. An empty
// run writes nothing.
func (b *builder) build(ctx context.Context) (*engine.Result, output.Result, error) {
	// Patterns like "img/**" also match directories; they reach the engine
	// as null assets and are counted as skipped.
	assets, err := source.Glob(b.cfg.Src, source.GlobOptions{
		IncludeDirs: true,
		Retry:       filesystem.DefaultRetryConfig(),
	})
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, output.Result{}, err
	}

	res, err := engine.Run(ctx, assets, b.opts)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, output.Result{}, err
	}
	metrics.LastRunTimestamp.SetToCurrentTime()
	b.pruneCache(ctx, res)

	if res.Empty() {
		metrics.RunsTotal.WithLabelValues("empty").Inc()
		logging.Warn("No files matched %v, nothing written", b.cfg.Src)
		return res, output.Result{}, nil
	}

	start := time.Now()
	out, err := output.Write(b.cfg.Dest, b.cfg.FileName, res.Document, output.Options{
		Gzip:   b.cfg.Gzip,
		Stdout: b.stdout,
	})
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return res, output.Result{}, err
	}
	metrics.RunsTotal.WithLabelValues("written").Inc()

	switch {
	case out.Path == output.Stdout:
	case out.Unchanged:
		logging.Info("%s is up to date", out.Path)
	default:
		logging.Info("Wrote %s (%d bytes) in %v", out.Path, out.Bytes, time.Since(start).Round(time.Millisecond))
	}
	return res, out, nil
}

// pruneCache removes cache file entries for images this run did not see.
// Runs that decoded nothing leave the cache alone.
func (b *builder) pruneCache(ctx context.Context, res *engine.Result) {
	if b.db == nil || !b.prune || !b.cfg.GetImageInfo || res.State.Observed == 0 {
		return
	}
	removed, err := b.db.PruneUnseen(ctx, res.Started)
	if err != nil {
		logging.Warn("Failed to prune cache file: %v", err)
		return
	}
	if removed > 0 {
		logging.Debug("Pruned %d stale entries from %s", removed, b.db.Path())
	}
	if _, err := b.db.Count(ctx); err != nil {
		logging.Warn("Failed to count cache file entries: %v", err)
	}
}
