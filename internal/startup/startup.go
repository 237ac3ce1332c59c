package startup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"media-json/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// PrintBanner writes the banner and build information. Watch mode prints it
// once at startup; one-shot builds stay quiet.
func PrintBanner(w io.Writer) {
	banner := `
------------------------------------------------------------
                    _ _             _
 _ __ ___   ___  __| (_) __ _      (_)___  ___  _ __
| '_ ' _ \ / _ \/ _' | |/ _' |_____| / __|/ _ \| '_ \
| | | | | |  __/ (_| | | (_| |_____| \__ \ (_) | | | |
|_| |_| |_|\___|\__,_|_|\__,_|    _/ |___/\___/|_| |_|
                                 |__/
------------------------------------------------------------`
	fmt.Fprintln(w, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

// LogSystemInfo logs the runtime environment.
func LogSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
	}

	logging.Info("")
}

// LogConfig logs the effective configuration.
func LogConfig(cfg *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if cfg.ConfigFile != "" {
		logging.Info("  Config file:         %s", cfg.ConfigFile)
	}
	logging.Info("  src:                 %s", strings.Join(cfg.Src, " "))
	logging.Info("  dest:                %s", cfg.Dest)
	logging.Info("  fileName:            %s", cfg.FileName)
	logging.Info("  basePath:            %q", cfg.BasePath)
	logging.Info("  escapeNamespace:     %s", cfg.EscapeNamespace)
	logging.Info("  getImageInfo:        %v", cfg.GetImageInfo)
	logging.Info("  imageRatioValueTrim: %d", cfg.ImageRatioValueTrim)
	logging.Info("  emptyImageBase64:    %v", cfg.EmptyImageBase64)
	if cfg.EmptyImageBase64Namespace != "" {
		logging.Info("  placeholder table:   %s", cfg.EmptyImageBase64Namespace)
	}
	logging.Info("  exportModule:        %v", cfg.ExportModule)
	logging.Info("  decoder:             %s (autoOrient: %v)", cfg.Decoder, cfg.AutoOrient)
	logging.Info("  workers:             %d", cfg.Workers)
	if cfg.CacheFile != "" {
		logging.Info("  cacheFile:           %s", cfg.CacheFile)
	}
	logging.Info("  gzip:                %v", cfg.Gzip)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if logging.IsDebugEnabled() {
		props := make([]string, 0, len(cfg.ImageProps))
		for name, on := range cfg.ImageProps {
			props = append(props, fmt.Sprintf("%s=%v", name, on))
		}
		sort.Strings(props)
		logging.Debug("  imageProps:          %s", strings.Join(props, " "))
	}
	logging.Info("")
}

// EnsureDirectory creates path if it does not exist and checks that it is
// a writable directory.
func EnsureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	if err := testWriteAccess(path); err != nil {
		return fmt.Errorf("%s directory is not writable: %w", name, err)
	}
	logging.Debug("    [OK] Directory exists and is writable")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the routes of the watch-mode HTTP server at debug level.
func LogHTTPRoutes(router *mux.Router) {
	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })
	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// WatchConfig holds what the watch-mode startup log reports.
type WatchConfig struct {
	Roots           []string
	MetricsAddr     string
	Debounce        time.Duration
	StartupDuration time.Duration
}

// LogWatchStarted logs that watch mode is running.
func LogWatchStarted(config WatchConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WATCHING")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Debounce:        %v", config.Debounce)
	for _, root := range config.Roots {
		logging.Info("  Root:            %s", root)
	}
	if config.MetricsAddr != "" {
		logging.Info("  Metrics:         http://%s/metrics", config.MetricsAddr)
		logging.Info("  Health:          http://%s/healthz", config.MetricsAddr)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}
