package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"media-json/internal/logging"
	"media-json/internal/memory"
	"media-json/internal/startup"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "media-json [src patterns...]",
		Short: "Aggregate media file metadata into one JSON document",
		Long: `media-json walks the files matched by glob patterns, records the type,
MIME type and source path of each, reads the dimensions and aspect ratio of
images, and writes everything as one JSON document keyed by a namespace built
from each file's directory and name. Images can carry a transparent PNG
placeholder of their aspect ratio for layout before the real image loads.`,
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			memory.ConfigureFromEnv()
			return nil
		},
	}
	root.SetVersionTemplate("media-json version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default: ./media-json.{yaml,yml,json,toml})")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	addBuildFlags(pf)

	build := newBuildCmd(&configFile)
	root.RunE = build.RunE
	root.AddCommand(build, newWatchCmd(&configFile), newVersionCmd())
	return root
}

// addBuildFlags registers the flags shared by build and watch. Defaults are
// for help output only; unset flags never override the config file.
func addBuildFlags(fs *pflag.FlagSet) {
	fs.StringP("dest", "d", ".", `output directory, "-" for stdout`)
	fs.StringP("file-name", "o", "media.json", "output file name")
	fs.String("base-path", "", "directory prefix stripped from namespaces and src")
	fs.String("escape", "camel", "namespace escaping: camel, none or ext-suffix")
	fs.Bool("image-info", true, "read image dimensions")
	fs.Int("ratio-trim", -1, "decimals kept in ratioValue, negative keeps all")
	fs.Bool("placeholder", true, "add a transparent PNG placeholder to images")
	fs.String("placeholder-ns", "", "collect placeholders in a table at this dotted path")
	fs.String("start-obj", "", "JSON object the document starts from")
	fs.String("end-obj", "", "JSON object merged into the document last")
	fs.String("export", "", `wrap the document as "<name> = ...;" (true: module.exports)`)
	fs.String("json-space", "\t", "indent string or number of spaces, 0 for compact")
	fs.StringSlice("json-keys", nil, "only keep these keys in the document")
	fs.String("decoder", "native", "image decoder: native or vips")
	fs.Bool("auto-orient", false, "report JPEG dimensions after EXIF orientation")
	fs.String("cache-file", "", "SQLite file remembering image dimensions between runs")
	fs.IntP("workers", "j", 1, "concurrent image decoders, 0 picks from the CPU count")
	fs.Bool("gzip", false, "gzip the document and append .gz")
	fs.Bool("fail-on-warnings", false, "exit non-zero when any asset produced a warning")
	fs.String("metrics-textfile", "", "write Prometheus metrics to this file after the build")
}

// loadConfig resolves the configuration of a command. Positional arguments
// replace the configured source patterns.
func loadConfig(cmd *cobra.Command, configFile string, args []string) (*startup.Config, error) {
	cfg, err := startup.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Src = args
	}
	if len(cfg.Src) == 0 {
		return nil, errors.New("no source patterns: pass them as arguments or set src in the config")
	}

	if cfg.LogLevel != "" {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logging.SetLevel(level)
	}

	logging.Debug("Source patterns: %s", strings.Join(cfg.Src, " "))
	return cfg, nil
}
