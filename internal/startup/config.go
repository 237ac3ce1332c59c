package startup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"media-json/internal/document"
	"media-json/internal/engine"
	"media-json/internal/logging"
	"media-json/internal/media"
	"media-json/internal/namespace"
	"media-json/internal/tree"
	"media-json/internal/workers"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every configuration key in the environment, e.g.
// MEDIAJSON_FILENAME or MEDIAJSON_IMAGEPROPS_SRC.
const EnvPrefix = "MEDIAJSON"

// DefaultConfigName is looked up as media-json.{yaml,yml,toml,json} in the
// working directory when no config file is given.
const DefaultConfigName = "media-json"

// Config holds all application configuration
type Config struct {
	Src                       []string        `mapstructure:"src"`
	Dest                      string          `mapstructure:"dest"`
	FileName                  string          `mapstructure:"filename"`
	BasePath                  string          `mapstructure:"basepath"`
	EscapeNamespace           string          `mapstructure:"escapenamespace"`
	GetImageInfo              bool            `mapstructure:"getimageinfo"`
	ImageProps                map[string]bool `mapstructure:"imageprops"`
	ImageRatioValueTrim       int             `mapstructure:"imageratiovaluetrim"`
	EmptyImageBase64          bool            `mapstructure:"emptyimagebase64"`
	EmptyImageBase64Namespace string          `mapstructure:"emptyimagebase64namespace"`
	// StartObj and EndObj are JSON object literals so their key order
	// survives configuration parsing.
	StartObj     string   `mapstructure:"startobj"`
	EndObj       string   `mapstructure:"endobj"`
	ExportModule any      `mapstructure:"exportmodule"`
	JSONReplacer []string `mapstructure:"jsonreplacer"`
	JSONSpace    any      `mapstructure:"jsonspace"`

	Decoder          string        `mapstructure:"decoder"`
	AutoOrient       bool          `mapstructure:"autoorient"`
	DecoderCacheSize int           `mapstructure:"decodercachesize"`
	CacheFile        string        `mapstructure:"cachefile"`
	Workers          int           `mapstructure:"workers"`
	Gzip             bool          `mapstructure:"gzip"`
	FailOnWarnings   bool          `mapstructure:"failonwarnings"`
	MetricsTextfile  string        `mapstructure:"metricstextfile"`
	MetricsAddr      string        `mapstructure:"metricsaddr"`
	WatchDebounce    time.Duration `mapstructure:"watchdebounce"`
	LogLevel         string        `mapstructure:"loglevel"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// Error represents a configuration error
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("src", []string{})
	v.SetDefault("dest", ".")
	v.SetDefault("fileName", "media.json")
	v.SetDefault("basePath", "")
	v.SetDefault("escapeNamespace", "camel")
	v.SetDefault("getImageInfo", true)
	for _, name := range engine.FieldNames {
		v.SetDefault("imageProps."+name, true)
	}
	v.SetDefault("imageRatioValueTrim", -1)
	v.SetDefault("emptyImageBase64", true)
	v.SetDefault("emptyImageBase64Namespace", "")
	v.SetDefault("startObj", "")
	v.SetDefault("endObj", "")
	v.SetDefault("exportModule", false)
	v.SetDefault("jsonReplacer", []string{})
	v.SetDefault("jsonSpace", "\t")

	v.SetDefault("decoder", "native")
	v.SetDefault("autoOrient", false)
	v.SetDefault("decoderCacheSize", 4096)
	v.SetDefault("cacheFile", "")
	v.SetDefault("workers", 1)
	v.SetDefault("gzip", false)
	v.SetDefault("failOnWarnings", false)
	v.SetDefault("metricsTextfile", "")
	v.SetDefault("metricsAddr", "")
	v.SetDefault("watchDebounce", 200*time.Millisecond)
	v.SetDefault("logLevel", "")
}

// maxWorkers caps the automatic worker count (workers: 0).
const maxWorkers = 16

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"dest":             "dest",
	"file-name":        "fileName",
	"base-path":        "basePath",
	"escape":           "escapeNamespace",
	"image-info":       "getImageInfo",
	"ratio-trim":       "imageRatioValueTrim",
	"placeholder":      "emptyImageBase64",
	"placeholder-ns":   "emptyImageBase64Namespace",
	"start-obj":        "startObj",
	"end-obj":          "endObj",
	"export":           "exportModule",
	"json-space":       "jsonSpace",
	"json-keys":        "jsonReplacer",
	"decoder":          "decoder",
	"auto-orient":      "autoOrient",
	"cache-file":       "cacheFile",
	"workers":          "workers",
	"gzip":             "gzip",
	"fail-on-warnings": "failOnWarnings",
	"metrics-textfile": "metricsTextfile",
	"metrics-addr":     "metricsAddr",
	"debounce":         "watchDebounce",
	"log-level":        "logLevel",
}

// LoadConfig reads configuration from, in increasing precedence: defaults,
// the config file, MEDIAJSON_* environment variables and changed flags.
// configFile may be empty to search for media-json.* in the working
// directory. flags may be nil.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logging.Debug("No %s config file found, using defaults", DefaultConfigName)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FileName) == "" {
		return &Error{Field: "fileName", Message: "must not be empty"}
	}
	if _, err := namespace.Lookup(c.EscapeNamespace); err != nil {
		return &Error{Field: "escapeNamespace", Message: err.Error()}
	}
	if _, err := engine.FieldsFromMap(c.ImageProps); err != nil {
		return &Error{Field: "imageProps", Message: err.Error()}
	}
	switch c.Decoder {
	case "native", "vips":
	default:
		return &Error{Field: "decoder", Message: fmt.Sprintf("unknown decoder %q (available: native, vips)", c.Decoder)}
	}
	if c.ImageRatioValueTrim > media.MaxRoundPlaces {
		return &Error{Field: "imageRatioValueTrim", Message: fmt.Sprintf("must be at most %d", media.MaxRoundPlaces)}
	}
	if c.Workers < 0 {
		return &Error{Field: "workers", Message: "must not be negative"}
	}
	if c.DecoderCacheSize < 1 {
		return &Error{Field: "decoderCacheSize", Message: "must be positive"}
	}
	if c.WatchDebounce < 0 {
		return &Error{Field: "watchDebounce", Message: "must not be negative"}
	}
	if _, err := c.indent(); err != nil {
		return &Error{Field: "jsonSpace", Message: err.Error()}
	}
	if _, err := document.ExportName(c.ExportModule); err != nil {
		return &Error{Field: "exportModule", Message: err.Error()}
	}
	if _, err := parseObject(c.StartObj); err != nil {
		return &Error{Field: "startObj", Message: err.Error()}
	}
	if _, err := parseObject(c.EndObj); err != nil {
		return &Error{Field: "endObj", Message: err.Error()}
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return &Error{Field: "logLevel", Message: err.Error()}
		}
	}
	return nil
}

// indent resolves jsonSpace. Numeric strings, as they arrive from the
// environment or flags, count as numbers.
func (c *Config) indent() (string, error) {
	if s, ok := c.JSONSpace.(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return document.IndentFromSpace(n)
		}
	}
	return document.IndentFromSpace(c.JSONSpace)
}

func parseObject(literal string) (*tree.Node, error) {
	if strings.TrimSpace(literal) == "" {
		return nil, nil
	}
	return tree.Parse([]byte(literal))
}

// EngineOptions converts the configuration into engine options. The decoder
// is the plain backend named by Decoder; callers wrap it as needed.
func (c *Config) EngineOptions() (engine.Options, error) {
	escape, err := namespace.Lookup(c.EscapeNamespace)
	if err != nil {
		return engine.Options{}, err
	}
	fields, err := engine.FieldsFromMap(c.ImageProps)
	if err != nil {
		return engine.Options{}, err
	}
	indent, err := c.indent()
	if err != nil {
		return engine.Options{}, err
	}
	export, err := document.ExportName(c.ExportModule)
	if err != nil {
		return engine.Options{}, err
	}
	start, err := parseObject(c.StartObj)
	if err != nil {
		return engine.Options{}, fmt.Errorf("startObj: %w", err)
	}
	end, err := parseObject(c.EndObj)
	if err != nil {
		return engine.Options{}, fmt.Errorf("endObj: %w", err)
	}

	var replacer document.Replacer
	if len(c.JSONReplacer) > 0 {
		replacer = document.KeepKeys(c.JSONReplacer...)
	}

	var decoder media.Decoder = media.NewNativeDecoder(c.AutoOrient)
	if c.Decoder == "vips" {
		decoder = media.VipsDecoder{}
	}

	return engine.Options{
		BasePath:             c.BasePath,
		Escape:               escape,
		ImageInfo:            c.GetImageInfo,
		Fields:               fields,
		RatioValueTrim:       c.ImageRatioValueTrim,
		Placeholder:          c.EmptyImageBase64,
		PlaceholderNamespace: c.EmptyImageBase64Namespace,
		StartObj:             start,
		EndObj:               end,
		Document: document.Options{
			Indent:   indent,
			Replacer: replacer,
			Export:   export,
		},
		Decoder: decoder,
		Encoder: media.NewPNGPlaceholder(),
		Workers: workers.Resolve(c.Workers, maxWorkers),
	}, nil
}
