package config

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// DefaultLogLevel is used when no log level is configured.
	DefaultLogLevel = "info"
	// DefaultMaxFileSize caps documents at 500MB.
	DefaultMaxFileSize = 500 * 1024 * 1024
	// DefaultPageContentsLengthMin is the minimal content stream length for a
	// page to count as non-empty in the fontless/image page counters.
	DefaultPageContentsLengthMin = 32
	// DefaultAttributeMarkers is one marker character per document attribute
	// in the attributes-string field, ordered: printable, copyable,
	// changeable, commentable, incremental, tagged, linearized, encrypted,
	// protected, signed, outlined, embedded files.
	DefaultAttributeMarkers = "PCMNITLERSOF"
)

// Config holds all options for the extraction engine and its CLI front end.
// The option set mirrors the ini options of the original content plugin that
// the Go document readers can honor.
type Config struct {
	// NoCache closes the document after every request instead of keeping it
	// open for the next one.
	NoCache bool

	// AppendExtensionLevel appends the Adobe extension level to the PDF
	// version field, e.g. 1.7 extension level 3 reads 1.73.
	AppendExtensionLevel bool

	// RemoveDateRawDColon strips the "D:" prefix from raw date fields.
	RemoveDateRawDColon bool

	// PageContentsLengthMin is the minimal length of a page's content stream
	// for the page not to be considered empty.
	PageContentsLengthMin int

	// AttributeMarkers configures the attributes-string field: one character
	// per attribute in the documented order. A shorter string keeps the
	// default markers for the missing trailing positions; more characters
	// than attributes fail validation.
	AttributeMarkers string

	// MaxFileSize is the maximum document size in bytes.
	MaxFileSize int64

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		NoCache:               false,
		AppendExtensionLevel:  true,
		RemoveDateRawDColon:   false,
		PageContentsLengthMin: DefaultPageContentsLengthMin,
		AttributeMarkers:      DefaultAttributeMarkers,
		MaxFileSize:           DefaultMaxFileSize,
		LogLevel:              DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags, applies environment overrides and
// returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("XPDFSEARCH")
	viper.AutomaticEnv()

	viper.SetDefault("nocache", cfg.NoCache)
	viper.SetDefault("extensionlevel", cfg.AppendExtensionLevel)
	viper.SetDefault("stripdcolon", cfg.RemoveDateRawDColon)
	viper.SetDefault("mincontents", cfg.PageContentsLengthMin)
	viper.SetDefault("attrmarkers", cfg.AttributeMarkers)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.Bool("nocache", cfg.NoCache, "Close the document after every request")
	pflag.Bool("extensionlevel", cfg.AppendExtensionLevel, "Append the Adobe extension level to the PDF version")
	pflag.Bool("stripdcolon", cfg.RemoveDateRawDColon, "Strip the D: prefix from raw date fields")
	pflag.Int("mincontents", cfg.PageContentsLengthMin, "Minimal content stream length for a non-empty page")
	pflag.String("attrmarkers", cfg.AttributeMarkers, "Marker characters for the PDF attributes field")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("nocache", pflag.Lookup("nocache"))
	_ = viper.BindPFlag("extensionlevel", pflag.Lookup("extensionlevel"))
	_ = viper.BindPFlag("stripdcolon", pflag.Lookup("stripdcolon"))
	_ = viper.BindPFlag("mincontents", pflag.Lookup("mincontents"))
	_ = viper.BindPFlag("attrmarkers", pflag.Lookup("attrmarkers"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.NoCache = viper.GetBool("nocache")
	cfg.AppendExtensionLevel = viper.GetBool("extensionlevel")
	cfg.RemoveDateRawDColon = viper.GetBool("stripdcolon")
	cfg.PageContentsLengthMin = viper.GetInt("mincontents")
	cfg.AttributeMarkers = viper.GetString("attrmarkers")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.PageContentsLengthMin < 0 {
		return errors.New("minimal content stream length cannot be negative")
	}

	if len(c.AttributeMarkers) > len(DefaultAttributeMarkers) {
		return fmt.Errorf("at most %d attribute markers are supported", len(DefaultAttributeMarkers))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{NoCache: %t, AppendExtensionLevel: %t, AttributeMarkers: %s, MaxFileSize: %d, LogLevel: %s}",
		c.NoCache, c.AppendExtensionLevel, c.AttributeMarkers, c.MaxFileSize, c.LogLevel)
}

// FileSizeOK reports whether a document of the given size may be opened.
func (c *Config) FileSizeOK(size int64) bool {
	return size <= c.MaxFileSize
}
