// Package config handles configuration loading, validation, and management
// for stembed.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"unicode/utf8"
)

// Version is the current configuration schema version.
const Version = 1

// Dictionary backends.
const (
	DictionaryBinary = "binary"
	DictionarySQLite = "sqlite"
)

// Output sinks.
const (
	SinkStdout = "stdout"
	SinkMemory = "memory"
	SinkDBus   = "dbus"
)

// Config holds the complete configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Layout names the steno layout strokes are parsed with.
	Layout string `toml:"layout" json:"layout" yaml:"layout"`

	Dictionary DictionaryConfig `toml:"dictionary" json:"dictionary" yaml:"dictionary"`
	Formatter  FormatterConfig  `toml:"formatter" json:"formatter" yaml:"formatter"`
	Output     OutputConfig     `toml:"output" json:"output" yaml:"output"`
	Logging    LoggingConfig    `toml:"logging" json:"logging" yaml:"logging"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// DictionaryConfig selects and tunes the dictionary.
type DictionaryConfig struct {
	// Path is the dictionary file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Type is "binary" or "sqlite".
	Type string `toml:"type" json:"type" yaml:"type"`

	// LongestOutline bounds the engine's search window. Zero lets the
	// dictionary decide.
	LongestOutline int `toml:"longest_outline" json:"longest_outline" yaml:"longest_outline"`

	// CacheSize is the number of lookups kept in memory. Zero disables
	// the cache.
	CacheSize int `toml:"cache_size" json:"cache_size" yaml:"cache_size"`
}

// FormatterConfig holds text formatter defaults.
type FormatterConfig struct {
	// Delimiter is the single character written between words.
	Delimiter string `toml:"delimiter" json:"delimiter" yaml:"delimiter"`
}

// DelimiterRune returns the delimiter as a rune, or a space when unset.
func (f FormatterConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(f.Delimiter)
	if r == utf8.RuneError {
		return ' '
	}
	return r
}

// OutputConfig selects where translated text goes.
type OutputConfig struct {
	// Sink is "stdout", "memory" or "dbus".
	Sink string `toml:"sink" json:"sink" yaml:"sink"`

	// DBusName is the session bus name claimed by the dbus sink.
	DBusName string `toml:"dbus_name" json:"dbus_name" yaml:"dbus_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where to write logs: stdout, stderr, file or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress enables zstd compression of rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := StembedDir()
	return &Config{
		Version: Version,
		Layout:  "english",
		Dictionary: DictionaryConfig{
			Path:           filepath.Join(dir, "main.stembed"),
			Type:           DictionaryBinary,
			LongestOutline: 0,
			CacheSize:      4096,
		},
		Formatter: FormatterConfig{
			Delimiter: " ",
		},
		Output: OutputConfig{
			Sink:     SinkStdout,
			DBusName: "org.stembed.Output",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "stembed.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// StembedDir returns the base data directory. STEMBED_DATA_DIR overrides the
// platform default.
func StembedDir() string {
	if envDir := os.Getenv("STEMBED_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Load reads configuration from path. A missing file yields the defaults.
// TOML, JSON and YAML are chosen by file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the configured files live in.
func (c *Config) EnsureDirectories() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dirs := []string{filepath.Dir(c.Dictionary.Path)}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides. Variables are
// prefixed with STEMBED_.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("STEMBED_LAYOUT"); v != "" {
		c.Layout = v
	}

	// Dictionary overrides
	if v := os.Getenv("STEMBED_DICTIONARY_PATH"); v != "" {
		c.Dictionary.Path = v
	}
	if v := os.Getenv("STEMBED_DICTIONARY_TYPE"); v != "" {
		c.Dictionary.Type = v
	}
	if v := os.Getenv("STEMBED_LONGEST_OUTLINE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dictionary.LongestOutline = n
		}
	}

	if v := os.Getenv("STEMBED_OUTPUT_SINK"); v != "" {
		c.Output.Sink = v
	}

	// Logging overrides
	if v := os.Getenv("STEMBED_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STEMBED_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("STEMBED_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Config{
		Version:    c.Version,
		Layout:     c.Layout,
		Dictionary: c.Dictionary,
		Formatter:  c.Formatter,
		Output:     c.Output,
		Logging:    c.Logging,
	}
}
