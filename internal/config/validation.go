package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"stembed/internal/stroke"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ValidateConfig checks every section and reports all problems at once.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}
	if _, err := stroke.ByName(c.Layout); err != nil {
		errs = append(errs, ValidationError{
			Field:   "layout",
			Message: fmt.Sprintf("unknown layout %q", c.Layout),
		})
	}

	errs = append(errs, validateDictionary(&c.Dictionary)...)
	errs = append(errs, validateFormatter(&c.Formatter)...)
	errs = append(errs, validateOutput(&c.Output)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDictionary(d *DictionaryConfig) ValidationErrors {
	var errs ValidationErrors

	if d.Path == "" {
		errs = append(errs, *RequiredFieldError("dictionary.path"))
	}
	switch d.Type {
	case DictionaryBinary, DictionarySQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "dictionary.type",
			Message: fmt.Sprintf("invalid dictionary type: %s (valid: binary, sqlite)", d.Type),
		})
	}
	if d.LongestOutline < 0 || d.LongestOutline > 255 {
		errs = append(errs, *RangeError("dictionary.longest_outline", 0, 255))
	}
	if d.CacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "dictionary.cache_size",
			Message: "cache size cannot be negative",
		})
	}

	return errs
}

func validateFormatter(f *FormatterConfig) ValidationErrors {
	var errs ValidationErrors

	if utf8.RuneCountInString(f.Delimiter) != 1 {
		errs = append(errs, ValidationError{
			Field:   "formatter.delimiter",
			Message: fmt.Sprintf("delimiter must be exactly one character, got %q", f.Delimiter),
		})
	}

	return errs
}

func validateOutput(o *OutputConfig) ValidationErrors {
	var errs ValidationErrors

	switch o.Sink {
	case SinkStdout, SinkMemory:
	case SinkDBus:
		if o.DBusName == "" {
			errs = append(errs, ValidationError{
				Field:   "output.dbus_name",
				Message: "bus name is required when sink is 'dbus'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "output.sink",
			Message: fmt.Sprintf("invalid sink: %s (valid: stdout, memory, dbus)", o.Sink),
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
