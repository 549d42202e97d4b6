// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chiselworks/ucw/pkg/cueutil"
	"github.com/chiselworks/ucw/pkg/ucwdef"
)

const (
	// LogLevelDebug logs every dropped rule and every document read.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs lifecycle steps and counts.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs rejected rules and duplicates.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only unreadable sources and documents.
	LogLevelError LogLevel = "error"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultCatalogPath is the catalog file used when none is configured.
	DefaultCatalogPath FilesystemPath = "catalog.toml"

	// DefaultDebounce is the watch debounce used when none is configured.
	DefaultDebounce = 500 * time.Millisecond
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidNamespace is returned when a Namespace value is malformed.
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrInvalidFilesystemPath is returned when a FilesystemPath value is whitespace-only.
	ErrInvalidFilesystemPath = errors.New("invalid filesystem path")
	// ErrInvalidSourceEntry is the sentinel error wrapped by InvalidSourceEntryError.
	ErrInvalidSourceEntry = errors.New("invalid source entry")
	// ErrInvalidWatchConfig is returned when watch settings are out of range.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	namespacePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)
)

type (
	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// ColorScheme selects the glamour style used for issue rendering.
	ColorScheme string

	// Namespace is the namespace given to generated identifiers.
	Namespace string

	// FilesystemPath is a path from the config file. The empty string means
	// "not set"; a whitespace-only value is invalid.
	FilesystemPath string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidNamespaceError is returned when a Namespace value is malformed.
	InvalidNamespaceError struct {
		Value Namespace
	}

	// InvalidFilesystemPathError is returned when a FilesystemPath is whitespace-only.
	InvalidFilesystemPathError struct {
		Value FilesystemPath
	}

	// InvalidSourceEntryError is returned when a SourceEntry has invalid fields.
	InvalidSourceEntryError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// SourceEntry is one explicitly configured content source.
	SourceEntry struct {
		// ID is the source id: the rules live under assets/<ID>/ucwdefs.
		ID string `json:"id" mapstructure:"id" yaml:"id"`
		// Path is a directory or a .zip/.jar archive.
		Path FilesystemPath `json:"path" mapstructure:"path" yaml:"path"`
	}

	// LogConfig configures the stderr logger.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level" yaml:"level"`
	}

	// WatchConfig configures `ucw watch`.
	WatchConfig struct {
		// Debounce is the quiet period after the last change before reloading.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce" yaml:"debounce"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" yaml:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose" yaml:"verbose"`
	}

	// Config is the ucw configuration.
	Config struct {
		// Namespace is given to every generated identifier.
		Namespace Namespace `json:"namespace" mapstructure:"namespace" yaml:"namespace"`
		// Catalog is the TOML file describing the host's existing blocks.
		Catalog FilesystemPath `json:"catalog" mapstructure:"catalog" yaml:"catalog"`
		// Sources are content sources listed explicitly, loaded in order.
		Sources []SourceEntry `json:"sources" mapstructure:"sources" yaml:"sources"`
		// ModsDir is scanned for more sources: every subdirectory and archive,
		// in name order, with the file name (minus extension) as source id.
		ModsDir FilesystemPath `json:"mods_dir" mapstructure:"mods_dir" yaml:"mods_dir"`
		// MaxDocumentSize limits each rule document in bytes.
		MaxDocumentSize int64       `json:"max_document_size" mapstructure:"max_document_size" yaml:"max_document_size"`
		Log             LogConfig   `json:"log" mapstructure:"log" yaml:"log"`
		Watch           WatchConfig `json:"watch" mapstructure:"watch" yaml:"watch"`
		UI              UIConfig    `json:"ui" mapstructure:"ui" yaml:"ui"`
	}
)

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Namespace:       Namespace(ucwdef.DefaultGeneratedNamespace),
		Catalog:         DefaultCatalogPath,
		Sources:         []SourceEntry{},
		MaxDocumentSize: cueutil.DefaultMaxFileSize,
		Log:             LogConfig{Level: LogLevelInfo},
		Watch:           WatchConfig{Debounce: DefaultDebounce},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel so callers can use errors.Is.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme so callers can use errors.Is.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid returns whether the ColorScheme is one of the defined schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// Error implements the error interface.
func (e *InvalidNamespaceError) Error() string {
	return fmt.Sprintf("invalid namespace %q (must match [a-z0-9_.-]+)", e.Value)
}

// Unwrap returns ErrInvalidNamespace so callers can use errors.Is.
func (e *InvalidNamespaceError) Unwrap() error { return ErrInvalidNamespace }

// IsValid returns whether the Namespace can prefix an identifier.
func (n Namespace) IsValid() (bool, []error) {
	if !namespacePattern.MatchString(string(n)) {
		return false, []error{&InvalidNamespaceError{Value: n}}
	}
	return true, nil
}

// String returns the string representation of the Namespace.
func (n Namespace) String() string { return string(n) }

// Error implements the error interface.
func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid filesystem path %q: must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidFilesystemPath so callers can use errors.Is.
func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }

// IsValid returns whether the path is empty (unset) or has content.
func (p FilesystemPath) IsValid() (bool, []error) {
	if p != "" && strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidFilesystemPathError{Value: p}}
	}
	return true, nil
}

// String returns the string representation of the FilesystemPath.
func (p FilesystemPath) String() string { return string(p) }

// Error implements the error interface.
func (e *InvalidSourceEntryError) Error() string {
	return fmt.Sprintf("invalid source entry: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidSourceEntry so callers can use errors.Is.
func (e *InvalidSourceEntryError) Unwrap() error { return ErrInvalidSourceEntry }

// IsValid returns whether the SourceEntry has a usable id and a non-empty path.
func (s SourceEntry) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(s.ID) == "" || strings.ContainsAny(s.ID, `/\`) {
		errs = append(errs, fmt.Errorf("source id %q must be non-empty and contain no path separators", s.ID))
	}
	if strings.TrimSpace(string(s.Path)) == "" {
		errs = append(errs, &InvalidFilesystemPathError{Value: s.Path})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidSourceEntryError{FieldErrors: errs}}
	}
	return true, nil
}

// IsValid returns whether the watch settings are usable.
func (w WatchConfig) IsValid() (bool, []error) {
	if w.Debounce < 0 {
		return false, []error{fmt.Errorf("%w: debounce %s must not be negative", ErrInvalidWatchConfig, w.Debounce)}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig and every field error so callers can use
// errors.Is with either.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// IsValid validates every field of the Config, including the cross-entry
// constraint that source ids and paths are unique.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	collect := func(ok bool, fieldErrs []error) {
		if !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	collect(c.Namespace.IsValid())
	collect(c.Catalog.IsValid())
	collect(c.ModsDir.IsValid())
	collect(c.Log.Level.IsValid())
	collect(c.Watch.IsValid())
	collect(c.UI.ColorScheme.IsValid())
	for _, entry := range c.Sources {
		collect(entry.IsValid())
	}
	if err := validateSources("sources", c.Sources); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}
