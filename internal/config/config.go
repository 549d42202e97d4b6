// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/chiselworks/ucw/internal/issue"
	"github.com/chiselworks/ucw/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "ucw"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. UCW_LOG_LEVEL=debug.
	EnvPrefix = "UCW"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the ucw configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FindConfigFile returns the config file that Load would read, or "" when
// none exists and defaults apply. An explicit ConfigFilePath that does not
// exist is an error.
func FindConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		path := string(opts.ConfigFilePath)
		if !fileExists(path) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'ucw config show' to see the default configuration").
				WithIssue(issue.FileNotFoundId).
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		return path, nil
	}

	cfgDir, err := configDirWithOverride(string(opts.ConfigDirPath))
	if err != nil {
		return "", err
	}
	if cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(cuePath) {
		return cuePath, nil
	}
	if localCuePath := ConfigFileName + "." + ConfigFileExt; fileExists(localCuePath) {
		return localCuePath, nil
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if ok, errs := opts.IsValid(); !ok {
		return nil, "", errs[0]
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("namespace", string(defaults.Namespace))
	v.SetDefault("catalog", string(defaults.Catalog))
	v.SetDefault("sources", []map[string]any{})
	v.SetDefault("mods_dir", string(defaults.ModsDir))
	v.SetDefault("max_document_size", defaults.MaxDocumentSize)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("watch.debounce", defaults.Watch.Debounce.String())
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := FindConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'ucw config --help' for configuration options").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Sources == nil {
		cfg.Sources = []SourceEntry{}
	}

	// Environment overrides bypass the CUE schema, so the typed values are
	// checked again here along with the cross-entry constraints.
	if ok, errs := cfg.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Ensure each source id and path is listed only once").
			WithSuggestion("Check UCW_* environment variables for typos").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(joinFieldErrors(errs)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Decoding goes to map[string]any rather than through cueutil.DecodeCUE so
// Viper keeps its defaults and environment overrides for unset fields.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// validateSources checks constraints that CUE cannot express: source ids and
// cleaned paths must be unique across entries.
func validateSources(fieldName string, sources []SourceEntry) error {
	seenIDs := make(map[string]int)
	seenPaths := make(map[string]int)

	for i, entry := range sources {
		if firstIdx, exists := seenIDs[entry.ID]; exists {
			return fmt.Errorf("%s[%d]: duplicate id %q (same as %s[%d])", fieldName, i, entry.ID, fieldName, firstIdx)
		}
		seenIDs[entry.ID] = i

		cleanPath := filepath.Clean(string(entry.Path))
		if firstIdx, exists := seenPaths[cleanPath]; exists {
			return fmt.Errorf("%s[%d]: duplicate path %q (same as %s[%d])", fieldName, i, entry.Path, fieldName, firstIdx)
		}
		seenPaths[cleanPath] = i
	}

	return nil
}

func joinFieldErrors(errs []error) error {
	if len(errs) == 1 {
		if ice, ok := errs[0].(*InvalidConfigError); ok {
			msgs := make([]string, 0, len(ice.FieldErrors))
			for _, fe := range ice.FieldErrors {
				msgs = append(msgs, fe.Error())
			}
			return fmt.Errorf("%w: %s", ice, strings.Join(msgs, "; "))
		}
	}
	return errs[0]
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into ConfigDir unless one
// already exists. It returns the file path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// ucw configuration file\n\n")

	fmt.Fprintf(&sb, "namespace: %q\n", cfg.Namespace)
	fmt.Fprintf(&sb, "catalog:   %q\n", cfg.Catalog)
	if cfg.ModsDir != "" {
		fmt.Fprintf(&sb, "mods_dir:  %q\n", cfg.ModsDir)
	}
	fmt.Fprintf(&sb, "max_document_size: %d\n", cfg.MaxDocumentSize)

	if len(cfg.Sources) > 0 {
		sb.WriteString("\nsources: [\n")
		for _, entry := range cfg.Sources {
			fmt.Fprintf(&sb, "\t{id: %q, path: %q},\n", entry.ID, entry.Path)
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
