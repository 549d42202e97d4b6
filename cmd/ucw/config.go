// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chiselworks/ucw/internal/config"
)

func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ucw configuration",
		Long: `Manage ucw configuration.

Configuration is read from a CUE file (config.cue) in the ucw config
directory or the current directory. Every key can be overridden with a
UCW_ environment variable, e.g. UCW_LOG_LEVEL=debug.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runConfigShow(cmd.Context(), app, flags)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file in use",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return runConfigPath(app, flags)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default config file",
			Long:  "Write a default config file into the ucw config directory. An existing file is left untouched.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				path, err := config.CreateDefaultConfig()
				if err != nil {
					return app.fail(flags, ExitFailure, err)
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ config file: ")+path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print the effective configuration as CUE",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := app.loadConfig(cmd.Context(), flags)
				if err != nil {
					return app.fail(flags, ExitFailure, err)
				}
				fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
				return nil
			},
		},
	)

	return cmd
}

func runConfigPath(app *App, flags *rootFlagValues) error {
	path, err := config.FindConfigFile(config.LoadOptions{ConfigFilePath: config.FilesystemPath(flags.configPath)})
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}
	if path == "" {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("(none, using defaults)"))
		return nil
	}
	fmt.Fprintln(app.stdout, path)
	return nil
}

func runConfigShow(ctx context.Context, app *App, flags *rootFlagValues) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}
	writeConfig(app.stdout, cfg)
	return nil
}

func writeConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	row := func(label, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(unset)")
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), value)
	}

	row("Namespace", string(cfg.Namespace))
	row("Catalog", string(cfg.Catalog))
	row("Mods dir", string(cfg.ModsDir))
	row("Max size", fmt.Sprintf("%d bytes", cfg.MaxDocumentSize))
	row("Log level", string(cfg.Log.Level))
	row("Debounce", cfg.Watch.Debounce.String())
	row("Colors", string(cfg.UI.ColorScheme))

	if len(cfg.Sources) == 0 {
		row("Sources", "")
		return
	}
	entries := make([]string, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		entries = append(entries, IDStyle.Render(src.ID)+" "+string(src.Path))
	}
	row("Sources", strings.Join(entries, "\n"+strings.Repeat(" ", 13)))
}
