// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/chiselworks/ucw/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the ucw command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "ucw",
		Short: "Load chisel-variation rules and register the blocks they generate",
		Long: TitleStyle.Render("ucw") + SubtitleStyle.Render(" - chisel-variation rule engine") + `

ucw reads ucwdefs rule documents from content sources (directories and
.zip/.jar archives), validates them against a host block catalog, removes
duplicates, and registers the generated blocks, items, variation groups and
tags.

Rules live at assets/<source id>/ucwdefs/**/*.json inside each source.

` + SubtitleStyle.Render("Examples:") + `
  ucw load                 Run the full lifecycle and print a summary
  ucw rules --format json  List the accepted rules
  ucw validate rules.json  Check one document against the catalog
  ucw watch                Reload whenever rules or the catalog change
  ucw issue                List troubleshooting topics`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/ucw/config.cue)")

	rootCmd.AddCommand(
		newLoadCommand(app, flags),
		newRulesCommand(app, flags),
		newFamiliesCommand(app, flags),
		newValidateCommand(app, flags),
		newReloadCommand(app, flags),
		newWatchCommand(app, flags),
		newConfigCommand(app, flags),
		newIssueCommand(app, flags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("error: ")+err.Error())
		os.Exit(int(ExitFailure))
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(ExitFailure))
	}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors include their suggestions; verbose mode adds the chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// fail prints err for the user and wraps it so the process exits with code.
func (a *App) fail(flags *rootFlagValues, code ExitCode, err error) error {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("error: ")+formatErrorForDisplay(err, flags.verbose))
	return &ExitError{Code: code, Err: err}
}
