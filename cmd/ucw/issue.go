// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chiselworks/ucw/internal/config"
	"github.com/chiselworks/ucw/internal/issue"
)

func newIssueCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "issue [name]",
		Short: "Explain a problem ucw can report",
		Long: `Without arguments, list the troubleshooting topics. With a name, render
the topic. Error messages name the topic to read, e.g. 'ucw issue rule-duplicate'.`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return issue.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, iss := range issue.Values() {
					fmt.Fprintf(app.stdout, "%s %s\n", labelStyle.Render(fmt.Sprintf("%d", iss.Id())), IDStyle.Render(iss.Name()))
				}
				return nil
			}

			iss, ok := issue.Lookup(args[0])
			if !ok {
				return app.fail(flags, ExitFailure, fmt.Errorf("unknown issue %q (run 'ucw issue' to list them)", args[0]))
			}

			// A broken config falls back to the auto style.
			style := string(config.ColorSchemeAuto)
			if cfg, err := app.loadConfig(cmd.Context(), flags); err == nil {
				style = string(cfg.UI.ColorScheme)
			}
			out, err := iss.Render(style)
			if err != nil {
				return app.fail(flags, ExitFailure, err)
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}
}
