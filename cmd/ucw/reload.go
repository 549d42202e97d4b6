// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// errReloadDiverged is returned when a reload yields a different rule set.
var errReloadDiverged = errors.New("reload produced a different rule set")

func newReloadCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Run the lifecycle, reload the rules and compare",
		Long: `Run the full lifecycle, then reload every content source on the same
engine and check that the reloaded rule set is identical. Use this to confirm
that a resource reload is stable before shipping content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReload(cmd.Context(), app, flags)
		},
	}
}

func runReload(ctx context.Context, app *App, flags *rootFlagValues) error {
	s, err := app.newSession(ctx, flags)
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}
	if err := s.engine.Run(ctx); err != nil {
		return app.fail(flags, ExitFailure, lifecycleError("run lifecycle", err))
	}
	before := s.engine.RuleSet().Keys()

	if err := s.engine.Reload(ctx); err != nil {
		return app.fail(flags, ExitFailure, lifecycleError("reload rules", err))
	}
	after := s.engine.RuleSet().Keys()

	if !slices.Equal(before, after) {
		err := fmt.Errorf("%w: %d rules before, %d after", errReloadDiverged, len(before), len(after))
		return app.fail(flags, ExitDiagnostics, err)
	}

	fmt.Fprintln(app.stdout, SuccessStyle.Render(fmt.Sprintf("✓ reload stable: %d rules", len(after))))
	return nil
}
