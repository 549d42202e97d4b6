// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chiselworks/ucw/internal/discovery"
	"github.com/chiselworks/ucw/internal/ruleset"
)

func newValidateCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [document...]",
		Short: "Check rule documents against the catalog",
		Long: `Parse rule documents and report every problem without registering
anything.

With arguments, each file is parsed on its own. Without arguments, every
configured content source is collected. ucw exits with status 2 when an
error-level diagnostic is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), app, flags, args)
		},
	}
}

func runValidate(ctx context.Context, app *App, flags *rootFlagValues, paths []string) error {
	s, err := app.newSession(ctx, flags)
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}

	var (
		diags []discovery.Diagnostic
		rules int
	)
	if len(paths) == 0 {
		if err := s.engine.Collect(ctx); err != nil {
			return app.fail(flags, ExitFailure, lifecycleError("collect rules", err))
		}
		diags = s.engine.Report().Diagnostics
		rules = s.engine.RuleSet().Len()
	} else {
		collector := discovery.New(s.host, ruleset.New(),
			discovery.WithLogger(s.logger.WithPrefix("discovery")),
			discovery.WithNamespace(string(s.cfg.Namespace)),
			discovery.WithMaxDocumentSize(s.cfg.MaxDocumentSize),
		)
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, fileDiags := collector.ParseFile(path)
			diags = append(diags, fileDiags...)
			if result == nil {
				continue
			}
			rules += len(result.Rules)
			s.logger.Debug("validated document", "path", path, "status", result.Status(), "rules", len(result.Rules))
		}
	}

	app.Diagnostics.Render(ctx, diags, app.stderr)

	if discovery.HasErrors(diags) {
		fmt.Fprintln(app.stdout, ErrorStyle.Render(fmt.Sprintf("✗ %d rules valid, %d problem(s)", rules, len(diags))))
		return &ExitError{Code: ExitDiagnostics, Err: fmt.Errorf("validation reported %d problem(s)", len(diags))}
	}
	if len(diags) > 0 {
		fmt.Fprintln(app.stdout, WarningStyle.Render(fmt.Sprintf("! %d rules valid, %d warning(s)", rules, len(diags))))
		return nil
	}
	fmt.Fprintln(app.stdout, SuccessStyle.Render(fmt.Sprintf("✓ %d rules valid", rules)))
	return nil
}
