// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chiselworks/ucw/internal/discovery"
	"github.com/chiselworks/ucw/internal/memhost"
)

// loadSummary is the outcome of one full lifecycle run.
type loadSummary struct {
	Sources     int                    `json:"sources" yaml:"sources"`
	Documents   int                    `json:"documents" yaml:"documents"`
	Rules       int                    `json:"rules" yaml:"rules"`
	Families    int                    `json:"families" yaml:"families"`
	Host        memhost.Stats          `json:"host" yaml:"host"`
	Diagnostics []discovery.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

func newLoadCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var (
		strict bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run the full lifecycle and print a summary",
		Long: `Collect rules from every content source, declare the generated blocks
and items, then expand variation groups and mirror tags.

Rule problems are reported as diagnostics and never stop the run. With
--strict, any diagnostic makes ucw exit with status 2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := OutputFormat(format)
			if ok, errs := out.IsValid(); !ok {
				return errs[0]
			}
			return runLoad(cmd.Context(), app, flags, out, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit with status 2 when any diagnostic is reported")
	cmd.Flags().StringVarP(&format, "format", "f", string(FormatText), "output format: text, json or yaml")

	return cmd
}

func runLoad(ctx context.Context, app *App, flags *rootFlagValues, format OutputFormat, strict bool) error {
	s, err := app.newSession(ctx, flags)
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}

	if err := s.engine.Run(ctx); err != nil {
		return app.fail(flags, ExitFailure, lifecycleError("run lifecycle", err))
	}

	summary := s.summary()
	if format == FormatText {
		app.Diagnostics.Render(ctx, summary.Diagnostics, app.stderr)
		writeSummary(app.stdout, summary)
	} else if err := writeStructured(app.stdout, format, summary); err != nil {
		return app.fail(flags, ExitFailure, err)
	}

	if strict && len(summary.Diagnostics) > 0 {
		return &ExitError{Code: ExitDiagnostics, Err: fmt.Errorf("%d diagnostic(s) reported", len(summary.Diagnostics))}
	}
	return nil
}

func (s *session) summary() loadSummary {
	summary := loadSummary{
		Rules:    s.engine.RuleSet().Len(),
		Families: len(s.engine.Families()),
		Host:     s.host.Stats(),
	}
	if report := s.engine.Report(); report != nil {
		summary.Sources = report.Sources
		summary.Documents = report.Documents
		summary.Diagnostics = report.Diagnostics
	}
	if summary.Diagnostics == nil {
		summary.Diagnostics = []discovery.Diagnostic{}
	}
	return summary
}

func writeSummary(w io.Writer, s loadSummary) {
	fmt.Fprintln(w, TitleStyle.Render("Load complete"))
	fmt.Fprintf(w, "%s %d sources, %d documents\n", labelStyle.Render("Read"), s.Sources, s.Documents)
	fmt.Fprintf(w, "%s %d rules\n", labelStyle.Render("Accepted"), s.Rules)
	fmt.Fprintf(w, "%s %d blocks, %d items\n", labelStyle.Render("Registered"), s.Host.Blocks, s.Host.Items)
	fmt.Fprintf(w, "%s %d families, %d members\n", labelStyle.Render("Variations"), s.Families, s.Host.Variations)
	fmt.Fprintf(w, "%s %d tags, %d entries\n", labelStyle.Render("Tags"), s.Host.Tags, s.Host.TagEntries)

	status := SuccessStyle.Render("✓ no problems")
	if n := len(s.Diagnostics); n > 0 {
		status = WarningStyle.Render(fmt.Sprintf("! %d diagnostic(s)", n))
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Status"), status)
}
