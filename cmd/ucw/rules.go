// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chiselworks/ucw/internal/variation"
	"github.com/chiselworks/ucw/pkg/ucwdef"
)

func newRulesCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the accepted rules",
		Long: `Collect rules from every content source and list the ones that were
accepted, in collection order. Nothing is registered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := OutputFormat(format)
			if ok, errs := out.IsValid(); !ok {
				return errs[0]
			}
			return runRules(cmd.Context(), app, flags, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(FormatText), "output format: text, json or yaml")
	return cmd
}

func runRules(ctx context.Context, app *App, flags *rootFlagValues, format OutputFormat) error {
	s, err := app.newSession(ctx, flags)
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}
	if err := s.engine.Collect(ctx); err != nil {
		return app.fail(flags, ExitFailure, lifecycleError("collect rules", err))
	}

	rules := s.engine.Rules()
	if format != FormatText {
		if rules == nil {
			rules = []*ucwdef.Rule{}
		}
		if err := writeStructured(app.stdout, format, rules); err != nil {
			return app.fail(flags, ExitFailure, err)
		}
		return nil
	}

	app.Diagnostics.Render(ctx, s.engine.Report().Diagnostics, app.stderr)
	writeRules(app.stdout, rules)
	return nil
}

func writeRules(w io.Writer, rules []*ucwdef.Rule) {
	if len(rules) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no rules)"))
		return
	}
	for _, r := range rules {
		fmt.Fprintf(w, "%s → %s  %s  %d/%d variants\n",
			IDStyle.Render(string(r.Source)),
			IDStyle.Render(string(r.Through)),
			SuccessStyle.Render("["+r.Group+"]"),
			len(r.Factories), r.FromCount,
		)
		origin := r.Origin.Path + fmt.Sprintf("#blocks[%d]", r.Origin.Index)
		if r.Origin.SourceID != "" {
			origin = r.Origin.SourceID + ": " + origin
		}
		fmt.Fprintf(w, "    %s\n", SubtitleStyle.Render(origin))
	}
}

func newFamiliesCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "families",
		Short: "List the variation families after a full load",
		Long: `Run the full lifecycle and list every variation family: the items that
are interchangeable in a chisel, keyed by group.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := OutputFormat(format)
			if ok, errs := out.IsValid(); !ok {
				return errs[0]
			}
			return runFamilies(cmd.Context(), app, flags, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(FormatText), "output format: text, json or yaml")
	return cmd
}

func runFamilies(ctx context.Context, app *App, flags *rootFlagValues, format OutputFormat) error {
	s, err := app.newSession(ctx, flags)
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}
	if err := s.engine.Run(ctx); err != nil {
		return app.fail(flags, ExitFailure, lifecycleError("run lifecycle", err))
	}

	families := s.engine.Families()
	if format != FormatText {
		if families == nil {
			families = []variation.Family{}
		}
		if err := writeStructured(app.stdout, format, families); err != nil {
			return app.fail(flags, ExitFailure, err)
		}
		return nil
	}

	if len(families) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no families)"))
		return nil
	}
	for _, f := range families {
		members := make([]string, 0, len(f.Members))
		for _, m := range f.Members {
			members = append(members, m.String())
		}
		fmt.Fprintf(app.stdout, "%s (%d)\n    %s\n", TitleStyle.Render(f.Key), len(f.Members), strings.Join(members, ", "))
	}
	return nil
}
