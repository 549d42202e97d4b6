// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chiselworks/ucw/internal/watch"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload whenever rules or the catalog change",
		Long: `Run the full lifecycle, then watch every content source, the mods
directory and the catalog. Each batch of changes starts a fresh lifecycle
against a freshly loaded catalog. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), app, flags)
		},
	}
}

func runWatch(ctx context.Context, app *App, flags *rootFlagValues) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}
	logger := newLogger(app.stderr, cfg, flags.verbose)

	cycle := func(ctx context.Context) error {
		s, err := app.newSession(ctx, flags)
		if err != nil {
			return err
		}
		if err := s.engine.Run(ctx); err != nil {
			return lifecycleError("run lifecycle", err)
		}
		summary := s.summary()
		app.Diagnostics.Render(ctx, summary.Diagnostics, app.stderr)
		writeSummary(app.stdout, summary)
		return nil
	}

	if err := cycle(ctx); err != nil {
		// A broken catalog or bad rules are what the user is about to fix.
		logger.Error(formatErrorForDisplay(err, flags.verbose))
	}

	w, err := watch.New(watch.Config{
		Roots:    cfg.WatchRoots(),
		Debounce: cfg.Watch.Debounce,
		Logger:   logger.WithPrefix("watch"),
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintln(app.stdout, SubtitleStyle.Render(fmt.Sprintf("\n%d file(s) changed, reloading", len(changed))))
			return cycle(ctx)
		},
	})
	if err != nil {
		return app.fail(flags, ExitFailure, err)
	}

	fmt.Fprintln(app.stdout, SubtitleStyle.Render("Watching for changes. Press Ctrl+C to stop."))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return app.fail(flags, ExitFailure, err)
	}
	return nil
}
