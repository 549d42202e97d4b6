// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/chiselworks/ucw/internal/config"
	"github.com/chiselworks/ucw/internal/discovery"
	"github.com/chiselworks/ucw/internal/engine"
	"github.com/chiselworks/ucw/internal/issue"
	"github.com/chiselworks/ucw/internal/memhost"
)

type (
	// App wires CLI services and shared dependencies. Every Cobra handler
	// receives an App and builds sessions through it.
	App struct {
		Config      ConfigProvider
		Hosts       HostLoader
		Diagnostics DiagnosticRenderer
		stdout      io.Writer
		stderr      io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      ConfigProvider
		Hosts       HostLoader
		Diagnostics DiagnosticRenderer
		Stdout      io.Writer
		Stderr      io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// HostLoader builds the host namespace from a catalog file.
	HostLoader interface {
		LoadHost(path string) (*memhost.Host, error)
	}

	// HostLoaderFunc adapts a function to the HostLoader interface.
	HostLoaderFunc func(path string) (*memhost.Host, error)

	// DiagnosticRenderer renders structured diagnostics.
	DiagnosticRenderer interface {
		Render(ctx context.Context, diags []discovery.Diagnostic, w io.Writer)
	}

	// session is one configured engine bound to a fresh host.
	session struct {
		cfg    *config.Config
		host   *memhost.Host
		engine *engine.Engine
		logger *log.Logger
	}

	defaultDiagnosticRenderer struct{}
)

// LoadHost calls f(path).
func (f HostLoaderFunc) LoadHost(path string) (*memhost.Host, error) { return f(path) }

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Hosts == nil {
		deps.Hosts = HostLoaderFunc(memhost.Load)
	}
	if deps.Diagnostics == nil {
		deps.Diagnostics = &defaultDiagnosticRenderer{}
	}

	return &App{
		Config:      deps.Config,
		Hosts:       deps.Hosts,
		Diagnostics: deps.Diagnostics,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
	}, nil
}

// loadConfig loads configuration honoring the --config flag.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: config.FilesystemPath(flags.configPath)})
}

// newSession loads configuration and the catalog and builds an engine over
// a fresh host. Each session registers into its own host, so sessions are
// never reused across lifecycle runs.
func (a *App) newSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	logger := newLogger(a.stderr, cfg, flags.verbose)

	host, err := a.Hosts.LoadHost(string(cfg.Catalog))
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("load catalog").
			WithResource(string(cfg.Catalog)).
			WithIssue(issue.CatalogInvalidId).
			Wrap(err)
		if errors.Is(err, os.ErrNotExist) {
			ec.WithSuggestion("Create a catalog file or set 'catalog' in your config").
				WithIssue(issue.FileNotFoundId)
		}
		return nil, ec.BuildError()
	}

	sources, err := cfg.ContentSources()
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("list content sources").
			WithResource(string(cfg.ModsDir)).
			WithIssue(issue.SourceUnreadableId).
			Wrap(err).
			BuildError()
	}

	eng, err := engine.New(engine.Config{
		Resolver:        host,
		Blocks:          host,
		Items:           host,
		Tags:            host,
		ItemSource:      host,
		Registrar:       host,
		Sources:         sources,
		Namespace:       string(cfg.Namespace),
		MaxDocumentSize: cfg.MaxDocumentSize,
		Logger:          logger.WithPrefix("engine"),
	})
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, host: host, engine: eng, logger: logger}, nil
}

// lifecycleError attaches catalog guidance to an engine failure.
func lifecycleError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}
	ec := issue.NewErrorContext().WithOperation(op).Wrap(err)
	switch {
	case errors.Is(err, engine.ErrPhaseOrder):
		ec.WithIssue(issue.PhaseOrderId)
	case errors.Is(err, context.Canceled):
		return err
	default:
		ec.WithIssue(issue.RegistrationFailedId).
			WithSuggestion("Run with --verbose to see the full error chain")
	}
	return ec.BuildError()
}

// newLogger creates the stderr logger. --verbose forces debug level.
func newLogger(w io.Writer, cfg *config.Config, verbose bool) *log.Logger {
	level, err := log.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		level = log.InfoLevel
	}
	if verbose || cfg.UI.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "ucw",
		Level:  level,
	})
}

// issueForCode maps a diagnostic code to its catalog entry.
func issueForCode(code discovery.DiagnosticCode) issue.Id {
	switch code {
	case discovery.CodeSourceOpenFailed, discovery.CodeSourceWalkFailed, discovery.CodeDocumentReadFailed:
		return issue.SourceUnreadableId
	case discovery.CodeDocumentParseFailed:
		return issue.DocumentParseErrorId
	case discovery.CodeRuleParseFailed:
		return issue.RuleInvalidId
	case discovery.CodeRuleUnresolvedReference:
		return issue.RuleUnresolvedId
	case discovery.CodeRuleDuplicate:
		return issue.RuleDuplicateId
	case discovery.CodeRuleGeneratedIDCollision:
		return issue.GeneratedIdCollisionId
	default:
		return 0
	}
}

// Render writes diagnostics with lipgloss styling followed by the issue
// names worth reading, once each.
func (r *defaultDiagnosticRenderer) Render(_ context.Context, diags []discovery.Diagnostic, w io.Writer) {
	if len(diags) == 0 {
		return
	}

	var hints []string
	seen := make(map[issue.Id]bool)
	for _, diag := range diags {
		prefix := WarningStyle.Render("warning")
		if diag.Severity == discovery.SeverityError {
			prefix = ErrorStyle.Render("error")
		}

		if diag.Path != "" {
			_, _ = fmt.Fprintf(w, "%s: %s %s\n", prefix, diag.Message, SubtitleStyle.Render("("+diag.Path+")"))
		} else {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, diag.Message)
		}

		if id := issueForCode(diag.Code); id != 0 && !seen[id] {
			seen[id] = true
			if iss := issue.Get(id); iss != nil {
				hints = append(hints, iss.Name())
			}
		}
	}

	if len(hints) > 0 {
		_, _ = fmt.Fprintf(w, "\n%s\n", SubtitleStyle.Render("More help: ucw issue "+strings.Join(hints, " | ucw issue ")))
	}
}
