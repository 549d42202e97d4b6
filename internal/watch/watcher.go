// SPDX-License-Identifier: MPL-2.0

// Package watch reloads rules when content sources change on disk.
//
// A Watcher monitors a set of roots (source directories, archives, the mods
// directory and the catalog file) and invokes a callback after a debounce
// period. Events within the debounce window are coalesced so the callback
// fires once with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the delay before firing the onChange callback after the
// last filesystem event.
const defaultDebounce = 500 * time.Millisecond

var (
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")

	// defaultPatterns select rule documents inside sources and archives at
	// the top of a mods directory.
	defaultPatterns = []string{
		"**/ucwdefs/**/*.json",
		"*.zip",
		"*.jar",
	}

	// defaultIgnores are always excluded: VCS metadata, editor swap files and
	// OS metadata files.
	defaultIgnores = []string{
		"**/.git/**",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories and files to watch. A directory root is
		// watched recursively and filtered by Patterns; a file root (or a
		// root that does not exist yet) matches only itself.
		Roots []string

		// Patterns are doublestar glob patterns, relative to a directory
		// root, that select which files trigger callbacks. An empty slice
		// uses DefaultPatterns.
		Patterns []string

		// Ignore are additional doublestar patterns merged with the built-in
		// default ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires. Zero or negative values fall back to defaultDebounce.
		Debounce time.Duration

		// OnChange is called after the debounce window closes with the sorted,
		// deduplicated absolute paths that changed. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives watcher diagnostics. nil uses log.Default().
		Logger *log.Logger
	}

	// InvalidWatchConfigError is returned by Config.Validate.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// root is one watched path.
	root struct {
		path string
		file bool
	}

	// Watcher monitors filesystem paths and fires a debounced callback when
	// matching files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		roots    []root
		patterns []string
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		started  atomic.Bool
	}
)

// Error implements the error interface.
func (e *InvalidWatchConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid watch config (%d field error(s)): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// Validate checks that at least one root is given, no root is blank and every
// pattern is a valid glob.
func (c Config) Validate() error {
	var errs []error
	if len(c.Roots) == 0 {
		errs = append(errs, errors.New("at least one root is required"))
	}
	for i, r := range c.Roots {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Errorf("roots[%d]: must not be blank", i))
		}
	}
	errs = append(errs, validatePatterns(c.Patterns, "watch")...)
	errs = append(errs, validatePatterns(c.Ignore, "ignore")...)
	if len(errs) > 0 {
		return &InvalidWatchConfigError{FieldErrors: errs}
	}
	return nil
}

// New creates a Watcher and registers every root with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: patterns,
		ignores:  ignores,
		logger:   logger,
		debounce: debounce,
	}

	for _, r := range cfg.Roots {
		if err := w.addRoot(r); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				logger.Warn("close after init failure", "err", closeErr)
			}
			return nil, err
		}
	}

	return w, nil
}

// Roots returns the absolute paths being watched.
func (w *Watcher) Roots() []string {
	paths := make([]string, 0, len(w.roots))
	for _, r := range w.roots {
		paths = append(paths, r.path)
	}
	return paths
}

// Run blocks until ctx is cancelled, processing filesystem events and
// dispatching debounced callbacks. It returns nil on clean context
// cancellation and propagates fatal watcher errors.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may be scheduled by time.AfterFunc after ctx is cancelled. A run
	// still in progress makes it reschedule itself instead of overlapping.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("reload still in progress, deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("reload failed", "err", err)
			}
		}
	}

	schedule := func(paths ...string) {
		if len(paths) == 0 {
			return
		}
		mu.Lock()
		for _, p := range paths {
			pending[p] = struct{}{}
		}
		if timer == nil {
			timer = time.AfterFunc(w.debounce, fire)
		} else {
			timer.Reset(w.debounce)
		}
		mu.Unlock()
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil {
			localTimer.Stop()
		}
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			schedule(w.handleEvent(evt)...)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// handleEvent returns the paths an event makes pending. A directory created
// under a directory root is added to the watch, and any matching files it
// already holds are reported too.
func (w *Watcher) handleEvent(evt fsnotify.Event) []string {
	for _, r := range w.roots {
		if r.file {
			if evt.Name != r.path {
				continue
			}
			if evt.Has(fsnotify.Create) {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					return append([]string{evt.Name}, w.addTree(r.path, evt.Name)...)
				}
			}
			return []string{evt.Name}
		}

		rel, ok := relativeTo(r.path, evt.Name)
		if !ok || rel == "." || w.isIgnored(rel) {
			continue
		}

		var changed []string
		if evt.Has(fsnotify.Create) {
			if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
				changed = append(changed, w.addTree(r.path, evt.Name)...)
			}
		}
		if w.matchesPatterns(rel) {
			changed = append(changed, evt.Name)
		}
		return changed
	}
	return nil
}

// addRoot registers one configured root. A missing root is watched through
// its parent directory so its creation is noticed.
func (w *Watcher) addRoot(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: resolve root %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		w.roots = append(w.roots, root{path: abs})
		w.addTree(abs, abs)
		return nil
	}

	parent := filepath.Dir(abs)
	if _, statErr := os.Stat(parent); statErr != nil {
		w.logger.Warn("not watching root, parent directory is missing", "root", abs)
		return nil
	}
	w.roots = append(w.roots, root{path: abs, file: true})
	if addErr := w.fsw.Add(parent); addErr != nil {
		return fmt.Errorf("watch: add directory %q: %w", parent, addErr)
	}
	return nil
}

// addTree adds dir and every non-ignored directory below it to fsnotify and
// returns the matching files found on the way.
func (w *Watcher) addTree(rootPath, dir string) []string {
	var found []string
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}

		rel, ok := relativeTo(rootPath, path)
		if !ok {
			return nil
		}

		if !d.IsDir() {
			if dir != rootPath && !w.isIgnored(rel) && w.matchesPatterns(rel) {
				found = append(found, path)
			}
			return nil
		}

		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("cannot watch directory", "path", path, "err", addErr)
		}
		return nil
	})
	if walkErr != nil {
		w.logger.Warn("walk directory tree", "dir", dir, "err", walkErr)
	}
	return found
}

// relativeTo returns path relative to base when path is inside base.
func relativeTo(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// isIgnored returns true if rel matches any ignore pattern.
func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// matchesPatterns returns true if rel matches at least one watch pattern.
func (w *Watcher) matchesPatterns(rel string) bool {
	return matchAny(w.patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultPatterns returns a copy of the built-in watch patterns.
func DefaultPatterns() []string {
	return slices.Clone(defaultPatterns)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// validatePatterns checks that every pattern is a valid, non-empty doublestar
// glob. The label (e.g., "watch" or "ignore") is used in error messages.
func validatePatterns(patterns []string, label string) []error {
	var errs []error
	for i, pat := range patterns {
		if strings.TrimSpace(pat) == "" {
			errs = append(errs, fmt.Errorf("%s pattern [%d]: must not be empty", label, i))
			continue
		}
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("%s pattern %q: %w", label, pat, doublestar.ErrBadPattern))
		}
	}
	return errs
}
