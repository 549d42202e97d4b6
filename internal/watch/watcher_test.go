// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// recorder collects OnChange invocations.
type recorder struct {
	mu      sync.Mutex
	calls   int
	changed []string
	notify  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls++
	r.changed = append(r.changed, changed...)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func (r *recorder) snapshot() (int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, slices.Clone(r.changed)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// startWatcher runs w in the background and returns a stop function that
// cancels it and checks Run's error.
func startWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	}
}

func mkdirAll(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        Config
		wantErrors int
	}{
		{name: "single root", cfg: Config{Roots: []string{"mods"}}},
		{name: "custom patterns", cfg: Config{Roots: []string{"mods"}, Patterns: []string{"**/*.json"}, Ignore: []string{"**/tmp/**"}}},
		{name: "no roots", cfg: Config{}, wantErrors: 1},
		{name: "blank root", cfg: Config{Roots: []string{"  "}}, wantErrors: 1},
		{name: "empty pattern", cfg: Config{Roots: []string{"a"}, Patterns: []string{""}}, wantErrors: 1},
		{name: "malformed pattern", cfg: Config{Roots: []string{"a"}, Patterns: []string{"[unclosed"}}, wantErrors: 1},
		{
			name:       "errors accumulate",
			cfg:        Config{Roots: []string{""}, Patterns: []string{"", "[x"}, Ignore: []string{""}},
			wantErrors: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErrors == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var cfgErr *InvalidWatchConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %T, want *InvalidWatchConfigError", err)
			}
			if len(cfgErr.FieldErrors) != tt.wantErrors {
				t.Errorf("len(FieldErrors) = %d, want %d: %v", len(cfgErr.FieldErrors), tt.wantErrors, cfgErr.FieldErrors)
			}
			if !errors.Is(err, ErrInvalidWatchConfig) {
				t.Error("errors.Is(err, ErrInvalidWatchConfig) = false")
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); !errors.Is(err, ErrInvalidWatchConfig) {
		t.Errorf("New(Config{}) error = %v, want ErrInvalidWatchConfig", err)
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rules := filepath.Join(dir, "assets", "pack", "ucwdefs")
	mkdirAll(t, rules)

	rec := newRecorder()
	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 100 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	for _, name := range []string{"a.json", "b.json", "c.json"} {
		writeFile(t, filepath.Join(rules, name), `{}`)
		time.Sleep(10 * time.Millisecond)
	}

	rec.wait(t)
	time.Sleep(200 * time.Millisecond)
	stop()

	calls, changed := rec.snapshot()
	if calls != 1 {
		t.Errorf("expected 1 callback, got %d", calls)
	}
	want := []string{
		filepath.Join(rules, "a.json"),
		filepath.Join(rules, "b.json"),
		filepath.Join(rules, "c.json"),
	}
	if !slices.Equal(changed, want) {
		t.Errorf("changed = %v, want %v", changed, want)
	}
}

func TestWatcherPatternFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rules := filepath.Join(dir, "assets", "pack", "ucwdefs")
	mkdirAll(t, rules)

	rec := newRecorder()
	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(rules, "rules.json.swp"), "ignored")
	writeFile(t, filepath.Join(rules, "rules.json"), `{}`)

	rec.wait(t)
	stop()

	_, changed := rec.snapshot()
	if !slices.Equal(changed, []string{filepath.Join(rules, "rules.json")}) {
		t.Errorf("changed = %v, want only rules.json", changed)
	}
}

func TestWatcherArchivesAtTopLevel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "extra.jar"), "PK")

	rec.wait(t)
	stop()

	_, changed := rec.snapshot()
	if !slices.Contains(changed, filepath.Join(dir, "extra.jar")) {
		t.Errorf("changed = %v, want extra.jar", changed)
	}
}

func TestWatcherFileRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.toml")
	writeFile(t, catalog, "")

	rec := newRecorder()
	w, err := New(Config{
		Roots:    []string{catalog},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "other.toml"), "")
	writeFile(t, catalog, "[[blocks]]\nid = \"minecraft:stone\"\n")

	rec.wait(t)
	stop()

	_, changed := rec.snapshot()
	if !slices.Equal(slices.Compact(changed), []string{catalog}) {
		t.Errorf("changed = %v, want only %s", changed, catalog)
	}
}

func TestWatcherMissingRootCreated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mods := filepath.Join(dir, "mods")

	rec := newRecorder()
	w, err := New(Config{
		Roots:    []string{mods},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	mkdirAll(t, mods)

	rec.wait(t)
	stop()

	_, changed := rec.snapshot()
	if !slices.Contains(changed, mods) {
		t.Errorf("changed = %v, want %s", changed, mods)
	}
}

func TestWatcherMovedInSourceReportsExistingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mods := filepath.Join(dir, "mods")
	mkdirAll(t, mods)

	staging := filepath.Join(dir, "staging", "newpack")
	rules := filepath.Join(staging, "assets", "newpack", "ucwdefs")
	mkdirAll(t, rules)
	writeFile(t, filepath.Join(rules, "stone.json"), `{}`)

	rec := newRecorder()
	w, err := New(Config{
		Roots:    []string{mods},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	if err := os.Rename(staging, filepath.Join(mods, "newpack")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	rec.wait(t)
	stop()

	_, changed := rec.snapshot()
	want := filepath.Join(mods, "newpack", "assets", "newpack", "ucwdefs", "stone.json")
	if !slices.Contains(changed, want) {
		t.Errorf("changed = %v, want it to contain %s", changed, want)
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Roots: []string{t.TempDir()}, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	stop()
}

func TestWatcherDoubleRunError(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Roots: []string{t.TempDir()}, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	// Give the first Run a moment to claim the watcher.
	time.Sleep(20 * time.Millisecond)
	if err := w.Run(context.Background()); err == nil {
		t.Error("second Run() should return an error")
	}
}

func TestWatcherRoots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := New(Config{Roots: []string{dir, filepath.Join(dir, "catalog.toml")}, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer w.fsw.Close()

	want := []string{dir, filepath.Join(dir, "catalog.toml")}
	if got := w.Roots(); !slices.Equal(got, want) {
		t.Errorf("Roots() = %v, want %v", got, want)
	}
}

func TestDefaultPatternsAndIgnores(t *testing.T) {
	t.Parallel()

	w := &Watcher{patterns: DefaultPatterns(), ignores: DefaultIgnores()}

	matches := []string{
		"assets/pack/ucwdefs/stone.json",
		"pack/assets/pack/ucwdefs/nested/more.json",
		"extra.jar",
		"extra.zip",
	}
	for _, rel := range matches {
		if !w.matchesPatterns(rel) {
			t.Errorf("matchesPatterns(%q) = false, want true", rel)
		}
	}

	nonMatches := []string{
		"assets/pack/recipes/stone.json",
		"pack/extra.jar",
		"readme.txt",
	}
	for _, rel := range nonMatches {
		if w.matchesPatterns(rel) {
			t.Errorf("matchesPatterns(%q) = true, want false", rel)
		}
	}

	ignored := []string{".git/HEAD", "pack/.git/config", "rules.json.swp", "rules.json~", "a/.DS_Store"}
	for _, rel := range ignored {
		if !w.isIgnored(rel) {
			t.Errorf("isIgnored(%q) = false, want true", rel)
		}
	}

	patterns := DefaultPatterns()
	patterns[0] = "changed"
	if DefaultPatterns()[0] == "changed" {
		t.Error("DefaultPatterns() must return a copy")
	}
}
