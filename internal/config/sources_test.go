// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/chiselworks/ucw/internal/discovery"
	"github.com/chiselworks/ucw/internal/testutil"
)

func TestConfig_ContentSources(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	modsDir := filepath.Join(root, "mods")
	if err := os.MkdirAll(filepath.Join(modsDir, "zeta"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(modsDir, "base"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testutil.MustWriteFile(t, filepath.Join(modsDir, "alpha.jar"), "not really a jar")
	testutil.MustWriteFile(t, filepath.Join(modsDir, "readme.txt"), "ignored")

	explicit := filepath.Join(root, "packs", "base")
	cfg := DefaultConfig()
	cfg.Sources = []SourceEntry{{ID: "base", Path: FilesystemPath(explicit)}}
	cfg.ModsDir = FilesystemPath(modsDir)

	sources, err := cfg.ContentSources()
	if err != nil {
		t.Fatalf("ContentSources() returned error: %v", err)
	}

	want := []discovery.ContentSource{
		{ID: "base", Path: explicit},
		{ID: "alpha", Path: filepath.Join(modsDir, "alpha.jar")},
		{ID: "zeta", Path: filepath.Join(modsDir, "zeta")},
	}
	if !slices.Equal(sources, want) {
		t.Errorf("ContentSources() = %+v, want %+v", sources, want)
	}
}

func TestConfig_ContentSources_MissingModsDir(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ModsDir = FilesystemPath(filepath.Join(t.TempDir(), "absent"))

	sources, err := cfg.ContentSources()
	if err != nil {
		t.Fatalf("ContentSources() returned error: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %+v", sources)
	}
}

func TestConfig_WatchRoots(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Sources = []SourceEntry{{ID: "a", Path: "packs/a"}}
	cfg.ModsDir = "mods"

	want := []string{"packs/a", "mods", "catalog.toml"}
	if got := cfg.WatchRoots(); !slices.Equal(got, want) {
		t.Errorf("WatchRoots() = %v, want %v", got, want)
	}
}

func TestProvider_Load(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: FilesystemPath(t.TempDir())})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Namespace != DefaultConfig().Namespace {
		t.Errorf("Namespace = %s, want default", cfg.Namespace)
	}
}
