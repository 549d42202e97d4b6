// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"path/filepath"

	"github.com/chiselworks/ucw/internal/discovery"
)

// ContentSources returns the sources rules are collected from: the explicit
// Sources entries in order, followed by everything found in ModsDir. A
// ModsDir source whose id or path was already listed explicitly is skipped.
func (c *Config) ContentSources() ([]discovery.ContentSource, error) {
	sources := make([]discovery.ContentSource, 0, len(c.Sources))
	seenIDs := make(map[string]bool, len(c.Sources))
	seenPaths := make(map[string]bool, len(c.Sources))

	for _, entry := range c.Sources {
		src := discovery.ContentSource{ID: entry.ID, Path: filepath.Clean(string(entry.Path))}
		sources = append(sources, src)
		seenIDs[src.ID] = true
		seenPaths[src.Path] = true
	}

	if c.ModsDir == "" {
		return sources, nil
	}

	found, err := discovery.SourcesFromDir(string(c.ModsDir))
	if err != nil {
		return nil, fmt.Errorf("scan mods_dir %s: %w", c.ModsDir, err)
	}
	for _, src := range found {
		if seenIDs[src.ID] || seenPaths[filepath.Clean(src.Path)] {
			continue
		}
		sources = append(sources, src)
		seenIDs[src.ID] = true
	}
	return sources, nil
}

// WatchRoots returns the filesystem paths whose changes should trigger a
// reload: every source path, the mods directory and the catalog.
func (c *Config) WatchRoots() []string {
	roots := make([]string, 0, len(c.Sources)+2)
	for _, entry := range c.Sources {
		roots = append(roots, string(entry.Path))
	}
	if c.ModsDir != "" {
		roots = append(roots, string(c.ModsDir))
	}
	if c.Catalog != "" {
		roots = append(roots, string(c.Catalog))
	}
	return roots
}
