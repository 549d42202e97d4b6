// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"testing"
)

// RulesPath returns the slash-separated location of a rule document inside a
// content source: assets/<sourceID>/ucwdefs/<name>.
func RulesPath(sourceID, name string) string {
	return path.Join("assets", sourceID, "ucwdefs", name)
}

// WriteDirSource creates a directory content source at dir with the given
// rule documents (name relative to the ucwdefs directory, slash-separated)
// and returns dir.
func WriteDirSource(t testing.TB, dir, sourceID string, docs map[string]string) string {
	t.Helper()
	MustMkdirAll(t, dir, 0o755)
	for _, name := range sortedKeys(docs) {
		target := filepath.Join(dir, filepath.FromSlash(RulesPath(sourceID, name)))
		MustMkdirAll(t, filepath.Dir(target), 0o755)
		if err := os.WriteFile(target, []byte(docs[name]), 0o644); err != nil {
			t.Fatalf("failed to write rule document %s: %v", target, err)
		}
	}
	return dir
}

// ZipEntry is one rule document written by WriteZipEntries.
type ZipEntry struct {
	// Name is relative to the ucwdefs directory, slash-separated.
	Name string
	Data string
}

// WriteZipSource creates a zip (or jar) content source at file with the given
// rule documents in name order and returns file.
func WriteZipSource(t testing.TB, file, sourceID string, docs map[string]string) string {
	t.Helper()
	entries := make([]ZipEntry, 0, len(docs))
	for _, name := range sortedKeys(docs) {
		entries = append(entries, ZipEntry{Name: name, Data: docs[name]})
	}
	return WriteZipEntries(t, file, sourceID, entries...)
}

// WriteZipEntries creates a zip (or jar) content source at file whose
// entries appear in exactly the given order, and returns file. Entries are
// written without explicit directory records, as most build tools do.
func WriteZipEntries(t testing.TB, file, sourceID string, entries ...ZipEntry) string {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(file), 0o755)
	f, err := os.Create(file)
	if err != nil {
		t.Fatalf("failed to create archive %s: %v", file, err)
	}
	defer MustClose(t, f)

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		w, err := zw.Create(RulesPath(sourceID, entry.Name))
		if err != nil {
			t.Fatalf("failed to add %s to archive: %v", entry.Name, err)
		}
		if _, err := w.Write([]byte(entry.Data)); err != nil {
			t.Fatalf("failed to write %s to archive: %v", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish archive %s: %v", file, err)
	}
	return file
}

// MustWriteFile writes data to name, creating parent directories.
func MustWriteFile(t testing.TB, name, data string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(name), 0o755)
	if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func sortedKeys(docs map[string]string) []string {
	return slices.Sorted(maps.Keys(docs))
}
