// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// SourceDirectory is a content source backed by a directory tree.
	SourceDirectory SourceKind = iota
	// SourceArchive is a content source backed by a zip or jar archive.
	SourceArchive

	// AssetsDir is the top-level directory holding per-source assets.
	AssetsDir = "assets"
	// RulesDir is the directory under assets/<source id> holding rule documents.
	RulesDir = "ucwdefs"
	// DocumentExt is the extension of rule documents.
	DocumentExt = ".json"
)

var (
	// ErrInvalidSourceKind is the sentinel error wrapped by InvalidSourceKindError.
	ErrInvalidSourceKind = errors.New("invalid source kind")

	// ErrInvalidContentSource is the sentinel error wrapped by InvalidContentSourceError.
	ErrInvalidContentSource = errors.New("invalid content source")

	// archiveExts are the file extensions treated as content archives.
	archiveExts = []string{".zip", ".jar"}

	errSourceMissing = errors.New("content source does not exist")
)

type (
	// SourceKind tells how a content source is opened.
	SourceKind int

	// InvalidSourceKindError is returned when a SourceKind is out of range.
	InvalidSourceKindError struct {
		Value SourceKind
	}

	// ContentSource is one independently shipped bundle of content that may
	// contain rule documents.
	ContentSource struct {
		// ID names the source; documents are read from assets/<ID>/ucwdefs.
		ID string `json:"id" yaml:"id"`
		// Path is a directory or a zip/jar archive.
		Path string `json:"path" yaml:"path"`
	}

	// InvalidContentSourceError is returned when a ContentSource is malformed.
	InvalidContentSourceError struct {
		Source ContentSource
		Reason string
	}

	// openedSource is a content source opened as a file system.
	openedSource struct {
		ContentSource
		kind    SourceKind
		fsys    fs.FS
		archive *zip.Reader
		closer  io.Closer
	}
)

// String returns a human-readable source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceDirectory:
		return "directory"
	case SourceArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// IsValid returns whether the SourceKind is one of the defined kinds,
// and a list of validation errors if it is not.
func (k SourceKind) IsValid() (bool, []error) {
	switch k {
	case SourceDirectory, SourceArchive:
		return true, nil
	default:
		return false, []error{&InvalidSourceKindError{Value: k}}
	}
}

// Error implements the error interface.
func (e *InvalidSourceKindError) Error() string {
	return fmt.Sprintf("invalid source kind %d", int(e.Value))
}

// Unwrap returns ErrInvalidSourceKind for errors.Is() compatibility.
func (e *InvalidSourceKindError) Unwrap() error { return ErrInvalidSourceKind }

// IsValid returns whether the ContentSource has a usable ID and path,
// and a list of validation errors if it does not.
func (s ContentSource) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, &InvalidContentSourceError{Source: s, Reason: "id must not be empty"})
	} else if strings.ContainsAny(s.ID, `/\`) || s.ID == "." || s.ID == ".." {
		errs = append(errs, &InvalidContentSourceError{Source: s, Reason: "id must be a single path element"})
	}
	if strings.TrimSpace(s.Path) == "" {
		errs = append(errs, &InvalidContentSourceError{Source: s, Reason: "path must not be empty"})
	}
	return len(errs) == 0, errs
}

// RulesRoot returns the slash-separated directory holding the source's rule documents.
func (s ContentSource) RulesRoot() string {
	return path.Join(AssetsDir, s.ID, RulesDir)
}

// Error implements the error interface.
func (e *InvalidContentSourceError) Error() string {
	return fmt.Sprintf("invalid content source %q (%s): %s", e.Source.ID, e.Source.Path, e.Reason)
}

// Unwrap returns ErrInvalidContentSource for errors.Is() compatibility.
func (e *InvalidContentSourceError) Unwrap() error { return ErrInvalidContentSource }

// IsArchive reports whether name has a zip or jar extension.
func IsArchive(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range archiveExts {
		if ext == a {
			return true
		}
	}
	return false
}

// SourcesFromDir turns every sub-directory and archive in dir into a
// ContentSource named after the entry without its extension, in name order.
// A missing dir yields no sources.
func SourcesFromDir(dir string) ([]ContentSource, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list content directory %s: %w", dir, err)
	}

	var sources []ContentSource
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasPrefix(name, "."):
			continue
		case entry.IsDir():
			sources = append(sources, ContentSource{ID: name, Path: filepath.Join(dir, name)})
		case entry.Type().IsRegular() && IsArchive(name):
			sources = append(sources, ContentSource{
				ID:   strings.TrimSuffix(name, filepath.Ext(name)),
				Path: filepath.Join(dir, name),
			})
		}
	}
	return sources, nil
}

// open opens the source as a file system. A source whose path does not exist
// returns errSourceMissing.
func (s ContentSource) open() (*openedSource, error) {
	info, err := os.Stat(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errSourceMissing
	}
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return &openedSource{ContentSource: s, kind: SourceDirectory, fsys: os.DirFS(s.Path)}, nil
	}

	rc, err := zip.OpenReader(s.Path)
	if err != nil {
		return nil, err
	}
	return &openedSource{ContentSource: s, kind: SourceArchive, fsys: &rc.Reader, archive: &rc.Reader, closer: rc}, nil
}

// Close releases the archive handle, if any.
func (o *openedSource) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// displayPath renders a slash-separated path inside the source for humans.
func (o *openedSource) displayPath(name string) string {
	if o.kind == SourceArchive {
		return o.Path + "!/" + name
	}
	return filepath.Join(o.Path, filepath.FromSlash(name))
}

// walkDocuments calls visit for every rule document under root, in the order
// the underlying storage lists them: central-directory order for archives,
// directory order for directory trees (recursing into a sub-directory where
// it is listed). A missing root is silent; listErr receives directories that
// could not be listed. An error from visit stops the walk.
func (o *openedSource) walkDocuments(root string, visit func(name string) error, listErr func(name string, err error)) error {
	if o.kind == SourceArchive {
		return o.walkArchive(root, visit)
	}
	return o.walkDir(root, true, visit, listErr)
}

func (o *openedSource) walkArchive(root string, visit func(name string) error) error {
	prefix := root + "/"
	for _, f := range o.archive.File {
		if !strings.HasPrefix(f.Name, prefix) || strings.HasSuffix(f.Name, "/") || !isDocument(f.Name) {
			continue
		}
		if err := visit(f.Name); err != nil {
			return err
		}
	}
	return nil
}

func (o *openedSource) walkDir(name string, isRoot bool, visit func(name string) error, listErr func(name string, err error)) error {
	f, err := os.Open(filepath.Join(o.Path, filepath.FromSlash(name)))
	if err != nil {
		if isRoot && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		listErr(name, err)
		return nil
	}
	// ReadDir on *os.File keeps the order the file system returns.
	entries, err := f.ReadDir(-1)
	_ = f.Close()
	if err != nil {
		listErr(name, err)
	}

	for _, entry := range entries {
		child := path.Join(name, entry.Name())
		switch {
		case entry.IsDir():
			if err := o.walkDir(child, false, visit, listErr); err != nil {
				return err
			}
		case isDocument(child):
			if err := visit(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func isDocument(name string) bool {
	return strings.EqualFold(path.Ext(name), DocumentExt)
}
