// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	// ErrValidation is the sentinel error wrapped by ValidationError.
	ErrValidation = errors.New("schema validation failed")

	// ErrFileTooLarge is the sentinel error wrapped by FileTooLargeError.
	ErrFileTooLarge = errors.New("file too large")
)

type (
	// FieldError is one schema violation at a JSON path such as
	// "blocks[0].from" or "sources[1].id". Path is empty when CUE did not
	// attribute the problem to a field.
	FieldError struct {
		Path    string
		Message string
	}

	// ValidationError collects every schema violation found in one file.
	// Cause is the original CUE error, or the non-CUE error that was wrapped.
	ValidationError struct {
		File   string
		Fields []FieldError
		Cause  error
	}

	// FileTooLargeError is returned when input exceeds the configured limit.
	FileTooLargeError struct {
		File string
		Size int64
		Max  int64
	}
)

// FormatError turns a CUE error into a *ValidationError whose message uses
// JSON-path field names:
//
//	stone.json#blocks[0]: group: conflicting values 1 and string
//	config.cue: validation failed:
//	  sources[0].id: incomplete value string
//	  log.level: 2 errors in empty disjunction
//
// Config loading decodes into a map rather than through a Schema, so this is
// exported for it.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	verr := &ValidationError{File: filePath, Cause: err}
	for _, e := range cueerrors.Errors(err) {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		// CUE sometimes repeats the path at the front of the message.
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		verr.Fields = append(verr.Fields, FieldError{Path: path, Message: msg})
	}
	return verr
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return fmt.Sprintf("%s: %v", e.File, e.Cause)
	case 1:
		return e.File + ": " + e.Fields[0].String()
	}
	lines := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		lines = append(lines, f.String())
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrValidation and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Cause}
}

// String returns "path: message", or the message alone when Path is empty.
func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// formatPath renders a CUE error path (e.g. ["blocks", "0", "from"]) in
// JSON-path notation ("blocks[0].from").
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// CheckFileSize returns a *FileTooLargeError when data exceeds maxSize.
// A non-positive maxSize disables the check.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if maxSize > 0 && int64(len(data)) > maxSize {
		return &FileTooLargeError{File: filename, Size: int64(len(data)), Max: maxSize}
	}
	return nil
}

// Error implements the error interface.
func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s: file size %d bytes exceeds maximum %d bytes", e.File, e.Size, e.Max)
}

// Unwrap returns ErrFileTooLarge for errors.Is() compatibility.
func (e *FileTooLargeError) Unwrap() error { return ErrFileTooLarge }
