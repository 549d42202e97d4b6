// SPDX-License-Identifier: MPL-2.0

package ucwdef

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse is the sentinel error wrapped by ParseError.
	ErrParse = errors.New("rule parse error")

	// ErrUnresolvedReference is the sentinel error wrapped by UnresolvedReferenceError.
	ErrUnresolvedReference = errors.New("unresolved reference")
)

type (
	// ParseError reports a malformed document or rule object.
	// Index is the position of the rule inside the "blocks" array, or -1 when
	// the whole document is affected.
	ParseError struct {
		Path   string
		Index  int
		Reason string
		Cause  error
	}

	// UnresolvedReferenceError reports a rule reference that the host
	// namespace does not know.
	UnresolvedReferenceError struct {
		Path  string
		Index int
		// Field is the rule field holding the reference ("from", "through", "basedUpon").
		Field string
		Ref   string
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Path)
	if e.Index >= 0 {
		fmt.Fprintf(&sb, ": blocks[%d]", e.Index)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Cause}
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: blocks[%d]: %s references unknown block %q", e.Path, e.Index, e.Field, e.Ref)
}

// Unwrap returns ErrUnresolvedReference for errors.Is() compatibility.
func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedReference }
