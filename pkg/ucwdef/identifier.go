// SPDX-License-Identifier: MPL-2.0

package ucwdef

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultNamespace is assumed when an identifier omits its namespace.
	DefaultNamespace = "minecraft"

	// WildcardMeta addresses every sub-variant of a block in tag queries.
	WildcardMeta = 32767

	// stateSeparator separates a block identifier from its metadata value.
	stateSeparator = "#"
)

var (
	// ErrInvalidIdentifier is the sentinel error wrapped by InvalidIdentifierError.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidStateRef is the sentinel error wrapped by InvalidStateRefError.
	ErrInvalidStateRef = errors.New("invalid state reference")

	namespacePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)
	pathPattern      = regexp.MustCompile(`^[a-z0-9_./-]+$`)
)

type (
	// Identifier names one piece of content as "namespace:path".
	Identifier string

	// InvalidIdentifierError is returned when an Identifier is malformed.
	// It wraps ErrInvalidIdentifier for errors.Is() compatibility.
	InvalidIdentifierError struct {
		Value  Identifier
		Reason string
	}

	// StateRef is one concrete sub-variant of a block, addressed by its
	// metadata value.
	StateRef struct {
		Block Identifier `json:"block" yaml:"block"`
		Meta  int        `json:"meta" yaml:"meta"`
	}

	// InvalidStateRefError is returned when a textual state reference cannot
	// be parsed. It wraps ErrInvalidStateRef for errors.Is() compatibility.
	InvalidStateRefError struct {
		Value  string
		Reason string
	}

	// ItemStack is a concrete item representation: one item at one metadata value.
	ItemStack struct {
		Item  Identifier `json:"item" yaml:"item"`
		Meta  int        `json:"meta" yaml:"meta"`
		Count int        `json:"count" yaml:"count"`
	}
)

// ParseIdentifier normalizes s into an Identifier, defaulting the namespace
// to DefaultNamespace, and validates the result.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if s != "" && !strings.Contains(s, ":") {
		s = DefaultNamespace + ":" + s
	}
	id := Identifier(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// String returns the string representation of the Identifier.
func (id Identifier) String() string { return string(id) }

// Namespace returns the part before the colon.
func (id Identifier) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ":")
	return ns
}

// Path returns the part after the colon.
func (id Identifier) Path() string {
	_, path, _ := strings.Cut(string(id), ":")
	return path
}

// Validate returns nil when the Identifier has a lower-case namespace and path
// separated by exactly one colon.
func (id Identifier) Validate() error {
	ns, path, ok := strings.Cut(string(id), ":")
	switch {
	case id == "":
		return &InvalidIdentifierError{Value: id, Reason: "must be non-empty"}
	case !ok:
		return &InvalidIdentifierError{Value: id, Reason: "missing namespace separator"}
	case !namespacePattern.MatchString(ns):
		return &InvalidIdentifierError{Value: id, Reason: "namespace must match [a-z0-9_.-]+"}
	case !pathPattern.MatchString(path):
		return &InvalidIdentifierError{Value: id, Reason: "path must match [a-z0-9_./-]+"}
	}
	return nil
}

// IsValid returns whether the Identifier is well-formed, and a list of
// validation errors if it is not.
func (id Identifier) IsValid() (bool, []error) {
	if err := id.Validate(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidIdentifier for errors.Is() compatibility.
func (e *InvalidIdentifierError) Unwrap() error { return ErrInvalidIdentifier }

// ParseStateRef parses "namespace:path#meta". A reference without "#meta"
// reports hasMeta=false and Meta 0.
func ParseStateRef(s string) (ref StateRef, hasMeta bool, err error) {
	idPart, metaPart, hasMeta := strings.Cut(strings.TrimSpace(s), stateSeparator)
	id, err := ParseIdentifier(idPart)
	if err != nil {
		return StateRef{}, false, &InvalidStateRefError{Value: s, Reason: err.Error()}
	}
	ref.Block = id
	if !hasMeta {
		return ref, false, nil
	}
	meta, err := strconv.Atoi(metaPart)
	if err != nil || meta < 0 || meta >= WildcardMeta {
		return StateRef{}, false, &InvalidStateRefError{Value: s, Reason: "metadata must be an integer in [0, 32767)"}
	}
	ref.Meta = meta
	return ref, true, nil
}

// String returns the "namespace:path#meta" form.
func (r StateRef) String() string {
	return string(r.Block) + stateSeparator + strconv.Itoa(r.Meta)
}

// Error implements the error interface.
func (e *InvalidStateRefError) Error() string {
	return fmt.Sprintf("invalid state reference %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidStateRef for errors.Is() compatibility.
func (e *InvalidStateRefError) Unwrap() error { return ErrInvalidStateRef }

// String returns "item#meta" (the count is omitted when it is 1).
func (s ItemStack) String() string {
	str := string(s.Item) + stateSeparator + strconv.Itoa(s.Meta)
	if s.Count != 1 {
		str += " x" + strconv.Itoa(s.Count)
	}
	return str
}
