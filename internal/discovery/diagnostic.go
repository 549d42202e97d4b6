// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

const (
	// SeverityWarning indicates a recoverable collection warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal collection error diagnostic.
	SeverityError Severity = "error"

	// CodeSourceOpenFailed means a content source could not be opened.
	CodeSourceOpenFailed DiagnosticCode = "source_open_failed"
	// CodeSourceWalkFailed means a directory inside a content source could not be listed.
	CodeSourceWalkFailed DiagnosticCode = "source_walk_failed"
	// CodeDocumentReadFailed means a rule document could not be read.
	CodeDocumentReadFailed DiagnosticCode = "document_read_failed"
	// CodeDocumentParseFailed means a rule document was rejected as a whole.
	CodeDocumentParseFailed DiagnosticCode = "document_parse_failed"
	// CodeRuleParseFailed means one rule object was malformed.
	CodeRuleParseFailed DiagnosticCode = "rule_parse_failed"
	// CodeRuleUnresolvedReference means one rule referenced an unknown block.
	CodeRuleUnresolvedReference DiagnosticCode = "rule_unresolved_reference"
	// CodeRuleDuplicate means a rule was ignored because an equal rule came first.
	CodeRuleDuplicate DiagnosticCode = "rule_duplicate"
	// CodeRuleGeneratedIDCollision means a rule was ignored because another
	// rule already generates one of its identifiers.
	CodeRuleGeneratedIDCollision DiagnosticCode = "rule_generated_id_collision"
)

var (
	// ErrInvalidSeverity is the sentinel error wrapped by InvalidSeverityError.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")

	// ErrInvalidDiagnosticCode is the sentinel error wrapped by InvalidDiagnosticCodeError.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")
)

type (
	// Severity represents collection diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// InvalidSeverityError is returned when a Severity is not recognized.
	InvalidSeverityError struct {
		Value Severity
	}

	// InvalidDiagnosticCodeError is returned when a DiagnosticCode is not recognized.
	InvalidDiagnosticCodeError struct {
		Value DiagnosticCode
	}

	// Diagnostic represents a structured collection diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity `json:"severity" yaml:"severity"`
		// Code is a machine-readable identifier (e.g., "rule_duplicate").
		Code DiagnosticCode `json:"code" yaml:"code"`
		// Message is the human-readable description.
		Message string `json:"message" yaml:"message"`
		// Path is the source or document path associated with this diagnostic (optional).
		Path string `json:"path,omitempty" yaml:"path,omitempty"`
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error `json:"-" yaml:"-"`
	}
)

// NewDiagnostic creates a Diagnostic without a path or cause.
func NewDiagnostic(severity Severity, code DiagnosticCode, message string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message}
}

// NewDiagnosticWithPath creates a Diagnostic bound to a path.
func NewDiagnosticWithPath(severity Severity, code DiagnosticCode, message, path string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path}
}

// NewDiagnosticWithCause creates a Diagnostic bound to a path and an underlying error.
func NewDiagnosticWithCause(severity Severity, code DiagnosticCode, message, path string, cause error) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path, Cause: cause}
}

// IsValid returns whether the Severity is one of the defined levels,
// and a list of validation errors if it is not.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{&InvalidSeverityError{Value: s}}
	}
}

// String returns the string representation of the DiagnosticCode.
func (c DiagnosticCode) String() string { return string(c) }

// IsValid returns whether the DiagnosticCode is one of the defined codes,
// and a list of validation errors if it is not.
func (c DiagnosticCode) IsValid() (bool, []error) {
	switch c {
	case CodeSourceOpenFailed, CodeSourceWalkFailed,
		CodeDocumentReadFailed, CodeDocumentParseFailed,
		CodeRuleParseFailed, CodeRuleUnresolvedReference,
		CodeRuleDuplicate, CodeRuleGeneratedIDCollision:
		return true, nil
	default:
		return false, []error{&InvalidDiagnosticCodeError{Value: c}}
	}
}

// Error implements the error interface.
func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid diagnostic severity %q (valid: warning, error)", e.Value)
}

// Unwrap returns ErrInvalidSeverity for errors.Is() compatibility.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }

// Error implements the error interface.
func (e *InvalidDiagnosticCodeError) Error() string {
	return fmt.Sprintf("invalid diagnostic code %q", e.Value)
}

// Unwrap returns ErrInvalidDiagnosticCode for errors.Is() compatibility.
func (e *InvalidDiagnosticCodeError) Unwrap() error { return ErrInvalidDiagnosticCode }

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
