// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PhaseEmpty is the initial phase: no rules are loaded.
	PhaseEmpty Phase = iota
	// PhaseCollecting indicates rule documents are being read.
	PhaseCollecting
	// PhaseCollected indicates the RuleSet is complete and read-only.
	PhaseCollected
	// PhaseBlocksDeclared indicates every generated block was registered.
	PhaseBlocksDeclared
	// PhaseItemsDeclared indicates every generated item was registered.
	PhaseItemsDeclared
	// PhaseTagsMirrored indicates variations were published and tags mirrored.
	PhaseTagsMirrored
	// PhaseFailed indicates a host registry rejected a registration (terminal state).
	PhaseFailed
)

// ErrPhaseOrder is the sentinel error wrapped by PhaseError.
var ErrPhaseOrder = errors.New("operation not allowed in current phase")

type (
	// Phase is the lifecycle phase of one load cycle.
	Phase int32

	// PhaseError is returned when an operation is invoked out of order or
	// while another operation is still running.
	PhaseError struct {
		Op      string
		Current Phase
		Allowed []Phase
		// Busy is set when another operation was in progress.
		Busy bool
	}
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseCollecting:
		return "collecting"
	case PhaseCollected:
		return "collected"
	case PhaseBlocksDeclared:
		return "blocks_declared"
	case PhaseItemsDeclared:
		return "items_declared"
	case PhaseTagsMirrored:
		return "tags_mirrored"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *PhaseError) Error() string {
	if e.Busy {
		return fmt.Sprintf("%s: another operation is in progress (phase %s)", e.Op, e.Current)
	}
	allowed := make([]string, 0, len(e.Allowed))
	for _, p := range e.Allowed {
		allowed = append(allowed, p.String())
	}
	return fmt.Sprintf("%s: not allowed in phase %s (allowed: %s)", e.Op, e.Current, strings.Join(allowed, ", "))
}

// Unwrap returns ErrPhaseOrder for errors.Is() compatibility.
func (e *PhaseError) Unwrap() error { return ErrPhaseOrder }
