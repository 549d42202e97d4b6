// SPDX-License-Identifier: MPL-2.0

// Package engine binds collected rules to a host: it owns the RuleSet and
// walks one load cycle through its phases.
//
//	Empty → Collecting → Collected → BlocksDeclared → ItemsDeclared → TagsMirrored
//
// Each transition is triggered by one method (Collect, DeclareBlocks,
// DeclareItems, Initialize); Run calls them in order. Reload may be invoked
// from Empty, Collected or TagsMirrored and always rebuilds the RuleSet from
// scratch. A registration error from the host is returned to the caller and
// moves the engine to the terminal Failed phase.
package engine
