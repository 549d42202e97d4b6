// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE schema utilities.
//
// Rule objects and configuration files are validated the same way:
//
//  1. Compile the embedded schema once (Compile)
//  2. Extract user JSON or CUE into the schema's context and unify it with a
//     root definition
//  3. Validate and decode to a Go struct
//
// # Usage
//
//	//go:embed ucwdef_schema.cue
//	var schemaSource string
//
//	schema, err := cueutil.Compile(schemaSource, "#Rule")
//	if err != nil {
//	    return err
//	}
//	rule, err := cueutil.DecodeJSON[ruleObject](schema, raw, cueutil.WithFilename(path))
//
// A Schema owns a *cue.Context and is not safe for concurrent use.
package cueutil
