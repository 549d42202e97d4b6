// SPDX-License-Identifier: MPL-2.0

// Package discovery collects rule documents from content sources and feeds
// the accepted rules into a ruleset.RuleSet.
//
// A content source is either a directory or a zip/jar archive. Rule documents
// live under assets/<source id>/ucwdefs inside the source and may be nested in
// sub-directories. Every problem below the source level (unreadable files,
// malformed documents, invalid or duplicate rules) is reported as a
// Diagnostic and never aborts collection.
//
// File organization:
//   - diagnostic.go: Severity, DiagnosticCode and Diagnostic
//   - source.go: ContentSource, source kinds and archive handling
//   - collector.go: Collector and Report
package discovery
