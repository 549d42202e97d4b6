// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown-formatted
// troubleshooting notes for the problems ucw reports while loading rules.
//
// Every catalog entry has a stable name ("document-parse-error") used by the
// `ucw issue` command and by ActionableError.Format to point users at it.
package issue
