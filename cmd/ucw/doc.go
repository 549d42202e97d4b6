// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the ucw command line.
//
// Every command loads the configuration, builds a host namespace from the
// block catalog, and drives an engine through some or all of its lifecycle
// phases. Output goes through the App so tests can capture it.
package cmd
