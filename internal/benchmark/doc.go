// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a resource load:
//   - rule document parsing and schema validation
//   - content source collection from directories and archives
//   - configuration loading
//   - the end-to-end lifecycle against an in-memory host
//
// To generate a profile, run:
//
//	go test -run='^$' -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
