// SPDX-License-Identifier: MPL-2.0

// Package ucwdef provides types and parsing for ucwdefs rule documents.
//
// A rule document is a JSON object whose optional "blocks" array holds rule
// objects. Each rule maps one existing source block (the parent) onto a family
// of generated blocks that mirror the variants of a "through" block. Parsing
// resolves every reference against a host namespace (see Resolver) and yields
// immutable Rule values whose ObjectFactory pairs are ready for registration.
//
// File organization:
//   - identifier.go: Identifier, StateRef and ItemStack value types
//   - rule.go: Rule, ObjectFactory, BlockDef, ItemDef and rule identity
//   - parse.go: ParseDocument and the per-rule builder
//   - errors.go: ParseError and UnresolvedReferenceError
package ucwdef
