// SPDX-License-Identifier: MPL-2.0

// Package ruleset holds the deduplicated, insertion-ordered set of accepted
// rules for one load cycle.
package ruleset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chiselworks/ucw/pkg/ucwdef"
)

const (
	// Added means the rule was accepted.
	Added AddResult = iota
	// Duplicate means a structurally equal rule was already present.
	Duplicate
	// Collision means a different rule already claimed one of the generated
	// identifiers.
	Collision
)

var (
	// ErrDuplicateRule is the sentinel error wrapped by DuplicateRuleError.
	ErrDuplicateRule = errors.New("duplicate rule")

	// ErrGeneratedIDCollision is the sentinel error wrapped by CollisionError.
	ErrGeneratedIDCollision = errors.New("generated identifier collision")
)

type (
	// AddResult is the outcome of RuleSet.Add.
	AddResult int

	// DuplicateRuleError describes a rule that was ignored because an equal
	// rule was added first.
	DuplicateRuleError struct {
		Rule     *ucwdef.Rule
		Existing *ucwdef.Rule
	}

	// CollisionError describes a rule that was ignored because one of its
	// generated identifiers belongs to an earlier, different rule.
	CollisionError struct {
		Rule     *ucwdef.Rule
		Existing *ucwdef.Rule
		ID       ucwdef.Identifier
	}

	// RuleSet is an insertion-ordered set of rules keyed by structural
	// identity. It is not safe for concurrent use.
	RuleSet struct {
		rules  []*ucwdef.Rule
		byKey  map[string]*ucwdef.Rule
		claims map[ucwdef.Identifier]*ucwdef.Rule
	}
)

// New returns an empty RuleSet.
func New() *RuleSet {
	return &RuleSet{
		byKey:  make(map[string]*ucwdef.Rule),
		claims: make(map[ucwdef.Identifier]*ucwdef.Rule),
	}
}

// String returns the result name.
func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case Duplicate:
		return "duplicate"
	case Collision:
		return "collision"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Reset removes every rule.
func (s *RuleSet) Reset() {
	s.rules = nil
	clear(s.byKey)
	clear(s.claims)
}

// Add inserts rule unless an equal rule is present or one of its generated
// identifiers is already claimed. The first rule always wins; the returned
// error describes the ignored rule and is nil when the rule was added.
func (s *RuleSet) Add(rule *ucwdef.Rule) (AddResult, error) {
	key := rule.Key()
	if existing, ok := s.byKey[key]; ok {
		return Duplicate, &DuplicateRuleError{Rule: rule, Existing: existing}
	}
	ids := rule.GeneratedIDs()
	for _, id := range ids {
		if existing, ok := s.claims[id]; ok {
			return Collision, &CollisionError{Rule: rule, Existing: existing, ID: id}
		}
	}

	s.rules = append(s.rules, rule)
	s.byKey[key] = rule
	for _, id := range ids {
		s.claims[id] = rule
	}
	return Added, nil
}

// Contains reports whether a rule equal to rule is present.
func (s *RuleSet) Contains(rule *ucwdef.Rule) bool {
	_, ok := s.byKey[rule.Key()]
	return ok
}

// Owner returns the rule that generated id, if any.
func (s *RuleSet) Owner(id ucwdef.Identifier) (*ucwdef.Rule, bool) {
	rule, ok := s.claims[id]
	return rule, ok
}

// Rules returns the rules in insertion order. The slice is a copy.
func (s *RuleSet) Rules() []*ucwdef.Rule {
	return slices.Clone(s.rules)
}

// Len returns the number of rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// Keys returns the structural keys in insertion order.
func (s *RuleSet) Keys() []string {
	keys := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		keys = append(keys, r.Key())
	}
	return keys
}

// Error implements the error interface.
func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("%s (%s[%d]) duplicates %s (%s[%d])",
		e.Rule, e.Rule.Origin.Path, e.Rule.Origin.Index,
		e.Existing, e.Existing.Origin.Path, e.Existing.Origin.Index)
}

// Unwrap returns ErrDuplicateRule for errors.Is() compatibility.
func (e *DuplicateRuleError) Unwrap() error { return ErrDuplicateRule }

// Error implements the error interface.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s (%s[%d]) generates %s, already generated by %s (%s[%d])",
		e.Rule, e.Rule.Origin.Path, e.Rule.Origin.Index, e.ID,
		e.Existing, e.Existing.Origin.Path, e.Existing.Origin.Index)
}

// Unwrap returns ErrGeneratedIDCollision for errors.Is() compatibility.
func (e *CollisionError) Unwrap() error { return ErrGeneratedIDCollision }
