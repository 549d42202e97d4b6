// SPDX-License-Identifier: MPL-2.0

// Package variation expands accepted rules into variation families: named
// groups of interchangeable item stacks that an external "chisel"-style
// registrar consumes.
package variation

import (
	"fmt"
	"strconv"

	"github.com/chiselworks/ucw/pkg/ucwdef"
)

type (
	// ItemSource turns host content into concrete item stacks.
	ItemSource interface {
		// SourceStack returns the stack a source sub-variant drops as an item.
		SourceStack(state ucwdef.StateRef) ucwdef.ItemStack
		// SubItems enumerates the item's sub-items in host order.
		SubItems(item *ucwdef.ItemDef) []ucwdef.ItemStack
	}

	// Registrar receives variation family members.
	Registrar interface {
		AddVariation(group string, stack ucwdef.ItemStack) error
	}

	// Family is one named group of interchangeable item stacks.
	Family struct {
		Key     string             `json:"key" yaml:"key"`
		Members []ucwdef.ItemStack `json:"members" yaml:"members"`
	}

	// RegistrarFunc adapts a function to the Registrar interface.
	RegistrarFunc func(group string, stack ucwdef.ItemStack) error
)

// AddVariation calls f.
func (f RegistrarFunc) AddVariation(group string, stack ucwdef.ItemStack) error {
	return f(group, stack)
}

// GroupKey names the family of the variant at index. Rules with a single
// from slot use their group as is; otherwise the index is appended.
func GroupKey(rule *ucwdef.Rule, index int) string {
	if rule.FromCount == 1 {
		return rule.Group
	}
	return rule.Group + "_" + strconv.Itoa(index)
}

// Expand builds the variation families of rules, in rule order and then
// ascending variant index. Families with the same key merge; a stack appears
// at most once per family, at its first position.
func Expand(rules []*ucwdef.Rule, items ItemSource) []Family {
	var (
		families []Family
		byKey    = make(map[string]int)
		seen     = make(map[string]map[ucwdef.ItemStack]struct{})
	)

	add := func(key string, stack ucwdef.ItemStack) {
		pos, ok := byKey[key]
		if !ok {
			pos = len(families)
			byKey[key] = pos
			families = append(families, Family{Key: key})
			seen[key] = make(map[ucwdef.ItemStack]struct{})
		}
		if _, dup := seen[key][stack]; dup {
			return
		}
		seen[key][stack] = struct{}{}
		families[pos].Members = append(families[pos].Members, stack)
	}

	for _, rule := range rules {
		for _, i := range rule.Indices() {
			factory := rule.Factories[i]
			if factory == nil {
				continue
			}
			key := GroupKey(rule, i)
			add(key, items.SourceStack(*rule.From[i]))
			for _, stack := range items.SubItems(factory.Item) {
				add(key, stack)
			}
		}
	}
	return families
}

// Publish hands every family member to reg, in order. It stops at the first
// registrar error.
func Publish(families []Family, reg Registrar) error {
	for _, f := range families {
		for _, stack := range f.Members {
			if err := reg.AddVariation(f.Key, stack); err != nil {
				return fmt.Errorf("failed to add %s to variation group %q: %w", stack, f.Key, err)
			}
		}
	}
	return nil
}

// Find returns the family with the given key.
func Find(families []Family, key string) (Family, bool) {
	for _, f := range families {
		if f.Key == key {
			return f, true
		}
	}
	return Family{}, false
}
