// SPDX-License-Identifier: MPL-2.0

package ucwdef

import (
	"slices"
	"strconv"
	"strings"
)

// DefaultGeneratedNamespace is the namespace given to generated content when
// ParseOptions does not name one.
const DefaultGeneratedNamespace = "unlimitedchiselworks"

type (
	// BlockInfo is what the host namespace knows about an existing block.
	BlockInfo struct {
		ID Identifier
		// Variants are the metadata values the block defines, in host order.
		Variants []int
	}

	// Resolver looks up existing content in the host namespace.
	Resolver interface {
		LookupBlock(id Identifier) (BlockInfo, bool)
	}

	// BlockDef is one generated block-like definition.
	BlockDef struct {
		ID        Identifier `json:"id" yaml:"id"`
		Source    StateRef   `json:"source" yaml:"source"`
		Through   Identifier `json:"through" yaml:"through"`
		BasedUpon StateRef   `json:"basedUpon" yaml:"basedUpon"`
		// Variants mirror the sub-variants of the through block.
		Variants []int `json:"variants" yaml:"variants"`
	}

	// ItemDef is the item-like companion of a BlockDef.
	ItemDef struct {
		ID    Identifier `json:"id" yaml:"id"`
		Block Identifier `json:"block" yaml:"block"`
		// Variants are the metadata values of the item's enumerable sub-items.
		Variants []int `json:"variants" yaml:"variants"`
	}

	// ObjectFactory pairs one generated block with its item. Both halves are
	// mandatory.
	ObjectFactory struct {
		Block *BlockDef `json:"block" yaml:"block"`
		Item  *ItemDef  `json:"item" yaml:"item"`
	}

	// Origin records where a rule came from. It never participates in rule
	// identity.
	Origin struct {
		SourceID string `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
		Path     string `json:"path" yaml:"path"`
		Index    int    `json:"index" yaml:"index"`
	}

	// Rule maps one source block onto a family of generated blocks.
	// A Rule is immutable once ParseDocument returns it.
	Rule struct {
		Source    Identifier `json:"source" yaml:"source"`
		Group     string     `json:"group" yaml:"group"`
		Through   Identifier `json:"through" yaml:"through"`
		BasedUpon StateRef   `json:"basedUpon" yaml:"basedUpon"`
		// From holds the parent sub-variants by index; nil marks an empty slot.
		From []*StateRef `json:"from" yaml:"from"`
		// FromCount is len(From) including empty slots.
		FromCount int `json:"fromCount" yaml:"fromCount"`
		// Factories is keyed by From index and has an entry for every non-nil slot.
		Factories map[int]*ObjectFactory `json:"factories" yaml:"factories"`
		Origin    Origin                 `json:"origin" yaml:"origin"`
	}
)

// GeneratedID derives the identifier of the block generated from one source
// state rendered through another block.
func GeneratedID(namespace string, through Identifier, from StateRef) Identifier {
	var sb strings.Builder
	sb.WriteString(namespace)
	sb.WriteByte(':')
	sb.WriteString(flatten(through))
	sb.WriteString("__")
	sb.WriteString(flatten(from.Block))
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(from.Meta))
	return Identifier(sb.String())
}

func flatten(id Identifier) string {
	return strings.NewReplacer("/", "_", ".", "_").Replace(id.Namespace() + "_" + id.Path())
}

// IsValid reports whether the factory holds both halves and the item points
// at its block.
func (f *ObjectFactory) IsValid() bool {
	return f != nil && f.Block != nil && f.Item != nil && f.Item.Block == f.Block.ID
}

// Indices returns the indices of the non-empty From slots in ascending order.
func (r *Rule) Indices() []int {
	indices := make([]int, 0, len(r.Factories))
	for i, state := range r.From {
		if state != nil {
			indices = append(indices, i)
		}
	}
	return indices
}

// GeneratedIDs returns the generated block identifiers in ascending index order.
func (r *Rule) GeneratedIDs() []Identifier {
	ids := make([]Identifier, 0, len(r.Factories))
	for _, i := range r.Indices() {
		if f := r.Factories[i]; f != nil && f.Block != nil {
			ids = append(ids, f.Block.ID)
		}
	}
	return ids
}

// OrderedFactories returns the factories in ascending index order.
func (r *Rule) OrderedFactories() []*ObjectFactory {
	keys := make([]int, 0, len(r.Factories))
	for i := range r.Factories {
		keys = append(keys, i)
	}
	slices.Sort(keys)
	factories := make([]*ObjectFactory, 0, len(keys))
	for _, i := range keys {
		factories = append(factories, r.Factories[i])
	}
	return factories
}

// Key is the structural identity of a rule: the source identifier followed by
// every generated identifier with its variant index. Two rules with equal
// keys are the same rule.
func (r *Rule) Key() string {
	var sb strings.Builder
	sb.WriteString(string(r.Source))
	for _, i := range r.Indices() {
		f := r.Factories[i]
		if f == nil || f.Block == nil {
			continue
		}
		sb.WriteByte('|')
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte('=')
		sb.WriteString(string(f.Block.ID))
	}
	return sb.String()
}

// Equal reports structural equality (see Key).
func (r *Rule) Equal(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Key() == other.Key()
}

// IsValid reports whether the rule can be registered: a resolvable source and
// group, at least one usable variant, and a complete factory for every
// non-empty slot.
func (r *Rule) IsValid() bool {
	if r == nil || r.Source.Validate() != nil || strings.TrimSpace(r.Group) == "" {
		return false
	}
	indices := r.Indices()
	if len(indices) == 0 || len(indices) != len(r.Factories) {
		return false
	}
	for _, i := range indices {
		if !r.Factories[i].IsValid() {
			return false
		}
	}
	return true
}

// String returns a compact human-readable description.
func (r *Rule) String() string {
	return "Rule{source=" + string(r.Source) + ", group=" + r.Group + ", through=" + string(r.Through) +
		", variants=" + strconv.Itoa(len(r.Factories)) + "/" + strconv.Itoa(r.FromCount) + "}"
}
