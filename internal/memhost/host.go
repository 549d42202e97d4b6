// SPDX-License-Identifier: MPL-2.0

package memhost

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chiselworks/ucw/pkg/ucwdef"
)

var (
	// ErrDuplicateRegistration is returned when an identifier is registered twice.
	ErrDuplicateRegistration = errors.New("duplicate registration")

	// ErrUnknownBlock is returned when an item or tag refers to a block that
	// was never registered.
	ErrUnknownBlock = errors.New("unknown block")
)

type (
	// Host is an in-memory host namespace. It implements ucwdef.Resolver,
	// the engine registries, variation.ItemSource and variation.Registrar.
	// It is not safe for concurrent use.
	Host struct {
		catalog    map[ucwdef.Identifier]*block
		blocks     map[ucwdef.Identifier]*ucwdef.BlockDef
		blockOrder []ucwdef.Identifier
		items      map[ucwdef.Identifier]*ucwdef.ItemDef
		itemOrder  []ucwdef.Identifier
		tags       map[string][]ucwdef.Identifier
		variations []Variation
	}

	// Variation is one member handed to the variation registrar.
	Variation struct {
		Group string           `json:"group" yaml:"group"`
		Stack ucwdef.ItemStack `json:"stack" yaml:"stack"`
	}

	// Stats counts what has been registered.
	Stats struct {
		CatalogBlocks int `json:"catalogBlocks" yaml:"catalogBlocks"`
		Blocks        int `json:"blocks" yaml:"blocks"`
		Items         int `json:"items" yaml:"items"`
		Tags          int `json:"tags" yaml:"tags"`
		TagEntries    int `json:"tagEntries" yaml:"tagEntries"`
		Variations    int `json:"variations" yaml:"variations"`
	}
)

// New creates a Host from a catalog.
func New(c *Catalog) (*Host, error) {
	blocks, err := c.compile("<catalog>")
	if err != nil {
		return nil, err
	}
	h := &Host{
		catalog: make(map[ucwdef.Identifier]*block, len(blocks)),
		blocks:  make(map[ucwdef.Identifier]*ucwdef.BlockDef),
		items:   make(map[ucwdef.Identifier]*ucwdef.ItemDef),
		tags:    make(map[string][]ucwdef.Identifier),
	}
	for _, b := range blocks {
		h.catalog[b.id] = b
	}
	return h, nil
}

// Load reads a catalog file and creates a Host from it.
func Load(path string) (*Host, error) {
	c, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return New(c)
}

// LookupBlock implements ucwdef.Resolver for catalog blocks.
func (h *Host) LookupBlock(id ucwdef.Identifier) (ucwdef.BlockInfo, bool) {
	b, ok := h.catalog[id]
	if !ok {
		return ucwdef.BlockInfo{}, false
	}
	return ucwdef.BlockInfo{ID: b.id, Variants: slices.Clone(b.variants)}, true
}

// RegisterBlock adds a generated block.
func (h *Host) RegisterBlock(def *ucwdef.BlockDef) error {
	if err := def.ID.Validate(); err != nil {
		return err
	}
	if _, ok := h.catalog[def.ID]; ok {
		return fmt.Errorf("block %s: %w (already in catalog)", def.ID, ErrDuplicateRegistration)
	}
	if _, ok := h.blocks[def.ID]; ok {
		return fmt.Errorf("block %s: %w", def.ID, ErrDuplicateRegistration)
	}
	h.blocks[def.ID] = def
	h.blockOrder = append(h.blockOrder, def.ID)
	return nil
}

// RegisterItem adds the item of a registered generated block.
func (h *Host) RegisterItem(def *ucwdef.ItemDef) error {
	if _, ok := h.blocks[def.Block]; !ok {
		return fmt.Errorf("item %s: block %s: %w", def.ID, def.Block, ErrUnknownBlock)
	}
	if _, ok := h.items[def.ID]; ok {
		return fmt.Errorf("item %s: %w", def.ID, ErrDuplicateRegistration)
	}
	h.items[def.ID] = def
	h.itemOrder = append(h.itemOrder, def.ID)
	return nil
}

// TagsFor returns the tags of a catalog block. WildcardMeta returns only the
// tags shared by every sub-variant.
func (h *Host) TagsFor(id ucwdef.Identifier, meta int) []string {
	b, ok := h.catalog[id]
	if !ok {
		return nil
	}
	tags := slices.Clone(b.tags)
	if meta != ucwdef.WildcardMeta {
		for _, t := range b.metaTags[meta] {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// RegisterTag adds a registered generated block to a tag.
func (h *Host) RegisterTag(name string, def *ucwdef.BlockDef) error {
	if _, ok := h.blocks[def.ID]; !ok {
		return fmt.Errorf("tag %s: block %s: %w", name, def.ID, ErrUnknownBlock)
	}
	if slices.Contains(h.tags[name], def.ID) {
		return nil
	}
	h.tags[name] = append(h.tags[name], def.ID)
	return nil
}

// SourceStack returns the item a catalog sub-variant drops.
func (h *Host) SourceStack(state ucwdef.StateRef) ucwdef.ItemStack {
	meta := state.Meta
	if b, ok := h.catalog[state.Block]; ok {
		if drop, ok := b.drops[state.Meta]; ok {
			meta = drop
		}
	}
	return ucwdef.ItemStack{Item: state.Block, Meta: meta, Count: 1}
}

// SubItems enumerates one stack per item variant.
func (h *Host) SubItems(item *ucwdef.ItemDef) []ucwdef.ItemStack {
	stacks := make([]ucwdef.ItemStack, 0, len(item.Variants))
	for _, v := range item.Variants {
		stacks = append(stacks, ucwdef.ItemStack{Item: item.ID, Meta: v, Count: 1})
	}
	return stacks
}

// AddVariation records one variation family member.
func (h *Host) AddVariation(group string, stack ucwdef.ItemStack) error {
	h.variations = append(h.variations, Variation{Group: group, Stack: stack})
	return nil
}

// Blocks returns the registered generated blocks in registration order.
func (h *Host) Blocks() []*ucwdef.BlockDef {
	out := make([]*ucwdef.BlockDef, 0, len(h.blockOrder))
	for _, id := range h.blockOrder {
		out = append(out, h.blocks[id])
	}
	return out
}

// Items returns the registered items in registration order.
func (h *Host) Items() []*ucwdef.ItemDef {
	out := make([]*ucwdef.ItemDef, 0, len(h.itemOrder))
	for _, id := range h.itemOrder {
		out = append(out, h.items[id])
	}
	return out
}

// TagMembers returns the generated blocks registered under a tag.
func (h *Host) TagMembers(name string) []ucwdef.Identifier {
	return slices.Clone(h.tags[name])
}

// Tags returns the names of every tag with registered members, sorted.
func (h *Host) Tags() []string {
	names := make([]string, 0, len(h.tags))
	for name := range h.tags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Variations returns the recorded variation members in order.
func (h *Host) Variations() []Variation {
	return slices.Clone(h.variations)
}

// Stats counts the host's registrations.
func (h *Host) Stats() Stats {
	s := Stats{
		CatalogBlocks: len(h.catalog),
		Blocks:        len(h.blocks),
		Items:         len(h.items),
		Tags:          len(h.tags),
		Variations:    len(h.variations),
	}
	for _, members := range h.tags {
		s.TagEntries += len(members)
	}
	return s
}
