// SPDX-License-Identifier: MPL-2.0

package memhost

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiselworks/ucw/internal/testutil"
	"github.com/chiselworks/ucw/pkg/ucwdef"
)

const testCatalog = `
[[blocks]]
id = "minecraft:stone"
variants = [0, 1, 2]
tags = ["stone"]

[blocks.drops]
"1" = 0

[blocks.meta_tags]
"2" = ["polished"]

[[blocks]]
id = "chisel:marble"
variants = [0, 1]

[[blocks]]
id = "dirt"
`

func newTestHost(t *testing.T) *Host {
	t.Helper()
	c, err := ParseCatalog([]byte(testCatalog), "catalog.toml")
	require.NoError(t, err)
	h, err := New(c)
	require.NoError(t, err)
	return h
}

func TestParseCatalog(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)

	info, ok := h.LookupBlock("minecraft:stone")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, info.Variants)

	dirt, ok := h.LookupBlock("minecraft:dirt")
	require.True(t, ok, "namespace defaults to minecraft")
	assert.Equal(t, []int{0}, dirt.Variants, "variants default to [0]")

	_, ok = h.LookupBlock("minecraft:missing")
	assert.False(t, ok)
	assert.Equal(t, 3, h.Stats().CatalogBlocks)
}

func TestParseCatalog_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		invalid bool
	}{
		{name: "syntax error", data: "[[blocks]\nid = 1"},
		{name: "unknown key", data: "[[blocks]]\nid = \"stone\"\ncolour = \"grey\""},
		{name: "bad identifier", data: "[[blocks]]\nid = \"Stone\"", invalid: true},
		{name: "duplicate block", data: "[[blocks]]\nid = \"stone\"\n[[blocks]]\nid = \"minecraft:stone\"", invalid: true},
		{name: "meta out of range", data: "[[blocks]]\nid = \"stone\"\nvariants = [32767]", invalid: true},
		{name: "drop for unknown variant", data: "[[blocks]]\nid = \"stone\"\n[blocks.drops]\n\"4\" = 0", invalid: true},
		{name: "duplicate variants", data: "[[blocks]]\nid = \"stone\"\nvariants = [1, 1]", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseCatalog([]byte(tt.data), "bad.toml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bad.toml")
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidCatalog)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.toml")
	testutil.MustWriteFile(t, path, testCatalog)

	h, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Stats().CatalogBlocks)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestCatalog_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := ParseCatalog([]byte(testCatalog), "catalog.toml")
	require.NoError(t, err)
	data, err := c.Marshal()
	require.NoError(t, err)

	again, err := ParseCatalog(data, "marshaled.toml")
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestHost_Registration(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	def := &ucwdef.BlockDef{ID: "ucw:chisel_marble__minecraft_stone_0"}
	item := &ucwdef.ItemDef{ID: def.ID, Block: def.ID, Variants: []int{0, 1}}

	require.ErrorIs(t, h.RegisterItem(item), ErrUnknownBlock, "items need their block first")
	require.ErrorIs(t, h.RegisterTag("stone", def), ErrUnknownBlock)

	require.NoError(t, h.RegisterBlock(def))
	require.ErrorIs(t, h.RegisterBlock(def), ErrDuplicateRegistration)
	require.ErrorIs(t, h.RegisterBlock(&ucwdef.BlockDef{ID: "minecraft:stone"}), ErrDuplicateRegistration)

	require.NoError(t, h.RegisterItem(item))
	require.ErrorIs(t, h.RegisterItem(item), ErrDuplicateRegistration)

	require.NoError(t, h.RegisterTag("stone", def))
	require.NoError(t, h.RegisterTag("stone", def), "re-tagging is a no-op")

	assert.Equal(t, []*ucwdef.BlockDef{def}, h.Blocks())
	assert.Equal(t, []*ucwdef.ItemDef{item}, h.Items())
	assert.Equal(t, []ucwdef.Identifier{def.ID}, h.TagMembers("stone"))
	assert.Equal(t, []string{"stone"}, h.Tags())
	assert.Equal(t, Stats{CatalogBlocks: 3, Blocks: 1, Items: 1, Tags: 1, TagEntries: 1}, h.Stats())
}

func TestHost_TagsFor(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	assert.Equal(t, []string{"stone"}, h.TagsFor("minecraft:stone", ucwdef.WildcardMeta))
	assert.Equal(t, []string{"stone", "polished"}, h.TagsFor("minecraft:stone", 2))
	assert.Empty(t, h.TagsFor("chisel:marble", ucwdef.WildcardMeta))
	assert.Nil(t, h.TagsFor("minecraft:missing", 0))
}

func TestHost_ItemSource(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	assert.Equal(t, ucwdef.ItemStack{Item: "minecraft:stone", Meta: 0, Count: 1},
		h.SourceStack(ucwdef.StateRef{Block: "minecraft:stone", Meta: 1}), "drops map meta 1 to 0")
	assert.Equal(t, ucwdef.ItemStack{Item: "minecraft:stone", Meta: 2, Count: 1},
		h.SourceStack(ucwdef.StateRef{Block: "minecraft:stone", Meta: 2}))

	stacks := h.SubItems(&ucwdef.ItemDef{ID: "ucw:x", Variants: []int{0, 3}})
	assert.Equal(t, []ucwdef.ItemStack{{Item: "ucw:x", Meta: 0, Count: 1}, {Item: "ucw:x", Meta: 3, Count: 1}}, stacks)

	require.NoError(t, h.AddVariation("g", stacks[0]))
	assert.Equal(t, []Variation{{Group: "g", Stack: stacks[0]}}, h.Variations())
}
