// SPDX-License-Identifier: MPL-2.0

package variation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiselworks/ucw/pkg/ucwdef"
)

// fakeItems drops sub-variants as themselves, except that the mapping in
// drops overrides the dropped meta.
type fakeItems struct {
	drops map[ucwdef.StateRef]int
}

func (f fakeItems) SourceStack(state ucwdef.StateRef) ucwdef.ItemStack {
	meta := state.Meta
	if m, ok := f.drops[state]; ok {
		meta = m
	}
	return ucwdef.ItemStack{Item: state.Block, Meta: meta, Count: 1}
}

func (fakeItems) SubItems(item *ucwdef.ItemDef) []ucwdef.ItemStack {
	stacks := make([]ucwdef.ItemStack, 0, len(item.Variants))
	for _, v := range item.Variants {
		stacks = append(stacks, ucwdef.ItemStack{Item: item.ID, Meta: v, Count: 1})
	}
	return stacks
}

func rule(group string, source ucwdef.Identifier, through ucwdef.Identifier, metas ...int) *ucwdef.Rule {
	r := &ucwdef.Rule{Source: source, Group: group, Through: through, Factories: map[int]*ucwdef.ObjectFactory{}}
	for i, meta := range metas {
		if meta < 0 {
			r.From = append(r.From, nil)
			continue
		}
		state := ucwdef.StateRef{Block: source, Meta: meta}
		r.From = append(r.From, &state)
		id := ucwdef.GeneratedID("ucw", through, state)
		r.Factories[i] = &ucwdef.ObjectFactory{
			Block: &ucwdef.BlockDef{ID: id, Source: state, Through: through},
			Item:  &ucwdef.ItemDef{ID: id, Block: id, Variants: []int{0, 1}},
		}
	}
	r.FromCount = len(r.From)
	return r
}

func TestGroupKey(t *testing.T) {
	t.Parallel()

	single := rule("chiseled_stone", "minecraft:stone", "chisel:marble", 0)
	assert.Equal(t, "chiseled_stone", GroupKey(single, 0))

	sparse := rule("g", "minecraft:stone", "chisel:marble", 0, -1, 2)
	assert.Equal(t, "g_0", GroupKey(sparse, 0))
	assert.Equal(t, "g_2", GroupKey(sparse, 2))
}

func TestExpand_SparseVariants(t *testing.T) {
	t.Parallel()

	families := Expand([]*ucwdef.Rule{rule("g", "minecraft:stone", "chisel:marble", 0, -1, 2)}, fakeItems{})
	require.Len(t, families, 2)
	assert.Equal(t, "g_0", families[0].Key)
	assert.Equal(t, "g_2", families[1].Key)

	id := ucwdef.GeneratedID("ucw", "chisel:marble", ucwdef.StateRef{Block: "minecraft:stone", Meta: 2})
	assert.Equal(t, []ucwdef.ItemStack{
		{Item: "minecraft:stone", Meta: 2, Count: 1},
		{Item: id, Meta: 0, Count: 1},
		{Item: id, Meta: 1, Count: 1},
	}, families[1].Members)
}

func TestExpand_SourceStackUsesDrops(t *testing.T) {
	t.Parallel()

	items := fakeItems{drops: map[ucwdef.StateRef]int{{Block: "minecraft:stone", Meta: 0}: 5}}
	families := Expand([]*ucwdef.Rule{rule("g", "minecraft:stone", "chisel:marble", 0)}, items)
	require.Len(t, families, 1)
	assert.Equal(t, ucwdef.ItemStack{Item: "minecraft:stone", Meta: 5, Count: 1}, families[0].Members[0])
}

func TestExpand_MergesAndDeduplicates(t *testing.T) {
	t.Parallel()

	a := rule("shared", "minecraft:stone", "chisel:marble", 0)
	b := rule("shared", "minecraft:stone", "chisel:granite", 0)
	families := Expand([]*ucwdef.Rule{a, b}, fakeItems{})

	require.Len(t, families, 1)
	f := families[0]
	assert.Equal(t, "shared", f.Key)
	// The shared source stack appears once, then each rule's sub-items.
	assert.Len(t, f.Members, 5)
	assert.Equal(t, ucwdef.ItemStack{Item: "minecraft:stone", Meta: 0, Count: 1}, f.Members[0])

	found, ok := Find(families, "shared")
	assert.True(t, ok)
	assert.Equal(t, f, found)
	_, ok = Find(families, "missing")
	assert.False(t, ok)
}

func TestPublish(t *testing.T) {
	t.Parallel()

	families := Expand([]*ucwdef.Rule{rule("g", "minecraft:stone", "chisel:marble", 0, 1)}, fakeItems{})

	var got []string
	err := Publish(families, RegistrarFunc(func(group string, stack ucwdef.ItemStack) error {
		got = append(got, group+"="+stack.String())
		return nil
	}))
	require.NoError(t, err)
	assert.Len(t, got, 6)
	assert.Equal(t, "g_0=minecraft:stone#0", got[0])
	assert.Equal(t, "g_1=minecraft:stone#1", got[3])

	boom := errors.New("registry closed")
	err = Publish(families, RegistrarFunc(func(string, ucwdef.ItemStack) error { return boom }))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"g_0"`)
}
