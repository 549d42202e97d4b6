// SPDX-License-Identifier: MPL-2.0

// Package memhost is an in-memory host namespace: a catalog of existing
// blocks loaded from TOML plus the block, item, tag and variation registries
// that generated content is registered into. The ucw CLI uses it as the
// reference host; tests use it as a realistic fake.
//
// Catalog format:
//
//	[[blocks]]
//	id = "minecraft:stone"
//	variants = [0, 1, 2, 3]
//	tags = ["stone"]          # tags of every sub-variant
//
//	[blocks.drops]            # meta -> dropped item meta
//	"1" = 0
//
//	[blocks.meta_tags]        # tags of one sub-variant
//	"1" = ["granite"]
package memhost
