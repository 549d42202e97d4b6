// SPDX-License-Identifier: MPL-2.0

package memhost

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/chiselworks/ucw/pkg/ucwdef"
)

// ErrInvalidCatalog is the sentinel error wrapped by InvalidCatalogError.
var ErrInvalidCatalog = errors.New("invalid catalog")

type (
	// Catalog lists the blocks that exist in the host before any rule is applied.
	Catalog struct {
		Blocks []CatalogBlock `toml:"blocks"`
	}

	// CatalogBlock is one existing block.
	CatalogBlock struct {
		ID string `toml:"id"`
		// Variants defaults to [0].
		Variants []int    `toml:"variants,omitempty"`
		Tags     []string `toml:"tags,omitempty"`
		// MetaTags maps a decimal meta value to tags of that sub-variant only.
		MetaTags map[string][]string `toml:"meta_tags,omitempty"`
		// Drops maps a decimal meta value to the meta of the item it drops.
		Drops map[string]int `toml:"drops,omitempty"`
	}

	// InvalidCatalogError lists every problem found in a catalog.
	InvalidCatalogError struct {
		Path     string
		Problems []string
	}

	// block is a validated CatalogBlock.
	block struct {
		id       ucwdef.Identifier
		variants []int
		tags     []string
		metaTags map[int][]string
		drops    map[int]int
	}
)

// LoadCatalog reads and validates a TOML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data, path)
}

// ParseCatalog decodes and validates a TOML catalog. Unknown keys are rejected.
func ParseCatalog(data []byte, path string) (*Catalog, error) {
	var c Catalog
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, col := decErr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(path); err != nil {
		return nil, err
	}
	return &c, nil
}

// Marshal encodes the catalog as TOML.
func (c *Catalog) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks identifiers, meta values and duplicate blocks.
func (c *Catalog) Validate(path string) error {
	_, err := c.compile(path)
	return err
}

func (c *Catalog) compile(path string) ([]*block, error) {
	var (
		problems []string
		blocks   = make([]*block, 0, len(c.Blocks))
		seen     = make(map[ucwdef.Identifier]bool, len(c.Blocks))
	)
	for i, cb := range c.Blocks {
		b, errs := cb.compile()
		for _, e := range errs {
			problems = append(problems, fmt.Sprintf("blocks[%d]: %s", i, e))
		}
		if len(errs) > 0 {
			continue
		}
		if seen[b.id] {
			problems = append(problems, fmt.Sprintf("blocks[%d]: duplicate block %s", i, b.id))
			continue
		}
		seen[b.id] = true
		blocks = append(blocks, b)
	}
	if len(problems) > 0 {
		return nil, &InvalidCatalogError{Path: path, Problems: problems}
	}
	return blocks, nil
}

func (cb CatalogBlock) compile() (*block, []string) {
	var problems []string
	id, err := ucwdef.ParseIdentifier(cb.ID)
	if err != nil {
		problems = append(problems, err.Error())
	}

	variants := slices.Clone(cb.Variants)
	if len(variants) == 0 {
		variants = []int{0}
	}
	for _, v := range variants {
		if v < 0 || v >= ucwdef.WildcardMeta {
			problems = append(problems, fmt.Sprintf("variant %d out of range [0, %d)", v, ucwdef.WildcardMeta))
		}
	}
	if len(slices.Compact(slices.Sorted(slices.Values(variants)))) != len(variants) {
		problems = append(problems, "variants must be unique")
	}

	parseMeta := func(field, key string) (int, bool) {
		meta, err := strconv.Atoi(key)
		if err != nil || !slices.Contains(variants, meta) {
			problems = append(problems, fmt.Sprintf("%s key %q is not a variant", field, key))
			return 0, false
		}
		return meta, true
	}

	b := &block{
		id:       id,
		variants: variants,
		tags:     slices.Clone(cb.Tags),
		metaTags: make(map[int][]string, len(cb.MetaTags)),
		drops:    make(map[int]int, len(cb.Drops)),
	}
	for key, tags := range cb.MetaTags {
		if meta, ok := parseMeta("meta_tags", key); ok {
			b.metaTags[meta] = slices.Clone(tags)
		}
	}
	for key, drop := range cb.Drops {
		if meta, ok := parseMeta("drops", key); ok {
			if drop < 0 || drop >= ucwdef.WildcardMeta {
				problems = append(problems, fmt.Sprintf("drops[%q] = %d out of range", key, drop))
				continue
			}
			b.drops[meta] = drop
		}
	}
	slices.Sort(problems)
	return b, problems
}

// Error implements the error interface.
func (e *InvalidCatalogError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "invalid catalog %s:", e.Path)
	for _, p := range e.Problems {
		buf.WriteString("\n  - ")
		buf.WriteString(p)
	}
	return buf.String()
}

// Unwrap returns ErrInvalidCatalog for errors.Is() compatibility.
func (e *InvalidCatalogError) Unwrap() error { return ErrInvalidCatalog }
