// SPDX-License-Identifier: MPL-2.0

package ucwdef

import (
	_ "embed"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"

	"github.com/chiselworks/ucw/pkg/cueutil"
)

const (
	// DocumentEmpty means the document is valid but has no "blocks" section.
	DocumentEmpty DocumentStatus = iota
	// DocumentParsed means every rule object in "blocks" was accepted or
	// silently skipped.
	DocumentParsed
	// DocumentPartial means at least one rule object produced a problem.
	DocumentPartial
)

//go:embed ucwdef_schema.cue
var ruleSchema string

type (
	// DocumentStatus classifies a successfully read document.
	DocumentStatus int

	// ParseOptions configure ParseDocument.
	ParseOptions struct {
		// Namespace is given to generated identifiers. Empty means
		// DefaultGeneratedNamespace.
		Namespace string
		// MaxDocumentSize limits the document size in bytes. Zero means
		// cueutil.DefaultMaxFileSize; a negative value disables the limit.
		MaxDocumentSize int64
		// SourceID is recorded in each rule's Origin.
		SourceID string
		// Logger receives debug messages for silently dropped rules. May be nil.
		Logger *log.Logger
		// Schema is a rule schema from RuleSchema, reused across documents.
		// Nil compiles one for this call.
		Schema *cueutil.Schema
	}

	// DocumentResult is the outcome of parsing one document: the accepted
	// rules in document order and one error per rejected rule object.
	DocumentResult struct {
		Rules    []*Rule
		Problems []error

		hasBlocks bool
	}

	// rawRule is the decoded shape of one rule object. "from" is read
	// separately because it is either a string or a list.
	rawRule struct {
		Through   string `json:"through"`
		BasedUpon string `json:"basedUpon"`
		Group     string `json:"group"`
	}
)

// String returns the status name.
func (s DocumentStatus) String() string {
	switch s {
	case DocumentEmpty:
		return "empty"
	case DocumentParsed:
		return "parsed"
	case DocumentPartial:
		return "partial"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Status reports whether the document had a "blocks" section and whether
// every rule object in it was accepted.
func (r *DocumentResult) Status() DocumentStatus {
	switch {
	case !r.hasBlocks:
		return DocumentEmpty
	case len(r.Problems) > 0:
		return DocumentPartial
	default:
		return DocumentParsed
	}
}

// RuleSchema compiles the embedded #Rule schema. The result is not safe for
// concurrent use; share it only between calls made from one goroutine.
func RuleSchema() (*cueutil.Schema, error) {
	return cueutil.Compile(ruleSchema, "#Rule")
}

// ParseDocument parses one ucwdefs document. It returns a *ParseError only
// when the document as a whole is unusable: invalid JSON, not an object, too
// large, or a "blocks" value that is not an array. Problems with individual
// rule objects are collected in DocumentResult.Problems and never affect
// sibling rules.
func ParseDocument(data []byte, path string, resolver Resolver, opts ParseOptions) (*DocumentResult, error) {
	maxSize := opts.MaxDocumentSize
	if maxSize == 0 {
		maxSize = cueutil.DefaultMaxFileSize
	}
	if err := cueutil.CheckFileSize(data, maxSize, path); err != nil {
		return nil, &ParseError{Path: path, Index: -1, Reason: "document too large", Cause: err}
	}
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: path, Index: -1, Reason: "invalid JSON"}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, &ParseError{Path: path, Index: -1, Reason: "document must be a JSON object"}
	}

	result := &DocumentResult{}
	blocks := doc.Get("blocks")
	if !blocks.Exists() {
		return result, nil
	}
	if !blocks.IsArray() {
		return nil, &ParseError{Path: path, Index: -1, Reason: `"blocks" must be an array`}
	}
	result.hasBlocks = true

	schema := opts.Schema
	if schema == nil {
		var err error
		if schema, err = RuleSchema(); err != nil {
			return nil, err
		}
	}

	b := &builder{
		path:      path,
		resolver:  resolver,
		schema:    schema,
		namespace: opts.Namespace,
		sourceID:  opts.SourceID,
		logger:    opts.Logger,
	}
	if b.namespace == "" {
		b.namespace = DefaultGeneratedNamespace
	}

	index := 0
	blocks.ForEach(func(_, element gjson.Result) bool {
		i := index
		index++
		if !element.IsObject() {
			return true
		}
		rule, err := b.safeBuild(element, i)
		switch {
		case err != nil:
			result.Problems = append(result.Problems, err)
		case rule != nil:
			result.Rules = append(result.Rules, rule)
		}
		return true
	})

	return result, nil
}

// builder turns rule objects of one document into Rules.
type builder struct {
	path      string
	resolver  Resolver
	schema    *cueutil.Schema
	namespace string
	sourceID  string
	logger    *log.Logger
}

// safeBuild isolates a panic in one rule object from the rest of the document.
func (b *builder) safeBuild(element gjson.Result, index int) (rule *Rule, err error) {
	defer func() {
		if r := recover(); r != nil {
			rule = nil
			err = &ParseError{Path: b.path, Index: index, Reason: "internal error", Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	return b.build(element, index)
}

func (b *builder) build(element gjson.Result, index int) (*Rule, error) {
	raw, err := cueutil.DecodeJSON[rawRule](b.schema, []byte(element.Raw),
		cueutil.WithFilename(fmt.Sprintf("%s#blocks[%d]", b.path, index)),
		cueutil.WithMaxFileSize(0),
	)
	if err != nil {
		return nil, &ParseError{Path: b.path, Index: index, Reason: "schema validation failed", Cause: err}
	}

	source, from, err := b.resolveFrom(element.Get("from"), index)
	if err != nil {
		return nil, err
	}

	through, err := ParseIdentifier(raw.Through)
	if err != nil {
		return nil, &ParseError{Path: b.path, Index: index, Reason: "invalid through", Cause: err}
	}
	throughInfo, ok := b.resolver.LookupBlock(through)
	if !ok {
		return nil, &UnresolvedReferenceError{Path: b.path, Index: index, Field: "through", Ref: string(through)}
	}

	basedUpon := StateRef{Block: through}
	if raw.BasedUpon != "" {
		ref, _, err := ParseStateRef(raw.BasedUpon)
		if err != nil {
			return nil, &ParseError{Path: b.path, Index: index, Reason: "invalid basedUpon", Cause: err}
		}
		if _, ok := b.resolver.LookupBlock(ref.Block); !ok {
			return nil, &UnresolvedReferenceError{Path: b.path, Index: index, Field: "basedUpon", Ref: string(ref.Block)}
		}
		basedUpon = ref
	}

	rule := &Rule{
		Source:    source,
		Group:     raw.Group,
		Through:   through,
		BasedUpon: basedUpon,
		From:      from,
		FromCount: len(from),
		Factories: make(map[int]*ObjectFactory, len(from)),
		Origin:    Origin{SourceID: b.sourceID, Path: b.path, Index: index},
	}
	for i, state := range from {
		if state == nil {
			continue
		}
		id := GeneratedID(b.namespace, through, *state)
		rule.Factories[i] = &ObjectFactory{
			Block: &BlockDef{
				ID:        id,
				Source:    *state,
				Through:   through,
				BasedUpon: basedUpon,
				Variants:  slices.Clone(throughInfo.Variants),
			},
			Item: &ItemDef{
				ID:       id,
				Block:    id,
				Variants: slices.Clone(throughInfo.Variants),
			},
		}
	}

	if !rule.IsValid() {
		if b.logger != nil {
			b.logger.Debug("dropping rule without usable variants", "path", b.path, "index", index, "source", source)
		}
		return nil, nil
	}
	return rule, nil
}

// resolveFrom expands the "from" value into ordered slots. Slots whose meta
// the source block does not define stay nil.
func (b *builder) resolveFrom(value gjson.Result, index int) (Identifier, []*StateRef, error) {
	if !value.IsArray() {
		ref, hasMeta, err := ParseStateRef(value.String())
		if err != nil {
			return "", nil, &ParseError{Path: b.path, Index: index, Reason: "invalid from", Cause: err}
		}
		info, ok := b.resolver.LookupBlock(ref.Block)
		if !ok {
			return "", nil, &UnresolvedReferenceError{Path: b.path, Index: index, Field: "from", Ref: string(ref.Block)}
		}
		if hasMeta {
			return ref.Block, []*StateRef{b.slot(info, ref)}, nil
		}
		from := make([]*StateRef, 0, len(info.Variants))
		for _, meta := range info.Variants {
			from = append(from, &StateRef{Block: ref.Block, Meta: meta})
		}
		return ref.Block, from, nil
	}

	var (
		source Identifier
		info   BlockInfo
		from   []*StateRef
		err    error
	)
	value.ForEach(func(_, entry gjson.Result) bool {
		if entry.Type == gjson.Null {
			from = append(from, nil)
			return true
		}
		ref, _, perr := ParseStateRef(entry.String())
		if perr != nil {
			err = &ParseError{Path: b.path, Index: index, Reason: "invalid from entry", Cause: perr}
			return false
		}
		if source == "" {
			var ok bool
			if info, ok = b.resolver.LookupBlock(ref.Block); !ok {
				err = &UnresolvedReferenceError{Path: b.path, Index: index, Field: "from", Ref: string(ref.Block)}
				return false
			}
			source = ref.Block
		} else if ref.Block != source {
			err = &ParseError{
				Path: b.path, Index: index,
				Reason: fmt.Sprintf("from entries must name one block, found %s and %s", source, ref.Block),
			}
			return false
		}
		from = append(from, b.slot(info, ref))
		return true
	})
	if err != nil {
		return "", nil, err
	}
	if source == "" {
		return "", nil, &ParseError{Path: b.path, Index: index, Reason: "from has no non-null entry"}
	}
	return source, from, nil
}

func (b *builder) slot(info BlockInfo, ref StateRef) *StateRef {
	if !slices.Contains(info.Variants, ref.Meta) {
		return nil
	}
	return &ref
}
