// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// Schema is a compiled CUE schema rooted at one definition.
type Schema struct {
	ctx        *cue.Context
	root       cue.Value
	definition string
}

// Compile compiles the schema source and looks up the root definition
// (e.g. "#Rule", "#Config").
func Compile(source, definition string) (*Schema, error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(source)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	root := schemaValue.LookupPath(cue.ParsePath(definition))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", definition, root.Err())
	}

	return &Schema{ctx: ctx, root: root, definition: definition}, nil
}

// MustCompile is like Compile but panics on error. Use it for embedded schemas.
func MustCompile(source, definition string) *Schema {
	s, err := Compile(source, definition)
	if err != nil {
		panic(err)
	}
	return s
}

// Definition returns the root definition path the schema was compiled with.
func (s *Schema) Definition() string { return s.definition }

// UnifyCUE compiles CUE (or JSON, which is valid CUE) source, unifies it with
// the schema root and validates the result.
func (s *Schema) UnifyCUE(data []byte, opts ...Option) (cue.Value, error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	userValue := s.ctx.CompileBytes(data, cue.Filename(o.filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), o.filename)
	}
	return s.unify(userValue, o)
}

// UnifyJSON extracts strict JSON, unifies it with the schema root and
// validates the result.
func (s *Schema) UnifyJSON(data []byte, opts ...Option) (cue.Value, error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	expr, err := cuejson.Extract(o.filename, data)
	if err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	userValue := s.ctx.BuildExpr(expr, cue.Filename(o.filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), o.filename)
	}
	return s.unify(userValue, o)
}

func (s *Schema) unify(userValue cue.Value, o parseOptions) (cue.Value, error) {
	unified := s.root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	return unified, nil
}

// DecodeJSON validates strict JSON against the schema and decodes it into T.
func DecodeJSON[T any](s *Schema, data []byte, opts ...Option) (*T, error) {
	unified, err := s.UnifyJSON(data, opts...)
	if err != nil {
		return nil, err
	}
	return decode[T](unified, applyOptions(opts).filename)
}

// DecodeCUE validates CUE source against the schema and decodes it into T.
func DecodeCUE[T any](s *Schema, data []byte, opts ...Option) (*T, error) {
	unified, err := s.UnifyCUE(data, opts...)
	if err != nil {
		return nil, err
	}
	return decode[T](unified, applyOptions(opts).filename)
}

func decode[T any](v cue.Value, filename string) (*T, error) {
	var result T
	if err := v.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}
	return &result, nil
}

func applyOptions(opts []Option) parseOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
