// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	// FormatText is styled human-readable output.
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatYAML is YAML.
	FormatYAML OutputFormat = "yaml"
)

// ErrInvalidOutputFormat is returned for an unknown --format value.
var ErrInvalidOutputFormat = errors.New("invalid output format")

// OutputFormat selects how listing commands print results.
type OutputFormat string

// IsValid returns whether the format is known, and a list of validation
// errors if it is not.
func (f OutputFormat) IsValid() (bool, []error) {
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q (valid: text, json, yaml)", ErrInvalidOutputFormat, string(f))}
	}
}

// writeStructured encodes v as JSON or YAML. Text output is handled by the
// caller.
func writeStructured(w io.Writer, format OutputFormat, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutputFormat, string(format))
	}
}
